package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3200"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".toolgate/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"toolgate/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
}

type GateEnv struct {
	// WorkDir is the directory local policy discovery starts from.
	// Empty disables local-config evaluation.
	WorkDir string `envconfig:"WORK_DIR" default:""`
	// AutoApproveLowRisk allows low-risk requests without a prompt.
	AutoApproveLowRisk bool `envconfig:"AUTO_APPROVE_LOW_RISK" default:"false"`
	// ApprovalTimeout bounds how long a human prompt stays open.
	ApprovalTimeout time.Duration `envconfig:"APPROVAL_TIMEOUT" default:"5m"`
	// MailboxDir overrides where decision mailbox files are exchanged.
	// Empty means <STORAGE_BASE_DIR>/mailbox.
	MailboxDir string `envconfig:"MAILBOX_DIR" default:""`
}

type VAPIDEnv struct {
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDContact    string `envconfig:"VAPID_CONTACT" default:"mailto:admin@example.com"`
}

type Env struct {
	BaseEnv
	StorageEnv
	GateEnv
	VAPIDEnv
}

const namespace = "TOOLGATE"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

func BaseEnvFromEnv(env *Env) *BaseEnv {
	return &env.BaseEnv
}

func StorageEnvFromEnv(env *Env) *StorageEnv {
	return &env.StorageEnv
}

func GateEnvFromEnv(env *Env) *GateEnv {
	return &env.GateEnv
}

func VAPIDEnvFromEnv(env *Env) *VAPIDEnv {
	return &env.VAPIDEnv
}
