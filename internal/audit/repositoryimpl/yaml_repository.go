package repositoryimpl

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/toolgate/toolgate/internal/audit"
	"github.com/toolgate/toolgate/pkg/cerr"
	"github.com/toolgate/toolgate/pkg/storage"
)

const auditPrefix = "audit"

// YAMLRepository stores one YAML file per audit record. Append-only by
// construction: records are never updated or deleted.
type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", auditPrefix, id)
}

func (r *YAMLRepository) Append(ctx context.Context, record *audit.Record) error {
	data, err := yaml.Marshal(record)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal audit record: %w", err))
	}
	if err := r.storage.Write(ctx, path(record.ID), data); err != nil {
		return cerr.WrapStorageWriteError("audit_record", err)
	}
	return nil
}

// List returns all records in chronological order. Files that fail to
// read or parse are skipped; a damaged record must not hide the rest of
// the trail.
func (r *YAMLRepository) List(ctx context.Context) ([]*audit.Record, error) {
	paths, err := r.storage.List(ctx, auditPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("audit_records", err)
	}

	sort.Strings(paths)

	var records []*audit.Record
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var record audit.Record
		if err := yaml.Unmarshal(data, &record); err != nil {
			continue
		}
		records = append(records, &record)
	}
	return records, nil
}
