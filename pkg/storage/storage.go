// Package storage abstracts where gate state lives. Approvals, audit
// records and push subscriptions are all small documents addressed by a
// relative path, so the interface is a flat key-value store over files.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested path does not exist.
// Callers match it with errors.Is.
var ErrNotFound = errors.New("not found")

type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
	// List returns the file paths directly under prefix, without
	// descending into subdirectories.
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, path string) (bool, error)
}
