package audit

import "context"

type Repository interface {
	Append(ctx context.Context, record *Record) error
	List(ctx context.Context) ([]*Record, error)
}
