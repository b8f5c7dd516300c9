package pushsubscription

import "context"

type Repository interface {
	// Upsert registers a subscription, replacing any previous
	// registration for the same endpoint. Browsers re-register freely.
	Upsert(ctx context.Context, s *Subscription) error
	List(ctx context.Context) ([]*Subscription, error)
	Delete(ctx context.Context, id string) error
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}
