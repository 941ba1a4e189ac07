// Package notify delivers notifications produced by the approval workflow.
// Delivery is best effort: callers log failures and never roll back.
package notify

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/multierr"

	"github.com/and161185/docgate/internal/model"
	"github.com/and161185/docgate/internal/repository"
)

// Sink records a notification addressed to one user.
type Sink interface {
	Notify(ctx context.Context, n model.Notification) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n model.Notification) error

// Notify calls f.
func (f SinkFunc) Notify(ctx context.Context, n model.Notification) error { return f(ctx, n) }

// Directory enumerates administrators.
type Directory interface {
	ListAdmins(ctx context.Context) ([]uuid.UUID, error)
}

// StoreSink persists notifications so users can list them later.
type StoreSink struct {
	repo repository.NotificationRepository
}

// NewStoreSink returns a sink over the notification repository.
func NewStoreSink(repo repository.NotificationRepository) *StoreSink {
	return &StoreSink{repo: repo}
}

// Notify inserts n, assigning an id when it has none.
func (s *StoreSink) Notify(ctx context.Context, n model.Notification) error {
	if n.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		n.ID = id
	}
	return s.repo.Insert(ctx, &n)
}

// Multi delivers to every sink and joins their errors.
type Multi []Sink

// Notify fans n out; one sink failing does not stop the others.
func (m Multi) Notify(ctx context.Context, n model.Notification) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Notify(ctx, n))
	}
	return err
}
