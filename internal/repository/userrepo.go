// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/docgate/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository is the directory of identities seen by the service.
type UserRepository interface {
	// Touch inserts or refreshes a user with the role asserted by its latest token.
	Touch(ctx context.Context, u model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// ListAdmins returns the IDs of all administrators.
	ListAdmins(ctx context.Context) ([]uuid.UUID, error)
}

// NotificationRepository persists notifications addressed to users.
type NotificationRepository interface {
	// Insert stores a notification.
	Insert(ctx context.Context, n *model.Notification) error
	// ListForUser returns the notifications of a user, newest first.
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Notification, error)
}

// Tx is a unit of work spanning document and approval rows.
type Tx interface {
	Documents() DocumentRepository
	Approvals() ApprovalRepository
}

// Store runs units of work. fn's writes commit together when it returns nil
// and roll back together otherwise.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Documents and Approvals give non-transactional read access.
	Documents() DocumentRepository
	Approvals() ApprovalRepository
}
