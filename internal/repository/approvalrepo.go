package repository

import (
	"context"

	"github.com/and161185/docgate/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ApprovalRepository provides access to approval request rows.
type ApprovalRepository interface {
	// Insert stores a pending approval. A second pending approval for the same
	// document yields ErrDuplicatePending.
	Insert(ctx context.Context, a *model.Approval) error

	// Get returns a single approval by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Approval, error)

	// GetForUpdate returns an approval and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Approval, error)

	// FindPending returns the pending approval of a document, or ErrNotFound.
	FindPending(ctx context.Context, documentID uuid.UUID) (*model.Approval, error)

	// Resolve stores the review of a pending approval. An approval that is no
	// longer pending yields ErrAlreadyReviewed.
	Resolve(ctx context.Context, id uuid.UUID, r model.Review) error

	// List returns approvals matching f, newest first.
	List(ctx context.Context, f model.ApprovalFilter) ([]model.Approval, error)
}
