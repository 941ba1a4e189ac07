package repository

import (
	"context"

	"github.com/and161185/docgate/internal/model"
	"github.com/gofrs/uuid/v5"
)

// DocumentRepository provides versioned access to document rows.
// Lifecycle guards live in the service layer; the repository enforces the version CAS.
type DocumentRepository interface {
	// Insert stores a new document. ID, Ver and Status are set by the caller.
	Insert(ctx context.Context, d *model.Document) error

	// Get returns a single document by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Document, error)

	// GetForUpdate returns a document and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Document, error)

	// Update persists d if the stored version still equals baseVer.
	// d.Ver must already hold the new version; a stale baseVer yields ErrVersionMismatch.
	Update(ctx context.Context, d *model.Document, baseVer int64) error

	// List returns one page of documents matching f and the total match count.
	List(ctx context.Context, f model.DocumentFilter) ([]model.Document, int64, error)
}
