package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/and161185/docgate/internal/errs"
	"github.com/and161185/docgate/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// DocumentRepo implements DocumentRepository using PostgreSQL.
type DocumentRepo struct{ q querier }

// NewDocumentRepo constructs a document repository over the pool.
func NewDocumentRepo(db *DB) *DocumentRepo { return &DocumentRepo{q: db.Pool} }

const docColumns = `id, title, description, doc_type, blob_key, blob_name, blob_size, blob_checksum, created_by, ver, status, created_at, updated_at`

// Insert stores a new document row.
func (r *DocumentRepo) Insert(ctx context.Context, d *model.Document) error {
	const q = `
INSERT INTO documents (id, title, description, doc_type, blob_key, blob_name, blob_size, blob_checksum, created_by, ver, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, q,
		d.ID, d.Title, d.Description, d.Type,
		d.Blob.Key, d.Blob.Name, d.Blob.Size, d.Blob.Checksum,
		d.CreatedBy, d.Ver, string(d.Status),
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	return err
}

// Get returns a single document by id.
func (r *DocumentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	q := `SELECT ` + docColumns + ` FROM documents WHERE id=$1`
	return scanDocument(r.q.QueryRow(ctx, q, id))
}

// GetForUpdate returns a document and row-locks it within the current transaction.
func (r *DocumentRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	q := `SELECT ` + docColumns + ` FROM documents WHERE id=$1 FOR UPDATE`
	return scanDocument(r.q.QueryRow(ctx, q, id))
}

// Update writes the mutable columns with a compare-and-swap on ver.
func (r *DocumentRepo) Update(ctx context.Context, d *model.Document, baseVer int64) error {
	const q = `
UPDATE documents
SET title=$3, description=$4, doc_type=$5, blob_key=$6, blob_name=$7, blob_size=$8, blob_checksum=$9,
    ver=$10, status=$11, updated_at=now()
WHERE id=$1 AND ver=$2
RETURNING updated_at`
	err := r.q.QueryRow(ctx, q,
		d.ID, baseVer,
		d.Title, d.Description, d.Type,
		d.Blob.Key, d.Blob.Name, d.Blob.Size, d.Blob.Checksum,
		d.Ver, string(d.Status),
	).Scan(&d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrVersionMismatch
	}
	return err
}

// List returns a filtered page ordered by created_at DESC plus the total count.
func (r *DocumentRepo) List(ctx context.Context, f model.DocumentFilter) ([]model.Document, int64, error) {
	where, args := documentWhere(f)

	var total int64
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	q := fmt.Sprintf(`SELECT %s FROM documents%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		docColumns, where, n+1, n+2)
	rows, err := r.q.Query(ctx, q, append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Document, 0, f.Limit)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

// documentWhere builds the WHERE clause shared by the count and page queries.
func documentWhere(f model.DocumentFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.CreatedBy != uuid.Nil {
		add("created_by=$%d", f.CreatedBy)
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}
	if f.Type != "" {
		add("doc_type=$%d", f.Type)
	}
	if f.Status != "" {
		add("status=$%d", string(f.Status))
	} else {
		add("status<>$%d", string(model.StatusDeleted))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func scanDocument(row pgx.Row) (*model.Document, error) {
	var (
		d      model.Document
		status string
	)
	err := row.Scan(&d.ID, &d.Title, &d.Description, &d.Type,
		&d.Blob.Key, &d.Blob.Name, &d.Blob.Size, &d.Blob.Checksum,
		&d.CreatedBy, &d.Ver, &status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	d.Status = model.DocumentStatus(status)
	return &d, nil
}
