package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/and161185/docgate/internal/errs"
	"github.com/and161185/docgate/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

var docCols = []string{"id", "title", "description", "doc_type", "blob_key", "blob_name", "blob_size",
	"blob_checksum", "created_by", "ver", "status", "created_at", "updated_at"}

func sampleDoc() *model.Document {
	return &model.Document{
		ID:          uuid.Must(uuid.NewV4()),
		Title:       "Contract",
		Description: "signed",
		Type:        "pdf",
		Blob:        model.BlobRef{Key: "k.pdf", Name: "contract.pdf", Size: 42, Checksum: "abc"},
		CreatedBy:   uuid.Must(uuid.NewV4()),
		Ver:         1,
		Status:      model.StatusActive,
	}
}

func docRow(rows *pgxmock.Rows, d *model.Document, ts time.Time) *pgxmock.Rows {
	return rows.AddRow(d.ID, d.Title, d.Description, d.Type, d.Blob.Key, d.Blob.Name, d.Blob.Size,
		d.Blob.Checksum, d.CreatedBy, d.Ver, string(d.Status), ts, ts)
}

func TestDocumentRepo_Insert(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDocumentRepo(db)
	d := sampleDoc()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO documents \(id, title, description, doc_type, blob_key, blob_name, blob_size, blob_checksum, created_by, ver, status\)`).
		WithArgs(d.ID, d.Title, d.Description, d.Type, d.Blob.Key, d.Blob.Name, d.Blob.Size, d.Blob.Checksum,
			d.CreatedBy, int64(1), "ACTIVE").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(ts, ts))

	require.NoError(t, r.Insert(context.Background(), d))
	require.Equal(t, ts, d.CreatedAt)
	require.Equal(t, ts, d.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepo_Get(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDocumentRepo(db)
	d := sampleDoc()
	d.Status = model.StatusPendingReplace
	ts := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, title, .* FROM documents WHERE id=\$1$`).
		WithArgs(d.ID).
		WillReturnRows(docRow(pgxmock.NewRows(docCols), d, ts))
	got, err := r.Get(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, d.Title, got.Title)
	require.Equal(t, d.Blob, got.Blob)
	require.Equal(t, model.StatusPendingReplace, got.Status)

	mock.ExpectQuery(`FROM documents WHERE id=\$1$`).
		WithArgs(d.ID).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(context.Background(), d.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepo_GetForUpdate_Locks(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDocumentRepo(db)
	d := sampleDoc()

	mock.ExpectQuery(`FROM documents WHERE id=\$1 FOR UPDATE`).
		WithArgs(d.ID).
		WillReturnRows(docRow(pgxmock.NewRows(docCols), d, time.Now()))
	got, err := r.GetForUpdate(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, d.ID, got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepo_Update_CAS(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDocumentRepo(db)
	d := sampleDoc()
	d.Ver = 2
	d.Status = model.StatusPendingDelete
	ts := time.Now().UTC()

	args := []any{d.ID, int64(1), d.Title, d.Description, d.Type, d.Blob.Key, d.Blob.Name, d.Blob.Size,
		d.Blob.Checksum, int64(2), "PENDING_DELETE"}

	mock.ExpectQuery(`UPDATE documents SET .* WHERE id=\$1 AND ver=\$2 RETURNING updated_at`).
		WithArgs(args...).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(ts))
	require.NoError(t, r.Update(context.Background(), d, 1))
	require.Equal(t, ts, d.UpdatedAt)

	// stale base version matches no row
	mock.ExpectQuery(`UPDATE documents SET .* WHERE id=\$1 AND ver=\$2`).
		WithArgs(args...).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}))
	err := r.Update(context.Background(), d, 1)
	require.ErrorIs(t, err, errs.ErrVersionMismatch)
	require.ErrorIs(t, err, errs.ErrConflict)

	boom := errors.New("boom")
	mock.ExpectQuery(`UPDATE documents`).
		WithArgs(args...).
		WillReturnError(boom)
	require.ErrorIs(t, r.Update(context.Background(), d, 1), boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepo_List_DefaultHidesDeleted(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDocumentRepo(db)
	d := sampleDoc()

	mock.ExpectQuery(`SELECT count\(\*\) FROM documents WHERE status<>\$1`).
		WithArgs("DELETED").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(11)))
	mock.ExpectQuery(`FROM documents WHERE status<>\$1 ORDER BY created_at DESC, id LIMIT \$2 OFFSET \$3`).
		WithArgs("DELETED", 5, 10).
		WillReturnRows(docRow(pgxmock.NewRows(docCols), d, time.Now()))

	docs, total, err := r.List(context.Background(), model.DocumentFilter{Page: 3, Limit: 5})
	require.NoError(t, err)
	require.Equal(t, int64(11), total)
	require.Len(t, docs, 1)
	require.Equal(t, d.ID, docs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepo_List_AllFilters(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDocumentRepo(db)
	owner := uuid.Must(uuid.NewV4())

	where := `WHERE created_by=\$1 AND \(title ILIKE \$2 OR description ILIKE \$2\) AND doc_type=\$3 AND status=\$4`
	mock.ExpectQuery(`SELECT count\(\*\) FROM documents ` + where).
		WithArgs(owner, `%50\%\_off%`, "pdf", "PENDING_DELETE").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(where + ` ORDER BY created_at DESC, id LIMIT \$5 OFFSET \$6`).
		WithArgs(owner, `%50\%\_off%`, "pdf", "PENDING_DELETE", 20, 0).
		WillReturnRows(pgxmock.NewRows(docCols))

	docs, total, err := r.List(context.Background(), model.DocumentFilter{
		Search:    "50%_off",
		Type:      "pdf",
		Status:    model.StatusPendingDelete,
		CreatedBy: owner,
		Page:      1,
		Limit:     20,
	})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, docs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepo_List_CountError(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDocumentRepo(db)

	boom := errors.New("db down")
	mock.ExpectQuery(`SELECT count`).
		WithArgs("DELETED").
		WillReturnError(boom)
	_, _, err := r.List(context.Background(), model.DocumentFilter{Page: 1, Limit: 10})
	require.ErrorIs(t, err, boom)
}
