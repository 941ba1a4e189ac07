package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/and161185/docgate/internal/errs"
	"github.com/and161185/docgate/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var approvalCols = []string{"id", "type", "document_id", "reason", "status", "admin_comment",
	"requested_by", "reviewed_by", "reviewed_at", "created_at"}

func TestApprovalRepo_Insert(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewApprovalRepo(db)
	a := &model.Approval{
		ID:          uuid.Must(uuid.NewV4()),
		Type:        model.ApprovalDelete,
		DocumentID:  uuid.Must(uuid.NewV4()),
		Reason:      "obsolete",
		RequestedBy: uuid.Must(uuid.NewV4()),
	}
	ts := time.Now().UTC()

	q := `INSERT INTO approvals \(id, type, document_id, reason, status, requested_by\) VALUES \(\$1,\$2,\$3,\$4,'PENDING',\$5\)`
	mock.ExpectQuery(q).
		WithArgs(a.ID, "DELETE", a.DocumentID, "obsolete", a.RequestedBy).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(ts))
	require.NoError(t, r.Insert(context.Background(), a))
	require.Equal(t, ts, a.CreatedAt)

	mock.ExpectQuery(q).
		WithArgs(a.ID, "DELETE", a.DocumentID, "obsolete", a.RequestedBy).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	err := r.Insert(context.Background(), a)
	require.ErrorIs(t, err, errs.ErrDuplicatePending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRepo_Get_Pending(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewApprovalRepo(db)
	id, doc, req := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`FROM approvals WHERE id=\$1$`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(approvalCols).
			AddRow(id, "REPLACE", doc, "", "PENDING", nil, req, nil, nil, time.Now()))
	a, err := r.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, model.ApprovalReplace, a.Type)
	require.Equal(t, model.ApprovalPending, a.Status())
	require.Nil(t, a.Review)

	mock.ExpectQuery(`FROM approvals WHERE id=\$1$`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(context.Background(), id)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRepo_GetForUpdate_Reviewed(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewApprovalRepo(db)
	id, doc, req := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	reviewer := uuid.Must(uuid.NewV4())
	reviewedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	comment := "no"

	mock.ExpectQuery(`FROM approvals WHERE id=\$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(approvalCols).
			AddRow(id, "DELETE", doc, "why", "REJECTED", &comment, req, &reviewer, &reviewedAt, time.Now()))
	a, err := r.GetForUpdate(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, model.ApprovalRejected, a.Status())
	require.NotNil(t, a.Review)
	require.Equal(t, reviewer, a.Review.ReviewerID)
	require.Equal(t, reviewedAt, a.Review.ReviewedAt)
	require.Equal(t, "no", a.Review.Comment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRepo_FindPending(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewApprovalRepo(db)
	doc := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`FROM approvals WHERE document_id=\$1 AND status='PENDING'`).
		WithArgs(doc).
		WillReturnRows(pgxmock.NewRows(approvalCols))
	_, err := r.FindPending(context.Background(), doc)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRepo_Resolve(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewApprovalRepo(db)
	id := uuid.Must(uuid.NewV4())
	rv := model.Review{
		Outcome:    model.ApprovalApproved,
		ReviewerID: uuid.Must(uuid.NewV4()),
		Comment:    "ok",
		ReviewedAt: time.Now().UTC(),
	}

	q := `UPDATE approvals SET status=\$2, admin_comment=\$3, reviewed_by=\$4, reviewed_at=\$5 WHERE id=\$1 AND status='PENDING'`
	mock.ExpectExec(q).
		WithArgs(id, "APPROVED", "ok", rv.ReviewerID, rv.ReviewedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.Resolve(context.Background(), id, rv))

	mock.ExpectExec(q).
		WithArgs(id, "APPROVED", "ok", rv.ReviewerID, rv.ReviewedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.Resolve(context.Background(), id, rv), errs.ErrAlreadyReviewed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRepo_List(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewApprovalRepo(db)
	req := uuid.Must(uuid.NewV4())
	id1, id2 := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`FROM approvals WHERE status='PENDING' AND requested_by=\$1 ORDER BY created_at DESC, id LIMIT \$2 OFFSET \$3`).
		WithArgs(req, 10, 20).
		WillReturnRows(pgxmock.NewRows(approvalCols).
			AddRow(id1, "DELETE", uuid.Must(uuid.NewV4()), "", "PENDING", nil, req, nil, nil, time.Now()).
			AddRow(id2, "REPLACE", uuid.Must(uuid.NewV4()), "", "PENDING", nil, req, nil, nil, time.Now()))
	got, err := r.List(context.Background(), model.ApprovalFilter{PendingOnly: true, RequestedBy: req, Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, id1, got[0].ID)
	require.Equal(t, id2, got[1].ID)

	mock.ExpectQuery(`SELECT .* FROM approvals ORDER BY created_at DESC, id$`).
		WithArgs().
		WillReturnRows(pgxmock.NewRows(approvalCols))
	got, err = r.List(context.Background(), model.ApprovalFilter{})
	require.NoError(t, err)
	require.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
