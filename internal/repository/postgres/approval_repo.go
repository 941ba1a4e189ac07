package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/and161185/docgate/internal/errs"
	"github.com/and161185/docgate/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// ApprovalRepo implements ApprovalRepository using PostgreSQL.
type ApprovalRepo struct{ q querier }

// NewApprovalRepo constructs an approval repository over the pool.
func NewApprovalRepo(db *DB) *ApprovalRepo { return &ApprovalRepo{q: db.Pool} }

const approvalColumns = `id, type, document_id, reason, status, admin_comment, requested_by, reviewed_by, reviewed_at, created_at`

// Insert stores a pending approval. The partial unique index
// approvals_one_pending_per_document turns a concurrent duplicate into ErrDuplicatePending.
func (r *ApprovalRepo) Insert(ctx context.Context, a *model.Approval) error {
	const q = `
INSERT INTO approvals (id, type, document_id, reason, status, requested_by)
VALUES ($1,$2,$3,$4,'PENDING',$5)
RETURNING created_at`
	err := r.q.QueryRow(ctx, q, a.ID, string(a.Type), a.DocumentID, a.Reason, a.RequestedBy).Scan(&a.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrDuplicatePending
	}
	return err
}

// Get returns a single approval by id.
func (r *ApprovalRepo) Get(ctx context.Context, id uuid.UUID) (*model.Approval, error) {
	q := `SELECT ` + approvalColumns + ` FROM approvals WHERE id=$1`
	return scanApproval(r.q.QueryRow(ctx, q, id))
}

// GetForUpdate returns an approval and row-locks it within the current transaction.
func (r *ApprovalRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Approval, error) {
	q := `SELECT ` + approvalColumns + ` FROM approvals WHERE id=$1 FOR UPDATE`
	return scanApproval(r.q.QueryRow(ctx, q, id))
}

// FindPending returns the pending approval of a document.
func (r *ApprovalRepo) FindPending(ctx context.Context, documentID uuid.UUID) (*model.Approval, error) {
	q := `SELECT ` + approvalColumns + ` FROM approvals WHERE document_id=$1 AND status='PENDING'`
	return scanApproval(r.q.QueryRow(ctx, q, documentID))
}

// Resolve flips a pending approval to its terminal status.
func (r *ApprovalRepo) Resolve(ctx context.Context, id uuid.UUID, rv model.Review) error {
	const q = `
UPDATE approvals
SET status=$2, admin_comment=$3, reviewed_by=$4, reviewed_at=$5
WHERE id=$1 AND status='PENDING'`
	tag, err := r.q.Exec(ctx, q, id, string(rv.Outcome), rv.Comment, rv.ReviewerID, rv.ReviewedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrAlreadyReviewed
	}
	return nil
}

// List returns approvals matching f ordered by created_at DESC.
func (r *ApprovalRepo) List(ctx context.Context, f model.ApprovalFilter) ([]model.Approval, error) {
	var (
		conds []string
		args  []any
	)
	if f.PendingOnly {
		conds = append(conds, "status='PENDING'")
	}
	if f.RequestedBy != uuid.Nil {
		args = append(args, f.RequestedBy)
		conds = append(conds, fmt.Sprintf("requested_by=$%d", len(args)))
	}
	q := `SELECT ` + approvalColumns + ` FROM approvals`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC, id"
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Approval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanApproval(row pgx.Row) (*model.Approval, error) {
	var (
		a          model.Approval
		typ        string
		status     string
		comment    *string
		reviewedBy *uuid.UUID
		reviewedAt *time.Time
	)
	err := row.Scan(&a.ID, &typ, &a.DocumentID, &a.Reason, &status, &comment,
		&a.RequestedBy, &reviewedBy, &reviewedAt, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	a.Type = model.ApprovalType(typ)
	if s := model.ApprovalStatus(status); s != model.ApprovalPending {
		rv := &model.Review{Outcome: s}
		if comment != nil {
			rv.Comment = *comment
		}
		if reviewedBy != nil {
			rv.ReviewerID = *reviewedBy
		}
		if reviewedAt != nil {
			rv.ReviewedAt = *reviewedAt
		}
		a.Review = rv
	}
	return &a, nil
}
