package postgres

import (
	"context"
	"errors"

	"github.com/and161185/docgate/internal/errs"
	"github.com/and161185/docgate/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Touch upserts the user with the role and name asserted by its latest token.
func (r *UserRepo) Touch(ctx context.Context, u model.User) error {
	const q = `
INSERT INTO users (id, username, role, seen_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (id) DO UPDATE
SET username=EXCLUDED.username, role=EXCLUDED.role, seen_at=now()`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Username, string(u.Role))
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT id, username, role, seen_at FROM users WHERE id=$1`
	var (
		u    model.User
		role string
	)
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Username, &role, &u.SeenAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}

// ListAdmins returns the IDs of every administrator in the directory.
func (r *UserRepo) ListAdmins(ctx context.Context) ([]uuid.UUID, error) {
	const q = `SELECT id FROM users WHERE role=$1 ORDER BY id`
	rows, err := r.db.Pool.Query(ctx, q, string(model.RoleAdmin))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
