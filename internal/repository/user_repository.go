package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/cinema-booking/internal/model"
)

// UserRepo reads accounts from the shared users table.  Accounts are
// written by the identity service.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
    return r.getByID(ctx, r.DB, id)
}

// GetByIDTx fetches a user by id inside a transaction.
func (r *UserRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.User, error) {
    return r.getByID(ctx, tx, id)
}

func (r *UserRepo) getByID(ctx context.Context, q querier, id uint64) (*model.User, error) {
    var u model.User
    err := q.QueryRowContext(ctx,
        "SELECT id,name,email,role,created_at FROM users WHERE id=? LIMIT 1",
        id).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt)
    if err != nil {
        return nil, mapNoRows(err, ErrUserNotFound)
    }
    return &u, nil
}
