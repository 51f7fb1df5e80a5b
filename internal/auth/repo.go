package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/userdir/userdir/internal/shared"
)

// Querier is the subset of pgxpool.Pool the repository needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db Querier
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db Querier) *PGRepository {
	return &PGRepository{db: db}
}

// FindByEmail fetches the credential for email straight from the users table.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (Credential, error) {
	var cred Credential
	err := r.db.QueryRow(ctx, `SELECT id, email, password FROM users WHERE email = $1`, email).
		Scan(&cred.ID, &cred.Email, &cred.Password)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, shared.ErrRecordNotFound
		}
		return Credential{}, err
	}
	return cred, nil
}

var _ Repository = (*PGRepository)(nil)
