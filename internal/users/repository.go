package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/userdir/userdir/internal/shared"
)

const userColumns = `id, email, password, name, flag_active, expiration_at, insert_at, update_at`

const uniqueViolation = "23505"

// DB is the subset of *pgxpool.Pool used by the repository.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGStore is the authoritative PostgreSQL store. id, insert_at and update_at
// are assigned by the database; the users trigger refreshes update_at on
// every UPDATE.
type PGStore struct {
	db DB
}

// NewRepository constructs a PostgreSQL backed store.
func NewRepository(db DB) *PGStore {
	return &PGStore{db: db}
}

// List returns all users in insertion order.
func (r *PGStore) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// FindByID fetches a user by id.
func (r *PGStore) FindByID(ctx context.Context, id int64) (User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByEmail fetches a user by its unique email.
func (r *PGStore) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// Insert creates the row and returns it with store-assigned fields.
func (r *PGStore) Insert(ctx context.Context, user User) (User, error) {
	created, err := r.queryOne(ctx,
		`INSERT INTO users (email, password, name, flag_active, expiration_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+userColumns,
		user.Email, user.Password, user.Name, user.FlagActive, user.ExpirationAt)
	if isUniqueViolation(err) {
		return User{}, shared.ErrDuplicateEmail
	}
	return created, err
}

// Update persists the mutable fields of user and returns the stored row. An
// email collision is reported as shared.ErrDuplicateEmail.
func (r *PGStore) Update(ctx context.Context, user User) (User, error) {
	saved, err := r.queryOne(ctx,
		`UPDATE users
		 SET email = $1, password = $2, name = $3, flag_active = $4, expiration_at = $5
		 WHERE id = $6
		 RETURNING `+userColumns,
		user.Email, user.Password, user.Name, user.FlagActive, user.ExpirationAt, user.ID)
	if isUniqueViolation(err) {
		return User{}, shared.ErrDuplicateEmail
	}
	return saved, err
}

// Delete hard-deletes the row.
func (r *PGStore) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrRecordNotFound
	}
	return nil
}

func (r *PGStore) queryOne(ctx context.Context, sql string, args ...any) (User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrRecordNotFound
	}
	return user, err
}

func scanUser(row pgx.Row) (User, error) {
	var (
		user       User
		expiration *time.Time
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.Name, &user.FlagActive, &expiration, &user.InsertAt, &user.UpdateAt); err != nil {
		return User{}, err
	}
	if expiration != nil {
		at := expiration.UTC()
		user.ExpirationAt = &at
	}
	user.InsertAt = user.InsertAt.UTC()
	user.UpdateAt = user.UpdateAt.UTC()
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var _ Store = (*PGStore)(nil)
