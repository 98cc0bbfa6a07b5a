// Package postgres implements the durable repository ports (UserRepo,
// AdminRepo, OpaqueRecordRepo, WrappedRootKeyRepo, ClientRepo, JWKSStore,
// OTPRepo) against database/sql + pgx/v5, grounded on the teacher's
// internal/infrastructure/db/postgres/user_repo.go scan-and-map shape.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/darkauth/server/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isDuplicate(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "duplicate")
}

type userRow struct {
	ID            string
	Email         string
	Name          sql.NullString
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func scanUserRow(row *sql.Row) (userRow, error) {
	var ur userRow
	err := row.Scan(&ur.ID, &ur.Email, &ur.Name, &ur.EmailVerified, &ur.CreatedAt, &ur.UpdatedAt)
	return ur, err
}

func toDomainUser(ur userRow) domain.User {
	return domain.User{
		ID:            ur.ID,
		Email:         ur.Email,
		Name:          ur.Name.String,
		EmailVerified: ur.EmailVerified,
		CreatedAt:     ur.CreatedAt,
		UpdatedAt:     ur.UpdatedAt,
	}
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}

	const q = `
SELECT id, email, name, email_verified, created_at, updated_at
FROM users
WHERE email = $1
LIMIT 1;
`
	ur, err := scanUserRow(r.db.QueryRowContext(ctx, q, email))
	if err != nil {
		if isNoRows(err) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return toDomainUser(ur), nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}

	const q = `
SELECT id, email, name, email_verified, created_at, updated_at
FROM users
WHERE id = $1
LIMIT 1;
`
	ur, err := scanUserRow(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if isNoRows(err) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return toDomainUser(ur), nil
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = normalizeEmail(u.Email)
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}

	const q = `
INSERT INTO users (id, email, name, email_verified)
VALUES ($1,$2,$3,$4)
RETURNING id, email, name, email_verified, created_at, updated_at;
`
	var ur userRow
	err := r.db.QueryRowContext(ctx, q, u.ID, u.Email, sql.NullString{String: u.Name, Valid: u.Name != ""}, u.EmailVerified).
		Scan(&ur.ID, &ur.Email, &ur.Name, &ur.EmailVerified, &ur.CreatedAt, &ur.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return toDomainUser(ur), nil
}

func (r *UserRepo) SetEmailVerified(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrMissingField("user_id")
	}

	const q = `UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE id = $1;`
	res, err := r.db.ExecContext(ctx, q, userID)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}
