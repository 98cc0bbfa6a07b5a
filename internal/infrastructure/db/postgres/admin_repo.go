package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/darkauth/server/internal/domain"
)

type AdminRepo struct {
	db *sql.DB
}

func NewAdminRepo(db *sql.DB) *AdminRepo {
	return &AdminRepo{db: db}
}

type adminRow struct {
	ID        string
	Email     string
	Role      string
	CreatedAt sql.NullTime
}

func scanAdminRow(row *sql.Row) (adminRow, error) {
	var ar adminRow
	err := row.Scan(&ar.ID, &ar.Email, &ar.Role, &ar.CreatedAt)
	return ar, err
}

func toDomainAdmin(ar adminRow) domain.AdminUser {
	return domain.AdminUser{ID: ar.ID, Email: ar.Email, Role: ar.Role, CreatedAt: ar.CreatedAt.Time}
}

func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (domain.AdminUser, error) {
	email = normalizeEmail(email)
	const q = `SELECT id, email, role, created_at FROM admin_users WHERE email = $1 LIMIT 1;`
	ar, err := scanAdminRow(r.db.QueryRowContext(ctx, q, email))
	if err != nil {
		if isNoRows(err) {
			return domain.AdminUser{}, domain.ErrUserNotFound()
		}
		return domain.AdminUser{}, domain.ErrDBUnavailable(err)
	}
	return toDomainAdmin(ar), nil
}

func (r *AdminRepo) GetByID(ctx context.Context, id string) (domain.AdminUser, error) {
	id = strings.TrimSpace(id)
	const q = `SELECT id, email, role, created_at FROM admin_users WHERE id = $1 LIMIT 1;`
	ar, err := scanAdminRow(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if isNoRows(err) {
			return domain.AdminUser{}, domain.ErrUserNotFound()
		}
		return domain.AdminUser{}, domain.ErrDBUnavailable(err)
	}
	return toDomainAdmin(ar), nil
}

func (r *AdminRepo) Create(ctx context.Context, a domain.AdminUser) (domain.AdminUser, error) {
	a.Email = normalizeEmail(a.Email)
	if !domain.IsValidAdminRole(a.Role) {
		return domain.AdminUser{}, domain.ErrInvalidField("role", "must be read or write")
	}

	const q = `
INSERT INTO admin_users (id, email, role)
VALUES ($1,$2,$3)
RETURNING id, email, role, created_at;
`
	var ar adminRow
	err := r.db.QueryRowContext(ctx, q, a.ID, a.Email, a.Role).
		Scan(&ar.ID, &ar.Email, &ar.Role, &ar.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return domain.AdminUser{}, domain.ErrEmailAlreadyExists()
		}
		return domain.AdminUser{}, domain.ErrDBUnavailable(err)
	}
	return toDomainAdmin(ar), nil
}

func (r *AdminRepo) List(ctx context.Context) ([]domain.AdminUser, error) {
	const q = `SELECT id, email, role, created_at FROM admin_users ORDER BY created_at ASC;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	var out []domain.AdminUser
	for rows.Next() {
		var ar adminRow
		if err := rows.Scan(&ar.ID, &ar.Email, &ar.Role, &ar.CreatedAt); err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		out = append(out, toDomainAdmin(ar))
	}
	return out, rows.Err()
}

func (r *AdminRepo) CountByRole(ctx context.Context, role domain.AdminRole) (int, error) {
	const q = `SELECT COUNT(1) FROM admin_users WHERE role = $1;`
	var n int
	if err := r.db.QueryRowContext(ctx, q, string(role)).Scan(&n); err != nil {
		return 0, domain.ErrDBUnavailable(err)
	}
	return n, nil
}

func (r *AdminRepo) SetRole(ctx context.Context, id string, role domain.AdminRole) error {
	if !domain.IsValidAdminRole(string(role)) {
		return domain.ErrInvalidField("role", "must be read or write")
	}
	const q = `UPDATE admin_users SET role = $2 WHERE id = $1;`
	res, err := r.db.ExecContext(ctx, q, id, string(role))
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}
