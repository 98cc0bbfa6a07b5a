package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/darkauth/server/internal/domain"
)

// ClientRepo persists OIDC relying-party registrations.
type ClientRepo struct {
	db *sql.DB
}

func NewClientRepo(db *sql.DB) *ClientRepo {
	return &ClientRepo{db: db}
}

func (r *ClientRepo) GetByID(ctx context.Context, clientID string) (domain.Client, error) {
	const q = `
SELECT client_id, name, public, secret_hash, redirect_uris, grant_types, scopes,
       require_pkce, zk_delivery, zk_required, allowed_zk_origins,
       id_token_lifetime_seconds, access_token_lifetime_seconds, created_at
FROM clients
WHERE client_id = $1
LIMIT 1;
`
	var c domain.Client
	var redirectURIs, grantTypes, scopes, allowedOrigins string
	var idTokenSecs, accessTokenSecs int64
	err := r.db.QueryRowContext(ctx, q, clientID).
		Scan(&c.ClientID, &c.Name, &c.Public, &c.SecretHash, &redirectURIs, &grantTypes, &scopes,
			&c.RequirePKCE, &c.ZKDelivery, &c.ZKRequired, &allowedOrigins,
			&idTokenSecs, &accessTokenSecs, &c.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return domain.Client{}, domain.ErrClientNotFound()
		}
		return domain.Client{}, domain.ErrDBUnavailable(err)
	}
	c.RedirectURIs = splitCSV(redirectURIs)
	c.GrantTypes = splitCSV(grantTypes)
	c.Scopes = splitCSV(scopes)
	c.AllowedZKOrigins = splitCSV(allowedOrigins)
	c.IDTokenLifetime = time.Duration(idTokenSecs) * time.Second
	c.AccessTokenLifetime = time.Duration(accessTokenSecs) * time.Second
	return c, nil
}

func (r *ClientRepo) Create(ctx context.Context, c domain.Client) (domain.Client, error) {
	const q = `
INSERT INTO clients (client_id, name, public, secret_hash, redirect_uris, grant_types, scopes,
                      require_pkce, zk_delivery, zk_required, allowed_zk_origins,
                      id_token_lifetime_seconds, access_token_lifetime_seconds)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
RETURNING created_at;
`
	err := r.db.QueryRowContext(ctx, q,
		c.ClientID, c.Name, c.Public, c.SecretHash,
		strings.Join(c.RedirectURIs, ","), strings.Join(c.GrantTypes, ","), strings.Join(c.Scopes, ","),
		c.RequirePKCE, c.ZKDelivery, c.ZKRequired, strings.Join(c.AllowedZKOrigins, ","),
		int64(c.IDTokenLifetime/time.Second), int64(c.AccessTokenLifetime/time.Second),
	).Scan(&c.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return domain.Client{}, domain.New(domain.KindConflict, "client_already_exists", "client already registered")
		}
		return domain.Client{}, domain.ErrDBUnavailable(err)
	}
	return c, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
