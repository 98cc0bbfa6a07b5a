package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/darkauth/server/internal/domain"
)

// PendingAuthStore and AuthCodeStore back the OIDC authorization pipeline's
// two short-lived, single-use records. Both are grounded on the teacher's
// OneTimeTokenStore: Save is a plain SET with TTL, Consume is an atomic
// GET+DEL Lua script so a code or pending-auth id can never be redeemed
// twice, even under concurrent requests.

type PendingAuthStore struct {
	rdb    *goredis.Client
	prefix string
}

func NewPendingAuthStore(c *Client) *PendingAuthStore {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &PendingAuthStore{rdb: rdb, prefix: "pending-auth:"}
}

func (s *PendingAuthStore) Create(ctx context.Context, pa domain.PendingAuth, ttl time.Duration) error {
	if s.rdb == nil {
		return domain.ErrRedisUnavailable(errors.New("redis pending-auth store not configured"))
	}
	if strings.TrimSpace(pa.ID) == "" {
		return domain.ErrMissingField("id")
	}
	payload, err := json.Marshal(pa)
	if err != nil {
		return domain.ErrInternal(err)
	}
	if err := s.rdb.Set(ctx, s.prefix+pa.ID, payload, ttl).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

func (s *PendingAuthStore) Get(ctx context.Context, id string) (domain.PendingAuth, error) {
	if s.rdb == nil {
		return domain.PendingAuth{}, domain.ErrRedisUnavailable(errors.New("redis pending-auth store not configured"))
	}
	val, err := s.rdb.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.PendingAuth{}, domain.ErrPendingAuthStateMismatch()
		}
		return domain.PendingAuth{}, domain.ErrRedisUnavailable(err)
	}
	var pa domain.PendingAuth
	if err := json.Unmarshal(val, &pa); err != nil {
		return domain.PendingAuth{}, domain.ErrInternal(err)
	}
	return pa, nil
}

// Update overwrites a pending-auth record (e.g. to stamp SubjectID once the
// user completes login), preserving whatever TTL is passed.
func (s *PendingAuthStore) Update(ctx context.Context, pa domain.PendingAuth, ttl time.Duration) error {
	return s.Create(ctx, pa, ttl)
}

func (s *PendingAuthStore) Delete(ctx context.Context, id string) error {
	if s.rdb == nil {
		return domain.ErrRedisUnavailable(errors.New("redis pending-auth store not configured"))
	}
	return s.rdb.Del(ctx, s.prefix+id).Err()
}

// AuthCodeStore mints and consumes single-use OIDC authorization codes.
type AuthCodeStore struct {
	rdb    *goredis.Client
	prefix string
}

func NewAuthCodeStore(c *Client) *AuthCodeStore {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &AuthCodeStore{rdb: rdb, prefix: "authcode:"}
}

func (s *AuthCodeStore) Save(ctx context.Context, code domain.AuthCode, ttl time.Duration) error {
	if s.rdb == nil {
		return domain.ErrRedisUnavailable(errors.New("redis auth-code store not configured"))
	}
	if strings.TrimSpace(code.Code) == "" {
		return domain.ErrMissingField("code")
	}
	payload, err := json.Marshal(code)
	if err != nil {
		return domain.ErrInternal(err)
	}
	if err := s.rdb.Set(ctx, s.prefix+code.Code, payload, ttl).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

// consumeScript atomically fetches and deletes the code record so a replayed
// authorization code can never be exchanged twice (OIDC Core §3.1.3.2).
const consumeScript = `
local v = redis.call("GET", KEYS[1])
if not v then
  return nil
end
redis.call("DEL", KEYS[1])
return v
`

func (s *AuthCodeStore) Consume(ctx context.Context, code string) (domain.AuthCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.AuthCode{}, domain.ErrAuthCodeNotFound()
	}
	if s.rdb == nil {
		return domain.AuthCode{}, domain.ErrRedisUnavailable(errors.New("redis auth-code store not configured"))
	}

	res, err := s.rdb.Eval(ctx, consumeScript, []string{s.prefix + code}).Result()
	if err != nil {
		return domain.AuthCode{}, domain.ErrRedisUnavailable(err)
	}
	if res == nil {
		return domain.AuthCode{}, domain.ErrAuthCodeNotFound()
	}

	raw, ok := res.(string)
	if !ok || raw == "" {
		return domain.AuthCode{}, domain.ErrAuthCodeNotFound()
	}

	var ac domain.AuthCode
	if err := json.Unmarshal([]byte(raw), &ac); err != nil {
		return domain.AuthCode{}, domain.ErrInternal(err)
	}
	return ac, nil
}
