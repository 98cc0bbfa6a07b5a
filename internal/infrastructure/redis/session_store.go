package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/darkauth/server/internal/cryptoutil"
	"github.com/darkauth/server/internal/domain"
)

// SessionStore implements auth.SessionStore and adminauth.SessionStore over
// Redis. Grounded on the teacher's RedisSessionStore: an opaque random
// token is the lookup key, and rotation is a single Lua script doing
// GET-old/DEL-old/SET-new atomically so a replayed refresh token can never
// win a race against its legitimate rotation (property P3). The teacher's
// per-user version counter (rtver:<uid>) is replaced by a per-subject
// index set used only for RevokeAllForSubject, since cohort-scoped single
// sessions don't need a generation counter to invalidate in bulk.
type SessionStore struct {
	rdb *goredis.Client

	sessionPrefix string
	indexPrefix   string
}

func NewSessionStore(c *Client) *SessionStore {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &SessionStore{rdb: rdb, sessionPrefix: "sess:", indexPrefix: "sess-idx:"}
}

func (s *SessionStore) indexKey(cohort domain.Cohort, subjectID string) string {
	return s.indexPrefix + string(cohort) + ":" + subjectID
}

func (s *SessionStore) Create(ctx context.Context, sess domain.Session, ttl time.Duration) (string, error) {
	if s.rdb == nil {
		return "", domain.ErrRedisUnavailable(errors.New("redis session store not configured"))
	}

	token, err := cryptoutil.NewOpaqueToken(32)
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}

	sess.RefreshTokenHash = cryptoutil.HashToken(token)
	sess.ExpiresAt = time.Now().Add(ttl)

	payload, err := json.Marshal(sess)
	if err != nil {
		return "", domain.ErrInternal(err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.sessionPrefix+token, payload, ttl)
	pipe.SAdd(ctx, s.indexKey(sess.Cohort, sess.SubjectID), token)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", domain.ErrRedisUnavailable(err)
	}

	return token, nil
}

func (s *SessionStore) Get(ctx context.Context, token string) (domain.Session, error) {
	if s.rdb == nil {
		return domain.Session{}, domain.ErrRedisUnavailable(errors.New("redis session store not configured"))
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Session{}, domain.ErrRefreshTokenInvalid()
	}

	val, err := s.rdb.Get(ctx, s.sessionPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.Session{}, domain.ErrRefreshTokenInvalid()
		}
		return domain.Session{}, domain.ErrRedisUnavailable(err)
	}

	var sess domain.Session
	if err := json.Unmarshal(val, &sess); err != nil {
		return domain.Session{}, domain.ErrInternal(err)
	}
	if sess.Revoked {
		return domain.Session{}, domain.ErrRefreshTokenInvalid()
	}
	return sess, nil
}

// rotateScript atomically swaps the old token's key for a new one, carrying
// the same value forward, or returns nil if the old key was already
// consumed/revoked/expired. Equivalent in spirit to the teacher's
// GET/DEL/SET Lua move, generalized to carry a JSON session blob instead of
// a "uid:ver" string.
const rotateScript = `
local v = redis.call("GET", KEYS[1])
if not v then
  return nil
end
redis.call("DEL", KEYS[1])
redis.call("SET", KEYS[2], v, "PX", ARGV[1])
return v
`

func (s *SessionStore) Rotate(ctx context.Context, oldRefreshToken string, ttl time.Duration) (string, domain.Session, error) {
	if s.rdb == nil {
		return "", domain.Session{}, domain.ErrRedisUnavailable(errors.New("redis session store not configured"))
	}
	oldRefreshToken = strings.TrimSpace(oldRefreshToken)
	if oldRefreshToken == "" {
		return "", domain.Session{}, domain.ErrRefreshTokenInvalid()
	}

	newToken, err := cryptoutil.NewOpaqueToken(32)
	if err != nil {
		return "", domain.Session{}, domain.ErrRandomFailed(err)
	}

	ttlms := ttl.Milliseconds()
	if ttlms <= 0 {
		ttlms = int64((7 * 24 * time.Hour).Milliseconds())
	}

	res, err := s.rdb.Eval(ctx, rotateScript,
		[]string{s.sessionPrefix + oldRefreshToken, s.sessionPrefix + newToken}, ttlms).Result()
	if err != nil {
		return "", domain.Session{}, domain.ErrRedisUnavailable(err)
	}
	if res == nil {
		return "", domain.Session{}, domain.ErrRefreshTokenInvalid()
	}

	raw, ok := res.(string)
	if !ok || raw == "" {
		return "", domain.Session{}, domain.ErrRefreshTokenInvalid()
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return "", domain.Session{}, domain.ErrInternal(err)
	}
	if sess.Revoked {
		_ = s.rdb.Del(ctx, s.sessionPrefix+newToken).Err()
		return "", domain.Session{}, domain.ErrRefreshTokenInvalid()
	}

	sess.RefreshTokenHash = cryptoutil.HashToken(newToken)
	sess.ExpiresAt = time.Now().Add(ttl)
	if updated, merr := json.Marshal(sess); merr == nil {
		s.rdb.Set(ctx, s.sessionPrefix+newToken, updated, ttl)
	}

	_ = s.rdb.SAdd(ctx, s.indexKey(sess.Cohort, sess.SubjectID), newToken).Err()
	_ = s.rdb.SRem(ctx, s.indexKey(sess.Cohort, sess.SubjectID), oldRefreshToken).Err()

	return newToken, sess, nil
}

func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if s.rdb == nil {
		return domain.ErrRedisUnavailable(errors.New("redis session store not configured"))
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	sess, err := s.Get(ctx, token)
	if err == nil {
		_ = s.rdb.SRem(ctx, s.indexKey(sess.Cohort, sess.SubjectID), token).Err()
	}
	return s.rdb.Del(ctx, s.sessionPrefix+token).Err()
}

func (s *SessionStore) RevokeAllForSubject(ctx context.Context, cohort domain.Cohort, subjectID string) error {
	if s.rdb == nil {
		return domain.ErrRedisUnavailable(errors.New("redis session store not configured"))
	}
	idxKey := s.indexKey(cohort, subjectID)
	tokens, err := s.rdb.SMembers(ctx, idxKey).Result()
	if err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	if len(tokens) == 0 {
		return nil
	}
	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = s.sessionPrefix + t
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.Del(ctx, idxKey)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}
