package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glowdesk/backend-salon/internal/cache"
)

// ErrVersionConflict is returned by Put when another writer advanced the
// snapshot since it was read. The caller maps it to a CONFLICT response
// instead of silently losing the other writer's change.
var ErrVersionConflict = errors.New("checkout: session version conflict")

// Store is the ephemeral persistence contract for session snapshots. Put is
// conditional: it succeeds only when the stored version still matches the
// version the snapshot was loaded at (zero means the key must not exist).
// Every successful Put resets the TTL to a full window.
type Store interface {
	Get(ctx context.Context, sessionID string) (Session, bool, error)
	Put(ctx context.Context, s *Session, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
}

// RedisStore keeps each session in a hash under checkout:session:{id} with
// the JSON snapshot and a version counter, expiring at the session TTL.
type RedisStore struct {
	Client *redis.Client
}

func sessionKey(id string) string {
	return cache.KeySession(id)
}

// putScript compares the stored version before writing. A version argument
// of 0 asserts the key does not exist yet.
var putScript = redis.NewScript(`
local v = redis.call("HGET", KEYS[1], "v")
if ARGV[1] == "0" then
  if v then return 0 end
else
  if not v or v ~= ARGV[1] then return 0 end
end
redis.call("HSET", KEYS[1], "v", ARGV[2], "d", ARGV[3])
redis.call("PEXPIRE", KEYS[1], ARGV[4])
return 1
`)

// Get loads a session snapshot. The second return value reports presence;
// an expired or never-written session reads as absent.
func (r RedisStore) Get(ctx context.Context, sessionID string) (Session, bool, error) {
	if r.Client == nil {
		return Session{}, false, errors.New("checkout: redis client not configured")
	}
	data, err := r.Client.HGet(ctx, sessionKey(sessionID), "d").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("checkout: load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, false, fmt.Errorf("checkout: decode session: %w", err)
	}
	return s, true, nil
}

// Put writes the snapshot if nobody else has since the read, bumping the
// version and refreshing the TTL. On success the snapshot's Version field
// reflects the stored value.
func (r RedisStore) Put(ctx context.Context, s *Session, ttl time.Duration) error {
	if r.Client == nil {
		return errors.New("checkout: redis client not configured")
	}
	if s == nil || s.ID == "" {
		return errors.New("checkout: session id is required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	expected := s.Version
	next := expected + 1
	s.Version = next
	s.ExpiresAt = time.Now().Add(ttl).UTC()
	data, err := json.Marshal(s)
	if err != nil {
		s.Version = expected
		return fmt.Errorf("checkout: encode session: %w", err)
	}
	ok, err := putScript.Run(ctx, r.Client, []string{sessionKey(s.ID)},
		expected, next, data, ttl.Milliseconds()).Int()
	if err != nil {
		s.Version = expected
		return fmt.Errorf("checkout: store session: %w", err)
	}
	if ok != 1 {
		s.Version = expected
		return ErrVersionConflict
	}
	return nil
}

// Delete removes the session. Deleting an absent session is not an error.
func (r RedisStore) Delete(ctx context.Context, sessionID string) error {
	if r.Client == nil {
		return errors.New("checkout: redis client not configured")
	}
	return r.Client.Del(ctx, sessionKey(sessionID)).Err()
}
