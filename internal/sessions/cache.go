package sessions

import (
	"context"
	"strconv"
	"time"
)

// Cache is a read-through cache in front of the store.
type Cache interface {
	Put(ctx context.Context, s *Session, ttl time.Duration) error
	Get(ctx context.Context, token string) (*Session, bool, error)
	Delete(ctx context.Context, token string) error
}

// HashCache is the subset of pkg/redis used for caching.
type HashCache interface {
	CacheHash(ctx context.Context, key string, data map[string]string, ttl time.Duration) error
	GetHash(ctx context.Context, key string) (map[string]string, error)
	Delete(ctx context.Context, key string) error
}

// RedisCache stores sessions as hashes under "session:<token>".
type RedisCache struct {
	h HashCache
}

func NewRedisCache(h HashCache) *RedisCache {
	return &RedisCache{h: h}
}

func cacheKey(token string) string { return "session:" + token }

func (c *RedisCache) Put(ctx context.Context, s *Session, ttl time.Duration) error {
	data := map[string]string{
		"user_id":    s.UserID,
		"status":     strconv.Itoa(s.Status),
		"created_at": strconv.FormatInt(s.CreatedAt.UnixMilli(), 10),
	}
	if s.ExpiresAt != nil {
		data["expires_at"] = strconv.FormatInt(s.ExpiresAt.UnixMilli(), 10)
	}
	return c.h.CacheHash(ctx, cacheKey(s.Token), data, ttl)
}

// Get returns ok=false on a miss or on an entry it cannot decode.
func (c *RedisCache) Get(ctx context.Context, token string) (*Session, bool, error) {
	data, err := c.h.GetHash(ctx, cacheKey(token))
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 || data["user_id"] == "" {
		return nil, false, nil
	}

	status, err := strconv.Atoi(data["status"])
	if err != nil {
		return nil, false, nil
	}
	sess := &Session{Token: token, UserID: data["user_id"], Status: status}
	if ms, err := strconv.ParseInt(data["created_at"], 10, 64); err == nil {
		sess.CreatedAt = time.UnixMilli(ms)
	}
	if raw, ok := data["expires_at"]; ok {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, false, nil
		}
		exp := time.UnixMilli(ms)
		sess.ExpiresAt = &exp
	}
	return sess, true, nil
}

func (c *RedisCache) Delete(ctx context.Context, token string) error {
	return c.h.Delete(ctx, cacheKey(token))
}
