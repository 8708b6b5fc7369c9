package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vla/internal/domain"
)

// redisKV is the part of the go-redis client RedisStore uses.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps states in Redis under "vla:state:<community>:<client>".
type RedisStore struct {
	client redisKV
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps a go-redis client. ttl <= 0 keeps states forever.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: "vla:state:", ttl: ttl}
}

func (r *RedisStore) key(k domain.ConversationKey) string {
	return r.prefix + k.String()
}

// Load implements Store.
func (r *RedisStore) Load(ctx context.Context, key domain.ConversationKey) (*State, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get %s: %w", key, err)
	}
	return decode(key, data)
}

// Save implements Store.
func (r *RedisStore) Save(ctx context.Context, st *State) error {
	data, err := encode(st)
	if err != nil {
		return err
	}
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(st.Key), data, ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set %s: %w", st.Key, err)
	}
	return nil
}
