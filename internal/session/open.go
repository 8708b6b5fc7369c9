package session

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"vla/internal/db"
	"vla/internal/domain"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the Store selected by cfg.Backend ("memory", "redis" or
// "sqlite"). The returned Closer releases its connection.
func Open(ctx context.Context, cfg domain.StateConfig) (Store, io.Closer, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nopCloser{}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("session: redis ping %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisStore(client, time.Duration(cfg.TTLHours)*time.Hour), client, nil
	case "sqlite", "libsql":
		conn, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("session: %w", err)
		}
		store, err := NewSQLStore(ctx, conn)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return store, conn, nil
	}
	return nil, nil, fmt.Errorf("session: unknown state backend %q (use: memory, redis, sqlite)", cfg.Backend)
}
