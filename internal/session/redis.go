// Package session reads the operator credentials the console attaches to
// remote API calls. Issuing tokens is someone else's job; these sources only
// consume them.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/quiz-console/pkg/client"
)

// RedisTokens implements client.TokenSource by reading the token and email
// stored by the login flow under fixed keys
type RedisTokens struct {
	client   *redis.Client
	tokenKey string
	emailKey string
}

// RedisConfig holds the Redis connection and key names
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	TokenKey string
	EmailKey string
}

// NewRedisTokens connects to Redis and verifies it answers
func NewRedisTokens(ctx context.Context, cfg RedisConfig) (*RedisTokens, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRedisTokens(rdb, cfg), nil
}

func newRedisTokens(rdb *redis.Client, cfg RedisConfig) *RedisTokens {
	tokenKey := cfg.TokenKey
	if tokenKey == "" {
		tokenKey = "quiz-console:token"
	}
	emailKey := cfg.EmailKey
	if emailKey == "" {
		emailKey = "quiz-console:email"
	}
	return &RedisTokens{client: rdb, tokenKey: tokenKey, emailKey: emailKey}
}

// Credentials implements client.TokenSource. A missing token yields empty
// credentials so the request goes out unauthenticated.
func (r *RedisTokens) Credentials(ctx context.Context) (client.Credentials, error) {
	vals, err := r.client.MGet(ctx, r.tokenKey, r.emailKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return client.Credentials{}, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds client.Credentials
	if len(vals) > 0 {
		creds.Token, _ = vals[0].(string)
	}
	if len(vals) > 1 {
		creds.Email, _ = vals[1].(string)
	}
	if creds.Token == "" {
		return client.Credentials{}, nil
	}
	return creds, nil
}

// HealthCheck verifies Redis connectivity
func (r *RedisTokens) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisTokens) Close() error {
	return r.client.Close()
}
