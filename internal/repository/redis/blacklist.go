package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skillupng/lms-server/internal/model"
)

var _ model.RevocationStore = (*Blacklist)(nil)

const blacklistKeyPrefix = "bl_"

// Blacklist stores revoked access tokens in redis with a TTL matching
// the token's remaining lifetime.
//
// Lookups fail closed: if redis is unreachable the error propagates and
// verification fails, rather than treating the token as valid.
type Blacklist struct {
	client *redis.Client
}

func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{client: client}
}

// NewClient opens a redis connection and verifies it is reachable.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

func (b *Blacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if err := b.client.Set(ctx, blacklistKeyPrefix+token, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

func (b *Blacklist) Contains(ctx context.Context, token string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistKeyPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return n > 0, nil
}
