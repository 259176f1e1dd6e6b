package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Presence tracks visitors across instances in one sorted set scored by expiry:
// ZADD quiz:presence {expiresAtUnixMilli} {visitorID}
type Presence struct {
	client *redis.Client
	ttl    time.Duration
	clock  func() time.Time
}

func NewPresence(client *redis.Client, ttl time.Duration) *Presence {
	return NewPresenceWithClock(client, ttl, time.Now)
}

// NewPresenceWithClock is test-only for deterministic expiry.
func NewPresenceWithClock(client *redis.Client, ttl time.Duration, clock func() time.Time) *Presence {
	return &Presence{client: client, ttl: ttl, clock: clock}
}

func (p *Presence) Touch(ctx context.Context, visitorID string) error {
	expiresAt := p.clock().Add(p.ttl).UnixMilli()
	return p.client.ZAdd(ctx, p.key(), redis.Z{Score: float64(expiresAt), Member: visitorID}).Err()
}

func (p *Presence) Leave(ctx context.Context, visitorID string) error {
	return p.client.ZRem(ctx, p.key(), visitorID).Err()
}

// Active drops expired members and counts the rest.
func (p *Presence) Active(ctx context.Context) (int64, error) {
	now := strconv.FormatInt(p.clock().UnixMilli(), 10)
	pipe := p.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, p.key(), "-inf", now)
	card := pipe.ZCard(ctx, p.key())
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return card.Val(), nil
}

func (p *Presence) key() string {
	return "quiz:presence"
}
