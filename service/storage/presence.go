package storage

import (
	"context"
	"strconv"
	"time"

	redisc "AProject/service/storage/redis"
)

// Presence keeps best-effort online marks in Redis. It is informational
// only: chat authorization is always re-checked against the relational
// store, never against these keys.
type Presence struct {
	ttl time.Duration
}

func NewPresence(ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Presence{ttl: ttl}
}

func onlineKey(userID int64) string {
	return "online:u:" + strconv.FormatInt(userID, 10)
}

// MarkOnline registers one live connection for the user.
func (p *Presence) MarkOnline(ctx context.Context, userID int64, connID string) error {
	key := onlineKey(userID)
	pipe := redisc.GetRedis().TxPipeline()
	pipe.SAdd(ctx, key, connID)
	pipe.Expire(ctx, key, p.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Touch refreshes the TTL on frame activity.
func (p *Presence) Touch(ctx context.Context, userID int64) error {
	return redisc.GetRedis().Expire(ctx, onlineKey(userID), p.ttl).Err()
}

// MarkOffline drops one connection; the key disappears with the last one.
func (p *Presence) MarkOffline(ctx context.Context, userID int64, connID string) error {
	return redisc.GetRedis().SRem(ctx, onlineKey(userID), connID).Err()
}

// IsOnline reports whether the user has at least one live connection mark.
func (p *Presence) IsOnline(ctx context.Context, userID int64) (bool, error) {
	n, err := redisc.GetRedis().SCard(ctx, onlineKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
