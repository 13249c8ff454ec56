// Package redis keeps the short-lived coordination state of the poller: upstream
// rate-limit cooldowns and the lock that lets a single instance run a tick.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "eds:"

// releaseScript deletes the lock only when the caller still owns it.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Client is the subset of the go-redis API the store needs.
type Client interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Throttle implements the cooldown and tick lock stores.
type Throttle struct {
	client Client
	logger *slog.Logger
}

func NewThrottle(logger *slog.Logger, client Client) *Throttle {
	return &Throttle{client: client, logger: logger}
}

func cooldownKey(companyID int64, profile shared.Profile) string {
	return keyPrefix + "cooldown:" + strconv.FormatInt(companyID, 10) + ":" + string(profile)
}

func lockKey(name string) string {
	return keyPrefix + "lock:" + name
}

// StartCooldown pauses calls of a company to a profile endpoint for ttl.
func (t *Throttle) StartCooldown(ctx context.Context, companyID int64, profile shared.Profile, ttl time.Duration) error {
	if err := t.client.Set(ctx, cooldownKey(companyID, profile), time.Now().UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		t.logger.Error("Failed to start cooldown", "company_id", companyID, "profile", profile, "error", err)
		return fmt.Errorf("failed to start cooldown: %w", err)
	}
	t.logger.Info("Upstream cooldown started", "company_id", companyID, "profile", profile, "ttl", ttl)
	return nil
}

// InCooldown reports whether the company/profile pair is still paused.
func (t *Throttle) InCooldown(ctx context.Context, companyID int64, profile shared.Profile) (bool, error) {
	n, err := t.client.Exists(ctx, cooldownKey(companyID, profile)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read cooldown: %w", err)
	}
	return n > 0, nil
}

// Acquire takes the named lock for ttl. It returns the owner token, or "" when
// another instance holds the lock.
func (t *Throttle) Acquire(ctx context.Context, name string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := t.client.SetNX(ctx, lockKey(name), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// Release frees the lock if token still owns it.
func (t *Throttle) Release(ctx context.Context, name, token string) error {
	if token == "" {
		return nil
	}
	if err := t.client.Eval(ctx, releaseScript, []string{lockKey(name)}, token).Err(); err != nil {
		t.logger.Warn("Failed to release lock", "lock", name, "error", err)
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}
