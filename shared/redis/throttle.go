// shared/redis/throttle.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// Throttler allows one use of a command per user per window.
type Throttler struct {
	client redis.Cmdable
	window time.Duration
}

// NewThrottler creates a throttler. A zero window disables throttling.
func NewThrottler(client redis.Cmdable, window time.Duration) *Throttler {
	return &Throttler{client: client, window: window}
}

// Allow records a use of command by userID. It returns ErrThrottled, wrapped with the
// time left, if the user already used the command inside the window.
func (t *Throttler) Allow(ctx context.Context, userID, command string) error {
	if t.window <= 0 {
		return nil
	}
	key := fmt.Sprintf(ThrottleKeyPrefix, userID, command)
	ok, err := t.client.SetNX(ctx, key, 1, t.window).Result()
	if err != nil {
		return errors.Wrapf(err, "failed to check throttle for %s", key)
	}
	if ok {
		return nil
	}

	left, err := t.client.PTTL(ctx, key).Result()
	if err != nil || left < 0 {
		left = t.window
	}
	return errors.Wrapf(ErrThrottled, "retry in %s", left.Round(time.Second))
}
