// shared/redis/lock.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out short-lived exclusive locks keyed by event, so two bot instances
// never apply draft picks to the same event at once.
type Locker struct {
	client redis.Cmdable
	ttl    time.Duration
	retry  time.Duration
}

// NewLocker creates a Locker. ttl bounds how long a crashed holder blocks others.
func NewLocker(client redis.Cmdable, ttl time.Duration) *Locker {
	return &Locker{client: client, ttl: ttl, retry: 50 * time.Millisecond}
}

// Lock acquires the lock for eventID, polling until ctx is done. The returned func
// releases it.
func (l *Locker) Lock(ctx context.Context, eventID string) (func(), error) {
	key := fmt.Sprintf(DraftLockKeyPrefix, eventID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to acquire lock %s", key)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ErrLockHeld, "%s: %v", key, ctx.Err())
		case <-time.After(l.retry):
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}, nil
}
