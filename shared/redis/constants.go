// shared/redis/constants.go
package redis

import "github.com/cockroachdb/errors"

const (
	// Hash tags keep each key on one cluster slot.
	ThrottleKeyPrefix  = "throttle:{%s}:%s" // throttle:{discordID}:command
	DraftLockKeyPrefix = "draft_lock:{%s}"  // draft_lock:{eventID}
)

var (
	// ErrThrottled is returned when a user repeats a command inside the throttle window.
	ErrThrottled = errors.New("command throttled")
	// ErrLockHeld is returned when another holder owns the lock.
	ErrLockHeld = errors.New("lock is held by another owner")
)
