package guard

import (
	"fmt"
	"time"

	"authgate/internal/auth/models"
	dErrors "authgate/pkg/domain-errors"
)

const (
	DefaultThreshold  = 5
	DefaultLockWindow = 30 * time.Minute
)

// LockoutError reports when a locked account becomes available again.
// Extract it with errors.As to populate Retry-After headers.
type LockoutError struct {
	Until time.Time
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.Format(time.RFC3339))
}

// Guard is the account lockout state machine. It mutates lockout fields
// on a User in memory; persisting the updated user is the caller's job.
type Guard struct {
	threshold  int
	lockWindow time.Duration
}

func New(threshold int, lockWindow time.Duration) *Guard {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if lockWindow <= 0 {
		lockWindow = DefaultLockWindow
	}
	return &Guard{threshold: threshold, lockWindow: lockWindow}
}

// Check returns an error if the user is locked at the given time.
// An expired lock is cleared in place (lazy unlock): the failure count
// resets and the caller should persist the change.
func (g *Guard) Check(user *models.User, now time.Time) error {
	if user.LockedUntil == nil {
		return nil
	}
	if now.Before(*user.LockedUntil) {
		return dErrors.Wrap(&LockoutError{Until: *user.LockedUntil}, dErrors.CodeAccountLocked, "account temporarily locked")
	}
	// Lock window has passed; the account gets a clean slate.
	user.LockedUntil = nil
	user.FailedLoginCount = 0
	return nil
}

// RecordFailure registers a failed credential check. Once the count
// reaches the threshold a lock window starts; the return value reports
// whether this failure triggered the lock.
func (g *Guard) RecordFailure(user *models.User, now time.Time) bool {
	user.FailedLoginCount++
	if user.FailedLoginCount >= g.threshold {
		until := now.Add(g.lockWindow)
		user.LockedUntil = &until
		return true
	}
	return false
}

// RecordSuccess clears lockout state after a successful login.
func (g *Guard) RecordSuccess(user *models.User, now time.Time) {
	user.RecordLogin(now)
}
