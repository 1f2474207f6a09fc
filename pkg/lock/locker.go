// Package lock serializes transitions on a single lifecycle entity.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrBusy = errors.New("lock is held by another operation")

// Locker hands out exclusive, expiring locks keyed by entity.
type Locker interface {
	// Acquire waits until the key is free, ctx is done or the wait budget is
	// spent. The returned release func is safe to call more than once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

func RequestKey(id uuid.UUID) string    { return "request:" + id.String() }
func PaymentKey(id uuid.UUID) string    { return "payment:" + id.String() }
func MembershipKey(id uuid.UUID) string { return "membership:" + id.String() }

func PairKey(studentId, clubId uuid.UUID) string {
	return fmt.Sprintf("pair:%s:%s", studentId, clubId)
}

const retryInterval = 50 * time.Millisecond

// acquireLoop retries try until it reports success or the wait budget runs out.
func acquireLoop(ctx context.Context, wait time.Duration, try func() (bool, error)) error {
	deadline := time.Now().Add(wait)
	for {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrBusy
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrBusy, ctx.Err())
		case <-time.After(retryInterval):
		}
	}
}
