package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// MemoryLocker is a single-process locker. Expired entries free themselves so
// a crashed holder cannot wedge an entity forever.
type MemoryLocker struct {
	// mu makes the check-and-delete on release atomic against Add.
	mu    sync.Mutex
	cache *cache.Cache
	ttl   time.Duration
	wait  time.Duration
}

func NewMemoryLocker(ttl, wait time.Duration) *MemoryLocker {
	return &MemoryLocker{
		cache: cache.New(ttl, ttl),
		ttl:   ttl,
		wait:  wait,
	}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	err := acquireLoop(ctx, l.wait, func() (bool, error) {
		// Add fails while an unexpired item exists, which makes it a try-lock.
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.cache.Add(key, token, l.ttl) == nil, nil
	})
	if err != nil {
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if held, found := l.cache.Get(key); found && held.(string) == token {
				l.cache.Delete(key)
			}
		})
	}, nil
}
