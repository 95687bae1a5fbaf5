package lock

import (
	"context"
	"sync"
	"time"
)

// LocalLocker 进程内按 key 的互斥锁，带获取超时
type LocalLocker struct {
	mu      sync.Mutex
	slots   map[string]chan struct{}
	timeout time.Duration
}

func NewLocalLocker(timeout time.Duration) *LocalLocker {
	return &LocalLocker{
		slots:   make(map[string]chan struct{}),
		timeout: timeout,
	}
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *LocalLocker) Acquire(ctx context.Context, keys ...string) (Release, error) {
	ordered := orderKeys(keys)
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	held := make([]chan struct{}, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	for _, key := range ordered {
		ch := l.slot(key)
		select {
		case ch <- struct{}{}:
			held = append(held, ch)
		case <-timer.C:
			release()
			return nil, ErrTimeout
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}
