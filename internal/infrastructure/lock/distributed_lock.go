package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ============================================================================
// Redis 分布式锁
// ============================================================================
//
// 加锁：SET key token NX PX expiration
// 释放：Lua 脚本比较 token 后删除，避免误删过期后被别人拿到的锁
//
// 多实例部署时用它代替 LocalLocker，保证同一账户的读-改-写在集群内串行。
// ============================================================================

var ErrLockFailed = errors.New("获取分布式锁失败")

const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// DistributedLock 单个 key 的分布式锁
type DistributedLock struct {
	client     redis.Cmdable
	key        string
	value      string
	expiration time.Duration
}

func NewDistributedLock(client redis.Cmdable, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 非阻塞获取
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Lock 在 deadline 之前按 retryInterval 重试
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, deadline time.Time) error {
	for {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		if !time.Now().Add(retryInterval).Before(deadline) {
			return ErrLockFailed
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

func (l *DistributedLock) Unlock(ctx context.Context) error {
	return l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Err()
}

// RedisLocker 基于 DistributedLock 的 Locker 实现
type RedisLocker struct {
	client        redis.Cmdable
	timeout       time.Duration
	expiration    time.Duration
	retryInterval time.Duration
}

func NewRedisLocker(client redis.Cmdable, timeout, expiration time.Duration) *RedisLocker {
	return &RedisLocker{
		client:        client,
		timeout:       timeout,
		expiration:    expiration,
		retryInterval: 20 * time.Millisecond,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, keys ...string) (Release, error) {
	ordered := orderKeys(keys)
	deadline := time.Now().Add(l.timeout)
	token := uuid.NewString()

	held := make([]*DistributedLock, 0, len(ordered))
	release := func() {
		// 释放不受调用方取消影响
		unlockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			_ = held[i].Unlock(unlockCtx)
		}
	}

	for _, key := range ordered {
		dl := NewDistributedLock(l.client, key, token, l.expiration)
		if err := dl.Lock(ctx, l.retryInterval, deadline); err != nil {
			release()
			if errors.Is(err, ErrLockFailed) {
				return nil, ErrTimeout
			}
			return nil, err
		}
		held = append(held, dl)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}
