package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cashledger/internal/config"

	"github.com/go-redis/redis/v8"
)

var ErrTimeout = errors.New("获取锁超时")

// Release 释放本次获取的全部锁
type Release func()

// Locker 按 key 获取独占访问。多个 key 时必须按固定的全局顺序获取，避免两笔反向划拨互相死锁。
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (Release, error)
}

func AccountKey(accountID int64) string {
	return fmt.Sprintf("ledger:lock:account:%019d", accountID)
}

func SupplierKey(supplierID int64) string {
	return fmt.Sprintf("ledger:lock:supplier:%019d", supplierID)
}

func RequestKey(requestID int64) string {
	return fmt.Sprintf("ledger:lock:request:%019d", requestID)
}

// orderKeys 去重并排序，所有实现共用同一顺序
func orderKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	ordered := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)
	return ordered
}

// New 按配置选择实现：redis 用于多实例部署，local 用于单进程
func New(cfg config.LedgerConfig, client redis.Cmdable) (Locker, error) {
	switch cfg.LockDriver {
	case "redis":
		if client == nil {
			return nil, errors.New("lock_driver=redis 需要 redis 客户端")
		}
		return NewRedisLocker(client, cfg.LockTimeout(), cfg.LockExpiration()), nil
	case "local", "":
		return NewLocalLocker(cfg.LockTimeout()), nil
	}
	return nil, fmt.Errorf("未知的锁实现: %q", cfg.LockDriver)
}
