package idgen

import (
	"fmt"
	"sync"
	"time"
)

// ============================================================================
// 雪花 ID
// ============================================================================
//
//   0 - 41位毫秒时间戳 - 10位节点号 - 12位序列号
//
// 同一进程内严格递增。流水时间相同时按 ID 排序，靠这一点保证回放顺序确定。
// ============================================================================

const (
	epoch          = int64(1704067200000) // 2024-01-01 00:00:00 UTC
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

// 单号前缀
const (
	PrefixTransfer = "TRF"
	PrefixInvoice  = "INV"
	PrefixAdvance  = "ADV"
	PrefixPurchase = "PUR"
	PrefixRequest  = "BRQ"
)

type Snowflake struct {
	mu        sync.Mutex
	lastMilli int64
	workerID  int64
	sequence  int64
}

// New 节点号超出范围时返回错误
func New(workerID int64) (*Snowflake, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("worker_id 必须在 0-%d 之间，当前 %d", maxWorkerID, workerID)
	}
	return &Snowflake{workerID: workerID}, nil
}

var (
	mu      sync.Mutex
	current *Snowflake
)

// Init 设置进程级生成器。未调用时第一次 NextID 使用节点号 1。
func Init(workerID int64) error {
	s, err := New(workerID)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	current = s
	return nil
}

func generator() *Snowflake {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		current = &Snowflake{workerID: 1}
	}
	return current
}

func NextID() int64 {
	return generator().Generate()
}

func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < s.lastMilli {
		// 时钟回拨，沿用上一毫秒
		now = s.lastMilli
	}

	if now == s.lastMilli {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// 本毫秒序列用完
			for now <= s.lastMilli {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}
	s.lastMilli = now

	return (now-epoch)<<timestampShift | s.workerID<<workerIDShift | s.sequence
}

// WorkerOf 从 ID 中取回节点号，排查重复单号时用
func WorkerOf(id int64) int64 {
	return (id >> workerIDShift) & maxWorkerID
}

// GenerateNo 业务单号，例如 TRF20260115143052-123456789012345
func GenerateNo(prefix string, id int64) string {
	return fmt.Sprintf("%s%s-%d", prefix, time.Now().UTC().Format("20060102150405"), id)
}
