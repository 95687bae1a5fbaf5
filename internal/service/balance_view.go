package service

import (
	"sync"

	"cashledger/internal/model"

	"github.com/shopspring/decimal"
)

// accountSnapshot 某账户已提交状态的不可变快照
type accountSnapshot struct {
	AccountID   int64
	Gross       decimal.Decimal
	Pending     decimal.Decimal
	EntryCount  int
	LastEntryID int64
}

func (s accountSnapshot) Adjusted() decimal.Decimal {
	return s.Gross.Sub(s.Pending)
}

// apply 增量叠加新流水，返回新快照
func (s accountSnapshot) apply(entries ...*model.LedgerEntry) accountSnapshot {
	next := s
	for _, e := range entries {
		if e.AccountID != s.AccountID {
			continue
		}
		next.Gross = next.Gross.Add(e.Amount)
		next.EntryCount++
		if e.ID > next.LastEntryID {
			next.LastEntryID = e.ID
		}
	}
	return next
}

func (s accountSnapshot) withPending(delta decimal.Decimal) accountSnapshot {
	next := s
	next.Pending = s.Pending.Add(delta)
	return next
}

// balanceView 各账户最新已提交快照
//
// 写入方在提交成功后一次性发布本次涉及的所有账户（划拨的两条腿同时可见），
// 读取方只持有读锁拷贝值，不会阻塞账户锁内的写流程。
type balanceView struct {
	mu        sync.RWMutex
	snapshots map[int64]accountSnapshot
}

func newBalanceView() *balanceView {
	return &balanceView{snapshots: make(map[int64]accountSnapshot)}
}

func (v *balanceView) get(accountID int64) (accountSnapshot, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	snap, ok := v.snapshots[accountID]
	return snap, ok
}

func (v *balanceView) getMany(accountIDs []int64) map[int64]accountSnapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[int64]accountSnapshot, len(accountIDs))
	for _, id := range accountIDs {
		if snap, ok := v.snapshots[id]; ok {
			out[id] = snap
		}
	}
	return out
}

func (v *balanceView) publish(snaps ...accountSnapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, snap := range snaps {
		v.snapshots[snap.AccountID] = snap
	}
}

// publishIfAbsent 无锁读路径的冷加载不能覆盖写入方已发布的新快照
func (v *balanceView) publishIfAbsent(snap accountSnapshot) accountSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	if existing, ok := v.snapshots[snap.AccountID]; ok {
		return existing
	}
	v.snapshots[snap.AccountID] = snap
	return snap
}
