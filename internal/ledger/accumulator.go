package ledger

import (
	"time"

	"cashledger/internal/model"

	"github.com/shopspring/decimal"
)

// Accumulator 单个账户的滚动毛余额
//
// 追加一条流水只需 O(1)：新余额 = 旧余额 + 该流水金额，不需要重扫历史。
// 全量折叠 GrossBalance 只用于冷启动和对账。
// 流水必须按规范顺序 (occurred_at, entry_id) 叠加，乱序时拒绝。
type Accumulator struct {
	AccountID      int64
	Balance        decimal.Decimal
	Count          int
	LastEntryID    int64
	LastOccurredAt time.Time
}

func NewAccumulator(accountID int64) *Accumulator {
	return &Accumulator{AccountID: accountID, Balance: decimal.Zero}
}

// Apply 叠加一条流水，返回叠加后的余额
func (a *Accumulator) Apply(entry *model.LedgerEntry) (decimal.Decimal, error) {
	if entry.AccountID != a.AccountID {
		return a.Balance, NewError(KindValidation, "流水 %d 不属于账户 %d", entry.ID, a.AccountID)
	}
	if a.Count > 0 && !a.after(entry) {
		return a.Balance, NewError(KindValidation, "流水 %d 早于已叠加的流水 %d，顺序错误", entry.ID, a.LastEntryID)
	}
	a.Balance = a.Balance.Add(entry.Amount)
	a.Count++
	a.LastEntryID = entry.ID
	a.LastOccurredAt = entry.OccurredAt
	return a.Balance, nil
}

func (a *Accumulator) after(entry *model.LedgerEntry) bool {
	if !entry.OccurredAt.Equal(a.LastOccurredAt) {
		return entry.OccurredAt.After(a.LastOccurredAt)
	}
	return entry.ID > a.LastEntryID
}

// Clone 返回值拷贝，快照发布用
func (a *Accumulator) Clone() *Accumulator {
	c := *a
	return &c
}

// GrossBalance 折叠 occurred_at <= asOf 的全部流水；asOf 为零值时不限时间
func GrossBalance(entries []*model.LedgerEntry, accountID int64, asOf time.Time) decimal.Decimal {
	sorted := make([]*model.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if e.AccountID != accountID {
			continue
		}
		if !asOf.IsZero() && e.OccurredAt.After(asOf) {
			continue
		}
		sorted = append(sorted, e)
	}
	SortEntries(sorted)

	acc := NewAccumulator(accountID)
	for _, e := range sorted {
		_, _ = acc.Apply(e)
	}
	return acc.Balance
}

// Replay 从全量历史重建累加器
func Replay(accountID int64, entries []*model.LedgerEntry) (*Accumulator, error) {
	sorted := make([]*model.LedgerEntry, len(entries))
	copy(sorted, entries)
	SortEntries(sorted)

	guard := NewDedupGuard()
	acc := NewAccumulator(accountID)
	for _, e := range sorted {
		if err := guard.Admit(e); err != nil {
			return nil, err
		}
		if _, err := acc.Apply(e); err != nil {
			return nil, err
		}
	}
	return acc, nil
}
