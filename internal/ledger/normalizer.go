package ledger

import (
	"sort"
	"strings"
	"time"

	"cashledger/internal/model"

	"github.com/shopspring/decimal"
)

// RecordKind 原始记录种类
type RecordKind string

const (
	KindCashMovement RecordKind = "CASH_MOVEMENT"
	KindTransferLeg  RecordKind = "TRANSFER_LEG"
)

// RawRecord 原始记录的标签联合体，只能是 CashMovement 或 TransferLeg
type RawRecord interface {
	Kind() RecordKind
	rawRecord()
}

// Direction 收银流水方向
type Direction string

const (
	DirectionIn  Direction = "IN"  // 收入
	DirectionOut Direction = "OUT" // 支出
)

// LegSide 划拨的哪一边
type LegSide string

const (
	LegDebit  LegSide = "DEBIT"  // 付款方
	LegCredit LegSide = "CREDIT" // 收款方
)

// CashMovement 收银台的一笔收支，Amount 为正数，方向决定符号
type CashMovement struct {
	EntryID    int64
	AccountID  int64
	Direction  Direction
	Amount     decimal.Decimal
	Method     model.EntryMethod
	Reference  string
	Remark     string
	OccurredAt time.Time
}

func (CashMovement) Kind() RecordKind { return KindCashMovement }
func (CashMovement) rawRecord()       {}

// TransferLeg 划拨的一条腿，Amount 为正数，Side 决定符号
type TransferLeg struct {
	EntryID    int64
	TransferID int64
	AccountID  int64
	Side       LegSide
	Amount     decimal.Decimal
	Method     model.EntryMethod
	Reference  string
	Remark     string
	OccurredAt time.Time
}

func (TransferLeg) Kind() RecordKind { return KindTransferLeg }
func (TransferLeg) rawRecord()       {}

// Normalize 把原始记录转成统一的 LedgerEntry，只做形状转换，没有副作用
func Normalize(rec RawRecord) (*model.LedgerEntry, error) {
	switch r := rec.(type) {
	case CashMovement:
		var sign decimal.Decimal
		switch r.Direction {
		case DirectionIn:
			sign = r.Amount
		case DirectionOut:
			sign = r.Amount.Neg()
		default:
			return nil, NewError(KindValidation, "未知的收支方向: %q", r.Direction)
		}
		if err := checkCommon(r.EntryID, r.AccountID, r.Amount, r.Method, r.Reference, r.OccurredAt); err != nil {
			return nil, err
		}
		return &model.LedgerEntry{
			ID:         r.EntryID,
			AccountID:  r.AccountID,
			Amount:     sign,
			Method:     r.Method,
			Source:     model.SourceCashRegister,
			Reference:  strings.TrimSpace(r.Reference),
			Remark:     r.Remark,
			OccurredAt: r.OccurredAt,
		}, nil

	case TransferLeg:
		var sign decimal.Decimal
		switch r.Side {
		case LegDebit:
			sign = r.Amount.Neg()
		case LegCredit:
			sign = r.Amount
		default:
			return nil, NewError(KindValidation, "未知的划拨方向: %q", r.Side)
		}
		if err := checkCommon(r.EntryID, r.AccountID, r.Amount, r.Method, r.Reference, r.OccurredAt); err != nil {
			return nil, err
		}
		if r.TransferID <= 0 {
			return nil, NewError(KindValidation, "划拨流水缺少 transfer_id")
		}
		transferID := r.TransferID
		return &model.LedgerEntry{
			ID:         r.EntryID,
			AccountID:  r.AccountID,
			Amount:     sign,
			Method:     r.Method,
			Source:     model.SourceTransfer,
			Reference:  strings.TrimSpace(r.Reference),
			TransferID: &transferID,
			Remark:     r.Remark,
			OccurredAt: r.OccurredAt,
		}, nil

	case nil:
		return nil, NewError(KindValidation, "原始记录为空")
	default:
		return nil, NewError(KindValidation, "不支持的记录类型: %s", rec.Kind())
	}
}

func checkCommon(entryID, accountID int64, amount decimal.Decimal, method model.EntryMethod, reference string, occurredAt time.Time) error {
	switch {
	case entryID <= 0:
		return NewError(KindValidation, "entry_id 必须为正数")
	case accountID <= 0:
		return NewError(KindValidation, "account_id 必须为正数")
	case !method.IsValid():
		return NewError(KindValidation, "未知的资金渠道: %q", method)
	case strings.TrimSpace(reference) == "":
		return NewError(KindValidation, "reference 不能为空")
	case len(reference) > 64:
		return NewError(KindValidation, "reference 长度不能超过64")
	case occurredAt.IsZero():
		return NewError(KindValidation, "occurred_at 不能为空")
	}
	return CheckAmount("金额", amount)
}

type dedupKey struct {
	accountID int64
	reference string
}

// DedupGuard 同一账户下 reference 只能出现一次，防止重复提交
type DedupGuard struct {
	seen map[dedupKey]struct{}
}

func NewDedupGuard() *DedupGuard {
	return &DedupGuard{seen: make(map[dedupKey]struct{})}
}

// Admit 首次出现返回 nil 并记住；重复返回 DuplicateEntry
func (g *DedupGuard) Admit(entry *model.LedgerEntry) error {
	key := dedupKey{accountID: entry.AccountID, reference: entry.Reference}
	if _, ok := g.seen[key]; ok {
		return NewError(KindDuplicateEntry, "账户 %d 已存在引用号 %s", entry.AccountID, entry.Reference)
	}
	g.seen[key] = struct{}{}
	return nil
}

// NormalizeBatch 批量转换，任何一条失败整批失败
func NormalizeBatch(records []RawRecord) ([]*model.LedgerEntry, error) {
	guard := NewDedupGuard()
	entries := make([]*model.LedgerEntry, 0, len(records))
	for _, rec := range records {
		entry, err := Normalize(rec)
		if err != nil {
			return nil, err
		}
		if err := guard.Admit(entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	SortEntries(entries)
	return entries, nil
}

// EntryLess 规范顺序 (occurred_at, entry_id)
func EntryLess(a, b *model.LedgerEntry) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.Before(b.OccurredAt)
	}
	return a.ID < b.ID
}

func SortEntries(entries []*model.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return EntryLess(entries[i], entries[j])
	})
}
