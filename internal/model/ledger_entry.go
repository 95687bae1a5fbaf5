package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryMethod 资金渠道
type EntryMethod string

const (
	MethodCash         EntryMethod = "CASH"
	MethodMobileMoney  EntryMethod = "MOBILE_MONEY"
	MethodBankTransfer EntryMethod = "BANK_TRANSFER"
)

func (m EntryMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodMobileMoney, MethodBankTransfer:
		return true
	}
	return false
}

// EntrySource 流水来源
type EntrySource string

const (
	SourceCashRegister EntrySource = "CASH_REGISTER"
	SourceTransfer     EntrySource = "TRANSFER"
)

// LedgerEntry 账户流水
//
// 只追加，不修改，不删除。更正通过新的冲正流水完成。
// 金额带符号：收入为正，支出为负。
type LedgerEntry struct {
	ID         int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	AccountID  int64           `gorm:"not null;uniqueIndex:uk_entry_account_reference,priority:1;index:idx_entry_account_time,priority:1" json:"account_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Method     EntryMethod     `gorm:"type:varchar(20);not null" json:"method"`
	Source     EntrySource     `gorm:"type:varchar(20);not null" json:"source"`
	Reference  string          `gorm:"type:varchar(64);not null;uniqueIndex:uk_entry_account_reference,priority:2" json:"reference"`
	TransferID *int64          `gorm:"index" json:"transfer_id,omitempty"`
	Remark     string          `gorm:"type:varchar(256)" json:"remark"`
	OccurredAt time.Time       `gorm:"not null;index:idx_entry_account_time,priority:2" json:"occurred_at"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entry"
}
