package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus 账单状态
type InvoiceStatus string

const (
	InvoiceStatusPending       InvoiceStatus = "PENDING"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusSettled       InvoiceStatus = "SETTLED"
)

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPartiallyPaid, InvoiceStatusSettled:
		return true
	}
	return false
}

// Invoice 采购账单（facturation）
// AccountID 是账单所对应采购记录的归属账户，未结清部分从该账户的可用余额中扣除
type Invoice struct {
	ID             int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	InvoiceNo      string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"invoice_no"`
	AccountID      int64           `gorm:"index:idx_invoice_account_status,priority:1;not null" json:"account_id"`
	SourceRecordID int64           `gorm:"index;not null" json:"source_record_id"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total_amount"`
	PaidAmount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"paid_amount"`
	Status         InvoiceStatus   `gorm:"type:varchar(20);index:idx_invoice_account_status,priority:2;not null" json:"status"`
	Version        int             `gorm:"not null;default:0" json:"version"`
	SettledAt      *time.Time      `json:"settled_at,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Invoice) TableName() string {
	return "invoice"
}

// RemainingAmount 未付金额 = 总额 - 已付
func (i *Invoice) RemainingAmount() decimal.Decimal {
	return i.TotalAmount.Sub(i.PaidAmount)
}
