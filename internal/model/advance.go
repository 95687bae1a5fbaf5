package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdvanceStatus 供应商预付款状态
type AdvanceStatus string

const (
	AdvanceStatusPending AdvanceStatus = "PENDING"
	AdvanceStatusArrived AdvanceStatus = "ARRIVED"
	AdvanceStatusRepaid  AdvanceStatus = "REPAID"
)

var ValidAdvanceTransitions = map[AdvanceStatus][]AdvanceStatus{
	AdvanceStatusPending: {AdvanceStatusArrived},
	AdvanceStatusArrived: {AdvanceStatusRepaid},
}

func (s AdvanceStatus) CanTransitionTo(target AdvanceStatus) bool {
	for _, allowed := range ValidAdvanceTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// SupplierAdvance 交货前支付给供应商的现金预付款，由后续采购逐步抵扣
type SupplierAdvance struct {
	ID             int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	AdvanceNo      string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"advance_no"`
	SupplierID     int64           `gorm:"index;not null" json:"supplier_id"`
	AccountID      int64           `gorm:"index;not null" json:"account_id"` // 发放预付款的账户
	Amount         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	ConsumedAmount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"consumed_amount"`
	Status         AdvanceStatus   `gorm:"type:varchar(20);index;not null" json:"status"`
	Reference      string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"reference"`
	IssuedAt       time.Time       `gorm:"not null" json:"issued_at"`
	ArrivedAt      *time.Time      `json:"arrived_at,omitempty"`
	RepaidAt       *time.Time      `json:"repaid_at,omitempty"`
	Deadline       *time.Time      `json:"deadline,omitempty"`
	Version        int             `gorm:"not null;default:0" json:"version"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SupplierAdvance) TableName() string {
	return "supplier_advance"
}

// Remaining 尚未被采购抵扣的金额
func (a *SupplierAdvance) Remaining() decimal.Decimal {
	return a.Amount.Sub(a.ConsumedAmount)
}

// IsOverdue 逾期是派生属性，不是状态；逾期不会自动取消预付款
func (a *SupplierAdvance) IsOverdue(now time.Time) bool {
	if a.Deadline == nil || a.Status == AdvanceStatusRepaid {
		return false
	}
	return now.After(*a.Deadline)
}

// Purchase 采购 / 收货记录，可抵扣供应商预付款
type Purchase struct {
	ID              int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	PurchaseNo      string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"purchase_no"`
	AccountID       int64           `gorm:"index;not null" json:"account_id"`
	SupplierID      int64           `gorm:"index;not null" json:"supplier_id"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total_amount"`
	AdvanceConsumed decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"advance_consumed"`
	Reference       string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"reference"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
}

func (Purchase) TableName() string {
	return "purchase"
}

// AdvanceAllocation 某笔采购从某笔预付款中抵扣的金额
type AdvanceAllocation struct {
	ID         int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	PurchaseID int64           `gorm:"index;not null" json:"purchase_id"`
	AdvanceID  int64           `gorm:"index;not null" json:"advance_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (AdvanceAllocation) TableName() string {
	return "advance_allocation"
}
