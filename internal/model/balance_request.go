package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceRequestStatus 余额申请状态（demande de solde）
type BalanceRequestStatus string

const (
	BalanceRequestPending  BalanceRequestStatus = "PENDING"
	BalanceRequestApproved BalanceRequestStatus = "APPROVED"
	BalanceRequestRejected BalanceRequestStatus = "REJECTED"
)

// 审批与驳回都是终态，不能重新打开
var ValidRequestTransitions = map[BalanceRequestStatus][]BalanceRequestStatus{
	BalanceRequestPending: {BalanceRequestApproved, BalanceRequestRejected},
}

func (s BalanceRequestStatus) CanTransitionTo(target BalanceRequestStatus) bool {
	for _, allowed := range ValidRequestTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (s BalanceRequestStatus) IsTerminal() bool {
	return s == BalanceRequestApproved || s == BalanceRequestRejected
}

type BalanceRequest struct {
	ID              int64                `gorm:"primaryKey;autoIncrement:false" json:"id"`
	RequestNo       string               `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_no"`
	AccountID       int64                `gorm:"index;not null" json:"account_id"`
	AmountRequested decimal.Decimal      `gorm:"type:decimal(20,2);not null" json:"amount_requested"`
	Reason          string               `gorm:"type:varchar(256)" json:"reason"`
	Status          BalanceRequestStatus `gorm:"type:varchar(20);index;not null" json:"status"`
	DecidedBy       *int64               `json:"decided_by,omitempty"`
	DecidedAt       *time.Time           `json:"decided_at,omitempty"`
	DecisionNote    string               `gorm:"type:varchar(256)" json:"decision_note,omitempty"`
	TransferID      *int64               `json:"transfer_id,omitempty"`
	CreatedAt       time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

func (BalanceRequest) TableName() string {
	return "balance_request"
}
