package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// 账务事件类型，随消息一起投递给下游（看板、对账）
const (
	EventTransferCommitted  = "TRANSFER_COMMITTED"
	EventCashMovement       = "CASH_MOVEMENT_RECORDED"
	EventInvoicePaid        = "INVOICE_PAYMENT_RECORDED"
	EventPurchaseRecorded   = "PURCHASE_RECORDED"
	EventAdvanceIssued      = "ADVANCE_ISSUED"
	EventAdvanceArrived     = "ADVANCE_ARRIVED"
	EventAdvanceOverdue     = "ADVANCE_OVERDUE"
	EventBalanceRequestMade = "BALANCE_REQUEST_SUBMITTED"
	EventBalanceRequestDone = "BALANCE_REQUEST_DECIDED"
)

// OutboxMessage 与业务数据同一事务写入，由 OutboxSender 异步投递到 Kafka
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	EventType  string    `gorm:"type:varchar(40);not null" json:"event_type"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}

// AllModels 自动迁移用
func AllModels() []interface{} {
	return []interface{}{
		&Account{},
		&LedgerEntry{},
		&Transfer{},
		&Invoice{},
		&SupplierAdvance{},
		&Purchase{},
		&AdvanceAllocation{},
		&BalanceRequest{},
		&OutboxMessage{},
	}
}
