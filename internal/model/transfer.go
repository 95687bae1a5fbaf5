package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer 账户间划拨，恰好对应两条金额相反的流水
type Transfer struct {
	ID                int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	TransferNo        string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"transfer_no"`
	SenderAccountID   int64           `gorm:"index;not null" json:"sender_account_id"`
	ReceiverAccountID int64           `gorm:"index;not null" json:"receiver_account_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Method            EntryMethod     `gorm:"type:varchar(20);not null" json:"method"`
	Reference         string          `gorm:"type:varchar(64);not null" json:"reference"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
}

func (Transfer) TableName() string {
	return "transfer"
}
