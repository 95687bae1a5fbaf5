package ledger

import (
	"time"

	"cashledger/internal/model"

	"github.com/shopspring/decimal"
)

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func entry(id, accountID int64, amount string, at time.Time) *model.LedgerEntry {
	return &model.LedgerEntry{
		ID:         id,
		AccountID:  accountID,
		Amount:     d(amount),
		Method:     model.MethodCash,
		Source:     model.SourceCashRegister,
		Reference:  "ref-" + decimal.NewFromInt(id).String(),
		OccurredAt: at,
	}
}
