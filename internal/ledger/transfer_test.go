package ledger

import (
	"testing"

	"cashledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIDs = TransferIDs{TransferID: 50, TransferNo: "TRF-50", DebitEntryID: 51, CreditEntryID: 52}

func TestPlanTransfer(t *testing.T) {
	in := TransferInput{
		SenderID: 1, ReceiverID: 2, Amount: d("100000"),
		Method: model.MethodBankTransfer, Reference: "T-100", Remark: "补货",
	}
	plan, err := PlanTransfer(in, d("380000"), testIDs, t0)
	require.NoError(t, err)

	assert.Equal(t, int64(50), plan.Transfer.ID)
	assert.True(t, d("-100000").Equal(plan.Debit.Amount))
	assert.True(t, d("100000").Equal(plan.Credit.Amount))
	assert.Equal(t, int64(1), plan.Debit.AccountID)
	assert.Equal(t, int64(2), plan.Credit.AccountID)
	assert.True(t, plan.Debit.Amount.Add(plan.Credit.Amount).IsZero())
	assert.Equal(t, *plan.Debit.TransferID, *plan.Credit.TransferID)
	assert.Equal(t, []*model.LedgerEntry{plan.Debit, plan.Credit}, plan.Entries())
}

func TestPlanTransferExactBalance(t *testing.T) {
	in := TransferInput{SenderID: 1, ReceiverID: 2, Amount: d("30000"), Method: model.MethodCash, Reference: "R"}
	_, err := PlanTransfer(in, d("30000"), testIDs, t0)
	assert.NoError(t, err)
}

func TestPlanTransferRejections(t *testing.T) {
	base := TransferInput{SenderID: 1, ReceiverID: 2, Amount: d("10"), Method: model.MethodCash, Reference: "R"}
	tests := []struct {
		name     string
		mutate   func(*TransferInput)
		adjusted string
		want     error
	}{
		{"insufficient", func(in *TransferInput) { in.Amount = d("50001") }, "50000", ErrInsufficientBalance},
		{"self transfer", func(in *TransferInput) { in.ReceiverID = 1 }, "100", ErrValidation},
		{"zero amount", func(in *TransferInput) { in.Amount = d("0") }, "100", ErrValidation},
		{"blank reference", func(in *TransferInput) { in.Reference = " " }, "100", ErrValidation},
		{"unknown method", func(in *TransferInput) { in.Method = "GOLD" }, "100", ErrValidation},
		{"negative adjusted", func(in *TransferInput) {}, "-5", ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			plan, err := PlanTransfer(in, d(tt.adjusted), testIDs, t0)
			assert.Nil(t, plan)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
