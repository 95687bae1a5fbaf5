package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckAmount(t *testing.T) {
	tests := []struct {
		amount string
		ok     bool
	}{
		{"0.01", true},
		{"12.50", true},
		{"12.500", true},
		{"999999999999999999.99", true},
		{"0", false},
		{"-1", false},
		{"0.005", false},
		{"0.001", false},
		{"10.123", false},
		{"1000000000000000000", false},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			err := CheckAmount("金额", d(tt.amount))
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCheckNonNegativeAmount(t *testing.T) {
	assert.NoError(t, CheckNonNegativeAmount("抵扣金额", d("0")))
	assert.NoError(t, CheckNonNegativeAmount("抵扣金额", d("3.10")))
	assert.ErrorIs(t, CheckNonNegativeAmount("抵扣金额", d("-0.01")), ErrValidation)
	assert.ErrorIs(t, CheckNonNegativeAmount("抵扣金额", d("0.015")), ErrValidation)
}

// 小数位超过金额列精度的金额在任何入口都被拒绝
func TestSubCentAmountsRejectedEverywhere(t *testing.T) {
	tiny := d("0.005")

	_, err := Normalize(CashMovement{EntryID: 1, AccountID: 1, Direction: DirectionIn, Amount: d("0.001"),
		Method: "CASH", Reference: "R-1", OccurredAt: t0})
	assert.ErrorIs(t, err, ErrValidation)

	err = TransferInput{SenderID: 1, ReceiverID: 2, Amount: tiny, Method: "CASH", Reference: "T-1"}.Validate()
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewInvoice(1, "INV-1", 1, 1, d("10.005"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewAdvance(1, "ADV-1", 700, 1, tiny, "A-1", t0, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewBalanceRequest(1, "BRQ-1", 1, tiny, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = PlanConsumption(700, nil, tiny, t0)
	assert.ErrorIs(t, err, ErrValidation)
}
