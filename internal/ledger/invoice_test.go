package ledger

import (
	"testing"

	"cashledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvoice(t *testing.T, total string) *model.Invoice {
	inv, err := NewInvoice(1, "INV-1", 10, 100, d(total))
	require.NoError(t, err)
	return inv
}

// 账户 X 毛余额 500000，一张未付 120000 的账单，可用余额 380000
func TestAdjustedBalanceWithPendingInvoice(t *testing.T) {
	inv := newTestInvoice(t, "120000")
	settled := newTestInvoice(t, "70000")
	settled.PaidAmount = d("70000")
	settled.Status = model.InvoiceStatusSettled
	other := newTestInvoice(t, "5000")
	other.AccountID = 11

	pending := PendingInvoiceTotal(10, []*model.Invoice{inv, settled, other})
	assert.True(t, d("120000").Equal(pending))
	assert.True(t, d("380000").Equal(AdjustedBalance(d("500000"), pending)))
}

func TestAdjustedBalanceMayBeNegative(t *testing.T) {
	assert.True(t, d("-50").Equal(AdjustedBalance(d("100"), d("150"))))
}

func TestApplyPaymentTransitions(t *testing.T) {
	inv := newTestInvoice(t, "1000")

	partial, err := ApplyPayment(inv, d("400"), t0)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPartiallyPaid, partial.Status)
	assert.True(t, d("600").Equal(partial.RemainingAmount()))
	assert.Nil(t, partial.SettledAt)
	require.NoError(t, CheckInvoice(partial))

	// 原对象不变
	assert.Equal(t, model.InvoiceStatusPending, inv.Status)
	assert.True(t, inv.PaidAmount.IsZero())

	settled, err := ApplyPayment(partial, d("600"), t0)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusSettled, settled.Status)
	assert.True(t, settled.RemainingAmount().IsZero())
	require.NotNil(t, settled.SettledAt)
	require.NoError(t, CheckInvoice(settled))

	_, err = ApplyPayment(settled, d("1"), t0)
	assert.ErrorIs(t, err, ErrInvoiceAlreadySettled)
}

func TestApplyPaymentRejections(t *testing.T) {
	inv := newTestInvoice(t, "1000")
	paid, err := ApplyPayment(inv, d("900"), t0)
	require.NoError(t, err)

	_, err = ApplyPayment(paid, d("100.01"), t0)
	assert.ErrorIs(t, err, ErrOverpaymentRejected)
	assert.True(t, d("900").Equal(paid.PaidAmount), "rejected payment must leave the invoice untouched")

	_, err = ApplyPayment(paid, d("0"), t0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = ApplyPayment(paid, d("-1"), t0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewInvoiceRejectsNonPositiveTotal(t *testing.T) {
	_, err := NewInvoice(1, "INV-1", 10, 100, d("0"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCheckInvoice(t *testing.T) {
	inv := newTestInvoice(t, "100")
	inv.PaidAmount = d("150")
	assert.ErrorIs(t, CheckInvoice(inv), ErrValidation)

	inv = newTestInvoice(t, "100")
	inv.Status = model.InvoiceStatusSettled
	assert.ErrorIs(t, CheckInvoice(inv), ErrValidation)
}
