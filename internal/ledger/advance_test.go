package ledger

import (
	"testing"
	"time"

	"cashledger/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func advance(id, supplierID int64, amount, consumed string, status model.AdvanceStatus, issuedAt time.Time) *model.SupplierAdvance {
	return &model.SupplierAdvance{
		ID:             id,
		AdvanceNo:      "ADV-" + decimal.NewFromInt(id).String(),
		SupplierID:     supplierID,
		AccountID:      10,
		Amount:         d(amount),
		ConsumedAmount: d(consumed),
		Status:         status,
		IssuedAt:       issuedAt,
	}
}

// 供应商 S 有一笔到账 200000 的预付款，已被抵扣 150000，可用 50000；申请抵扣 60000 被拒
func TestUsableAmountAndCap(t *testing.T) {
	advances := []*model.SupplierAdvance{
		advance(1, 7, "200000", "150000", model.AdvanceStatusArrived, t0),
	}
	assert.True(t, d("50000").Equal(UsableAmount(7, advances)))

	_, err := PlanConsumption(7, advances, d("60000"), t0)
	assert.ErrorIs(t, err, ErrAdvanceExceeded)
	assert.True(t, d("150000").Equal(advances[0].ConsumedAmount))
}

func TestUsableAmountIgnoresPendingAndOtherSuppliers(t *testing.T) {
	advances := []*model.SupplierAdvance{
		advance(1, 7, "100", "0", model.AdvanceStatusPending, t0),
		advance(2, 7, "300", "300", model.AdvanceStatusRepaid, t0),
		advance(3, 7, "50", "10", model.AdvanceStatusArrived, t0),
		advance(4, 8, "1000", "0", model.AdvanceStatusArrived, t0),
	}
	assert.True(t, d("40").Equal(UsableAmount(7, advances)))
	assert.True(t, UsableAmount(9, advances).IsZero())
}

func TestPlanConsumptionFIFO(t *testing.T) {
	older := advance(2, 7, "100", "40", model.AdvanceStatusArrived, t0)
	newer := advance(1, 7, "500", "0", model.AdvanceStatusArrived, t0.Add(time.Hour))
	sameTime := advance(3, 7, "20", "0", model.AdvanceStatusArrived, t0)

	plan, err := PlanConsumption(7, []*model.SupplierAdvance{newer, sameTime, older}, d("100"), t0)
	require.NoError(t, err)

	require.Len(t, plan.Allocations, 3)
	assert.Equal(t, int64(2), plan.Allocations[0].AdvanceID)
	assert.True(t, d("60").Equal(plan.Allocations[0].Amount))
	assert.Equal(t, int64(3), plan.Allocations[1].AdvanceID)
	assert.True(t, d("20").Equal(plan.Allocations[1].Amount))
	assert.Equal(t, int64(1), plan.Allocations[2].AdvanceID)
	assert.True(t, d("20").Equal(plan.Allocations[2].Amount))

	assert.Equal(t, model.AdvanceStatusRepaid, plan.Updated[0].Status)
	assert.NotNil(t, plan.Updated[0].RepaidAt)
	assert.Equal(t, model.AdvanceStatusRepaid, plan.Updated[1].Status)
	assert.Equal(t, model.AdvanceStatusArrived, plan.Updated[2].Status)
	assert.True(t, d("20").Equal(plan.Updated[2].ConsumedAmount))

	// 输入不被修改
	assert.True(t, d("40").Equal(older.ConsumedAmount))
	assert.Equal(t, model.AdvanceStatusArrived, older.Status)
}

func TestPlanConsumptionEdges(t *testing.T) {
	advances := []*model.SupplierAdvance{advance(1, 7, "100", "0", model.AdvanceStatusArrived, t0)}

	plan, err := PlanConsumption(7, advances, d("0"), t0)
	require.NoError(t, err)
	assert.Empty(t, plan.Allocations)

	plan, err = PlanConsumption(7, advances, d("100"), t0)
	require.NoError(t, err)
	assert.Equal(t, model.AdvanceStatusRepaid, plan.Updated[0].Status)

	_, err = PlanConsumption(7, advances, d("-1"), t0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewAdvanceAndArrival(t *testing.T) {
	deadline := t0.Add(72 * time.Hour)
	a, err := NewAdvance(1, "ADV-1", 7, 10, d("250"), "ADV-REF", t0, &deadline)
	require.NoError(t, err)
	assert.Equal(t, model.AdvanceStatusPending, a.Status)
	assert.True(t, UsableAmount(7, []*model.SupplierAdvance{a}).IsZero())

	arrived, err := ConfirmArrival(a, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.AdvanceStatusArrived, arrived.Status)
	assert.Equal(t, model.AdvanceStatusPending, a.Status)
	assert.True(t, d("250").Equal(UsableAmount(7, []*model.SupplierAdvance{arrived})))

	_, err = ConfirmArrival(arrived, t0)
	assert.ErrorIs(t, err, ErrInvalidWorkflowTransition)

	_, err = NewAdvance(2, "ADV-2", 7, 10, d("0"), "R", t0, nil)
	assert.ErrorIs(t, err, ErrValidation)
	early := t0.Add(-time.Hour)
	_, err = NewAdvance(2, "ADV-2", 7, 10, d("1"), "R", t0, &early)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOverdueAdvances(t *testing.T) {
	past := t0.Add(-time.Hour)
	future := t0.Add(time.Hour)

	late := advance(1, 7, "100", "0", model.AdvanceStatusArrived, t0)
	late.Deadline = &past
	onTime := advance(2, 7, "100", "0", model.AdvanceStatusArrived, t0)
	onTime.Deadline = &future
	repaid := advance(3, 7, "100", "100", model.AdvanceStatusRepaid, t0)
	repaid.Deadline = &past
	noDeadline := advance(4, 7, "100", "0", model.AdvanceStatusPending, t0)

	overdue := OverdueAdvances([]*model.SupplierAdvance{late, onTime, repaid, noDeadline}, t0)
	require.Len(t, overdue, 1)
	assert.Equal(t, int64(1), overdue[0].ID)
	// 逾期只是派生属性
	assert.Equal(t, model.AdvanceStatusArrived, late.Status)
}
