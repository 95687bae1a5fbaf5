package ledger

import (
	"sort"
	"time"

	"cashledger/internal/model"

	"github.com/shopspring/decimal"
)

// UsableAmount 供应商可用预付款 = max(0, 已到账预付款总额 - 已被采购抵扣总额)
//
// 已抵扣完的预付款(REPAID)两边同时计入，结果等于到账且未抵扣完的余量之和。
// PENDING 的预付款对方尚未确认收到，不计入。
func UsableAmount(supplierID int64, advances []*model.SupplierAdvance) decimal.Decimal {
	arrived := decimal.Zero
	consumed := decimal.Zero
	for _, a := range advances {
		if a.SupplierID != supplierID || a.Status == model.AdvanceStatusPending {
			continue
		}
		arrived = arrived.Add(a.Amount)
		consumed = consumed.Add(a.ConsumedAmount)
	}
	usable := arrived.Sub(consumed)
	if usable.IsNegative() {
		return decimal.Zero
	}
	return usable
}

// Allocation 一笔采购在某笔预付款上的抵扣
type Allocation struct {
	AdvanceID int64
	Amount    decimal.Decimal
}

// ConsumptionPlan 抵扣计划：分配明细和抵扣后的预付款副本（原对象不变）
type ConsumptionPlan struct {
	Allocations []Allocation
	Updated     []*model.SupplierAdvance
}

// PlanConsumption 按 (issued_at, id) 先进先出地从到账预付款中抵扣 amount。
// amount 超过可用额度时返回 AdvanceExceeded，不产生任何计划。
func PlanConsumption(supplierID int64, advances []*model.SupplierAdvance, amount decimal.Decimal, now time.Time) (*ConsumptionPlan, error) {
	if err := CheckNonNegativeAmount("抵扣金额", amount); err != nil {
		return nil, err
	}
	usable := UsableAmount(supplierID, advances)
	if amount.GreaterThan(usable) {
		return nil, NewError(KindAdvanceExceeded, "供应商 %d 可用预付款 %s，本次申请抵扣 %s",
			supplierID, usable.String(), amount.String())
	}

	plan := &ConsumptionPlan{}
	if amount.IsZero() {
		return plan, nil
	}

	candidates := make([]*model.SupplierAdvance, 0, len(advances))
	for _, a := range advances {
		if a.SupplierID == supplierID && a.Status == model.AdvanceStatusArrived && a.Remaining().IsPositive() {
			candidates = append(candidates, a)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].IssuedAt.Equal(candidates[j].IssuedAt) {
			return candidates[i].IssuedAt.Before(candidates[j].IssuedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})

	left := amount
	for _, a := range candidates {
		if !left.IsPositive() {
			break
		}
		take := decimal.Min(left, a.Remaining())
		updated := *a
		updated.ConsumedAmount = a.ConsumedAmount.Add(take)
		if updated.Remaining().IsZero() {
			updated.Status = model.AdvanceStatusRepaid
			repaidAt := now
			updated.RepaidAt = &repaidAt
		}
		plan.Allocations = append(plan.Allocations, Allocation{AdvanceID: a.ID, Amount: take})
		plan.Updated = append(plan.Updated, &updated)
		left = left.Sub(take)
	}

	// UsableAmount 与候选集合口径不一致时（例如导入数据中 REPAID 仍有余量）宁可拒绝
	if left.IsPositive() {
		return nil, NewError(KindAdvanceExceeded, "供应商 %d 到账预付款余量不足以抵扣 %s", supplierID, amount.String())
	}
	return plan, nil
}

// NewAdvance 新发放一笔预付款，状态 PENDING
func NewAdvance(id int64, advanceNo string, supplierID, accountID int64, amount decimal.Decimal, reference string, issuedAt time.Time, deadline *time.Time) (*model.SupplierAdvance, error) {
	if supplierID <= 0 {
		return nil, NewError(KindValidation, "supplier_id 必须为正数")
	}
	if err := CheckAmount("预付款金额", amount); err != nil {
		return nil, err
	}
	if reference == "" {
		return nil, NewError(KindValidation, "reference 不能为空")
	}
	if deadline != nil && deadline.Before(issuedAt) {
		return nil, NewError(KindValidation, "还款期限早于发放时间")
	}
	return &model.SupplierAdvance{
		ID:             id,
		AdvanceNo:      advanceNo,
		SupplierID:     supplierID,
		AccountID:      accountID,
		Amount:         amount,
		ConsumedAmount: decimal.Zero,
		Status:         model.AdvanceStatusPending,
		Reference:      reference,
		IssuedAt:       issuedAt,
		Deadline:       deadline,
	}, nil
}

// ConfirmArrival 对方确认收到预付款：PENDING -> ARRIVED
func ConfirmArrival(a *model.SupplierAdvance, now time.Time) (*model.SupplierAdvance, error) {
	if !a.Status.CanTransitionTo(model.AdvanceStatusArrived) {
		return nil, NewError(KindInvalidWorkflowTransition, "预付款 %s 当前状态 %s 不能确认到账", a.AdvanceNo, a.Status)
	}
	updated := *a
	updated.Status = model.AdvanceStatusArrived
	arrivedAt := now
	updated.ArrivedAt = &arrivedAt
	return &updated, nil
}

// OverdueAdvances 过滤出逾期的预付款，只读
func OverdueAdvances(advances []*model.SupplierAdvance, now time.Time) []*model.SupplierAdvance {
	var overdue []*model.SupplierAdvance
	for _, a := range advances {
		if a.IsOverdue(now) {
			overdue = append(overdue, a)
		}
	}
	return overdue
}
