package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"cashledger/internal/infrastructure/lock"
	"cashledger/internal/ledger"
	"cashledger/internal/model"
	"cashledger/internal/repository"
	"cashledger/pkg/idgen"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GetUsableAdvance 供应商可用预付款
func (s *LedgerService) GetUsableAdvance(ctx context.Context, supplierID int64) (decimal.Decimal, error) {
	if supplierID <= 0 {
		return decimal.Zero, ledger.NewError(ledger.KindValidation, "supplier_id 必须为正数")
	}
	advances, err := s.advanceRepo.ListBySupplier(ctx, nil, supplierID)
	if err != nil {
		return decimal.Zero, storeError(err, "查询预付款失败")
	}
	return ledger.UsableAmount(supplierID, advances), nil
}

// ============================================================
// 发放与到账
// ============================================================

type IssueAdvanceRequest struct {
	AccountID  int64             `json:"account_id" validate:"required,gt=0"`
	SupplierID int64             `json:"supplier_id" validate:"required,gt=0"`
	Amount     decimal.Decimal   `json:"amount"`
	Method     model.EntryMethod `json:"method" validate:"required,oneof=CASH MOBILE_MONEY BANK_TRANSFER"`
	Reference  string            `json:"reference" validate:"required,max=64"`
	Deadline   *time.Time        `json:"deadline"`
}

// IssueAdvance 向供应商发放预付款，现金从发放账户支出，要求可用余额足够
func (s *LedgerService) IssueAdvance(ctx context.Context, req *IssueAdvanceRequest) (*model.SupplierAdvance, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	if _, err := s.getAccount(ctx, req.AccountID); err != nil {
		return nil, err
	}
	now := s.now()
	advanceID := idgen.NextID()
	advance, err := ledger.NewAdvance(advanceID, idgen.GenerateNo(idgen.PrefixAdvance, advanceID),
		req.SupplierID, req.AccountID, req.Amount, req.Reference, now, req.Deadline)
	if err != nil {
		return nil, err
	}
	entry, err := ledger.Normalize(ledger.CashMovement{
		EntryID:    idgen.NextID(),
		AccountID:  req.AccountID,
		Direction:  ledger.DirectionOut,
		Amount:     req.Amount,
		Method:     req.Method,
		Reference:  req.Reference,
		Remark:     "供应商预付款 " + advance.AdvanceNo,
		OccurredAt: now,
	})
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, lock.AccountKey(req.AccountID), lock.SupplierKey(req.SupplierID))
	if err != nil {
		return nil, err
	}
	defer release()

	snap, err := s.stateLocked(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if snap.Adjusted().LessThan(req.Amount) {
		return nil, ledger.NewError(ledger.KindInsufficientBalance, "账户 %d 可用余额 %s，不足以发放预付款 %s",
			req.AccountID, snap.Adjusted().String(), req.Amount.String())
	}
	if err := s.ensureReferenceUnused(ctx, req.AccountID, entry.Reference); err != nil {
		return nil, err
	}

	err = s.commit(ctx, func(tx *gorm.DB) error {
		if err := s.advanceRepo.Create(ctx, tx, advance); err != nil {
			return err
		}
		if err := s.entryRepo.CreateBatch(ctx, tx, []*model.LedgerEntry{entry}); err != nil {
			return err
		}
		return s.outboxRepo.Enqueue(ctx, tx, s.eventsTopic, model.EventAdvanceIssued,
			strconv.FormatInt(advance.SupplierID, 10), advance)
	})
	if err != nil {
		return nil, err
	}
	s.view.publish(snap.apply(entry))

	s.ctxLog(ctx).Info("预付款已发放",
		zap.String("advance_no", advance.AdvanceNo),
		zap.Int64("supplier_id", advance.SupplierID),
		zap.Int64("account_id", advance.AccountID),
		zap.String("amount", advance.Amount.String()))
	return advance, nil
}

// ConfirmAdvanceArrival 供应商确认收到预付款，之后才能被采购抵扣
func (s *LedgerService) ConfirmAdvanceArrival(ctx context.Context, advanceID int64) (*model.SupplierAdvance, error) {
	advance, err := s.getAdvance(ctx, advanceID)
	if err != nil {
		return nil, err
	}
	release, err := s.acquire(ctx, lock.SupplierKey(advance.SupplierID))
	if err != nil {
		return nil, err
	}
	defer release()

	advance, err = s.getAdvance(ctx, advanceID)
	if err != nil {
		return nil, err
	}
	updated, err := ledger.ConfirmArrival(advance, s.now())
	if err != nil {
		return nil, err
	}

	err = s.commit(ctx, func(tx *gorm.DB) error {
		if err := s.advanceRepo.Save(ctx, tx, updated); err != nil {
			return err
		}
		return s.outboxRepo.Enqueue(ctx, tx, s.eventsTopic, model.EventAdvanceArrived,
			strconv.FormatInt(updated.SupplierID, 10), updated)
	})
	if err != nil {
		return nil, err
	}
	s.ctxLog(ctx).Info("预付款已到账", zap.String("advance_no", updated.AdvanceNo))
	return updated, nil
}

func (s *LedgerService) getAdvance(ctx context.Context, advanceID int64) (*model.SupplierAdvance, error) {
	advance, err := s.advanceRepo.GetByID(ctx, nil, advanceID)
	if err != nil {
		if errors.Is(err, repository.ErrAdvanceNotFound) {
			return nil, ledger.NewError(ledger.KindNotFound, "预付款 %d 不存在", advanceID)
		}
		return nil, storeError(err, "查询预付款失败")
	}
	return advance, nil
}

// ListOverdueAdvances 已过还款期限且未抵扣完的预付款，只用于告警
func (s *LedgerService) ListOverdueAdvances(ctx context.Context, limit int) ([]*model.SupplierAdvance, error) {
	if limit <= 0 {
		limit = 100
	}
	now := s.now()
	advances, err := s.advanceRepo.ListOverdue(ctx, now, limit)
	if err != nil {
		return nil, storeError(err, "查询逾期预付款失败")
	}
	return ledger.OverdueAdvances(advances, now), nil
}

// ============================================================
// 采购
// ============================================================

type PurchaseRequest struct {
	AccountID          int64           `json:"account_id" validate:"required,gt=0"`
	SupplierID         int64           `json:"supplier_id" validate:"required,gt=0"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	AdvanceConsumption decimal.Decimal `json:"advance_consumption"`
	Reference          string          `json:"reference" validate:"required,max=64"`
}

// PurchaseResult 采购记录、抵扣明细，以及剩余部分生成的账单（全部由预付款抵扣时为 nil）
type PurchaseResult struct {
	Purchase    *model.Purchase            `json:"purchase"`
	Allocations []*model.AdvanceAllocation `json:"allocations"`
	Invoice     *model.Invoice             `json:"invoice,omitempty"`
}

// SubmitPurchase 登记采购
//
// 抵扣额超过供应商可用预付款返回 AdvanceExceeded；剩余部分生成账单，
// 账单会让账户可用余额为负时返回 InsufficientBalance。失败时不写入任何记录。
func (s *LedgerService) SubmitPurchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResult, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	if err := ledger.CheckAmount("采购金额", req.TotalAmount); err != nil {
		return nil, err
	}
	if err := ledger.CheckNonNegativeAmount("预付款抵扣金额", req.AdvanceConsumption); err != nil {
		return nil, err
	}
	if req.AdvanceConsumption.GreaterThan(req.TotalAmount) {
		return nil, ledger.NewError(ledger.KindValidation, "预付款抵扣 %s 超过采购金额 %s",
			req.AdvanceConsumption.String(), req.TotalAmount.String())
	}
	if _, err := s.getAccount(ctx, req.AccountID); err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, lock.AccountKey(req.AccountID), lock.SupplierKey(req.SupplierID))
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := s.purchaseRepo.GetByReference(ctx, req.Reference)
	if err != nil {
		return nil, storeError(err, "查询采购失败")
	}
	if existing != nil {
		return nil, ledger.NewError(ledger.KindDuplicateEntry, "采购引用号 %s 已存在", req.Reference)
	}

	now := s.now()
	advances, err := s.advanceRepo.ListBySupplier(ctx, nil, req.SupplierID)
	if err != nil {
		return nil, storeError(err, "查询预付款失败")
	}
	plan, err := ledger.PlanConsumption(req.SupplierID, advances, req.AdvanceConsumption, now)
	if err != nil {
		return nil, err
	}

	purchaseID := idgen.NextID()
	purchase := &model.Purchase{
		ID:              purchaseID,
		PurchaseNo:      idgen.GenerateNo(idgen.PrefixPurchase, purchaseID),
		AccountID:       req.AccountID,
		SupplierID:      req.SupplierID,
		TotalAmount:     req.TotalAmount,
		AdvanceConsumed: req.AdvanceConsumption,
		Reference:       req.Reference,
		CreatedAt:       now,
	}
	allocations := make([]*model.AdvanceAllocation, 0, len(plan.Allocations))
	for _, a := range plan.Allocations {
		allocations = append(allocations, &model.AdvanceAllocation{
			ID:         idgen.NextID(),
			PurchaseID: purchaseID,
			AdvanceID:  a.AdvanceID,
			Amount:     a.Amount,
		})
	}

	snap, err := s.stateLocked(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	var invoice *model.Invoice
	billed := req.TotalAmount.Sub(req.AdvanceConsumption)
	if billed.IsPositive() {
		if snap.Adjusted().LessThan(billed) {
			return nil, ledger.NewError(ledger.KindInsufficientBalance, "账户 %d 可用余额 %s，不足以承担账单 %s",
				req.AccountID, snap.Adjusted().String(), billed.String())
		}
		invoiceID := idgen.NextID()
		invoice, err = ledger.NewInvoice(invoiceID, idgen.GenerateNo(idgen.PrefixInvoice, invoiceID),
			req.AccountID, purchaseID, billed)
		if err != nil {
			return nil, err
		}
	}

	err = s.commit(ctx, func(tx *gorm.DB) error {
		if err := s.purchaseRepo.Create(ctx, tx, purchase, allocations); err != nil {
			return err
		}
		for _, a := range plan.Updated {
			if err := s.advanceRepo.Save(ctx, tx, a); err != nil {
				return err
			}
		}
		if invoice != nil {
			if err := s.invoiceRepo.Create(ctx, tx, invoice); err != nil {
				return err
			}
		}
		return s.outboxRepo.Enqueue(ctx, tx, s.eventsTopic, model.EventPurchaseRecorded,
			strconv.FormatInt(purchase.SupplierID, 10), &PurchaseResult{
				Purchase:    purchase,
				Allocations: allocations,
				Invoice:     invoice,
			})
	})
	if err != nil {
		return nil, err
	}
	if invoice != nil {
		s.view.publish(snap.withPending(invoice.TotalAmount))
	}

	s.ctxLog(ctx).Info("采购已登记",
		zap.String("purchase_no", purchase.PurchaseNo),
		zap.Int64("supplier_id", purchase.SupplierID),
		zap.String("total", purchase.TotalAmount.String()),
		zap.String("advance_consumed", purchase.AdvanceConsumed.String()),
		zap.String("billed", billed.String()))
	return &PurchaseResult{Purchase: purchase, Allocations: allocations, Invoice: invoice}, nil
}
