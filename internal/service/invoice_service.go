package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"cashledger/internal/infrastructure/lock"
	"cashledger/internal/ledger"
	"cashledger/internal/model"
	"cashledger/internal/repository"
	"cashledger/pkg/idgen"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type invoicePaidEvent struct {
	InvoiceID  int64               `json:"invoice_id"`
	InvoiceNo  string              `json:"invoice_no"`
	AccountID  int64               `json:"account_id"`
	Amount     decimal.Decimal     `json:"amount"`
	PaidAmount decimal.Decimal     `json:"paid_amount"`
	Status     model.InvoiceStatus `json:"status"`
	EntryID    int64               `json:"entry_id"`
}

func (s *LedgerService) getInvoice(ctx context.Context, invoiceID int64) (*model.Invoice, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, nil, invoiceID)
	if err != nil {
		if errors.Is(err, repository.ErrInvoiceNotFound) {
			return nil, ledger.NewError(ledger.KindNotFound, "账单 %d 不存在", invoiceID)
		}
		return nil, storeError(err, "查询账单失败")
	}
	return inv, nil
}

// SubmitInvoicePayment 对账单付款
//
// 付款从账单归属账户的收银台支出，毛余额减少 amount，未结账单同步减少 amount，可用余额不变。
// 超付返回 OverpaymentRejected，已结清返回 InvoiceAlreadySettled，账单保持原状。
func (s *LedgerService) SubmitInvoicePayment(ctx context.Context, invoiceID int64, amount decimal.Decimal) (*model.Invoice, error) {
	if invoiceID <= 0 {
		return nil, ledger.NewError(ledger.KindValidation, "invoice_id 必须为正数")
	}
	if err := ledger.CheckAmount("付款金额", amount); err != nil {
		return nil, err
	}
	inv, err := s.getInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, lock.AccountKey(inv.AccountID))
	if err != nil {
		return nil, err
	}
	defer release()

	// 锁内重新读取，拿到最新的已付金额和版本号
	inv, err = s.getInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	updated, err := ledger.ApplyPayment(inv, amount, s.now())
	if err != nil {
		return nil, err
	}
	snap, err := s.stateLocked(ctx, inv.AccountID)
	if err != nil {
		return nil, err
	}

	entryID := idgen.NextID()
	entry, err := ledger.Normalize(ledger.CashMovement{
		EntryID:    entryID,
		AccountID:  inv.AccountID,
		Direction:  ledger.DirectionOut,
		Amount:     amount,
		Method:     model.MethodCash,
		Reference:  fmt.Sprintf("PAY-%d-%d", inv.ID, entryID),
		Remark:     "账单付款 " + inv.InvoiceNo,
		OccurredAt: s.now(),
	})
	if err != nil {
		return nil, err
	}

	err = s.commit(ctx, func(tx *gorm.DB) error {
		if err := s.invoiceRepo.ApplyPayment(ctx, tx, updated, inv.Version); err != nil {
			return err
		}
		if err := s.entryRepo.CreateBatch(ctx, tx, []*model.LedgerEntry{entry}); err != nil {
			return err
		}
		return s.outboxRepo.Enqueue(ctx, tx, s.eventsTopic, model.EventInvoicePaid,
			strconv.FormatInt(inv.AccountID, 10), invoicePaidEvent{
				InvoiceID:  updated.ID,
				InvoiceNo:  updated.InvoiceNo,
				AccountID:  updated.AccountID,
				Amount:     amount,
				PaidAmount: updated.PaidAmount,
				Status:     updated.Status,
				EntryID:    entry.ID,
			})
	})
	if err != nil {
		return nil, err
	}
	s.view.publish(snap.apply(entry).withPending(amount.Neg()))

	s.ctxLog(ctx).Info("账单付款成功",
		zap.String("invoice_no", updated.InvoiceNo),
		zap.String("amount", amount.String()),
		zap.String("paid_amount", updated.PaidAmount.String()),
		zap.String("status", string(updated.Status)))
	return updated, nil
}

// GetInvoice 查询账单
func (s *LedgerService) GetInvoice(ctx context.Context, invoiceID int64) (*model.Invoice, error) {
	return s.getInvoice(ctx, invoiceID)
}
