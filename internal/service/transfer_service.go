package service

import (
	"context"
	"strconv"
	"time"

	"cashledger/internal/infrastructure/lock"
	"cashledger/internal/ledger"
	"cashledger/internal/model"
	"cashledger/pkg/idgen"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TransferRequest struct {
	SenderID   int64             `json:"sender_id" validate:"required,gt=0"`
	ReceiverID int64             `json:"receiver_id" validate:"required,gt=0,nefield=SenderID"`
	Amount     decimal.Decimal   `json:"amount"`
	Method     model.EntryMethod `json:"method" validate:"required,oneof=CASH MOBILE_MONEY BANK_TRANSFER"`
	Reference  string            `json:"reference" validate:"required,max=64"`
	Remark     string            `json:"remark" validate:"max=256"`
}

type transferEvent struct {
	TransferID int64           `json:"transfer_id"`
	TransferNo string          `json:"transfer_no"`
	SenderID   int64           `json:"sender_id"`
	ReceiverID int64           `json:"receiver_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	Reference  string          `json:"reference"`
	CreatedAt  time.Time       `json:"created_at"`
}

// SubmitTransfer 账户间划拨
//
// 付款方可用余额不足返回 InsufficientBalance；reference 在任一账户下已使用返回 DuplicateEntry。
// 借贷两条流水与划拨记录在同一事务中提交，不会只落一条。
func (s *LedgerService) SubmitTransfer(ctx context.Context, req *TransferRequest) (*model.Transfer, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	in := ledger.TransferInput{
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Amount:     req.Amount,
		Method:     req.Method,
		Reference:  req.Reference,
		Remark:     req.Remark,
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	for _, id := range []int64{in.SenderID, in.ReceiverID} {
		if _, err := s.getAccount(ctx, id); err != nil {
			return nil, err
		}
	}

	release, err := s.acquire(ctx, lock.AccountKey(in.SenderID), lock.AccountKey(in.ReceiverID))
	if err != nil {
		return nil, err
	}
	defer release()

	pt, err := s.prepareTransfer(ctx, in)
	if err != nil {
		return nil, err
	}

	err = s.commit(ctx, func(tx *gorm.DB) error {
		return s.writeTransfer(ctx, tx, pt.plan)
	})
	if err != nil {
		return nil, err
	}
	pt.publish(s.view)

	s.ctxLog(ctx).Info("划拨成功",
		zap.String("transfer_no", pt.plan.Transfer.TransferNo),
		zap.Int64("sender_id", in.SenderID),
		zap.Int64("receiver_id", in.ReceiverID),
		zap.String("amount", in.Amount.String()),
		zap.String("reference", pt.plan.Transfer.Reference))
	return pt.plan.Transfer, nil
}

// preparedTransfer 已通过校验、尚未提交的划拨，以及提交后要发布的快照
type preparedTransfer struct {
	plan     *ledger.TransferPlan
	sender   accountSnapshot
	receiver accountSnapshot
}

func (p *preparedTransfer) publish(v *balanceView) {
	v.publish(p.sender.apply(p.plan.Debit), p.receiver.apply(p.plan.Credit))
}

// prepareTransfer 调用方必须已持有双方账户锁
func (s *LedgerService) prepareTransfer(ctx context.Context, in ledger.TransferInput) (*preparedTransfer, error) {
	sender, err := s.stateLocked(ctx, in.SenderID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.stateLocked(ctx, in.ReceiverID)
	if err != nil {
		return nil, err
	}
	for _, id := range []int64{in.SenderID, in.ReceiverID} {
		if err := s.ensureReferenceUnused(ctx, id, in.Reference); err != nil {
			return nil, err
		}
	}

	transferID := idgen.NextID()
	plan, err := ledger.PlanTransfer(in, sender.Adjusted(), ledger.TransferIDs{
		TransferID:    transferID,
		TransferNo:    idgen.GenerateNo(idgen.PrefixTransfer, transferID),
		DebitEntryID:  idgen.NextID(),
		CreditEntryID: idgen.NextID(),
	}, s.now())
	if err != nil {
		return nil, err
	}
	return &preparedTransfer{plan: plan, sender: sender, receiver: receiver}, nil
}

// writeTransfer 在事务内写入划拨记录、两条流水和事件
func (s *LedgerService) writeTransfer(ctx context.Context, tx *gorm.DB, plan *ledger.TransferPlan) error {
	if err := s.transferRepo.Create(ctx, tx, plan.Transfer); err != nil {
		return err
	}
	if err := s.entryRepo.CreateBatch(ctx, tx, plan.Entries()); err != nil {
		return err
	}
	t := plan.Transfer
	return s.outboxRepo.Enqueue(ctx, tx, s.eventsTopic, model.EventTransferCommitted,
		strconv.FormatInt(t.SenderAccountID, 10), transferEvent{
			TransferID: t.ID,
			TransferNo: t.TransferNo,
			SenderID:   t.SenderAccountID,
			ReceiverID: t.ReceiverAccountID,
			Amount:     t.Amount,
			Method:     string(t.Method),
			Reference:  t.Reference,
			CreatedAt:  t.CreatedAt,
		})
}
