package service

import (
	"context"
	"errors"
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

type SubmitBalanceRequestRequest struct {
	AccountID int64           `json:"account_id" validate:"required,gt=0"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason" validate:"max=256"`
}

// SubmitBalanceRequest 账户持有人申请从资金池补充余额
//
// 同一账户之前的申请被驳回后可以再提交新的申请，被驳回的那一笔保持终态。
func (s *LedgerService) SubmitBalanceRequest(ctx context.Context, req *SubmitBalanceRequestRequest) (*model.BalanceRequest, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	if _, err := s.getAccount(ctx, req.AccountID); err != nil {
		return nil, err
	}
	id := idgen.NextID()
	br, err := ledger.NewBalanceRequest(id, idgen.GenerateNo(idgen.PrefixRequest, id), req.AccountID, req.Amount, req.Reason)
	if err != nil {
		return nil, err
	}

	err = s.commit(ctx, func(tx *gorm.DB) error {
		if err := s.requestRepo.Create(ctx, tx, br); err != nil {
			return err
		}
		return s.outboxRepo.Enqueue(ctx, tx, s.eventsTopic, model.EventBalanceRequestMade,
			strconv.FormatInt(br.AccountID, 10), br)
	})
	if err != nil {
		return nil, err
	}
	s.ctxLog(ctx).Info("余额申请已提交",
		zap.String("request_no", br.RequestNo),
		zap.Int64("account_id", br.AccountID),
		zap.String("amount", br.AmountRequested.String()))
	return br, nil
}

type DecideBalanceRequestRequest struct {
	RequestID int64             `json:"-" validate:"required,gt=0"`
	AdminID   int64             `json:"admin_id" validate:"required,gt=0"`
	Decision  ledger.Decision   `json:"decision" validate:"required,oneof=APPROVE REJECT"`
	Method    model.EntryMethod `json:"method" validate:"omitempty,oneof=CASH MOBILE_MONEY BANK_TRANSFER"`
	Note      string            `json:"note" validate:"max=256"`
}

func (s *LedgerService) getBalanceRequest(ctx context.Context, id int64) (*model.BalanceRequest, error) {
	br, err := s.requestRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repository.ErrBalanceRequestNotFound) {
			return nil, ledger.NewError(ledger.KindNotFound, "余额申请 %d 不存在", id)
		}
		return nil, storeError(err, "查询余额申请失败")
	}
	return br, nil
}

// BalanceRequestReference 审批划拨使用的引用号，重复审批会被流水唯一约束拦下
func BalanceRequestReference(br *model.BalanceRequest) string {
	return "BR-" + br.RequestNo
}

// DecideBalanceRequest 管理员审批余额申请
//
// 批准时从资金池账户向申请人划拨，划拨与申请状态在同一事务提交；
// 划拨被拒（如资金池余额不足）时申请保持 PENDING。驳回不触碰账本。
func (s *LedgerService) DecideBalanceRequest(ctx context.Context, req *DecideBalanceRequestRequest) (*model.BalanceRequest, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	admin, err := s.getAccount(ctx, req.AdminID)
	if err != nil {
		return nil, err
	}
	if err := ledger.CheckDecider(admin); err != nil {
		return nil, err
	}
	br, err := s.getBalanceRequest(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	if err := ledger.CheckTransition(br, req.Decision); err != nil {
		return nil, err
	}

	keys := []string{lock.RequestKey(br.ID)}
	if req.Decision == ledger.DecisionApprove {
		keys = append(keys, lock.AccountKey(s.poolAccountID), lock.AccountKey(br.AccountID))
	}
	release, err := s.acquire(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer release()

	// 锁内重读，并发的另一次审批可能已经完成
	br, err = s.getBalanceRequest(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	if err := ledger.CheckTransition(br, req.Decision); err != nil {
		return nil, err
	}

	if req.Decision == ledger.DecisionReject {
		return s.rejectLocked(ctx, br, req)
	}
	return s.approveLocked(ctx, br, req)
}

func (s *LedgerService) rejectLocked(ctx context.Context, br *model.BalanceRequest, req *DecideBalanceRequestRequest) (*model.BalanceRequest, error) {
	updated, err := ledger.Reject(br, req.AdminID, req.Note, s.now())
	if err != nil {
		return nil, err
	}
	err = s.commit(ctx, func(tx *gorm.DB) error {
		if err := s.saveDecision(ctx, tx, updated); err != nil {
			return err
		}
		return s.outboxRepo.Enqueue(ctx, tx, s.eventsTopic, model.EventBalanceRequestDone,
			strconv.FormatInt(updated.AccountID, 10), updated)
	})
	if err != nil {
		return nil, err
	}
	s.ctxLog(ctx).Info("余额申请已驳回",
		zap.String("request_no", updated.RequestNo),
		zap.Int64("admin_id", req.AdminID))
	return updated, nil
}

func (s *LedgerService) approveLocked(ctx context.Context, br *model.BalanceRequest, req *DecideBalanceRequestRequest) (*model.BalanceRequest, error) {
	if _, err := s.getAccount(ctx, s.poolAccountID); err != nil {
		return nil, err
	}
	method := req.Method
	if method == "" {
		method = model.MethodCash
	}
	pt, err := s.prepareTransfer(ctx, ledger.TransferInput{
		SenderID:   s.poolAccountID,
		ReceiverID: br.AccountID,
		Amount:     br.AmountRequested,
		Method:     method,
		Reference:  BalanceRequestReference(br),
		Remark:     "余额申请 " + br.RequestNo,
	})
	if err != nil {
		s.ctxLog(ctx).Warn("余额申请划拨被拒，申请保持待审批",
			zap.String("request_no", br.RequestNo),
			zap.String("kind", string(ledger.KindOf(err))),
			zap.Error(err))
		return nil, err
	}
	updated, err := ledger.Approve(br, req.AdminID, pt.plan.Transfer.ID, s.now())
	if err != nil {
		return nil, err
	}
	updated.DecisionNote = req.Note

	err = s.commit(ctx, func(tx *gorm.DB) error {
		if err := s.writeTransfer(ctx, tx, pt.plan); err != nil {
			return err
		}
		if err := s.saveDecision(ctx, tx, updated); err != nil {
			return err
		}
		return s.outboxRepo.Enqueue(ctx, tx, s.eventsTopic, model.EventBalanceRequestDone,
			strconv.FormatInt(updated.AccountID, 10), updated)
	})
	if err != nil {
		return nil, err
	}
	pt.publish(s.view)

	s.ctxLog(ctx).Info("余额申请已批准",
		zap.String("request_no", updated.RequestNo),
		zap.String("transfer_no", pt.plan.Transfer.TransferNo),
		zap.Int64("admin_id", req.AdminID))
	return updated, nil
}

func (s *LedgerService) saveDecision(ctx context.Context, tx *gorm.DB, updated *model.BalanceRequest) error {
	err := s.requestRepo.SaveDecision(ctx, tx, updated, model.BalanceRequestPending)
	if errors.Is(err, repository.ErrStatusChanged) {
		return ledger.WrapError(ledger.KindInvalidWorkflowTransition, err, "余额申请 %s 已被处理", updated.RequestNo)
	}
	return err
}

// ListBalanceRequests 账户的申请记录，status 为空表示全部
func (s *LedgerService) ListBalanceRequests(ctx context.Context, accountID int64, status model.BalanceRequestStatus) ([]*model.BalanceRequest, error) {
	reqs, err := s.requestRepo.ListByAccount(ctx, accountID, status)
	if err != nil {
		return nil, storeError(err, "查询余额申请失败")
	}
	return reqs, nil
}
