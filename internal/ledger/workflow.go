package ledger

import (
	"strings"
	"time"

	"cashledger/internal/model"

	"github.com/shopspring/decimal"
)

// Decision 管理员对余额申请的决定
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// NewBalanceRequest 账户持有人发起申请，初始状态 PENDING
func NewBalanceRequest(id int64, requestNo string, accountID int64, amount decimal.Decimal, reason string) (*model.BalanceRequest, error) {
	if accountID <= 0 {
		return nil, NewError(KindValidation, "account_id 必须为正数")
	}
	if err := CheckAmount("申请金额", amount); err != nil {
		return nil, err
	}
	if len(reason) > 256 {
		return nil, NewError(KindValidation, "申请理由不能超过256个字符")
	}
	return &model.BalanceRequest{
		ID:              id,
		RequestNo:       requestNo,
		AccountID:       accountID,
		AmountRequested: amount,
		Reason:          strings.TrimSpace(reason),
		Status:          model.BalanceRequestPending,
	}, nil
}

// CheckDecider 只有管理员可以审批
func CheckDecider(admin *model.Account) error {
	if admin == nil || admin.Role != model.RoleAdministrator {
		return NewError(KindValidation, "只有管理员可以审批余额申请")
	}
	return nil
}

func transition(req *model.BalanceRequest, target model.BalanceRequestStatus) error {
	if !req.Status.CanTransitionTo(target) {
		return NewError(KindInvalidWorkflowTransition, "余额申请 %s 当前状态 %s 不能变为 %s",
			req.RequestNo, req.Status, target)
	}
	return nil
}

// Approve 返回审批后的副本；划拨失败时调用方不得持久化该副本
func Approve(req *model.BalanceRequest, adminID, transferID int64, now time.Time) (*model.BalanceRequest, error) {
	if err := transition(req, model.BalanceRequestApproved); err != nil {
		return nil, err
	}
	updated := *req
	updated.Status = model.BalanceRequestApproved
	updated.DecidedBy = &adminID
	decidedAt := now
	updated.DecidedAt = &decidedAt
	updated.TransferID = &transferID
	return &updated, nil
}

// Reject 驳回不触碰账本
func Reject(req *model.BalanceRequest, adminID int64, note string, now time.Time) (*model.BalanceRequest, error) {
	if err := transition(req, model.BalanceRequestRejected); err != nil {
		return nil, err
	}
	updated := *req
	updated.Status = model.BalanceRequestRejected
	updated.DecidedBy = &adminID
	decidedAt := now
	updated.DecidedAt = &decidedAt
	updated.DecisionNote = strings.TrimSpace(note)
	return &updated, nil
}

// CheckTransition 审批前的状态检查，不产生副本
func CheckTransition(req *model.BalanceRequest, d Decision) error {
	switch d {
	case DecisionApprove:
		return transition(req, model.BalanceRequestApproved)
	case DecisionReject:
		return transition(req, model.BalanceRequestRejected)
	default:
		return NewError(KindValidation, "未知的审批决定: %q", d)
	}
}
