package ledger

import (
	"strings"
	"time"

	"cashledger/internal/model"

	"github.com/shopspring/decimal"
)

// TransferInput 划拨请求
type TransferInput struct {
	SenderID   int64
	ReceiverID int64
	Amount     decimal.Decimal
	Method     model.EntryMethod
	Reference  string
	Remark     string
}

func (in TransferInput) Validate() error {
	switch {
	case in.SenderID <= 0 || in.ReceiverID <= 0:
		return NewError(KindValidation, "付款方和收款方账户必须有效")
	case in.SenderID == in.ReceiverID:
		return NewError(KindValidation, "付款方和收款方不能相同")
	case !in.Method.IsValid():
		return NewError(KindValidation, "未知的资金渠道: %q", in.Method)
	case strings.TrimSpace(in.Reference) == "":
		return NewError(KindValidation, "reference 不能为空")
	}
	return CheckAmount("划拨金额", in.Amount)
}

// TransferIDs 划拨落库需要的三个 ID
type TransferIDs struct {
	TransferID    int64
	TransferNo    string
	DebitEntryID  int64
	CreditEntryID int64
}

// TransferPlan 一次划拨的完整提交内容：必须在同一批次里一起落库
type TransferPlan struct {
	Transfer *model.Transfer
	Debit    *model.LedgerEntry
	Credit   *model.LedgerEntry
}

// Entries 两条腿，付款方在前
func (p *TransferPlan) Entries() []*model.LedgerEntry {
	return []*model.LedgerEntry{p.Debit, p.Credit}
}

// PlanTransfer 校验余额并生成两条金额相反的流水。
// senderAdjusted 是付款方当前可用余额（毛余额 - 未结账单）。
func PlanTransfer(in TransferInput, senderAdjusted decimal.Decimal, ids TransferIDs, now time.Time) (*TransferPlan, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if senderAdjusted.LessThan(in.Amount) {
		return nil, NewError(KindInsufficientBalance, "账户 %d 可用余额 %s，不足以划出 %s",
			in.SenderID, senderAdjusted.String(), in.Amount.String())
	}

	reference := strings.TrimSpace(in.Reference)
	transfer := &model.Transfer{
		ID:                ids.TransferID,
		TransferNo:        ids.TransferNo,
		SenderAccountID:   in.SenderID,
		ReceiverAccountID: in.ReceiverID,
		Amount:            in.Amount,
		Method:            in.Method,
		Reference:         reference,
		CreatedAt:         now,
	}

	debit, err := Normalize(TransferLeg{
		EntryID:    ids.DebitEntryID,
		TransferID: ids.TransferID,
		AccountID:  in.SenderID,
		Side:       LegDebit,
		Amount:     in.Amount,
		Method:     in.Method,
		Reference:  reference,
		Remark:     in.Remark,
		OccurredAt: now,
	})
	if err != nil {
		return nil, err
	}
	credit, err := Normalize(TransferLeg{
		EntryID:    ids.CreditEntryID,
		TransferID: ids.TransferID,
		AccountID:  in.ReceiverID,
		Side:       LegCredit,
		Amount:     in.Amount,
		Method:     in.Method,
		Reference:  reference,
		Remark:     in.Remark,
		OccurredAt: now,
	})
	if err != nil {
		return nil, err
	}

	return &TransferPlan{Transfer: transfer, Debit: debit, Credit: credit}, nil
}
