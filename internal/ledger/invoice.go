package ledger

import (
	"time"

	"cashledger/internal/model"

	"github.com/shopspring/decimal"
)

// PendingInvoiceTotal 账户下所有未结清账单的未付金额之和
func PendingInvoiceTotal(accountID int64, invoices []*model.Invoice) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range invoices {
		if inv.AccountID != accountID || inv.Status == model.InvoiceStatusSettled {
			continue
		}
		total = total.Add(inv.RemainingAmount())
	}
	return total
}

// AdjustedBalance 可用余额 = 毛余额 - 未结账单。导入的历史数据可能使其为负，原样返回。
func AdjustedBalance(gross, pendingInvoices decimal.Decimal) decimal.Decimal {
	return gross.Sub(pendingInvoices)
}

// NewInvoice 为一笔采购生成账单
func NewInvoice(id int64, invoiceNo string, accountID, sourceRecordID int64, total decimal.Decimal) (*model.Invoice, error) {
	if err := CheckAmount("账单金额", total); err != nil {
		return nil, err
	}
	return &model.Invoice{
		ID:             id,
		InvoiceNo:      invoiceNo,
		AccountID:      accountID,
		SourceRecordID: sourceRecordID,
		TotalAmount:    total,
		PaidAmount:     decimal.Zero,
		Status:         model.InvoiceStatusPending,
	}, nil
}

// ApplyPayment 对账单付款，全有或全无：
// 失败时 inv 不被修改。成功返回付款后的新副本。
func ApplyPayment(inv *model.Invoice, amount decimal.Decimal, now time.Time) (*model.Invoice, error) {
	if inv.Status == model.InvoiceStatusSettled {
		return nil, NewError(KindInvoiceAlreadySettled, "账单 %s 已结清", inv.InvoiceNo)
	}
	if err := CheckAmount("付款金额", amount); err != nil {
		return nil, err
	}
	remaining := inv.RemainingAmount()
	if amount.GreaterThan(remaining) {
		return nil, NewError(KindOverpaymentRejected, "付款 %s 超过账单 %s 未付金额 %s",
			amount.String(), inv.InvoiceNo, remaining.String())
	}

	updated := *inv
	updated.PaidAmount = inv.PaidAmount.Add(amount)
	if updated.RemainingAmount().IsZero() {
		updated.Status = model.InvoiceStatusSettled
		settledAt := now
		updated.SettledAt = &settledAt
	} else {
		updated.Status = model.InvoiceStatusPartiallyPaid
	}
	return &updated, nil
}

// CheckInvoice 校验账单不变式 0 <= paid <= total，结清当且仅当未付为0
func CheckInvoice(inv *model.Invoice) error {
	if inv.PaidAmount.IsNegative() || inv.PaidAmount.GreaterThan(inv.TotalAmount) {
		return NewError(KindValidation, "账单 %s 已付金额越界", inv.InvoiceNo)
	}
	if (inv.Status == model.InvoiceStatusSettled) != inv.RemainingAmount().IsZero() {
		return NewError(KindValidation, "账单 %s 状态与未付金额不一致", inv.InvoiceNo)
	}
	return nil
}
