package ledger

import (
	"errors"
	"fmt"
)

// ErrorKind 错误类别，调用方（审批 / 转账界面）按类别区分处理
type ErrorKind string

const (
	KindValidation                ErrorKind = "VALIDATION_ERROR"
	KindDuplicateEntry            ErrorKind = "DUPLICATE_ENTRY"
	KindInsufficientBalance       ErrorKind = "INSUFFICIENT_BALANCE"
	KindAdvanceExceeded           ErrorKind = "ADVANCE_EXCEEDED"
	KindOverpaymentRejected       ErrorKind = "OVERPAYMENT_REJECTED"
	KindInvoiceAlreadySettled     ErrorKind = "INVOICE_ALREADY_SETTLED"
	KindInvalidWorkflowTransition ErrorKind = "INVALID_WORKFLOW_TRANSITION"
	KindLockTimeout               ErrorKind = "LOCK_TIMEOUT"
	KindStoreUnavailable          ErrorKind = "STORE_UNAVAILABLE"
	KindNotFound                  ErrorKind = "NOT_FOUND"
)

// Retryable 只有锁超时和存储不可用是瞬时错误
func (k ErrorKind) Retryable() bool {
	return k == KindLockTimeout || k == KindStoreUnavailable
}

// Error 账务领域错误
type Error struct {
	Kind    ErrorKind `json:"code"`
	Message string    `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is 按类别匹配，errors.Is(err, ErrInsufficientBalance) 对任意余额不足错误成立
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError 保留底层原因
func WrapError(kind ErrorKind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

var (
	ErrValidation                = NewError(KindValidation, "参数不合法")
	ErrDuplicateEntry            = NewError(KindDuplicateEntry, "流水引用号重复")
	ErrInsufficientBalance       = NewError(KindInsufficientBalance, "可用余额不足")
	ErrAdvanceExceeded           = NewError(KindAdvanceExceeded, "超出供应商可用预付款")
	ErrOverpaymentRejected       = NewError(KindOverpaymentRejected, "付款金额超过账单未付金额")
	ErrInvoiceAlreadySettled     = NewError(KindInvoiceAlreadySettled, "账单已结清")
	ErrInvalidWorkflowTransition = NewError(KindInvalidWorkflowTransition, "非法的状态流转")
	ErrLockTimeout               = NewError(KindLockTimeout, "获取账户锁超时")
	ErrStoreUnavailable          = NewError(KindStoreUnavailable, "存储提交失败")
	ErrNotFound                  = NewError(KindNotFound, "记录不存在")
)

// KindOf 取出错误类别，非领域错误返回空
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
