package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := NewError(KindInsufficientBalance, "账户 %d 余额不足", 7)

	assert.True(t, errors.Is(err, ErrInsufficientBalance))
	assert.False(t, errors.Is(err, ErrAdvanceExceeded))
	assert.Equal(t, "账户 7 余额不足", err.Error())

	wrapped := fmt.Errorf("划拨失败: %w", err)
	assert.True(t, errors.Is(wrapped, ErrInsufficientBalance))
	assert.Equal(t, KindInsufficientBalance, KindOf(wrapped))
}

func TestWrapErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(KindStoreUnavailable, cause, "提交失败")

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKindOfNonDomainError(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("boom")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestRetryable(t *testing.T) {
	assert.True(t, KindLockTimeout.Retryable())
	assert.True(t, KindStoreUnavailable.Retryable())
	assert.False(t, KindInsufficientBalance.Retryable())
	assert.False(t, KindDuplicateEntry.Retryable())
}
