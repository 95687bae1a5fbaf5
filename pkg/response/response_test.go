package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cashledger/internal/ledger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, err error) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	FromError(c, err)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestFromError_EveryKindMapped(t *testing.T) {
	for _, kind := range []ledger.ErrorKind{
		ledger.KindValidation, ledger.KindDuplicateEntry, ledger.KindInsufficientBalance,
		ledger.KindAdvanceExceeded, ledger.KindOverpaymentRejected, ledger.KindInvoiceAlreadySettled,
		ledger.KindInvalidWorkflowTransition, ledger.KindLockTimeout, ledger.KindStoreUnavailable,
		ledger.KindNotFound,
	} {
		_, ok := kindMappings[kind]
		assert.True(t, ok, "kind %s has no mapping", kind)
	}
}

func TestFromError(t *testing.T) {
	w, resp := render(t, ledger.NewError(ledger.KindOverpaymentRejected, "付款超过账单余额"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, CodeOverpaymentRejected, resp.Code)
	assert.Equal(t, "OVERPAYMENT_REJECTED", resp.Kind)
	assert.Equal(t, "付款超过账单余额", resp.Message)
	assert.Empty(t, w.Header().Get("Retry-After"))

	wrapped := ledger.WrapError(ledger.KindLockTimeout, errors.New("deadline"), "获取账户锁超时")
	w, resp = render(t, wrapped)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, CodeLockTimeout, resp.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, "获取账户锁超时", resp.Message, "cause is not leaked to clients")

	w, resp = render(t, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, CodeServerError, resp.Code)
	assert.Empty(t, resp.Kind)
}
