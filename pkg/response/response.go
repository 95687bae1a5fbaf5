package response

import (
	"errors"
	"net/http"

	"cashledger/internal/ledger"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess     = 0
	CodeParamError  = 400
	CodeNotFound    = 404
	CodeServerError = 500
)

// 业务错误码，每种账务错误一个
const (
	CodeDuplicateEntry            = 1001
	CodeInsufficientBalance       = 1002
	CodeAdvanceExceeded           = 1003
	CodeOverpaymentRejected       = 1004
	CodeInvoiceAlreadySettled     = 1005
	CodeInvalidWorkflowTransition = 1006
	CodeLockTimeout               = 1007
	CodeStoreUnavailable          = 1008
)

type errorMapping struct {
	code   int
	status int
}

var kindMappings = map[ledger.ErrorKind]errorMapping{
	ledger.KindValidation:                {CodeParamError, http.StatusBadRequest},
	ledger.KindNotFound:                  {CodeNotFound, http.StatusNotFound},
	ledger.KindDuplicateEntry:            {CodeDuplicateEntry, http.StatusConflict},
	ledger.KindInsufficientBalance:       {CodeInsufficientBalance, http.StatusUnprocessableEntity},
	ledger.KindAdvanceExceeded:           {CodeAdvanceExceeded, http.StatusUnprocessableEntity},
	ledger.KindOverpaymentRejected:       {CodeOverpaymentRejected, http.StatusUnprocessableEntity},
	ledger.KindInvoiceAlreadySettled:     {CodeInvoiceAlreadySettled, http.StatusConflict},
	ledger.KindInvalidWorkflowTransition: {CodeInvalidWorkflowTransition, http.StatusConflict},
	ledger.KindLockTimeout:               {CodeLockTimeout, http.StatusServiceUnavailable},
	ledger.KindStoreUnavailable:          {CodeStoreUnavailable, http.StatusServiceUnavailable},
}

type Response struct {
	Code    int         `json:"code"`
	Kind    string      `json:"kind,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, status, code int, message string) {
	c.JSON(status, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeParamError, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, CodeServerError, message)
}

// FromError 账务错误按类别映射错误码和 HTTP 状态，其他错误一律 500
func FromError(c *gin.Context, err error) {
	var le *ledger.Error
	if !errors.As(err, &le) {
		ServerError(c, err.Error())
		return
	}
	m, ok := kindMappings[le.Kind]
	if !ok {
		ServerError(c, le.Error())
		return
	}
	if le.Kind.Retryable() {
		c.Header("Retry-After", "1")
	}
	c.JSON(m.status, Response{
		Code:    m.code,
		Kind:    string(le.Kind),
		Message: le.Message,
	})
}
