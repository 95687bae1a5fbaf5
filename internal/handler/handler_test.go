package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"cashledger/internal/config"
	"cashledger/internal/infrastructure/database"
	"cashledger/internal/infrastructure/lock"
	"cashledger/internal/service"
	"cashledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Code    int             `json:"code"`
	Kind    string          `json:"kind"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	cfg := &config.Config{}
	cfg.Ledger.PoolAccountID = 1
	cfg.Ledger.LockTimeoutMs = 1000
	cfg.Kafka.Topic.LedgerEvents = "ledger-events"
	svc := service.NewLedgerService(db, lock.NewLocalLocker(cfg.Ledger.LockTimeout()), cfg, zap.NewNop())
	return SetupRouter(svc, zap.NewNop(), gin.TestMode)
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func seed(t *testing.T, r *gin.Engine) {
	t.Helper()
	for _, a := range []gin.H{
		{"account_id": 1, "name": "pool", "role": "OTHER"},
		{"account_id": 2, "name": "admin", "role": "ADMINISTRATOR"},
		{"account_id": 10, "name": "agent-x", "role": "FIELD_AGENT"},
		{"account_id": 11, "name": "agent-y", "role": "FIELD_AGENT"},
	} {
		w, env := do(t, r, http.MethodPost, "/api/v1/accounts", a)
		require.Equal(t, http.StatusOK, w.Code, env.Message)
	}
	w, env := do(t, r, http.MethodPost, "/api/v1/cash-movements", gin.H{
		"account_id": 10, "direction": "IN", "amount": "500", "method": "CASH", "reference": "DEP-1",
	})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
}

func TestTransferAndBalance(t *testing.T) {
	r := newTestRouter(t)
	seed(t, r)

	w, env := do(t, r, http.MethodPost, "/api/v1/transfers", gin.H{
		"sender_id": 10, "receiver_id": 11, "amount": "200", "method": "MOBILE_MONEY", "reference": "T-1",
	})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	assert.Equal(t, response.CodeSuccess, env.Code)

	w, env = do(t, r, http.MethodGet, "/api/v1/accounts/11/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary service.BalanceSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, "200", summary.GrossBalance.String())
	assert.Equal(t, "200", summary.AdjustedBalance.String())
}

func TestErrorMapping(t *testing.T) {
	r := newTestRouter(t)
	seed(t, r)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   int
		kind   string
	}{
		{"insufficient balance", http.MethodPost, "/api/v1/transfers",
			gin.H{"sender_id": 10, "receiver_id": 11, "amount": "900", "method": "CASH", "reference": "T-X"},
			http.StatusUnprocessableEntity, response.CodeInsufficientBalance, "INSUFFICIENT_BALANCE"},
		{"duplicate reference", http.MethodPost, "/api/v1/cash-movements",
			gin.H{"account_id": 10, "direction": "IN", "amount": "1", "method": "CASH", "reference": "DEP-1"},
			http.StatusConflict, response.CodeDuplicateEntry, "DUPLICATE_ENTRY"},
		{"self transfer", http.MethodPost, "/api/v1/transfers",
			gin.H{"sender_id": 10, "receiver_id": 10, "amount": "1", "method": "CASH", "reference": "T-S"},
			http.StatusBadRequest, response.CodeParamError, "VALIDATION_ERROR"},
		{"unknown account", http.MethodGet, "/api/v1/accounts/404/balance", nil,
			http.StatusNotFound, response.CodeNotFound, "NOT_FOUND"},
		{"unknown invoice", http.MethodPost, "/api/v1/invoices/77/payments", gin.H{"amount": "1"},
			http.StatusNotFound, response.CodeNotFound, "NOT_FOUND"},
		{"malformed body", http.MethodPost, "/api/v1/transfers", "{not json",
			http.StatusBadRequest, response.CodeParamError, ""},
		{"bad path id", http.MethodGet, "/api/v1/accounts/abc/balance", nil,
			http.StatusBadRequest, response.CodeParamError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, env.Message)
			assert.Equal(t, tt.code, env.Code)
			assert.Equal(t, tt.kind, env.Kind)
		})
	}
}

func TestBalanceRequestDecision(t *testing.T) {
	r := newTestRouter(t)
	seed(t, r)

	w, env := do(t, r, http.MethodPost, "/api/v1/balance-requests", gin.H{"account_id": 11, "amount": "50", "reason": "进货"})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var br struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &br))
	path := "/api/v1/balance-requests/" + strconv.FormatInt(br.ID, 10) + "/decision"

	// 资金池没有余额
	w, env = do(t, r, http.MethodPost, path, gin.H{"admin_id": 2, "decision": "APPROVE"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INSUFFICIENT_BALANCE", env.Kind)

	w, env = do(t, r, http.MethodPost, path, gin.H{"admin_id": 10, "decision": "REJECT"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Kind)

	w, env = do(t, r, http.MethodPost, path, gin.H{"admin_id": 2, "decision": "REJECT", "note": "no"})
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	w, env = do(t, r, http.MethodPost, path, gin.H{"admin_id": 2, "decision": "APPROVE"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.CodeInvalidWorkflowTransition, env.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
