package handler

import (
	"strconv"

	"cashledger/internal/model"
	"cashledger/internal/service"
	"cashledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Handler 统一处理器
type Handler struct {
	ledgerService *service.LedgerService
}

func NewHandler(ledgerService *service.LedgerService) *Handler {
	return &Handler{ledgerService: ledgerService}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, name+" 参数错误")
		return 0, false
	}
	return id, true
}

// ============================================================
// 账户
// ============================================================

// CreateAccount 开户
// POST /api/v1/accounts
func (h *Handler) CreateAccount(c *gin.Context) {
	var req service.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	account, err := h.ledgerService.CreateAccount(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, account)
}

// GetBalance 查询账户余额构成
// GET /api/v1/accounts/:id/balance
func (h *Handler) GetBalance(c *gin.Context) {
	accountID, ok := pathID(c, "id")
	if !ok {
		return
	}
	summary, err := h.ledgerService.GetBalanceSummary(c.Request.Context(), accountID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, summary)
}

// Reconcile 从全量流水重建账户视图
// POST /api/v1/accounts/:id/reconcile
func (h *Handler) Reconcile(c *gin.Context) {
	accountID, ok := pathID(c, "id")
	if !ok {
		return
	}
	report, err := h.ledgerService.Reconcile(c.Request.Context(), accountID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{
		"report":     report,
		"consistent": report.Consistent(),
	})
}

// ListBalanceRequests 账户的余额申请
// GET /api/v1/accounts/:id/balance-requests?status=PENDING
func (h *Handler) ListBalanceRequests(c *gin.Context) {
	accountID, ok := pathID(c, "id")
	if !ok {
		return
	}
	status := model.BalanceRequestStatus(c.Query("status"))
	reqs, err := h.ledgerService.ListBalanceRequests(c.Request.Context(), accountID, status)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"list": reqs})
}

// ============================================================
// 收银与划拨
// ============================================================

// RecordCashMovement 登记收银流水
// POST /api/v1/cash-movements
func (h *Handler) RecordCashMovement(c *gin.Context) {
	var req service.CashMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	entry, err := h.ledgerService.RecordCashMovement(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, entry)
}

// SubmitTransfer 账户间划拨
// POST /api/v1/transfers
func (h *Handler) SubmitTransfer(c *gin.Context) {
	var req service.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	transfer, err := h.ledgerService.SubmitTransfer(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, transfer)
}

// ============================================================
// 账单
// ============================================================

type invoicePaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// PayInvoice 账单付款
// POST /api/v1/invoices/:id/payments
func (h *Handler) PayInvoice(c *gin.Context) {
	invoiceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req invoicePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	invoice, err := h.ledgerService.SubmitInvoicePayment(c.Request.Context(), invoiceID, req.Amount)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, invoice)
}

// ============================================================
// 预付款与采购
// ============================================================

// GetUsableAdvance 供应商可用预付款
// GET /api/v1/suppliers/:id/usable-advance
func (h *Handler) GetUsableAdvance(c *gin.Context) {
	supplierID, ok := pathID(c, "id")
	if !ok {
		return
	}
	usable, err := h.ledgerService.GetUsableAdvance(c.Request.Context(), supplierID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{
		"supplier_id":   supplierID,
		"usable_amount": usable,
	})
}

// IssueAdvance 发放预付款
// POST /api/v1/advances
func (h *Handler) IssueAdvance(c *gin.Context) {
	var req service.IssueAdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	advance, err := h.ledgerService.IssueAdvance(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, advance)
}

// ConfirmAdvanceArrival 预付款到账确认
// POST /api/v1/advances/:id/arrival
func (h *Handler) ConfirmAdvanceArrival(c *gin.Context) {
	advanceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	advance, err := h.ledgerService.ConfirmAdvanceArrival(c.Request.Context(), advanceID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, advance)
}

// ListOverdueAdvances 逾期预付款
// GET /api/v1/advances/overdue?limit=100
func (h *Handler) ListOverdueAdvances(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	advances, err := h.ledgerService.ListOverdueAdvances(c.Request.Context(), limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"list": advances, "total": len(advances)})
}

// SubmitPurchase 登记采购
// POST /api/v1/purchases
func (h *Handler) SubmitPurchase(c *gin.Context) {
	var req service.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	result, err := h.ledgerService.SubmitPurchase(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}

// ============================================================
// 余额申请
// ============================================================

// SubmitBalanceRequest 提交余额申请
// POST /api/v1/balance-requests
func (h *Handler) SubmitBalanceRequest(c *gin.Context) {
	var req service.SubmitBalanceRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	br, err := h.ledgerService.SubmitBalanceRequest(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, br)
}

// DecideBalanceRequest 审批余额申请
// POST /api/v1/balance-requests/:id/decision
func (h *Handler) DecideBalanceRequest(c *gin.Context) {
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.DecideBalanceRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	req.RequestID = requestID
	br, err := h.ledgerService.DecideBalanceRequest(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, br)
}
