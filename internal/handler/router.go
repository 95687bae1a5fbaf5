package handler

import (
	"cashledger/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter 配置路由
func SetupRouter(ledgerService *service.LedgerService, log *zap.Logger, mode string) *gin.Engine {
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	r := gin.New()

	r.Use(RecoveryMiddleware(log))
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware())

	h := NewHandler(ledgerService)

	api := r.Group("/api/v1")
	{
		accounts := api.Group("/accounts")
		{
			accounts.POST("", h.CreateAccount)
			accounts.GET("/:id/balance", h.GetBalance)
			accounts.POST("/:id/reconcile", h.Reconcile)
			accounts.GET("/:id/balance-requests", h.ListBalanceRequests)
		}

		api.POST("/cash-movements", h.RecordCashMovement)
		api.POST("/transfers", h.SubmitTransfer)
		api.POST("/invoices/:id/payments", h.PayInvoice)
		api.GET("/suppliers/:id/usable-advance", h.GetUsableAdvance)

		advances := api.Group("/advances")
		{
			advances.POST("", h.IssueAdvance)
			advances.GET("/overdue", h.ListOverdueAdvances)
			advances.POST("/:id/arrival", h.ConfirmAdvanceArrival)
		}

		api.POST("/purchases", h.SubmitPurchase)

		requests := api.Group("/balance-requests")
		{
			requests.POST("", h.SubmitBalanceRequest)
			requests.POST("/:id/decision", h.DecideBalanceRequest)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
