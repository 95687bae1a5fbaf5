package service

import (
	"context"
	"testing"
	"time"

	"cashledger/internal/config"
	"cashledger/internal/infrastructure/database"
	"cashledger/internal/infrastructure/lock"
	"cashledger/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	poolAccount  int64 = 1
	adminAccount int64 = 2
	accountX     int64 = 10
	accountY     int64 = 11
	accountZ     int64 = 12
	supplierS    int64 = 700
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Ledger.PoolAccountID = poolAccount
	cfg.Ledger.LockTimeoutMs = 2000
	cfg.Ledger.LockDriver = "local"
	cfg.Kafka.Topic.LedgerEvents = "ledger-events"
	cfg.Kafka.Topic.Alerts = "ledger-alerts"
	return cfg
}

type fixture struct {
	svc    *LedgerService
	db     *gorm.DB
	locker *lock.LocalLocker
	ctx    context.Context
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := testConfig()
	locker := lock.NewLocalLocker(cfg.Ledger.LockTimeout())
	f := &fixture{
		svc:    NewLedgerService(db, locker, cfg, zap.NewNop(), opts...),
		db:     db,
		locker: locker,
		ctx:    context.Background(),
	}
	f.account(t, poolAccount, model.RoleOther)
	f.account(t, adminAccount, model.RoleAdministrator)
	f.account(t, accountX, model.RoleFieldAgent)
	f.account(t, accountY, model.RoleFieldAgent)
	f.account(t, accountZ, model.RoleFieldAgent)
	return f
}

func (f *fixture) account(t *testing.T, id int64, role model.AccountRole) {
	t.Helper()
	_, err := f.svc.CreateAccount(f.ctx, &CreateAccountRequest{AccountID: id, Name: "acct", Role: role})
	require.NoError(t, err)
}

func (f *fixture) deposit(t *testing.T, accountID int64, amount, reference string) {
	t.Helper()
	_, err := f.svc.RecordCashMovement(f.ctx, &CashMovementRequest{
		AccountID: accountID,
		Direction: "IN",
		Amount:    d(amount),
		Method:    model.MethodCash,
		Reference: reference,
	})
	require.NoError(t, err)
}

func (f *fixture) transfer(from, to int64, amount, reference string) (*model.Transfer, error) {
	return f.svc.SubmitTransfer(f.ctx, &TransferRequest{
		SenderID:   from,
		ReceiverID: to,
		Amount:     d(amount),
		Method:     model.MethodMobileMoney,
		Reference:  reference,
	})
}

func (f *fixture) balance(t *testing.T, accountID int64) *BalanceSummary {
	t.Helper()
	s, err := f.svc.GetBalanceSummary(f.ctx, accountID)
	require.NoError(t, err)
	return s
}

// storeGross 直接从存储全量重算，不经过缓存视图
func (f *fixture) storeGross(t *testing.T, accountID int64) decimal.Decimal {
	t.Helper()
	g, err := f.svc.GrossBalanceAsOf(f.ctx, accountID, time.Time{})
	require.NoError(t, err)
	return g
}

func (f *fixture) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(m).Count(&n).Error)
	return n
}

// arrivedAdvance 发放并确认一笔到账的预付款
func (f *fixture) arrivedAdvance(t *testing.T, accountID, supplierID int64, amount, reference string) *model.SupplierAdvance {
	t.Helper()
	a, err := f.svc.IssueAdvance(f.ctx, &IssueAdvanceRequest{
		AccountID:  accountID,
		SupplierID: supplierID,
		Amount:     d(amount),
		Method:     model.MethodCash,
		Reference:  reference,
	})
	require.NoError(t, err)
	a, err = f.svc.ConfirmAdvanceArrival(f.ctx, a.ID)
	require.NoError(t, err)
	return a
}
