package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cashledger/internal/config"
	"cashledger/internal/infrastructure/lock"
	"cashledger/internal/ledger"
	"cashledger/internal/model"
	"cashledger/internal/repository"
	"cashledger/pkg/idgen"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LedgerService 余额核算与预付款台账的唯一入口
//
// 外部存储是原始记录的权威来源；本服务持有各账户的派生视图（毛余额、未结账单），
// 所有修改先在账户锁内校验，再以单个事务提交，提交成功后才更新视图。
type LedgerService struct {
	db       *gorm.DB
	locker   lock.Locker
	log      *zap.Logger
	validate *validator.Validate
	view     *balanceView
	now      func() time.Time

	poolAccountID int64
	eventsTopic   string

	accountRepo  *repository.AccountRepository
	entryRepo    *repository.EntryRepository
	transferRepo *repository.TransferRepository
	invoiceRepo  *repository.InvoiceRepository
	advanceRepo  *repository.AdvanceRepository
	purchaseRepo *repository.PurchaseRepository
	requestRepo  *repository.BalanceRequestRepository
	outboxRepo   *repository.OutboxRepository
}

type Option func(*LedgerService)

// WithClock 测试中固定时间
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(db *gorm.DB, locker lock.Locker, cfg *config.Config, log *zap.Logger, opts ...Option) *LedgerService {
	s := &LedgerService{
		db:            db,
		locker:        locker,
		log:           log.Named("ledger"),
		validate:      validator.New(),
		view:          newBalanceView(),
		now:           func() time.Time { return time.Now().UTC() },
		poolAccountID: cfg.Ledger.PoolAccountID,
		eventsTopic:   cfg.Kafka.Topic.LedgerEvents,
		accountRepo:   repository.NewAccountRepository(db),
		entryRepo:     repository.NewEntryRepository(db),
		transferRepo:  repository.NewTransferRepository(db),
		invoiceRepo:   repository.NewInvoiceRepository(db),
		advanceRepo:   repository.NewAdvanceRepository(db),
		purchaseRepo:  repository.NewPurchaseRepository(db),
		requestRepo:   repository.NewBalanceRequestRepository(db),
		outboxRepo:    repository.NewOutboxRepository(db),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ============================================================
// 账户
// ============================================================

type CreateAccountRequest struct {
	AccountID int64             `json:"account_id" validate:"required,gt=0"`
	Name      string            `json:"name" validate:"max=128"`
	Role      model.AccountRole `json:"role" validate:"required,oneof=ADMINISTRATOR FIELD_AGENT OTHER"`
}

func (s *LedgerService) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*model.Account, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	account := &model.Account{ID: req.AccountID, Name: req.Name, Role: req.Role}
	if err := s.accountRepo.Create(ctx, nil, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ledger.NewError(ledger.KindDuplicateEntry, "账户 %d 已存在", req.AccountID)
		}
		return nil, storeError(err, "创建账户失败")
	}
	return account, nil
}

func (s *LedgerService) getAccount(ctx context.Context, accountID int64) (*model.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, nil, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ledger.NewError(ledger.KindNotFound, "账户 %d 不存在", accountID)
		}
		return nil, storeError(err, "查询账户失败")
	}
	return account, nil
}

// ============================================================
// 余额查询
// ============================================================

// BalanceSummary 账户余额构成
type BalanceSummary struct {
	AccountID       int64           `json:"account_id"`
	GrossBalance    decimal.Decimal `json:"gross_balance"`
	PendingInvoices decimal.Decimal `json:"pending_invoices"`
	AdjustedBalance decimal.Decimal `json:"adjusted_balance"`
	EntryCount      int             `json:"entry_count"`
}

func summaryOf(snap accountSnapshot) *BalanceSummary {
	return &BalanceSummary{
		AccountID:       snap.AccountID,
		GrossBalance:    snap.Gross,
		PendingInvoices: snap.Pending,
		AdjustedBalance: snap.Adjusted(),
		EntryCount:      snap.EntryCount,
	}
}

// GetAdjustedBalance 可用余额 = 毛余额 - 未结账单，读最新已提交快照，不阻塞写入
func (s *LedgerService) GetAdjustedBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	summary, err := s.GetBalanceSummary(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return summary.AdjustedBalance, nil
}

func (s *LedgerService) GetBalanceSummary(ctx context.Context, accountID int64) (*BalanceSummary, error) {
	if snap, ok := s.view.get(accountID); ok {
		return summaryOf(snap), nil
	}
	if _, err := s.getAccount(ctx, accountID); err != nil {
		return nil, err
	}
	snap, err := s.loadSnapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return summaryOf(s.view.publishIfAbsent(snap)), nil
}

// Balances 一次读取多个账户，同一把读锁下取出，不会看到只提交了一条腿的划拨
func (s *LedgerService) Balances(ctx context.Context, accountIDs ...int64) (map[int64]*BalanceSummary, error) {
	for _, id := range accountIDs {
		if _, ok := s.view.get(id); ok {
			continue
		}
		if _, err := s.GetBalanceSummary(ctx, id); err != nil {
			return nil, err
		}
	}
	snaps := s.view.getMany(accountIDs)
	result := make(map[int64]*BalanceSummary, len(snaps))
	for id, snap := range snaps {
		result[id] = summaryOf(snap)
	}
	return result, nil
}

// GrossBalanceAsOf 截至某时刻的毛余额，走全量折叠
func (s *LedgerService) GrossBalanceAsOf(ctx context.Context, accountID int64, asOf time.Time) (decimal.Decimal, error) {
	if _, err := s.getAccount(ctx, accountID); err != nil {
		return decimal.Zero, err
	}
	entries, err := s.entryRepo.ListByAccount(ctx, nil, accountID)
	if err != nil {
		return decimal.Zero, storeError(err, "查询流水失败")
	}
	return ledger.GrossBalance(entries, accountID, asOf), nil
}

// loadSnapshot 冷启动：从外部存储全量重建账户视图
func (s *LedgerService) loadSnapshot(ctx context.Context, accountID int64) (accountSnapshot, error) {
	entries, err := s.entryRepo.ListByAccount(ctx, nil, accountID)
	if err != nil {
		return accountSnapshot{}, storeError(err, "查询流水失败")
	}
	acc, err := ledger.Replay(accountID, entries)
	if err != nil {
		return accountSnapshot{}, err
	}
	invoices, err := s.invoiceRepo.ListUnsettledByAccount(ctx, nil, accountID)
	if err != nil {
		return accountSnapshot{}, storeError(err, "查询账单失败")
	}
	return accountSnapshot{
		AccountID:   accountID,
		Gross:       acc.Balance,
		Pending:     ledger.PendingInvoiceTotal(accountID, invoices),
		EntryCount:  acc.Count,
		LastEntryID: acc.LastEntryID,
	}, nil
}

// stateLocked 调用方必须已持有账户锁
//
// 其他实例（共用 Redis 锁）提交的流水和账单不会进入本进程视图，
// 所以锁内先和存储核对：流水条数一致时沿用缓存的毛余额，否则全量重建；
// 未结账单每次从存储重算。结果直接发布，锁内的结果就是最新已提交状态。
func (s *LedgerService) stateLocked(ctx context.Context, accountID int64) (accountSnapshot, error) {
	cached, ok := s.view.get(accountID)
	if ok {
		count, err := s.entryRepo.CountByAccount(ctx, nil, accountID)
		if err != nil {
			return accountSnapshot{}, storeError(err, "查询流水失败")
		}
		if count != int64(cached.EntryCount) {
			s.ctxLog(ctx).Info("账户有其他实例写入的流水，重新加载",
				zap.Int64("account_id", accountID),
				zap.Int("cached_entries", cached.EntryCount),
				zap.Int64("store_entries", count))
			ok = false
		}
	}
	if !ok {
		snap, err := s.loadSnapshot(ctx, accountID)
		if err != nil {
			return accountSnapshot{}, err
		}
		s.view.publish(snap)
		return snap, nil
	}

	invoices, err := s.invoiceRepo.ListUnsettledByAccount(ctx, nil, accountID)
	if err != nil {
		return accountSnapshot{}, storeError(err, "查询账单失败")
	}
	pending := ledger.PendingInvoiceTotal(accountID, invoices)
	if !pending.Equal(cached.Pending) {
		cached = cached.withPending(pending.Sub(cached.Pending))
		s.view.publish(cached)
	}
	return cached, nil
}

// ============================================================
// 收银流水
// ============================================================

type CashMovementRequest struct {
	AccountID  int64             `json:"account_id" validate:"required,gt=0"`
	Direction  ledger.Direction  `json:"direction" validate:"required,oneof=IN OUT"`
	Amount     decimal.Decimal   `json:"amount"`
	Method     model.EntryMethod `json:"method" validate:"required,oneof=CASH MOBILE_MONEY BANK_TRANSFER"`
	Reference  string            `json:"reference" validate:"required,max=64"`
	Remark     string            `json:"remark" validate:"max=256"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// RecordCashMovement 登记收银台的一笔收支。
// 这是已经发生的事实，不做余额校验；历史导入可能让可用余额为负，如实展示。
func (s *LedgerService) RecordCashMovement(ctx context.Context, req *CashMovementRequest) (*model.LedgerEntry, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}
	entry, err := ledger.Normalize(ledger.CashMovement{
		EntryID:    idgen.NextID(),
		AccountID:  req.AccountID,
		Direction:  req.Direction,
		Amount:     req.Amount,
		Method:     req.Method,
		Reference:  req.Reference,
		Remark:     req.Remark,
		OccurredAt: occurredAt.UTC(),
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.getAccount(ctx, req.AccountID); err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, lock.AccountKey(req.AccountID))
	if err != nil {
		return nil, err
	}
	defer release()

	snap, err := s.stateLocked(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureReferenceUnused(ctx, req.AccountID, entry.Reference); err != nil {
		return nil, err
	}

	err = s.commit(ctx, func(tx *gorm.DB) error {
		if err := s.entryRepo.CreateBatch(ctx, tx, []*model.LedgerEntry{entry}); err != nil {
			return err
		}
		return s.outboxRepo.Enqueue(ctx, tx, s.eventsTopic, model.EventCashMovement,
			strconv.FormatInt(entry.AccountID, 10), entry)
	})
	if err != nil {
		return nil, err
	}

	s.view.publish(snap.apply(entry))
	s.ctxLog(ctx).Info("收银流水已登记",
		zap.Int64("account_id", entry.AccountID),
		zap.String("amount", entry.Amount.String()),
		zap.String("reference", entry.Reference))
	return entry, nil
}

// ============================================================
// 对账
// ============================================================

// ReconcileReport 缓存视图与全量重算结果的比较
type ReconcileReport struct {
	AccountID       int64           `json:"account_id"`
	CachedGross     decimal.Decimal `json:"cached_gross"`
	StoreGross      decimal.Decimal `json:"store_gross"`
	GrossDrift      decimal.Decimal `json:"gross_drift"`
	CachedPending   decimal.Decimal `json:"cached_pending"`
	StorePending    decimal.Decimal `json:"store_pending"`
	AdjustedBalance decimal.Decimal `json:"adjusted_balance"`
	EntryCount      int             `json:"entry_count"`
	WasCached       bool            `json:"was_cached"`
}

// Consistent 缓存与存储一致
func (r *ReconcileReport) Consistent() bool {
	return r.GrossDrift.IsZero() && r.CachedPending.Equal(r.StorePending)
}

// Reconcile 在账户锁内从外部存储全量重算，替换缓存视图并报告偏差
func (s *LedgerService) Reconcile(ctx context.Context, accountID int64) (*ReconcileReport, error) {
	if _, err := s.getAccount(ctx, accountID); err != nil {
		return nil, err
	}
	release, err := s.acquire(ctx, lock.AccountKey(accountID))
	if err != nil {
		return nil, err
	}
	defer release()

	fresh, err := s.loadSnapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}
	cached, wasCached := s.view.get(accountID)
	if !wasCached {
		cached = fresh
	}

	report := &ReconcileReport{
		AccountID:       accountID,
		CachedGross:     cached.Gross,
		StoreGross:      fresh.Gross,
		GrossDrift:      fresh.Gross.Sub(cached.Gross),
		CachedPending:   cached.Pending,
		StorePending:    fresh.Pending,
		AdjustedBalance: fresh.Adjusted(),
		EntryCount:      fresh.EntryCount,
		WasCached:       wasCached,
	}
	s.view.publish(fresh)

	if !report.Consistent() {
		s.ctxLog(ctx).Warn("账户视图与存储不一致，已按存储重建",
			zap.Int64("account_id", accountID),
			zap.String("gross_drift", report.GrossDrift.String()),
			zap.String("cached_pending", report.CachedPending.String()),
			zap.String("store_pending", report.StorePending.String()))
	}
	return report, nil
}

// ReconcileAll 逐个账户对账，遇到错误继续，返回所有报告和第一个错误
func (s *LedgerService) ReconcileAll(ctx context.Context) ([]*ReconcileReport, error) {
	ids, err := s.accountRepo.ListIDs(ctx)
	if err != nil {
		return nil, storeError(err, "查询账户失败")
	}
	var reports []*ReconcileReport
	var firstErr error
	for _, id := range ids {
		report, err := s.Reconcile(ctx, id)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("账户 %d 对账失败: %w", id, err)
			}
			continue
		}
		reports = append(reports, report)
	}
	return reports, firstErr
}
