package job

import (
	"context"
	"strconv"
	"time"

	"cashledger/internal/config"
	"cashledger/internal/model"
	"cashledger/internal/repository"
	"cashledger/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type overdueAlert struct {
	AdvanceID  int64           `json:"advance_id"`
	AdvanceNo  string          `json:"advance_no"`
	SupplierID int64           `json:"supplier_id"`
	AccountID  int64           `json:"account_id"`
	Remaining  decimal.Decimal `json:"remaining"`
	Deadline   time.Time       `json:"deadline"`
	DetectedAt time.Time       `json:"detected_at"`
}

// AdvanceOverdueJob 定期扫描逾期预付款并发出告警。逾期只告警，不改变预付款状态。
type AdvanceOverdueJob struct {
	ledgerService *service.LedgerService
	outboxRepo    *repository.OutboxRepository
	cfg           *config.Config
	log           *zap.Logger
	stopCh        chan struct{}
	interval      time.Duration
	batchSize     int
}

func NewAdvanceOverdueJob(db *gorm.DB, ledgerService *service.LedgerService, cfg *config.Config, log *zap.Logger) *AdvanceOverdueJob {
	interval := time.Duration(cfg.Business.OverdueScanIntervalSec) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &AdvanceOverdueJob{
		ledgerService: ledgerService,
		outboxRepo:    repository.NewOutboxRepository(db),
		cfg:           cfg,
		log:           log.Named("AdvanceOverdueJob"),
		stopCh:        make(chan struct{}),
		interval:      interval,
		batchSize:     100,
	}
}

func (j *AdvanceOverdueJob) Start(ctx context.Context) {
	j.log.Info("逾期预付款扫描任务启动", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("收到停止信号，任务退出")
			return
		case <-j.stopCh:
			j.log.Info("任务停止")
			return
		case <-ticker.C:
			j.scan(ctx)
		}
	}
}

func (j *AdvanceOverdueJob) Stop() {
	close(j.stopCh)
}

// scan 返回本次发出的告警数
func (j *AdvanceOverdueJob) scan(ctx context.Context) int {
	advances, err := j.ledgerService.ListOverdueAdvances(ctx, j.batchSize)
	if err != nil {
		j.log.Error("查询逾期预付款失败", zap.Error(err))
		return 0
	}
	if len(advances) == 0 {
		return 0
	}

	j.log.Warn("发现逾期预付款", zap.Int("count", len(advances)))

	now := time.Now().UTC()
	alerted := 0
	for _, a := range advances {
		alert := overdueAlert{
			AdvanceID:  a.ID,
			AdvanceNo:  a.AdvanceNo,
			SupplierID: a.SupplierID,
			AccountID:  a.AccountID,
			Remaining:  a.Remaining(),
			Deadline:   *a.Deadline,
			DetectedAt: now,
		}
		err := j.outboxRepo.Enqueue(ctx, nil, j.cfg.Kafka.Topic.Alerts, model.EventAdvanceOverdue,
			strconv.FormatInt(a.SupplierID, 10), alert)
		if err != nil {
			j.log.Error("写入逾期告警失败", zap.String("advance_no", a.AdvanceNo), zap.Error(err))
			continue
		}
		alerted++
		j.log.Warn("预付款已逾期",
			zap.String("advance_no", a.AdvanceNo),
			zap.Int64("supplier_id", a.SupplierID),
			zap.String("remaining", a.Remaining().String()),
			zap.Time("deadline", *a.Deadline))
	}
	return alerted
}
