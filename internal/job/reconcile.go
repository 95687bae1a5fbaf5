package job

import (
	"context"
	"time"

	"cashledger/internal/config"
	"cashledger/internal/service"

	"go.uber.org/zap"
)

// ReconcileJob 定期从全量流水重建各账户视图，发现偏差时记录告警日志
type ReconcileJob struct {
	ledgerService *service.LedgerService
	log           *zap.Logger
	stopCh        chan struct{}
	interval      time.Duration
}

func NewReconcileJob(ledgerService *service.LedgerService, cfg *config.Config, log *zap.Logger) *ReconcileJob {
	return &ReconcileJob{
		ledgerService: ledgerService,
		log:           log.Named("ReconcileJob"),
		stopCh:        make(chan struct{}),
		interval:      time.Duration(cfg.Business.ReconcileIntervalSec) * time.Second,
	}
}

// Enabled 间隔为 0 时不启动
func (j *ReconcileJob) Enabled() bool {
	return j.interval > 0
}

func (j *ReconcileJob) Start(ctx context.Context) {
	j.log.Info("对账任务启动", zap.Duration("interval", j.interval))

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
			j.reconcile(ctx)
		}
	}
}

func (j *ReconcileJob) Stop() {
	close(j.stopCh)
}

// reconcile 返回出现偏差的账户数
func (j *ReconcileJob) reconcile(ctx context.Context) int {
	reports, err := j.ledgerService.ReconcileAll(ctx)
	if err != nil {
		j.log.Error("对账未全部完成", zap.Error(err))
	}
	drifted := 0
	for _, r := range reports {
		if !r.Consistent() {
			drifted++
		}
	}
	j.log.Info("对账完成", zap.Int("accounts", len(reports)), zap.Int("drifted", drifted))
	return drifted
}
