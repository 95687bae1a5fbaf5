package job

import (
	"context"
	"time"

	"cashledger/internal/config"
	"cashledger/internal/infrastructure/mq"
	"cashledger/internal/model"
	"cashledger/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OutboxSender 把与账务同一事务写入的事件投递到 Kafka
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	producer   mq.Producer
	cfg        *config.Config
	log        *zap.Logger
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
}

func NewOutboxSender(db *gorm.DB, producer mq.Producer, cfg *config.Config, log *zap.Logger) *OutboxSender {
	return &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db),
		producer:   producer,
		cfg:        cfg,
		log:        log.Named("OutboxSender"),
		stopCh:     make(chan struct{}),
		interval:   100 * time.Millisecond,
		batchSize:  100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.log.Info("消息发送任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("收到停止信号，任务退出")
			return
		case <-s.stopCh:
			s.log.Info("任务停止")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

// processPendingMessages 返回本批成功投递的条数
func (s *OutboxSender) processPendingMessages(ctx context.Context) int {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.log.Error("查询消息失败", zap.Error(err))
		return 0
	}

	sent := 0
	for _, msg := range messages {
		if s.sendMessage(ctx, msg) {
			sent++
		}
	}
	return sent
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) bool {
	err := s.producer.Send(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if updateErr := s.outboxRepo.MarkSent(ctx, msg.ID); updateErr != nil {
			s.log.Error("更新消息状态失败", zap.Int64("id", msg.ID), zap.Error(updateErr))
		} else {
			s.log.Debug("消息发送成功",
				zap.Int64("id", msg.ID),
				zap.String("topic", msg.Topic),
				zap.String("event", msg.EventType),
				zap.String("key", msg.MessageKey))
		}
		return true
	}

	s.log.Warn("消息发送失败", zap.Int64("id", msg.ID), zap.Error(err))

	if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
		s.log.Error("增加重试次数失败", zap.Int64("id", msg.ID), zap.Error(err))
	}

	if msg.RetryCount+1 >= s.cfg.Business.MaxRetryCount {
		if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
			s.log.Error("标记消息失败状态失败", zap.Int64("id", msg.ID), zap.Error(err))
		} else {
			s.log.Warn("消息超过最大重试次数，标记为失败", zap.Int64("id", msg.ID))
		}
	}
	return false
}
