package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cashledger/internal/config"
	"cashledger/internal/handler"
	"cashledger/internal/infrastructure/cache"
	"cashledger/internal/infrastructure/database"
	"cashledger/internal/infrastructure/lock"
	"cashledger/internal/infrastructure/logger"
	"cashledger/internal/infrastructure/mq"
	"cashledger/internal/job"
	"cashledger/internal/service"
	"cashledger/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg := config.LoadConfig(*configPath)

	log := logger.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	if err := idgen.Init(cfg.Server.WorkerID); err != nil {
		log.Fatal("初始化 ID 生成器失败", zap.Error(err))
	}

	db, err := database.InitMySQL(&cfg.MySQL, log)
	if err != nil {
		log.Fatal("初始化 MySQL 失败", zap.Error(err))
	}

	// 只有多实例部署才需要 Redis 锁
	var redisClient *redis.Client
	if cfg.Ledger.LockDriver == "redis" {
		redisClient, err = cache.InitRedis(&cfg.Redis)
		if err != nil {
			log.Fatal("初始化 Redis 失败", zap.Error(err))
		}
		defer redisClient.Close()
	}
	var lockClient redis.Cmdable
	if redisClient != nil {
		lockClient = redisClient
	}
	locker, err := lock.New(cfg.Ledger, lockClient)
	if err != nil {
		log.Fatal("初始化账户锁失败", zap.Error(err))
	}

	producer, err := mq.NewKafkaProducer(&cfg.Kafka)
	if err != nil {
		log.Fatal("初始化 Kafka 失败", zap.Error(err))
	}
	defer producer.Close()

	ledgerService := service.NewLedgerService(db, locker, cfg, log)

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 启动后台任务
	outboxSender := job.NewOutboxSender(db, producer, cfg, log)
	go outboxSender.Start(ctx)

	overdueJob := job.NewAdvanceOverdueJob(db, ledgerService, cfg, log)
	go overdueJob.Start(ctx)

	reconcileJob := job.NewReconcileJob(ledgerService, cfg, log)
	if reconcileJob.Enabled() {
		go reconcileJob.Start(ctx)
	}

	router := handler.SetupRouter(ledgerService, log, cfg.Server.Mode)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info("服务启动", zap.Int("port", cfg.Server.Port), zap.String("lock_driver", cfg.Ledger.LockDriver))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务...")

	// 取消上下文，停止后台任务
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("服务关闭异常", zap.Error(err))
	}

	log.Info("服务已关闭")
}
