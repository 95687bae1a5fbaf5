package main

import (
	"context"
	"fmt"
	"os"

	"cashledger/internal/config"
	"cashledger/internal/infrastructure/cache"
	"cashledger/internal/infrastructure/database"
	"cashledger/internal/infrastructure/lock"
	"cashledger/internal/infrastructure/logger"
	"cashledger/internal/service"
	"cashledger/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "账务运维工具",
	Long: `ledgerctl 直接连接账务数据库，用于离线对账、查看逾期预付款、
重新投递失败的出箱消息。lock_driver=redis 时与在线服务共用同一组账户锁。`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "执行失败: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "配置文件路径")
}

// env 命令运行所需的依赖
type env struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	ledger  *service.LedgerService
	cleanup func()
}

func setup() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Log)
	if err := idgen.Init(cfg.Server.WorkerID); err != nil {
		return nil, err
	}

	db, err := database.InitMySQL(&cfg.MySQL, log)
	if err != nil {
		return nil, err
	}

	cleanup := func() { _ = log.Sync() }
	var lockClient redis.Cmdable
	if cfg.Ledger.LockDriver == "redis" {
		client, err := cache.InitRedis(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		lockClient = client
		cleanup = func() {
			_ = client.Close()
			_ = log.Sync()
		}
	}
	locker, err := lock.New(cfg.Ledger, lockClient)
	if err != nil {
		cleanup()
		return nil, err
	}

	return &env{
		cfg:     cfg,
		log:     log,
		db:      db,
		ledger:  service.NewLedgerService(db, locker, cfg, log),
		cleanup: cleanup,
	}, nil
}
