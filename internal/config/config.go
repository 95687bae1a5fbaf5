package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	WorkerID int64  `mapstructure:"worker_id"`
	Mode     string `mapstructure:"mode"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	LedgerEvents string `mapstructure:"ledger_events"`
	Alerts       string `mapstructure:"alerts"`
}

type BusinessConfig struct {
	MaxRetryCount          int `mapstructure:"max_retry_count"`
	OverdueScanIntervalSec int `mapstructure:"overdue_scan_interval_sec"`
	ReconcileIntervalSec   int `mapstructure:"reconcile_interval_sec"` // 0 表示不做定时对账
}

// LedgerConfig 账务核心配置
type LedgerConfig struct {
	PoolAccountID    int64  `mapstructure:"pool_account_id"`    // 审批通过后的出款账户
	LockTimeoutMs    int    `mapstructure:"lock_timeout_ms"`    // 账户锁获取超时
	LockDriver       string `mapstructure:"lock_driver"`        // local | redis
	LockExpirationMs int    `mapstructure:"lock_expiration_ms"` // redis 锁过期时间
}

func (c LedgerConfig) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMs) * time.Millisecond
}

func (c LedgerConfig) LockExpiration() time.Duration {
	return time.Duration(c.LockExpirationMs) * time.Millisecond
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.worker_id", 1)
	v.SetDefault("server.mode", "release")
	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("kafka.topic.ledger_events", "ledger-events")
	v.SetDefault("kafka.topic.alerts", "ledger-alerts")
	v.SetDefault("business.max_retry_count", 5)
	v.SetDefault("business.overdue_scan_interval_sec", 300)
	v.SetDefault("business.reconcile_interval_sec", 3600)
	v.SetDefault("ledger.lock_timeout_ms", 3000)
	v.SetDefault("ledger.lock_driver", "local")
	v.SetDefault("ledger.lock_expiration_ms", 30000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
}

// Load 读取配置文件，环境变量覆盖（LEDGER_POOL_ACCOUNT_ID 之类），.env 存在时先加载
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig 加载配置文件，失败直接退出
func LoadConfig(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Ledger.PoolAccountID <= 0 {
		return fmt.Errorf("ledger.pool_account_id 必须配置")
	}
	if c.Ledger.LockTimeoutMs <= 0 {
		return fmt.Errorf("ledger.lock_timeout_ms 必须大于0")
	}
	switch c.Ledger.LockDriver {
	case "local", "redis":
	default:
		return fmt.Errorf("ledger.lock_driver 只支持 local 或 redis: %q", c.Ledger.LockDriver)
	}
	return nil
}
