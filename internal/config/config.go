package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	ADB      ADBConfig      `mapstructure:"adb"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Watcher  WatcherConfig  `mapstructure:"watcher"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // mysql, sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"db_name"`
	Path     string `mapstructure:"path"` // sqlite 文件路径
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Addr 返回 host:port
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type RabbitMQConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	VHost    string `mapstructure:"vhost"`
	Queue    string `mapstructure:"queue"`
}

type ADBConfig struct {
	Target  string `mapstructure:"target"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// ScanConfig 扫描配置
type ScanConfig struct {
	QuickPacingMs int `mapstructure:"quick_pacing_ms"` // 快速扫描每个应用的间隔
	DeepPacingMs  int `mapstructure:"deep_pacing_ms"`  // 深度扫描每个应用的间隔
	LockTTL       int `mapstructure:"lock_ttl"`        // seconds
}

// Pacing 返回指定扫描类型的每应用间隔
func (c ScanConfig) Pacing(deep bool) time.Duration {
	if deep {
		return time.Duration(c.DeepPacingMs) * time.Millisecond
	}
	return time.Duration(c.QuickPacingMs) * time.Millisecond
}

// WatcherConfig 应用清单目录监控
type WatcherConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Dir      string `mapstructure:"dir"`
	Pattern  string `mapstructure:"pattern"`
	Debounce int    `mapstructure:"debounce_ms"`
}

type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"` // Worker 数量
	QueueSize   int `mapstructure:"queue_size"`  // 任务队列大小
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// AuthConfig API 认证
type AuthConfig struct {
	APIKey string `mapstructure:"api_key"` // 为空时不启用认证
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "./data/scanner.db")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.key_prefix", "spyscan:")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.queue", "scan_requests")
	v.SetDefault("adb.timeout", 30)
	v.SetDefault("scan.quick_pacing_ms", 20)
	v.SetDefault("scan.deep_pacing_ms", 50)
	v.SetDefault("scan.lock_ttl", 600)
	v.SetDefault("watcher.dir", "./inbound_inventories")
	v.SetDefault("watcher.pattern", "*.json")
	v.SetDefault("watcher.debounce_ms", 2000)
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.queue_size", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load 读取 YAML 配置，环境变量优先；path 为空时只使用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// 环境变量覆盖（支持嵌套配置）
	v.AutomaticEnv()

	// RabbitMQ
	v.BindEnv("rabbitmq.enabled", "RABBITMQ_ENABLED")
	v.BindEnv("rabbitmq.host", "RABBITMQ_HOST")
	v.BindEnv("rabbitmq.port", "RABBITMQ_PORT")
	v.BindEnv("rabbitmq.user", "RABBITMQ_USER")
	v.BindEnv("rabbitmq.password", "RABBITMQ_PASS")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Database
	v.BindEnv("database.type", "DB_TYPE")
	v.BindEnv("database.path", "SQLITE_PATH")
	v.BindEnv("database.host", "MYSQL_HOST")
	v.BindEnv("database.port", "MYSQL_PORT")
	v.BindEnv("database.user", "MYSQL_USER")
	v.BindEnv("database.password", "MYSQL_PASS")
	v.BindEnv("database.db_name", "MYSQL_DB")

	// ADB / Auth
	v.BindEnv("adb.target", "ADB_TARGET")
	v.BindEnv("auth.api_key", "SCANNER_API_KEY")
	v.BindEnv("log.level", "LOG_LEVEL")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
