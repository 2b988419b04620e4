package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Channel ChannelConfig `mapstructure:"channel"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Lmstfy  LmstfyConfig  `mapstructure:"lmstfy"`
	Bulk    BulkConfig    `mapstructure:"bulk"`
	Data    DataConfig    `mapstructure:"data"`
	Quote   QuoteConfig   `mapstructure:"quote"`
	Worker  WorkerConfig  `mapstructure:"worker"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// ChannelConfig 消息通道配置
// backend: redis（广播通道，at-most-once）| lmstfy（持久化队列，at-least-once）
type ChannelConfig struct {
	Backend string `mapstructure:"backend"`
	Name    string `mapstructure:"name"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LmstfyConfig Lmstfy 配置（持久化队列后端）
type LmstfyConfig struct {
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Namespace string        `mapstructure:"namespace"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout"`
	TTR       time.Duration `mapstructure:"ttr"`
}

// BulkConfig 批量作业轮询配置
type BulkConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"` // 轮询间隔
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`  // 轮询墙钟预算
}

// DataConfig 数据作业配置
type DataConfig struct {
	DefaultCount   int `mapstructure:"default_count"`    // 默认生成行数
	LinesPerParent int `mapstructure:"lines_per_parent"` // 每个父行生成的子行数
	DeleteLimit    int `mapstructure:"delete_limit"`     // 删除操作单次最大候选数
}

// QuoteConfig 报价作业配置
type QuoteConfig struct {
	RegionField     string             `mapstructure:"region_field"`     // 父记录上的区域字段名
	Discounts       map[string]float64 `mapstructure:"discounts"`        // 区域 → 折扣率
	DefaultDiscount float64            `mapstructure:"default_discount"` // 未映射区域的兜底折扣率
}

// WorkerConfig Worker 配置
type WorkerConfig struct {
	Name         string        `mapstructure:"name"`
	BufferSize   int           `mapstructure:"buffer_size"`   // inputChan 缓冲区大小
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 订阅错误退避时间
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults 填充缺省值
func (c *Config) applyDefaults() {
	if c.Channel.Backend == "" {
		c.Channel.Backend = "redis"
	}
	if c.Channel.Name == "" {
		c.Channel.Name = "org-jobs"
	}
	if c.Bulk.PollInterval <= 0 {
		c.Bulk.PollInterval = 5 * time.Second
	}
	if c.Bulk.PollTimeout <= 0 {
		c.Bulk.PollTimeout = 5 * time.Minute
	}
	if c.Data.DefaultCount <= 0 {
		c.Data.DefaultCount = 10
	}
	if c.Data.LinesPerParent <= 0 {
		c.Data.LinesPerParent = 2
	}
	if c.Data.DeleteLimit <= 0 {
		c.Data.DeleteLimit = 5000
	}
	if c.Quote.RegionField == "" {
		c.Quote.RegionField = "Region__c"
	}
	if c.Quote.DefaultDiscount <= 0 {
		c.Quote.DefaultDiscount = 0.05
	}
	if c.Worker.Name == "" {
		c.Worker.Name = "org-job-worker"
	}
	if c.Worker.BufferSize <= 0 {
		c.Worker.BufferSize = 16
	}
	if c.Worker.ErrorBackoff <= 0 {
		c.Worker.ErrorBackoff = 5 * time.Second
	}
	if c.Lmstfy.Timeout <= 0 {
		c.Lmstfy.Timeout = 3 * time.Second
	}
	if c.Lmstfy.TTR <= 0 {
		c.Lmstfy.TTR = 10 * time.Minute
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	switch c.Channel.Backend {
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required")
		}
	case "lmstfy":
		if c.Lmstfy.Host == "" {
			return fmt.Errorf("lmstfy.host is required")
		}
	default:
		return fmt.Errorf("unknown channel.backend: %s", c.Channel.Backend)
	}
	if c.Quote.DefaultDiscount < 0 || c.Quote.DefaultDiscount > 1 {
		return fmt.Errorf("quote.default_discount must be within [0, 1]")
	}
	for region, rate := range c.Quote.Discounts {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("quote.discounts[%s] must be within [0, 1]", region)
		}
	}
	return nil
}
