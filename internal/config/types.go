package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了交易操作管道运行所需的全部配置项。
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Binance     BinanceConfig     `mapstructure:"binance"`
	Hyperliquid HyperliquidConfig `mapstructure:"hyperliquid"`
	Pending     PendingConfig     `mapstructure:"pending"`
	Constraints ConstraintsConfig `mapstructure:"constraints"`
	PriceFeed   PriceFeedConfig   `mapstructure:"price_feed"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// BinanceConfig 描述币安合约与现货两个执行端点。
type BinanceConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	APISecret      string        `mapstructure:"api_secret"`
	FuturesBaseURL string        `mapstructure:"futures_base_url"`
	SpotBaseURL    string        `mapstructure:"spot_base_url"`
	RecvWindow     time.Duration `mapstructure:"recv_window"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ResyncInterval time.Duration `mapstructure:"resync_interval"`
	Retry          RetryConfig   `mapstructure:"retry"`
}

// HyperliquidConfig 描述 Hyperliquid 执行端配置。
type HyperliquidConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"`
	Wallet     string `mapstructure:"wallet_address"`
	PrivateKey string `mapstructure:"private_key"`
	UseSandbox bool   `mapstructure:"use_sandbox"`
}

// RetryConfig 统一控制出站请求重试。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// PendingConfig 控制待确认操作的生存窗口。
type PendingConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// ConstraintsConfig 控制交易规则目录的刷新节奏。
type ConstraintsConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// PriceFeedConfig 控制缓存价格的可用窗口。
type PriceFeedConfig struct {
	MaxAge time.Duration `mapstructure:"max_age"`
}

// DatabaseConfig 管理审计库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Binance.FuturesBaseURL == "" {
		err = multierr.Append(err, errors.New("binance.futures_base_url 不能为空"))
	}
	if c.Binance.SpotBaseURL == "" {
		err = multierr.Append(err, errors.New("binance.spot_base_url 不能为空"))
	}
	if c.Binance.RecvWindow <= 0 || c.Binance.RecvWindow > time.Minute {
		err = multierr.Append(err, errors.New("binance.recv_window 必须位于(0,1m]"))
	}
	if c.Binance.RequestTimeout <= 0 {
		err = multierr.Append(err, errors.New("binance.request_timeout 必须大于0"))
	}
	if c.Binance.ResyncInterval <= 0 {
		err = multierr.Append(err, errors.New("binance.resync_interval 必须大于0"))
	}
	if c.Binance.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("binance.retry.max_attempts 必须大于0"))
	}
	if c.Binance.Retry.MinDelay <= 0 || c.Binance.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("binance.retry.delay 必须为正"))
	}
	if c.Binance.Retry.MinDelay > c.Binance.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("binance.retry.min_delay 不能大于 max_delay"))
	}
	if c.Hyperliquid.Enabled {
		if c.Hyperliquid.Wallet == "" || c.Hyperliquid.PrivateKey == "" {
			err = multierr.Append(err, errors.New("hyperliquid 交易需要配置 wallet_address 与 private_key"))
		}
	}
	if c.Pending.TTL <= 0 {
		err = multierr.Append(err, errors.New("pending.ttl 必须大于0"))
	}
	if c.Pending.SweepInterval <= 0 {
		err = multierr.Append(err, errors.New("pending.sweep_interval 必须大于0"))
	}
	if c.Constraints.RefreshInterval <= 0 {
		err = multierr.Append(err, errors.New("constraints.refresh_interval 必须大于0"))
	}
	if c.PriceFeed.MaxAge <= 0 {
		err = multierr.Append(err, errors.New("price_feed.max_age 必须大于0"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
