// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/fd1az/xchain-pricer/internal/asset"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig                `mapstructure:"app"`
	Pricer    PricerConfig             `mapstructure:"pricer"`
	Networks  map[string]NetworkConfig `mapstructure:"networks"`
	Assets    AssetsConfig             `mapstructure:"assets"`
	Gas       GasConfig                `mapstructure:"gas"`
	Deal      DealConfig               `mapstructure:"deal"`
	Redis     RedisConfig              `mapstructure:"redis"`
	Telemetry TelemetryConfig          `mapstructure:"telemetry"`
	Health    HealthConfig             `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"-"` // Set at runtime, not from config file
}

// PricerConfig holds price cache and pricing engine settings.
type PricerConfig struct {
	UseMultichain          bool          `mapstructure:"use_multichain"`
	CleanupIntervalSec     int           `mapstructure:"cleanup_interval_sec"`
	ProxyServerURL         string        `mapstructure:"proxy_server_url"`
	RemoteSource           string        `mapstructure:"remote_source"` // proxy or binance
	BinanceURL             string        `mapstructure:"binance_url"`
	ProxyRequestsPerMinute int           `mapstructure:"proxy_requests_per_minute"`
	ProxyTimeout           time.Duration `mapstructure:"proxy_timeout"`
	MaxDecimals18          int           `mapstructure:"max_decimals18"`
	AddressZero            string        `mapstructure:"address_zero"`
	FakePrice              string        `mapstructure:"fake_price"` // empty = no fallback
	FeedURL                string        `mapstructure:"feed_url"`
	FeedSubscribe          []string      `mapstructure:"feed_subscribe"`
}

// Remote price sources accepted in pricer.remote_source.
const (
	RemoteSourceProxy   = "proxy"
	RemoteSourceBinance = "binance"
)

// RemoteURL returns the base URL of the selected remote price source, or
// empty when the remote fallback is disabled.
func (c *PricerConfig) RemoteURL() string {
	if c.RemoteSource == RemoteSourceBinance {
		return c.BinanceURL
	}
	return c.ProxyServerURL
}

// CleanupInterval returns the cache flush period.
func (c *PricerConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSec) * time.Second
}

// AddressZeroHex returns the native-asset sentinel address.
func (c *PricerConfig) AddressZeroHex() common.Address {
	return common.HexToAddress(c.AddressZero)
}

// NetworkConfig holds one chain's RPC endpoint.
type NetworkConfig struct {
	RPCURL string `mapstructure:"rpc_url"`
}

// AssetsConfig holds token address overrides, network -> asset -> address.
type AssetsConfig struct {
	Overrides map[string]map[string]string `mapstructure:"overrides"`
}

// GasConfig holds gas oracle settings.
type GasConfig struct {
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	MaxGwei        float64       `mapstructure:"max_gwei"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DealConfig holds deal monitor settings.
type DealConfig struct {
	Enabled        bool           `mapstructure:"enabled"`
	Interval       time.Duration  `mapstructure:"interval"`
	Balance        string         `mapstructure:"balance"`
	TransferTarget string         `mapstructure:"transfer_target"` // empty = token contract, or zero address for native
	Overpay        string         `mapstructure:"overpay"`
	Slippage       string         `mapstructure:"slippage"`
	CustomOverpay  float64        `mapstructure:"custom_overpay"`
	CustomSlippage float64        `mapstructure:"custom_slippage"`
	Reporters      []string       `mapstructure:"reporters"`
	Strategy       StrategyConfig `mapstructure:"strategy"`
	Orders         []OrderConfig  `mapstructure:"orders"`
}

// HasReporter reports whether name is listed in deal.reporters.
func (c *DealConfig) HasReporter(name string) bool {
	for _, r := range c.Reporters {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	return false
}

// StrategyConfig mirrors the order strategy. Amounts are decimal strings.
type StrategyConfig struct {
	MinProfitRate               float64 `mapstructure:"min_profit_rate"`
	MaxShareOfMyBalancePerOrder float64 `mapstructure:"max_share_of_my_balance_per_order"`
	MinProfitPerOrder           string  `mapstructure:"min_profit_per_order"`
	MaxAmountPerOrder           string  `mapstructure:"max_amount_per_order"`
	MinAmountPerOrder           string  `mapstructure:"min_amount_per_order"`
	MaxSpendLimit               string  `mapstructure:"max_spend_limit"`
	CustomOverpayRatio          float64 `mapstructure:"custom_overpay_ratio"`
	CustomSlippage              float64 `mapstructure:"custom_slippage"`
}

// OrderConfig describes an order the monitor evaluates every round.
type OrderConfig struct {
	ID         string `mapstructure:"id"`
	SrcNetwork string `mapstructure:"src_network"`
	DstNetwork string `mapstructure:"dst_network"`
	SrcAsset   string `mapstructure:"src_asset"`
	DstAsset   string `mapstructure:"dst_asset"`
	Amount     string `mapstructure:"amount"`
	MaxReward  string `mapstructure:"max_reward"`
}

// RedisConfig holds the deal publisher settings.
type RedisConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	KeyPrefix    string `mapstructure:"key_prefix"`
	StreamMaxLen int64  `mapstructure:"stream_max_len"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"` // zipkin, console, newrelic, honeycomb
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	OTLPProtocol   string `mapstructure:"otlp_protocol"` // grpc or http/protobuf
	Metrics        string `mapstructure:"metrics"`       // prometheus, otlp, honeycomb
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("PRICER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "PRICER_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "PRICER_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "PRICER_LOG_LEVEL", "LOG_LEVEL")

	// Pricer
	v.BindEnv("pricer.use_multichain", "PRICER_USE_MULTICHAIN", "USE_MULTICHAIN")
	v.BindEnv("pricer.cleanup_interval_sec", "PRICER_CLEANUP_INTERVAL_SEC", "CLEANUP_INTERVAL_SEC")
	v.BindEnv("pricer.proxy_server_url", "PRICER_PROXY_SERVER_URL", "PROXY_SERVER_URL")
	v.BindEnv("pricer.remote_source", "PRICER_REMOTE_SOURCE")
	v.BindEnv("pricer.address_zero", "PRICER_ADDRESS_ZERO", "ADDRESS_ZERO")
	v.BindEnv("pricer.fake_price", "PRICER_FAKE_PRICE", "FAKE_PRICE")
	v.BindEnv("pricer.feed_url", "PRICER_FEED_URL")

	// Deal
	v.BindEnv("deal.enabled", "PRICER_DEAL_ENABLED")
	v.BindEnv("deal.interval", "PRICER_DEAL_INTERVAL")
	v.BindEnv("deal.balance", "PRICER_DEAL_BALANCE")

	// Redis
	v.BindEnv("redis.enabled", "PRICER_REDIS_ENABLED")
	v.BindEnv("redis.addr", "PRICER_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("redis.password", "PRICER_REDIS_PASSWORD", "REDIS_PASSWORD")

	// Telemetry
	v.BindEnv("telemetry.enabled", "PRICER_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "PRICER_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "PRICER_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "PRICER_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "xchain-pricer")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Pricer defaults
	v.SetDefault("pricer.use_multichain", false)
	v.SetDefault("pricer.cleanup_interval_sec", 60)
	v.SetDefault("pricer.proxy_server_url", "")
	v.SetDefault("pricer.remote_source", "proxy")
	v.SetDefault("pricer.binance_url", "https://api.binance.com")
	v.SetDefault("pricer.proxy_requests_per_minute", 600)
	v.SetDefault("pricer.proxy_timeout", "5s")
	v.SetDefault("pricer.max_decimals18", 18)
	v.SetDefault("pricer.address_zero", "0x0000000000000000000000000000000000000000")
	v.SetDefault("pricer.fake_price", "")

	// Gas defaults
	v.SetDefault("gas.cache_ttl", "12s")
	v.SetDefault("gas.max_gwei", 500)
	v.SetDefault("gas.request_timeout", "5s")

	// Deal defaults
	v.SetDefault("deal.enabled", true)
	v.SetDefault("deal.interval", "15s")
	v.SetDefault("deal.balance", "0")
	v.SetDefault("deal.overpay", "regular")
	v.SetDefault("deal.slippage", "regular")
	v.SetDefault("deal.reporters", []string{"console"})
	v.SetDefault("deal.strategy.min_profit_rate", 0.1)
	v.SetDefault("deal.strategy.max_share_of_my_balance_per_order", 50)
	v.SetDefault("deal.strategy.min_profit_per_order", "0")
	v.SetDefault("deal.strategy.max_amount_per_order", "1000000")
	v.SetDefault("deal.strategy.min_amount_per_order", "0")
	v.SetDefault("deal.strategy.max_spend_limit", "1000000")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.key_prefix", "pricer")
	v.SetDefault("redis.stream_max_len", 10000)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "xchain-pricer")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)
	v.SetDefault("telemetry.otlp_protocol", "grpc")
	v.SetDefault("telemetry.metrics", "prometheus")

	// Health defaults
	v.SetDefault("health.port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !common.IsHexAddress(c.Pricer.AddressZero) {
		return fmt.Errorf("invalid pricer.address_zero: %q", c.Pricer.AddressZero)
	}
	if c.Pricer.MaxDecimals18 != 18 {
		return fmt.Errorf("pricer.max_decimals18 must be 18, got %d", c.Pricer.MaxDecimals18)
	}
	switch c.Pricer.RemoteSource {
	case "", RemoteSourceProxy, RemoteSourceBinance:
	default:
		return fmt.Errorf("invalid pricer.remote_source: %q", c.Pricer.RemoteSource)
	}
	if c.Pricer.CleanupIntervalSec < 0 {
		return fmt.Errorf("pricer.cleanup_interval_sec cannot be negative")
	}
	if c.Pricer.FakePrice != "" {
		if _, err := decimal.NewFromString(c.Pricer.FakePrice); err != nil {
			return fmt.Errorf("invalid pricer.fake_price: %w", err)
		}
	}
	if _, err := c.RPCURLs(); err != nil {
		return err
	}
	if _, err := c.AssetOverrides(); err != nil {
		return err
	}
	if c.Deal.Enabled && c.Deal.Interval <= 0 {
		return fmt.Errorf("deal.interval must be positive")
	}
	if c.Deal.TransferTarget != "" && !common.IsHexAddress(c.Deal.TransferTarget) {
		return fmt.Errorf("invalid deal.transfer_target: %q", c.Deal.TransferTarget)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}

// RPCURLs resolves the networks section into typed keys. Entries with an
// empty rpc_url are skipped.
func (c *Config) RPCURLs() (map[asset.Network]string, error) {
	out := make(map[asset.Network]string, len(c.Networks))
	for name, nc := range c.Networks {
		n, err := asset.ParseNetwork(name)
		if err != nil {
			return nil, fmt.Errorf("networks.%s: %w", name, err)
		}
		if nc.RPCURL == "" {
			continue
		}
		out[n] = nc.RPCURL
	}
	return out, nil
}

// AssetOverrides resolves assets.overrides into typed keys.
func (c *Config) AssetOverrides() (map[asset.Network]map[asset.Asset]common.Address, error) {
	overrides, err := asset.ParseOverrides(c.Assets.Overrides)
	if err != nil {
		return nil, fmt.Errorf("assets.overrides: %w", err)
	}
	return overrides, nil
}
