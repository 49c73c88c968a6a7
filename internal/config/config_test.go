package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/xchain-pricer/internal/asset"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Name)
	assert.False(t, cfg.Pricer.UseMultichain)
	assert.Equal(t, 60*time.Second, cfg.Pricer.CleanupInterval())
	assert.Equal(t, 18, cfg.Pricer.MaxDecimals18)
	assert.Equal(t, "0x0000000000000000000000000000000000000000", cfg.Pricer.AddressZeroHex().Hex())
	assert.Equal(t, 15*time.Second, cfg.Deal.Interval)
	assert.Equal(t, "regular", cfg.Deal.Overpay)
	assert.True(t, cfg.Deal.HasReporter("CONSOLE"))
	assert.Equal(t, 8081, cfg.Health.Port)
	assert.Equal(t, 12*time.Second, cfg.Gas.CacheTTL)
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
pricer:
  use_multichain: true
  cleanup_interval_sec: 30
  proxy_server_url: http://proxy.local
  fake_price: "1.5"
networks:
  ethereum:
    rpc_url: http://eth.local
  arbitrum:
    rpc_url: http://arb.local
  base:
    rpc_url: ""
assets:
  overrides:
    base:
      XVT: "0x1111111111111111111111111111111111111111"
deal:
  orders:
    - id: o-1
      src_network: ethereum
      dst_network: arbitrum
      src_asset: USDC
      dst_asset: USDC
      amount: "100"
      max_reward: "101.5"
`))
	require.NoError(t, err)

	assert.True(t, cfg.Pricer.UseMultichain)
	assert.Equal(t, "1.5", cfg.Pricer.FakePrice)

	urls, err := cfg.RPCURLs()
	require.NoError(t, err)
	assert.Equal(t, map[asset.Network]string{
		asset.Ethereum: "http://eth.local",
		asset.Arbitrum: "http://arb.local",
	}, urls)

	overrides, err := cfg.AssetOverrides()
	require.NoError(t, err)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", overrides[asset.Base][asset.XVT].Hex())

	require.Len(t, cfg.Deal.Orders, 1)
	assert.Equal(t, "o-1", cfg.Deal.Orders[0].ID)
	assert.Equal(t, "101.5", cfg.Deal.Orders[0].MaxReward)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PRICER_USE_MULTICHAIN", "true")
	t.Setenv("PRICER_PROXY_SERVER_URL", "http://from-env")
	t.Setenv("FAKE_PRICE", "2")

	cfg, err := Load(writeConfig(t, "pricer:\n  proxy_server_url: http://from-file\n"))
	require.NoError(t, err)

	assert.True(t, cfg.Pricer.UseMultichain)
	assert.Equal(t, "http://from-env", cfg.Pricer.ProxyServerURL)
	assert.Equal(t, "2", cfg.Pricer.FakePrice)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Pricer: PricerConfig{
				MaxDecimals18: 18,
				AddressZero:   "0x0000000000000000000000000000000000000000",
			},
			Deal: DealConfig{Enabled: true, Interval: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"malformed_address_zero", func(c *Config) { c.Pricer.AddressZero = "0xnothex" }, true},
		{"empty_address_zero", func(c *Config) { c.Pricer.AddressZero = "" }, true},
		{"decimals_not_18", func(c *Config) { c.Pricer.MaxDecimals18 = 6 }, true},
		{"negative_cleanup", func(c *Config) { c.Pricer.CleanupIntervalSec = -1 }, true},
		{"bad_fake_price", func(c *Config) { c.Pricer.FakePrice = "abc" }, true},
		{"unknown_network", func(c *Config) {
			c.Networks = map[string]NetworkConfig{"solana": {RPCURL: "x"}}
		}, true},
		{"bad_override", func(c *Config) {
			c.Assets.Overrides = map[string]map[string]string{"base": {"xvt": "nope"}}
		}, true},
		{"zero_deal_interval", func(c *Config) { c.Deal.Interval = 0 }, true},
		{"deal_disabled_ignores_interval", func(c *Config) { c.Deal.Enabled = false; c.Deal.Interval = 0 }, false},
		{"bad_transfer_target", func(c *Config) { c.Deal.TransferTarget = "0x12" }, true},
		{"redis_without_addr", func(c *Config) { c.Redis.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRemoteURL(t *testing.T) {
	cfg, err := Load(writeConfig(t, "pricer:\n  proxy_server_url: http://proxy.local\n"))
	require.NoError(t, err)
	assert.Equal(t, RemoteSourceProxy, cfg.Pricer.RemoteSource)
	assert.Equal(t, "http://proxy.local", cfg.Pricer.RemoteURL())

	cfg, err = Load(writeConfig(t, "pricer:\n  remote_source: binance\n"))
	require.NoError(t, err)
	assert.Equal(t, "https://api.binance.com", cfg.Pricer.RemoteURL())

	_, err = Load(writeConfig(t, "pricer:\n  remote_source: coingecko\n"))
	assert.Error(t, err)
}
