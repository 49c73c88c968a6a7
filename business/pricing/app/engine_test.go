package app

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	blockchainDomain "github.com/fd1az/xchain-pricer/business/blockchain/domain"
	"github.com/fd1az/xchain-pricer/business/pricing/domain"
	"github.com/fd1az/xchain-pricer/business/pricing/infra/pricecache"
	"github.com/fd1az/xchain-pricer/internal/asset"
	"github.com/fd1az/xchain-pricer/internal/logger"
)

// mockLogger records the message of every call per level.
type mockLogger struct {
	mu     sync.Mutex
	warns  []string
	errors []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any) {
	m.mu.Lock()
	m.warns = append(m.warns, msg)
	m.mu.Unlock()
}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any) {
	m.mu.Lock()
	m.errors = append(m.errors, msg)
	m.mu.Unlock()
}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

var _ logger.LoggerInterface = (*mockLogger)(nil)

type mockRemote struct {
	price     string
	addresses []string
}

func (m *mockRemote) FetchPrice(_ context.Context, _ asset.Asset, _ asset.Network, address string) (string, error) {
	m.addresses = append(m.addresses, address)
	if m.price == "" {
		return "", errors.New("not found")
	}
	return m.price, nil
}

type mockGas struct {
	wei *big.Int
	err error
}

func (m *mockGas) GetGasPrice(_ context.Context, n asset.Network) (*blockchainDomain.GasPrice, error) {
	if m.err != nil {
		return nil, m.err
	}
	return blockchainDomain.NewGasPrice(n, m.wei, time.Now()), nil
}

type stopCounter struct{ n int }

func (s *stopCounter) Stop() { s.n++ }

type fixture struct {
	engine *Engine
	cache  *pricecache.PriceCache
	remote *mockRemote
	log    *mockLogger
	mapper *asset.Mapper
}

func newFixture(t *testing.T, cfg EngineConfig, cacheCfg pricecache.Config, gas GasSource) *fixture {
	t.Helper()
	log := &mockLogger{}
	remote := &mockRemote{}
	cache, err := pricecache.New(cacheCfg, remote, log)
	if err != nil {
		t.Fatalf("pricecache.New: %v", err)
	}
	mapper := asset.NewMapper(common.Address{}, map[asset.Network]map[asset.Asset]common.Address{
		asset.Base: {asset.XVT: common.HexToAddress("0x1111111111111111111111111111111111111111")},
	})
	e, err := NewEngine(cfg, cache, gas, mapper, nil, log)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return &fixture{engine: e, cache: cache, remote: remote, log: log, mapper: mapper}
}

func TestNewEngine_RejectsMalformedFakePrice(t *testing.T) {
	_, err := NewEngine(EngineConfig{FakePrice: "one"}, nil, nil, asset.NewMapper(common.Address{}, nil), nil, &mockLogger{})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestReceivePrice(t *testing.T) {
	ctx := context.Background()

	t.Run("cache_hit", func(t *testing.T) {
		f := newFixture(t, EngineConfig{}, pricecache.Config{}, nil)
		f.cache.Set(ctx, asset.ETH, asset.Ethereum, "1980.86")

		got := f.engine.ReceivePrice(ctx, asset.ETH, asset.Arbitrum)
		if got.String() != "1980860000000000000000" {
			t.Errorf("got %s", got)
		}
		if len(f.log.warns)+len(f.log.errors) != 0 {
			t.Errorf("unexpected logs: %v %v", f.log.warns, f.log.errors)
		}
	})

	t.Run("miss_uses_fake_price_and_warns", func(t *testing.T) {
		f := newFixture(t, EngineConfig{FakePrice: "1.5"}, pricecache.Config{}, nil)

		got := f.engine.ReceivePrice(ctx, asset.DAI, asset.Ethereum)
		if got.String() != "1500000000000000000" {
			t.Errorf("got %s", got)
		}
		if len(f.log.warns) != 1 || len(f.log.errors) != 0 {
			t.Errorf("want one warn, got warns=%v errors=%v", f.log.warns, f.log.errors)
		}
	})

	t.Run("miss_without_fake_price_is_zero_and_errors", func(t *testing.T) {
		f := newFixture(t, EngineConfig{}, pricecache.Config{}, nil)

		got := f.engine.ReceivePrice(ctx, asset.DAI, asset.Ethereum)
		if got.Sign() != 0 {
			t.Errorf("got %s, want 0", got)
		}
		if len(f.log.errors) != 1 {
			t.Errorf("want one error log, got %v", f.log.errors)
		}
	})

	t.Run("fake_price_is_not_aliased", func(t *testing.T) {
		f := newFixture(t, EngineConfig{FakePrice: "2"}, pricecache.Config{}, nil)

		f.engine.ReceivePrice(ctx, asset.DAI, asset.Ethereum).SetInt64(7)
		if got := f.engine.ReceivePrice(ctx, asset.DAI, asset.Ethereum); got.String() != "2000000000000000000" {
			t.Errorf("fake price mutated: %s", got)
		}
	})

	t.Run("remote_fallback_uses_mapper_address", func(t *testing.T) {
		f := newFixture(t, EngineConfig{}, pricecache.Config{UseMultichain: true, ProxyURL: "http://proxy"}, nil)
		f.remote.price = "0.42"

		got := f.engine.ReceivePrice(ctx, asset.XVT, asset.Base)
		if got.String() != "420000000000000000" {
			t.Errorf("got %s", got)
		}
		if len(f.remote.addresses) != 1 || f.remote.addresses[0] != "0x1111111111111111111111111111111111111111" {
			t.Errorf("remote called with %v", f.remote.addresses)
		}
	})

	t.Run("unmapped_asset_skips_remote", func(t *testing.T) {
		f := newFixture(t, EngineConfig{}, pricecache.Config{UseMultichain: true, ProxyURL: "http://proxy"}, nil)
		f.remote.price = "0.42"

		f.engine.ReceivePrice(ctx, asset.XVT, asset.Polygon)
		if len(f.remote.addresses) != 0 {
			t.Errorf("remote must not be called without an address, got %v", f.remote.addresses)
		}
	})
}

func TestGetPricing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, EngineConfig{}, pricecache.Config{UseMultichain: true}, nil)
	f.cache.Set(ctx, asset.ETH, asset.Ethereum, "3")
	f.cache.Set(ctx, asset.USDC, asset.Arbitrum, "7")

	res := f.engine.GetPricing(ctx, asset.ETH, asset.Ethereum, asset.USDC, asset.Arbitrum)

	if res.AssetA != asset.ETH || res.AssetB != asset.USDC {
		t.Errorf("assets = %v/%v", res.AssetA, res.AssetB)
	}
	if res.PriceAinB.String() != "428571428571428550" {
		t.Errorf("PriceAinB = %s", res.PriceAinB)
	}
	if res.PriceAInUSD.String() != "3000000000000000000" || res.PriceBInUSD.String() != "7000000000000000000" {
		t.Errorf("usd prices = %s / %s", res.PriceAInUSD, res.PriceBInUSD)
	}
}

func TestEstimateCost(t *testing.T) {
	ctx := context.Background()

	t.Run("erc20_transfer", func(t *testing.T) {
		f := newFixture(t, EngineConfig{}, pricecache.Config{UseMultichain: true},
			&mockGas{wei: big.NewInt(20_000_000_000)})
		f.cache.Set(ctx, asset.ETH, asset.Ethereum, "2000")
		f.cache.Set(ctx, asset.USDC, asset.Ethereum, "1")

		target := f.engine.TransferTarget(asset.USDC, asset.Ethereum)
		cost, err := f.engine.EstimateCost(ctx, asset.USDC, asset.Ethereum, target)
		if err != nil {
			t.Fatalf("EstimateCost: %v", err)
		}
		if cost.GasLimit != domain.ERC20TransferGasLimit {
			t.Errorf("gas limit = %d", cost.GasLimit)
		}
		if got := domain.FormatFixed18(cost.CostInAsset); got != "2.600000000000000000" {
			t.Errorf("cost in asset = %s", got)
		}
	})

	t.Run("native_transfer", func(t *testing.T) {
		f := newFixture(t, EngineConfig{}, pricecache.Config{UseMultichain: true},
			&mockGas{wei: big.NewInt(20_000_000_000)})
		f.cache.Set(ctx, asset.ETH, asset.Arbitrum, "2000")

		target := f.engine.TransferTarget(asset.ETH, asset.Arbitrum)
		cost, err := f.engine.EstimateCost(ctx, asset.ETH, asset.Arbitrum, target)
		if err != nil {
			t.Fatalf("EstimateCost: %v", err)
		}
		if cost.GasLimit != domain.EthTransferGasLimit {
			t.Errorf("gas limit = %d", cost.GasLimit)
		}
		if cost.CostInEth != "0.00042" {
			t.Errorf("cost in eth = %s", cost.CostInEth)
		}
	})

	t.Run("gas_failure_costs_zero", func(t *testing.T) {
		f := newFixture(t, EngineConfig{}, pricecache.Config{UseMultichain: true},
			&mockGas{err: errors.New("rpc down")})
		f.cache.Set(ctx, asset.ETH, asset.Ethereum, "2000")
		f.cache.Set(ctx, asset.USDC, asset.Ethereum, "1")

		cost, err := f.engine.EstimateCost(ctx, asset.USDC, asset.Ethereum, common.MaxAddress)
		if err != nil {
			t.Fatalf("EstimateCost: %v", err)
		}
		if cost.CostInWei.Sign() != 0 || cost.CostInAsset.Sign() != 0 {
			t.Errorf("want zero cost, got wei=%s asset=%s", cost.CostInWei, cost.CostInAsset)
		}
		if len(f.log.warns) != 1 {
			t.Errorf("want one warn, got %v", f.log.warns)
		}
	})

	t.Run("invalid_network", func(t *testing.T) {
		f := newFixture(t, EngineConfig{}, pricecache.Config{}, nil)
		if _, err := f.engine.EstimateCost(ctx, asset.ETH, asset.NetworkUnknown, common.Address{}); err == nil {
			t.Error("expected error")
		}
	})
}

func TestTransferTarget(t *testing.T) {
	f := newFixture(t, EngineConfig{}, pricecache.Config{}, nil)

	if got := f.engine.TransferTarget(asset.MATIC, asset.Polygon); got != (common.Address{}) {
		t.Errorf("native target = %s", got.Hex())
	}
	if got := f.engine.TransferTarget(asset.XVT, asset.Base); got.Hex() != "0x1111111111111111111111111111111111111111" {
		t.Errorf("override target = %s", got.Hex())
	}
	if got := f.engine.TransferTarget(asset.XVT, asset.Ethereum); got != common.MaxAddress {
		t.Errorf("unknown token target = %s", got.Hex())
	}
}

func TestEngine_DealFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, EngineConfig{}, pricecache.Config{UseMultichain: true},
		&mockGas{wei: big.NewInt(1_000_000_000)})
	f.cache.Set(ctx, asset.ETH, asset.Ethereum, "2000")
	f.cache.Set(ctx, asset.USDC, asset.Ethereum, "1")
	f.cache.Set(ctx, asset.USDC, asset.Arbitrum, "1")

	order := domain.Order{
		ID:         "o-1",
		SrcNetwork: asset.Arbitrum,
		DstNetwork: asset.Ethereum,
		SrcAsset:   asset.USDC,
		DstAsset:   asset.USDC,
		Amount:     domain.MustParseFixed18("100"),
		MaxReward:  domain.MustParseFixed18("105"),
	}
	strategy := domain.Strategy{
		MinProfitRate:               0.1,
		MaxShareOfMyBalancePerOrder: 50,
		MinProfitPerOrder:           domain.MustParseFixed18("0.5"),
		MaxAmountPerOrder:           domain.MustParseFixed18("1000"),
		MinAmountPerOrder:           domain.MustParseFixed18("1"),
		MaxSpendLimit:               domain.MustParseFixed18("1000"),
	}
	balance := domain.MustParseFixed18("1000")

	pricing := f.engine.GetPricing(ctx, asset.USDC, asset.Arbitrum, asset.USDC, asset.Ethereum)
	cost, err := f.engine.EstimateCost(ctx, asset.USDC, asset.Ethereum, f.engine.TransferTarget(asset.USDC, asset.Ethereum))
	if err != nil {
		t.Fatalf("EstimateCost: %v", err)
	}

	ev := f.engine.EvaluateDeal(ctx, balance, cost, strategy, order, pricing)
	want := domain.EvaluateDeal(balance, cost, strategy, order, pricing)
	if ev.IsProfitable != want.IsProfitable || ev.Profit.Cmp(want.Profit) != 0 || ev.Loss.Cmp(want.Loss) != 0 {
		t.Errorf("engine evaluation %+v differs from domain %+v", ev, want)
	}

	pa := f.engine.AssessDealForPublication(ctx, balance, cost, strategy, pricing, domain.OverpayRegular, domain.SlippageRegular, nil, nil)
	wantPA := domain.AssessDealForPublication(balance, cost, strategy, pricing, domain.OverpayRegular, domain.SlippageRegular, nil, nil)
	if pa.IsPublishable != wantPA.IsPublishable || pa.MaxReward.Cmp(wantPA.MaxReward) != 0 {
		t.Errorf("engine assessment %+v differs from domain %+v", pa, wantPA)
	}

	p := f.engine.ProposeDealForSetAmount(ctx, balance, cost, strategy, order, pricing)
	if p.ProposedMaxReward == nil {
		t.Fatal("nil ProposedMaxReward")
	}

	if got := f.engine.PriceAinB(ctx, domain.MustParseFixed18("3"), domain.MustParseFixed18("7")); got.String() != "428571428571428550" {
		t.Errorf("PriceAinB = %s", got)
	}
}

func TestEngine_CloseStopsCleanup(t *testing.T) {
	stop := &stopCounter{}
	e, err := NewEngine(EngineConfig{}, nil, nil, asset.NewMapper(common.Address{}, nil), stop, &mockLogger{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	e.Close()
	if stop.n != 1 {
		t.Errorf("Stop called %d times", stop.n)
	}
}
