package ethereum

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/xchain-pricer/internal/apperror"
	"github.com/fd1az/xchain-pricer/internal/asset"
	"github.com/fd1az/xchain-pricer/internal/logger"
)

// rpcServer answers eth_gasPrice with gasPriceHex.
func rpcServer(t *testing.T, gasPriceHex string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if calls != nil {
			calls.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		if req.Method != "eth_gasPrice" {
			json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": req.ID,
				"error": map[string]any{"code": -32601, "message": "method not found"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": gasPriceHex})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fakeClient struct {
	wei    *big.Int
	err    error
	calls  atomic.Int32
	closed atomic.Bool
}

func (f *fakeClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return new(big.Int).Set(f.wei), nil
}

func (f *fakeClient) Close() { f.closed.Store(true) }

func fakeOracle(t *testing.T, cfg GasOracleConfig, clients map[string]*fakeClient) *GasOracle {
	t.Helper()
	g, err := newGasOracle(cfg, logger.NewNop(), func(_ context.Context, url string) (gasClient, error) {
		c, ok := clients[url]
		if !ok {
			return nil, errors.New("dial refused")
		}
		return c, nil
	})
	if err != nil {
		t.Fatalf("newGasOracle: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func TestGasOracle_EthclientRoundTrip(t *testing.T) {
	var calls atomic.Int32
	srv := rpcServer(t, "0x3b9aca00", &calls) // 1 gwei

	g, err := NewGasOracle(DefaultGasOracleConfig(map[asset.Network]string{asset.Base: srv.URL}), logger.NewNop())
	if err != nil {
		t.Fatalf("NewGasOracle: %v", err)
	}
	defer g.Close()

	ctx := context.Background()
	if err := g.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	price, err := g.GetGasPrice(ctx, asset.Base)
	if err != nil {
		t.Fatalf("GetGasPrice: %v", err)
	}
	if price.Wei.String() != "1000000000" || price.Gwei != 1 {
		t.Errorf("price = %s wei / %v gwei", price.Wei, price.Gwei)
	}

	// Second call is served from cache.
	if _, err := g.GetGasPrice(ctx, asset.Base); err != nil {
		t.Fatalf("GetGasPrice: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("rpc calls = %d, want 1", got)
	}
}

func TestGasOracle_NetworkNotConfigured(t *testing.T) {
	g := fakeOracle(t, DefaultGasOracleConfig(nil), nil)

	_, err := g.GetGasPrice(context.Background(), asset.Polygon)
	if !apperror.HasCode(err, apperror.CodeNetworkNotConfigured) {
		t.Fatalf("expected CodeNetworkNotConfigured, got %v", err)
	}
}

func TestGasOracle_PerNetworkCache(t *testing.T) {
	eth := &fakeClient{wei: big.NewInt(30_000_000_000)}
	arb := &fakeClient{wei: big.NewInt(10_000_000)}
	g := fakeOracle(t, DefaultGasOracleConfig(map[asset.Network]string{
		asset.Ethereum: "eth", asset.Arbitrum: "arb",
	}), map[string]*fakeClient{"eth": eth, "arb": arb})

	ctx := context.Background()
	if err := g.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	for i := 0; i < 3; i++ {
		p, err := g.GetGasPrice(ctx, asset.Ethereum)
		if err != nil || p.Gwei != 30 {
			t.Fatalf("ethereum: %v %v", p, err)
		}
		p, err = g.GetGasPrice(ctx, asset.Arbitrum)
		if err != nil || p.Gwei != 0.01 {
			t.Fatalf("arbitrum: %v %v", p, err)
		}
	}

	if eth.calls.Load() != 1 || arb.calls.Load() != 1 {
		t.Errorf("calls eth=%d arb=%d, want 1 each", eth.calls.Load(), arb.calls.Load())
	}

	nets := g.Networks()
	if len(nets) != 2 || nets[0] != asset.Ethereum || nets[1] != asset.Arbitrum {
		t.Errorf("Networks() = %v", nets)
	}
}

func TestGasOracle_CacheExpires(t *testing.T) {
	c := &fakeClient{wei: big.NewInt(1)}
	cfg := DefaultGasOracleConfig(map[asset.Network]string{asset.Optimism: "op"})
	cfg.CacheTTL = 10 * time.Millisecond
	g := fakeOracle(t, cfg, map[string]*fakeClient{"op": c})

	ctx := context.Background()
	g.Connect(ctx)
	g.GetGasPrice(ctx, asset.Optimism)
	time.Sleep(30 * time.Millisecond)
	g.GetGasPrice(ctx, asset.Optimism)

	if c.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 after expiry", c.calls.Load())
	}
}

func TestGasOracle_ClampsToMax(t *testing.T) {
	c := &fakeClient{wei: big.NewInt(900_000_000_000)} // 900 gwei
	g := fakeOracle(t, DefaultGasOracleConfig(map[asset.Network]string{asset.Ethereum: "eth"}),
		map[string]*fakeClient{"eth": c})

	ctx := context.Background()
	g.Connect(ctx)

	p, err := g.GetGasPrice(ctx, asset.Ethereum)
	if err != nil {
		t.Fatalf("GetGasPrice: %v", err)
	}
	if !p.Clamped || p.Gwei != 500 {
		t.Errorf("expected clamp to 500 gwei, got %v (clamped=%v)", p.Gwei, p.Clamped)
	}
}

func TestGasOracle_RPCErrorAndBreaker(t *testing.T) {
	c := &fakeClient{err: errors.New("connection reset")}
	g := fakeOracle(t, DefaultGasOracleConfig(map[asset.Network]string{asset.BSC: "bsc"}),
		map[string]*fakeClient{"bsc": c})

	ctx := context.Background()
	g.Connect(ctx)

	for i := 0; i < 5; i++ {
		_, err := g.GetGasPrice(ctx, asset.BSC)
		if !apperror.HasCode(err, apperror.CodeEthereumRPCError) {
			t.Fatalf("call %d: expected CodeEthereumRPCError, got %v", i, err)
		}
	}

	state, ok := g.BreakerState(asset.BSC)
	if !ok || state != gobreaker.StateOpen {
		t.Fatalf("breaker = %v (ok=%v), want open", state, ok)
	}

	_, err := g.GetGasPrice(ctx, asset.BSC)
	if !apperror.HasCode(err, apperror.CodeCircuitOpen) {
		t.Errorf("expected CodeCircuitOpen, got %v", err)
	}
	if c.calls.Load() != 5 {
		t.Errorf("calls = %d, want 5", c.calls.Load())
	}
}

func TestGasOracle_PartialConnect(t *testing.T) {
	ok := &fakeClient{wei: big.NewInt(1)}
	g := fakeOracle(t, DefaultGasOracleConfig(map[asset.Network]string{
		asset.Ethereum: "good", asset.Avalanche: "bad",
	}), map[string]*fakeClient{"good": ok})

	err := g.Connect(context.Background())
	if !apperror.HasCode(err, apperror.CodeEthereumConnectionFailed) {
		t.Fatalf("expected connection error, got %v", err)
	}
	if nets := g.Networks(); len(nets) != 1 || nets[0] != asset.Ethereum {
		t.Errorf("Networks() = %v", nets)
	}
}

func TestGasOracle_CloseClosesClients(t *testing.T) {
	c := &fakeClient{wei: big.NewInt(1)}
	g := fakeOracle(t, DefaultGasOracleConfig(map[asset.Network]string{asset.Base: "base"}),
		map[string]*fakeClient{"base": c})
	g.Connect(context.Background())

	g.Close()

	if !c.closed.Load() {
		t.Error("client not closed")
	}
	if len(g.Networks()) != 0 {
		t.Error("networks should be empty after Close")
	}
}
