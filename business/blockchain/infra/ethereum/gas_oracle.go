// Package ethereum provides EVM chain infrastructure adapters.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/xchain-pricer/business/blockchain/domain"
	"github.com/fd1az/xchain-pricer/internal/apperror"
	"github.com/fd1az/xchain-pricer/internal/asset"
	"github.com/fd1az/xchain-pricer/internal/cache"
	"github.com/fd1az/xchain-pricer/internal/circuitbreaker"
	"github.com/fd1az/xchain-pricer/internal/logger"
)

const (
	tracerName = "github.com/fd1az/xchain-pricer/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/xchain-pricer/business/blockchain/infra/ethereum"
)

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	RPCURLs        map[asset.Network]string
	CacheTTL       time.Duration // How long to cache gas prices
	MaxGasPrice    *big.Int      // Upper clamp, nil disables
	RequestTimeout time.Duration
}

// DefaultGasOracleConfig returns sensible defaults.
func DefaultGasOracleConfig(rpcURLs map[asset.Network]string) GasOracleConfig {
	return GasOracleConfig{
		RPCURLs:        rpcURLs,
		CacheTTL:       12 * time.Second, // ~1 mainnet block
		MaxGasPrice:    domain.GweiToWei(500),
		RequestTimeout: 5 * time.Second,
	}
}

// gasClient is the subset of ethclient.Client the oracle calls.
type gasClient interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	Close()
}

type dialFunc func(ctx context.Context, url string) (gasClient, error)

func dialEthclient(ctx context.Context, url string) (gasClient, error) {
	return ethclient.DialContext(ctx, url)
}

type networkClient struct {
	client gasClient
	cb     *circuitbreaker.CircuitBreaker[*big.Int]
}

// gasOracleMetrics holds OTEL metric instruments.
type gasOracleMetrics struct {
	gasPriceFetches metric.Int64Counter
	gasPriceGwei    metric.Float64Gauge
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
}

// GasOracle serves suggested gas prices for every configured network.
type GasOracle struct {
	config GasOracleConfig
	logger logger.LoggerInterface
	dial   dialFunc

	clients   map[asset.Network]*networkClient
	clientsMu sync.RWMutex

	priceCache *cache.Cache[asset.Network, *domain.GasPrice]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
	now     func() time.Time
}

// NewGasOracle creates a new gas oracle instance. Call Connect before use.
func NewGasOracle(cfg GasOracleConfig, log logger.LoggerInterface) (*GasOracle, error) {
	return newGasOracle(cfg, log, dialEthclient)
}

func newGasOracle(cfg GasOracleConfig, log logger.LoggerInterface, dial dialFunc) (*GasOracle, error) {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}

	g := &GasOracle{
		config:     cfg,
		logger:     log,
		dial:       dial,
		clients:    make(map[asset.Network]*networkClient),
		priceCache: cache.New[asset.Network, *domain.GasPrice](time.Minute),
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return g, nil
}

// initMetrics initializes OTEL metric instruments.
func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.gasPriceFetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price RPC fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Current gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheMisses, err = meter.Int64Counter(
		"gas_cache_misses_total",
		metric.WithDescription("Gas price cache misses"),
		metric.WithUnit("{miss}"),
	)
	return err
}

// Connect dials every configured network. Networks that fail to dial are
// logged and left unconfigured; the error reports the first failure.
func (g *GasOracle) Connect(ctx context.Context) error {
	ctx, span := g.tracer.Start(ctx, "gas.connect",
		trace.WithAttributes(attribute.Int("networks", len(g.config.RPCURLs))),
	)
	defer span.End()

	var firstErr error
	for n, url := range g.config.RPCURLs {
		if url == "" {
			continue
		}

		client, err := g.dial(ctx, url)
		if err != nil {
			span.RecordError(err)
			g.logger.Error(ctx, "gas oracle dial failed", "network", n.String(), "error", err)
			if firstErr == nil {
				firstErr = apperror.New(apperror.CodeEthereumConnectionFailed,
					apperror.WithCause(err),
					apperror.WithContext(n.String()))
			}
			continue
		}

		g.clientsMu.Lock()
		g.clients[n] = &networkClient{client: client, cb: g.newBreaker(n)}
		g.clientsMu.Unlock()

		g.logger.Info(ctx, "gas oracle connected", "network", n.String())
	}

	if firstErr != nil {
		span.SetStatus(codes.Error, "partial connect")
		return firstErr
	}
	span.SetStatus(codes.Ok, "connected")
	return nil
}

func (g *GasOracle) newBreaker(n asset.Network) *circuitbreaker.CircuitBreaker[*big.Int] {
	cfg := circuitbreaker.DefaultConfig("gas-oracle-" + n.String())
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		g.logger.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	return circuitbreaker.New[*big.Int](cfg)
}

// GetGasPrice returns the suggested gas price on n, cached for CacheTTL and
// clamped to MaxGasPrice.
func (g *GasOracle) GetGasPrice(ctx context.Context, n asset.Network) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_price",
		trace.WithAttributes(attribute.String("network", n.String())),
	)
	defer span.End()

	netAttr := metric.WithAttributes(attribute.String("network", n.String()))

	if price, found := g.priceCache.Get(ctx, n); found {
		g.metrics.cacheHits.Add(ctx, 1, netAttr)
		span.AddEvent("cache_hit")
		return price, nil
	}
	g.metrics.cacheMisses.Add(ctx, 1, netAttr)

	g.clientsMu.RLock()
	nc, ok := g.clients[n]
	g.clientsMu.RUnlock()

	if !ok {
		err := apperror.New(apperror.CodeNetworkNotConfigured, apperror.WithContext(n.String()))
		span.RecordError(err)
		return nil, err
	}

	g.metrics.gasPriceFetches.Add(ctx, 1, netAttr)

	fetchCtx, cancel := context.WithTimeout(ctx, g.config.RequestTimeout)
	defer cancel()

	wei, err := nc.cb.Execute(func() (*big.Int, error) {
		return nc.client.SuggestGasPrice(fetchCtx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		if apperror.HasCode(err, apperror.CodeCircuitOpen, apperror.CodeCircuitHalfOpen) {
			return nil, err
		}
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("eth_gasPrice on %s", n)))
	}

	price := domain.NewGasPrice(n, wei, g.now()).Clamp(g.config.MaxGasPrice)
	if price.Clamped {
		span.AddEvent("gas_price_exceeded_max",
			trace.WithAttributes(attribute.String("wei", wei.String())))
		g.logger.Warn(ctx, "gas price exceeds max", "network", n.String(), "wei", wei.String())
	}

	g.priceCache.Set(ctx, n, price, g.config.CacheTTL)
	g.metrics.gasPriceGwei.Record(ctx, price.Gwei, netAttr)

	span.SetAttributes(attribute.Float64("gwei", price.Gwei))
	span.SetStatus(codes.Ok, "fetched")

	return price, nil
}

// Networks returns the connected networks in declaration order.
func (g *GasOracle) Networks() []asset.Network {
	g.clientsMu.RLock()
	defer g.clientsMu.RUnlock()

	out := make([]asset.Network, 0, len(g.clients))
	for n := range g.clients {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BreakerState returns the breaker state for n, or false when n is not connected.
func (g *GasOracle) BreakerState(n asset.Network) (gobreaker.State, bool) {
	g.clientsMu.RLock()
	defer g.clientsMu.RUnlock()

	nc, ok := g.clients[n]
	if !ok {
		return gobreaker.StateClosed, false
	}
	return nc.cb.State(), true
}

// Close closes every client.
func (g *GasOracle) Close() error {
	g.clientsMu.Lock()
	defer g.clientsMu.Unlock()

	for n, nc := range g.clients {
		nc.client.Close()
		delete(g.clients, n)
	}

	g.priceCache.Close()

	return nil
}
