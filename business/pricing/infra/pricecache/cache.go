// Package pricecache holds USD price strings per asset, or per asset and
// network in multichain mode, with a remote fallback and a periodic full clear.
package pricecache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/xchain-pricer/internal/asset"
	"github.com/fd1az/xchain-pricer/internal/logger"
)

const (
	tracerName = "github.com/fd1az/xchain-pricer/business/pricing/infra/pricecache"
	meterName  = "github.com/fd1az/xchain-pricer/business/pricing/infra/pricecache"
)

// RemoteSource fetches a price the cache does not hold.
type RemoteSource interface {
	FetchPrice(ctx context.Context, a asset.Asset, n asset.Network, address string) (string, error)
}

// Config controls the cache mode and the remote fallback. The mode is fixed
// for the cache's lifetime.
type Config struct {
	UseMultichain   bool
	CleanupInterval time.Duration
	ProxyURL        string // empty disables the remote fallback
}

// Snapshot is a deep copy of the active map. Only the map matching Multichain
// is populated.
type Snapshot struct {
	Multichain bool
	Single     map[asset.Asset]string
	Multi      map[asset.Asset]map[asset.Network]string
}

// Len returns the number of stored prices.
func (s Snapshot) Len() int {
	if !s.Multichain {
		return len(s.Single)
	}
	n := 0
	for _, inner := range s.Multi {
		n += len(inner)
	}
	return n
}

// Lookup returns the price for a on n, ignoring n in single-network mode.
func (s Snapshot) Lookup(a asset.Asset, n asset.Network) (string, bool) {
	if !s.Multichain {
		p, ok := s.Single[a]
		return p, ok
	}
	p, ok := s.Multi[a][n]
	return p, ok
}

type cacheMetrics struct {
	hits          metric.Int64Counter
	misses        metric.Int64Counter
	remoteFetches metric.Int64Counter
	entries       metric.Int64ObservableGauge
}

// PriceCache is safe for concurrent use. A Set racing with Clean may be lost.
type PriceCache struct {
	cfg    Config
	remote RemoteSource
	logger logger.LoggerInterface

	mu     sync.RWMutex
	single map[asset.Asset]string
	multi  map[asset.Asset]map[asset.Network]string

	tracer  trace.Tracer
	metrics *cacheMetrics
}

// New creates an empty cache. remote may be nil.
func New(cfg Config, remote RemoteSource, log logger.LoggerInterface) (*PriceCache, error) {
	c := &PriceCache{
		cfg:    cfg,
		remote: remote,
		logger: log,
		single: make(map[asset.Asset]string),
		multi:  make(map[asset.Asset]map[asset.Network]string),
		tracer: otel.Tracer(tracerName),
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return c, nil
}

func (c *PriceCache) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &cacheMetrics{}

	c.metrics.hits, err = meter.Int64Counter(
		"price_cache_hits_total",
		metric.WithDescription("Price lookups served from memory"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	c.metrics.misses, err = meter.Int64Counter(
		"price_cache_misses_total",
		metric.WithDescription("Price lookups not found in memory"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return err
	}

	c.metrics.remoteFetches, err = meter.Int64Counter(
		"price_cache_remote_fetches_total",
		metric.WithDescription("Remote price fetches by outcome"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	c.metrics.entries, err = meter.Int64ObservableGauge(
		"price_cache_entries",
		metric.WithDescription("Prices currently cached"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(c.Len()))
			return nil
		}),
	)
	return err
}

// Multichain reports the cache mode.
func (c *PriceCache) Multichain() bool {
	return c.cfg.UseMultichain
}

// Get returns the cached price of a. On a miss with a non-empty addressHint
// and a configured proxy it asks the remote source and stores the answer.
// Remote failures are logged and reported as not found.
func (c *PriceCache) Get(ctx context.Context, a asset.Asset, n asset.Network, addressHint string) (string, bool) {
	attrs := metric.WithAttributes(attribute.String("asset", a.String()), attribute.String("network", n.String()))

	if price, ok := c.lookup(a, n); ok {
		c.metrics.hits.Add(ctx, 1, attrs)
		return price, true
	}
	c.metrics.misses.Add(ctx, 1, attrs)

	if addressHint == "" || c.cfg.ProxyURL == "" || c.remote == nil {
		return "", false
	}

	return c.fetchRemote(ctx, a, n, addressHint)
}

func (c *PriceCache) fetchRemote(ctx context.Context, a asset.Asset, n asset.Network, address string) (string, bool) {
	ctx, span := c.tracer.Start(ctx, "pricecache.fetch_remote",
		trace.WithAttributes(
			attribute.String("asset", a.String()),
			attribute.String("network", n.String()),
			attribute.String("address", address),
		),
	)
	defer span.End()

	price, err := c.remote.FetchPrice(ctx, a, n, address)
	if err != nil {
		c.metrics.remoteFetches.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		span.RecordError(err)
		span.SetStatus(codes.Error, "remote fetch failed")
		c.logger.Warn(ctx, "remote price lookup failed",
			"asset", a.String(),
			"network", n.String(),
			"address", address,
			"error", err,
		)
		return "", false
	}

	c.metrics.remoteFetches.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	c.Set(ctx, a, n, price)

	span.SetStatus(codes.Ok, "fetched")
	return price, true
}

func (c *PriceCache) lookup(a asset.Asset, n asset.Network) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.cfg.UseMultichain {
		p, ok := c.single[a]
		return p, ok
	}
	p, ok := c.multi[a][n]
	return p, ok
}

// Set overwrites the price of a (on n in multichain mode) and returns a copy
// of the active map.
func (c *PriceCache) Set(_ context.Context, a asset.Asset, n asset.Network, price string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cfg.UseMultichain {
		c.single[a] = price
	} else {
		inner, ok := c.multi[a]
		if !ok {
			inner = make(map[asset.Network]string)
			c.multi[a] = inner
		}
		inner[n] = price
	}

	return c.snapshotLocked()
}

// Clean drops every cached price.
func (c *PriceCache) Clean() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cfg.UseMultichain {
		c.single = make(map[asset.Asset]string)
		return
	}
	c.multi = make(map[asset.Asset]map[asset.Network]string)
}

// GetWholeCache returns a copy of the active map.
func (c *PriceCache) GetWholeCache() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Len returns the number of cached prices.
func (c *PriceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.cfg.UseMultichain {
		return len(c.single)
	}
	n := 0
	for _, inner := range c.multi {
		n += len(inner)
	}
	return n
}

func (c *PriceCache) snapshotLocked() Snapshot {
	s := Snapshot{Multichain: c.cfg.UseMultichain}

	if !c.cfg.UseMultichain {
		s.Single = make(map[asset.Asset]string, len(c.single))
		for a, p := range c.single {
			s.Single[a] = p
		}
		return s
	}

	s.Multi = make(map[asset.Asset]map[asset.Network]string, len(c.multi))
	for a, inner := range c.multi {
		cp := make(map[asset.Network]string, len(inner))
		for n, p := range inner {
			cp[n] = p
		}
		s.Multi[a] = cp
	}
	return s
}
