// Package pricefeed streams USD price ticks over a websocket into the price
// cache.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/xchain-pricer/business/pricing/domain"
	"github.com/fd1az/xchain-pricer/business/pricing/infra/pricecache"
	"github.com/fd1az/xchain-pricer/internal/apperror"
	"github.com/fd1az/xchain-pricer/internal/asset"
	"github.com/fd1az/xchain-pricer/internal/logger"
	"github.com/fd1az/xchain-pricer/internal/wsconn"
)

const (
	tracerName = "github.com/fd1az/xchain-pricer/business/pricing/infra/pricefeed"
	meterName  = "github.com/fd1az/xchain-pricer/business/pricing/infra/pricefeed"
)

// Sink receives decoded ticks.
type Sink interface {
	Set(ctx context.Context, a asset.Asset, n asset.Network, price string) pricecache.Snapshot
}

// Config holds feed settings.
type Config struct {
	URL          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Subscribe is sent after every successful connect when non-empty.
	Subscribe []string
}

// Tick is one price frame.
type Tick struct {
	Asset   string `json:"asset"`
	Network string `json:"network"`
	Price   string `json:"price"`
}

type subscribeRequest struct {
	Op     string   `json:"op"`
	Assets []string `json:"assets"`
}

type feedMetrics struct {
	ticks    metric.Int64Counter
	rejected metric.Int64Counter
}

// Feed owns the websocket connection.
type Feed struct {
	config  Config
	sink    Sink
	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *feedMetrics

	mu     sync.Mutex
	conn   *wsconn.Client
	closed bool

	received atomic.Int64
}

// New creates a feed. It does not connect.
func New(cfg Config, sink Sink, log logger.LoggerInterface) (*Feed, error) {
	if cfg.URL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("price feed url is empty"))
	}

	f := &Feed{
		config: cfg,
		sink:   sink,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
	if err := f.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return f, nil
}

func (f *Feed) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	f.metrics = &feedMetrics{}

	f.metrics.ticks, err = meter.Int64Counter(
		"price_feed_ticks_total",
		metric.WithDescription("Price ticks written to the cache"),
	)
	if err != nil {
		return err
	}

	f.metrics.rejected, err = meter.Int64Counter(
		"price_feed_rejected_total",
		metric.WithDescription("Malformed price frames"),
	)
	return err
}

// Start connects with retry and begins consuming ticks.
func (f *Feed) Start(ctx context.Context) error {
	ctx, span := f.tracer.Start(ctx, "pricefeed.start",
		trace.WithAttributes(attribute.String("url", f.config.URL)))
	defer span.End()

	wsCfg := wsconn.DefaultConfig(f.config.URL, "pricefeed")
	if f.config.ReadTimeout > 0 {
		wsCfg.ReadTimeout = f.config.ReadTimeout
	}
	if f.config.WriteTimeout > 0 {
		wsCfg.WriteTimeout = f.config.WriteTimeout
	}

	conn, err := wsconn.New(wsCfg)
	if err != nil {
		span.RecordError(err)
		return err
	}
	conn.OnMessage(f.handleMessage)
	conn.OnStateChange(func(state wsconn.State, err error) {
		switch state {
		case wsconn.StateConnected:
			f.logger.Info(context.Background(), "price feed connected", "url", f.config.URL)
			if len(f.config.Subscribe) > 0 {
				go f.subscribe(conn)
			}
		case wsconn.StateDisconnected:
			if err != nil {
				f.logger.Warn(context.Background(), "price feed disconnected", "error", err.Error())
			}
		}
	})

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		conn.Close()
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext("price feed"))
	}
	prev := f.conn
	f.conn = conn
	f.mu.Unlock()

	if prev != nil {
		prev.Close()
	}

	if err := conn.ConnectWithRetry(ctx); err != nil {
		span.RecordError(err)
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext("price feed"))
	}

	return nil
}

func (f *Feed) subscribe(conn *wsconn.Client) {
	ctx := context.Background()
	req := subscribeRequest{Op: "subscribe", Assets: f.config.Subscribe}
	if err := conn.SendJSON(ctx, req); err != nil {
		f.logger.Warn(ctx, "price feed subscribe failed", "error", err.Error())
	}
}

func (f *Feed) handleMessage(ctx context.Context, msg []byte) {
	tick, a, n, err := decodeTick(msg)
	if err != nil {
		f.metrics.rejected.Add(ctx, 1)
		f.logger.Warn(ctx, "skipping malformed price frame",
			"error", err.Error(),
			"frame", string(msg))
		return
	}

	f.sink.Set(ctx, a, n, tick.Price)
	f.received.Add(1)
	f.metrics.ticks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("asset", a.String()),
		attribute.String("network", n.String()),
	))
}

func decodeTick(msg []byte) (Tick, asset.Asset, asset.Network, error) {
	var t Tick
	if err := json.Unmarshal(msg, &t); err != nil {
		return t, asset.AssetUnknown, asset.NetworkUnknown, invalidFrame(err, "not json")
	}

	a, err := asset.ParseAsset(t.Asset)
	if err != nil {
		return t, asset.AssetUnknown, asset.NetworkUnknown, invalidFrame(err, "asset")
	}
	n, err := asset.ParseNetwork(t.Network)
	if err != nil {
		return t, a, asset.NetworkUnknown, invalidFrame(err, "network")
	}
	if _, err := domain.ParseFixed18(t.Price); err != nil {
		return t, a, n, invalidFrame(err, "price")
	}

	return t, a, n, nil
}

func invalidFrame(cause error, field string) error {
	return apperror.New(apperror.CodeInvalidFeedMessage,
		apperror.WithCause(cause),
		apperror.WithContext(field))
}

// Received returns the number of ticks written so far.
func (f *Feed) Received() int64 {
	return f.received.Load()
}

// IsConnected reports whether the websocket is up.
func (f *Feed) IsConnected() bool {
	f.mu.Lock()
	conn := f.conn
	closed := f.closed
	f.mu.Unlock()

	return !closed && conn != nil && conn.IsConnected()
}

// Close stops the feed. A Start racing with Close gives up once it sees the
// feed closed.
func (f *Feed) Close() error {
	f.mu.Lock()
	f.closed = true
	conn := f.conn
	f.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}
