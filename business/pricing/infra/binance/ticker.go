// Package binance reads spot USD prices from the Binance REST ticker. It
// serves as the price cache's remote source when no pricer proxy is run.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/xchain-pricer/business/pricing/domain"
	"github.com/fd1az/xchain-pricer/internal/apperror"
	"github.com/fd1az/xchain-pricer/internal/asset"
	"github.com/fd1az/xchain-pricer/internal/circuitbreaker"
	"github.com/fd1az/xchain-pricer/internal/httpclient"
	"github.com/fd1az/xchain-pricer/internal/logger"
	"github.com/fd1az/xchain-pricer/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/xchain-pricer/business/pricing/infra/binance"

	// BaseAPIURL is the Binance REST endpoint.
	BaseAPIURL = "https://api.binance.com"

	tickerEndpoint = "/api/v3/ticker/price"

	// USD prices are read against this stablecoin.
	quoteSymbol = "USDT"

	httpTimeout = 10 * time.Second

	// Binance allows 6000 request weight per minute; a ticker costs 2.
	defaultRequestsPerMinute = 1200

	// errInvalidSymbol is the Binance API code for an unlisted pair.
	errInvalidSymbol = -1121
)

// Config holds configuration for the ticker client.
type Config struct {
	BaseURL           string        // API base URL (empty = default)
	Timeout           time.Duration // Request timeout
	RequestsPerMinute int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:           BaseAPIURL,
		Timeout:           httpTimeout,
		RequestsPerMinute: defaultRequestsPerMinute,
	}
}

// Ticker implements pricecache.RemoteSource on the spot ticker. Prices are
// exchange-wide, so the network and address hint are ignored.
type Ticker struct {
	client  httpclient.Client
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[string]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewTicker creates a ticker client.
func NewTicker(cfg Config, log logger.LoggerInterface) (*Ticker, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseAPIURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("binance"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("binance")
	cbCfg.IsExcluded = func(err error) bool {
		return apperror.KindOf(err) == apperror.KindNotFound
	}
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	return &Ticker{
		client:  client,
		limiter: ratelimit.New(rpm),
		cb:      circuitbreaker.New[string](cbCfg),
		logger:  log,
		tracer:  tracer,
	}, nil
}

// Symbol returns the Binance pair quoting a in USDT. ok is false for assets
// Binance does not list.
func Symbol(a asset.Asset) (string, bool) {
	switch a {
	case asset.ETH, asset.BTC, asset.USDC, asset.BNB, asset.AVAX, asset.DAI:
		return a.String() + quoteSymbol, true
	case asset.MATIC:
		// Listed as POL since the migration.
		return "POL" + quoteSymbol, true
	default:
		return "", false
	}
}

type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// FetchPrice returns the USD price of a. USDT is the quote currency and
// always prices at 1. Unlisted assets return CodePriceNotFound.
func (t *Ticker) FetchPrice(ctx context.Context, a asset.Asset, n asset.Network, _ string) (string, error) {
	ctx, span := t.tracer.Start(ctx, "binance.fetch_price",
		trace.WithAttributes(
			attribute.String("asset", a.String()),
			attribute.String("network", n.String()),
		),
	)
	defer span.End()

	if a == asset.USDT {
		return "1", nil
	}

	symbol, ok := Symbol(a)
	if !ok {
		return "", apperror.NotFound(apperror.CodePriceNotFound, "binance: no pair for "+a.String())
	}
	span.SetAttributes(attribute.String("symbol", symbol))

	if err := t.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return "", apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithCause(err),
			apperror.WithContext("binance"))
	}

	price, err := t.cb.Execute(func() (string, error) {
		return t.get(ctx, symbol)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return "", err
	}

	span.SetAttributes(attribute.String("price", price))
	t.logger.Debug(ctx, "fetched price from binance",
		"symbol", symbol,
		"price", price)

	return price, nil
}

func (t *Ticker) get(ctx context.Context, symbol string) (string, error) {
	var result tickerResponse
	resp, err := t.client.NewRequestWithOptions(
		httpclient.WithLabels(
			attribute.String("endpoint", "ticker"),
			attribute.String("symbol", symbol),
		),
		httpclient.WithResponseErrorHandler(binanceErrorHandler),
	).
		SetQueryParam("symbol", symbol).
		SetResult(&result).
		Get(ctx, tickerEndpoint)

	if err != nil {
		if apperror.HasCode(err, apperror.CodePriceNotFound) {
			return "", err
		}
		return "", apperror.New(apperror.CodeExternalServiceError,
			apperror.WithCause(err),
			apperror.WithContext("binance ticker "+symbol))
	}

	if _, err := domain.ParseFixed18(result.Price); err != nil {
		return "", apperror.New(apperror.CodeInvalidPrice,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}

	return result.Price, nil
}

// BreakerState returns the state of the ticker circuit breaker.
func (t *Ticker) BreakerState() gobreaker.State {
	return t.cb.State()
}

// APIError represents an error response from Binance API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance API error %d: %s", e.Code, e.Message)
}

// binanceErrorHandler parses Binance API error responses. An unlisted
// symbol is reported as not found.
func binanceErrorHandler(statusCode int, body []byte) error {
	if statusCode < http.StatusBadRequest {
		return nil
	}

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
		if apiErr.Code == errInvalidSymbol {
			return apperror.New(apperror.CodePriceNotFound,
				apperror.WithCause(&apiErr))
		}
		return &apiErr
	}
	return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
}
