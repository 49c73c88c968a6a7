// Package proxy fetches USD prices from the pricer proxy over HTTP.
package proxy

import (
	"context"
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
	tracerName = "github.com/fd1az/xchain-pricer/business/pricing/infra/proxy"

	pricerEndpoint = "/pricer"

	defaultTimeout           = 5 * time.Second
	defaultRequestsPerMinute = 600
)

// Config holds proxy client settings.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
}

// Client implements pricecache.RemoteSource.
type Client struct {
	client  httpclient.Client
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[string]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// New creates a proxy client.
func New(cfg Config, log logger.LoggerInterface) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("proxy base url is empty"))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("pricer-proxy"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("pricer-proxy")
	// An unknown price is an answer, not an upstream failure.
	cbCfg.IsExcluded = func(err error) bool {
		return apperror.KindOf(err) == apperror.KindNotFound
	}
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	return &Client{
		client:  client,
		limiter: ratelimit.New(rpm),
		cb:      circuitbreaker.New[string](cbCfg),
		logger:  log,
		tracer:  tracer,
	}, nil
}

type priceResponse struct {
	Price string `json:"price"`
}

// FetchPrice asks the proxy for the USD price of a on n. Non-200 responses
// return CodePriceNotFound; transport and decode failures return
// CodeProxyRequestFailed. No retries.
func (c *Client) FetchPrice(ctx context.Context, a asset.Asset, n asset.Network, address string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "proxy.fetch_price",
		trace.WithAttributes(
			attribute.String("asset", a.String()),
			attribute.String("network", n.String()),
			attribute.String("address", address),
		),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return "", apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithCause(err),
			apperror.WithContext("pricer proxy"))
	}

	price, err := c.cb.Execute(func() (string, error) {
		return c.get(ctx, a, n, address)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return "", err
	}

	span.SetAttributes(attribute.String("price", price))
	span.SetStatus(codes.Ok, "fetched")

	c.logger.Debug(ctx, "fetched price from proxy",
		"asset", a.String(),
		"network", n.String(),
		"price", price)

	return price, nil
}

func (c *Client) get(ctx context.Context, a asset.Asset, n asset.Network, address string) (string, error) {
	var result priceResponse
	resp, err := c.client.NewRequestWithOptions(
		httpclient.WithLabels(
			attribute.String("endpoint", "pricer"),
			attribute.String("network", n.String()),
		),
		httpclient.WithResponseErrorHandler(notFoundHandler),
	).
		SetQueryParam("network", n.String()).
		SetQueryParam("asset", a.String()).
		SetQueryParam("address", address).
		SetResult(&result).
		Get(ctx, pricerEndpoint)

	if err != nil {
		if apperror.HasCode(err, apperror.CodePriceNotFound) {
			return "", err
		}
		return "", apperror.New(apperror.CodeProxyRequestFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("GET %s %s/%s", pricerEndpoint, n, a)))
	}

	if _, err := domain.ParseFixed18(result.Price); err != nil {
		return "", apperror.New(apperror.CodeProxyRequestFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}

	return result.Price, nil
}

func notFoundHandler(statusCode int, body []byte) error {
	if statusCode != http.StatusOK {
		return apperror.NotFound(apperror.CodePriceNotFound, fmt.Sprintf("HTTP %d: %s", statusCode, string(body)))
	}
	return nil
}

// BreakerState returns the state of the proxy circuit breaker.
func (c *Client) BreakerState() gobreaker.State {
	return c.cb.State()
}
