package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/xchain-pricer/internal/apperror"
	"github.com/fd1az/xchain-pricer/internal/asset"
	"github.com/fd1az/xchain-pricer/internal/logger"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: url, Timeout: time.Second, RequestsPerMinute: 6000}, logger.NewNop())
	require.NoError(t, err)
	return c
}

func TestFetchPrice_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pricer", r.URL.Path)
		assert.Equal(t, "arbitrum", r.URL.Query().Get("network"))
		assert.Equal(t, "USDC", r.URL.Query().Get("asset"))
		assert.Equal(t, "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", r.URL.Query().Get("address"))
		w.Write([]byte(`{"price":"0.99987"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	price, err := c.FetchPrice(context.Background(), asset.USDC, asset.Arbitrum, "0xaf88d065e77c8cC2239327C5EDb3A432268e5831")

	require.NoError(t, err)
	assert.Equal(t, "0.99987", price)
}

func TestFetchPrice_NotFound(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusBadRequest, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL).FetchPrice(context.Background(), asset.XVT, asset.Base, "0x1")
			assert.True(t, apperror.HasCode(err, apperror.CodePriceNotFound), "got %v", err)
		})
	}
}

func TestFetchPrice_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not_json", "<html>"},
		{"empty_price", `{"price":""}`},
		{"non_numeric_price", `{"price":"n/a"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL).FetchPrice(context.Background(), asset.ETH, asset.Ethereum, "0x0")
			assert.True(t, apperror.HasCode(err, apperror.CodeProxyRequestFailed), "got %v", err)
		})
	}
}

func TestFetchPrice_BreakerIgnoresNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	for i := 0; i < 10; i++ {
		_, _ = c.FetchPrice(context.Background(), asset.XVT, asset.Base, "0x1")
	}
	assert.Equal(t, gobreaker.StateClosed, c.BreakerState())
}

func TestFetchPrice_BreakerOpensOnTransportFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("garbage"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	for i := 0; i < 5; i++ {
		_, err := c.FetchPrice(context.Background(), asset.ETH, asset.Ethereum, "0x0")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, c.BreakerState())

	_, err := c.FetchPrice(context.Background(), asset.ETH, asset.Ethereum, "0x0")
	assert.True(t, apperror.HasCode(err, apperror.CodeCircuitOpen), "got %v", err)
	assert.Equal(t, int32(5), calls.Load())
}

func TestFetchPrice_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"price":"1"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t, srv.URL).FetchPrice(ctx, asset.ETH, asset.Ethereum, "0x0")
	assert.Error(t, err)
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{}, logger.NewNop())
	assert.True(t, apperror.HasCode(err, apperror.CodeConfigurationError))
}
