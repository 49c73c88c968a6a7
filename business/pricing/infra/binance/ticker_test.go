package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/xchain-pricer/internal/apperror"
	"github.com/fd1az/xchain-pricer/internal/asset"
	"github.com/fd1az/xchain-pricer/internal/logger"
)

func newTestTicker(t *testing.T, url string) *Ticker {
	t.Helper()
	tk, err := NewTicker(Config{BaseURL: url, Timeout: time.Second, RequestsPerMinute: 6000}, logger.NewNop())
	require.NoError(t, err)
	return tk
}

func TestSymbol(t *testing.T) {
	tests := []struct {
		asset asset.Asset
		want  string
		ok    bool
	}{
		{asset.ETH, "ETHUSDT", true},
		{asset.BTC, "BTCUSDT", true},
		{asset.USDC, "USDCUSDT", true},
		{asset.MATIC, "POLUSDT", true},
		{asset.XVT, "", false},
		{asset.AssetUnknown, "", false},
	}

	for _, tt := range tests {
		got, ok := Symbol(tt.asset)
		assert.Equal(t, tt.want, got, tt.asset.String())
		assert.Equal(t, tt.ok, ok, tt.asset.String())
	}
}

func TestFetchPrice_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, tickerEndpoint, r.URL.Path)
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"symbol":"ETHUSDT","price":"1980.86000000"}`))
	}))
	defer srv.Close()

	price, err := newTestTicker(t, srv.URL).FetchPrice(context.Background(), asset.ETH, asset.Arbitrum, "")
	require.NoError(t, err)
	assert.Equal(t, "1980.86000000", price)
}

func TestFetchPrice_QuoteAndUnlistedSkipHTTP(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	tk := newTestTicker(t, srv.URL)

	price, err := tk.FetchPrice(context.Background(), asset.USDT, asset.Ethereum, "")
	require.NoError(t, err)
	assert.Equal(t, "1", price)

	_, err = tk.FetchPrice(context.Background(), asset.XVT, asset.Base, "0x1")
	assert.True(t, apperror.HasCode(err, apperror.CodePriceNotFound))

	assert.Zero(t, calls.Load())
}

func TestFetchPrice_InvalidSymbolIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	_, err := newTestTicker(t, srv.URL).FetchPrice(context.Background(), asset.DAI, asset.Ethereum, "")
	assert.True(t, apperror.HasCode(err, apperror.CodePriceNotFound), "got %v", err)
}

func TestFetchPrice_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   apperror.Code
	}{
		{"api_error", http.StatusTooManyRequests, `{"code":-1003,"msg":"Too many requests."}`, apperror.CodeExternalServiceError},
		{"plain_500", http.StatusInternalServerError, `oops`, apperror.CodeExternalServiceError},
		{"bad_price", http.StatusOK, `{"symbol":"ETHUSDT","price":"n/a"}`, apperror.CodeInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestTicker(t, srv.URL).FetchPrice(context.Background(), asset.ETH, asset.Ethereum, "")
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestBinanceErrorHandler(t *testing.T) {
	assert.NoError(t, binanceErrorHandler(http.StatusOK, nil))

	err := binanceErrorHandler(http.StatusTeapot, []byte(`{"code":-1000,"msg":"unknown"}`))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, -1000, apiErr.Code)
}
