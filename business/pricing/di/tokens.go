// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/xchain-pricer/business/pricing/app"
	"github.com/fd1az/xchain-pricer/business/pricing/infra/binance"
	"github.com/fd1az/xchain-pricer/business/pricing/infra/pricecache"
	"github.com/fd1az/xchain-pricer/business/pricing/infra/pricefeed"
	"github.com/fd1az/xchain-pricer/business/pricing/infra/proxy"
	"github.com/fd1az/xchain-pricer/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Engine     = di.NewToken[*app.Engine]("pricing.Engine")
	PriceCache = di.NewToken[*pricecache.PriceCache]("pricing.PriceCache")
)

// Private dependency tokens - internal to pricing module
var (
	ProxyClient = di.NewToken[*proxy.Client]("pricing:proxyClient")
	PriceFeed   = di.NewToken[*pricefeed.Feed]("pricing:priceFeed")
	Ticker      = di.NewToken[*binance.Ticker]("pricing:binanceTicker")
)

// Helper functions for type-safe access
func GetEngine(c di.ServiceRegistry) *app.Engine {
	return di.GetToken(c, Engine)
}

func GetPriceCache(c di.ServiceRegistry) *pricecache.PriceCache {
	return di.GetToken(c, PriceCache)
}

// GetProxyClient returns nil when no proxy is configured.
func GetProxyClient(c di.ServiceRegistry) *proxy.Client {
	return di.GetToken(c, ProxyClient)
}

// GetPriceFeed returns nil when no feed is configured.
func GetPriceFeed(c di.ServiceRegistry) *pricefeed.Feed {
	return di.GetToken(c, PriceFeed)
}

// GetTicker returns nil unless pricer.remote_source is binance.
func GetTicker(c di.ServiceRegistry) *binance.Ticker {
	return di.GetToken(c, Ticker)
}
