// Package pricing implements the pricing bounded context: the USD price
// cache, its remote and streaming sources, and the pricing engine.
package pricing

import (
	"context"
	"time"

	blockchainDI "github.com/fd1az/xchain-pricer/business/blockchain/di"
	"github.com/fd1az/xchain-pricer/business/pricing/app"
	pricingDI "github.com/fd1az/xchain-pricer/business/pricing/di"
	"github.com/fd1az/xchain-pricer/business/pricing/infra/binance"
	"github.com/fd1az/xchain-pricer/business/pricing/infra/pricecache"
	"github.com/fd1az/xchain-pricer/business/pricing/infra/pricefeed"
	"github.com/fd1az/xchain-pricer/business/pricing/infra/proxy"
	"github.com/fd1az/xchain-pricer/internal/config"
	"github.com/fd1az/xchain-pricer/internal/di"
	"github.com/fd1az/xchain-pricer/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Proxy client - nil when no proxy is configured
	di.RegisterToken(c, pricingDI.ProxyClient, func(sr di.ServiceRegistry) *proxy.Client {
		cfg := di.GetToken(sr, monolith.ConfigToken)
		log := di.GetToken(sr, monolith.LoggerToken)

		if cfg.Pricer.RemoteSource == config.RemoteSourceBinance || cfg.Pricer.ProxyServerURL == "" {
			return nil
		}

		client, err := proxy.New(proxy.Config{
			BaseURL:           cfg.Pricer.ProxyServerURL,
			Timeout:           cfg.Pricer.ProxyTimeout,
			RequestsPerMinute: cfg.Pricer.ProxyRequestsPerMinute,
		}, log)
		if err != nil {
			panic("failed to create proxy client: " + err.Error())
		}
		return client
	})

	// Binance ticker - nil unless selected as the remote source
	di.RegisterToken(c, pricingDI.Ticker, func(sr di.ServiceRegistry) *binance.Ticker {
		cfg := di.GetToken(sr, monolith.ConfigToken)
		log := di.GetToken(sr, monolith.LoggerToken)

		if cfg.Pricer.RemoteSource != config.RemoteSourceBinance {
			return nil
		}

		tcfg := binance.DefaultConfig()
		if cfg.Pricer.BinanceURL != "" {
			tcfg.BaseURL = cfg.Pricer.BinanceURL
		}
		if cfg.Pricer.ProxyTimeout > 0 {
			tcfg.Timeout = cfg.Pricer.ProxyTimeout
		}

		ticker, err := binance.NewTicker(tcfg, log)
		if err != nil {
			panic("failed to create binance ticker: " + err.Error())
		}
		return ticker
	})

	// PriceCache (public)
	di.RegisterToken(c, pricingDI.PriceCache, func(sr di.ServiceRegistry) *pricecache.PriceCache {
		cfg := di.GetToken(sr, monolith.ConfigToken)
		log := di.GetToken(sr, monolith.LoggerToken)

		var remote pricecache.RemoteSource
		if client := pricingDI.GetProxyClient(sr); client != nil {
			remote = client
		} else if ticker := pricingDI.GetTicker(sr); ticker != nil {
			remote = ticker
		}

		cache, err := pricecache.New(pricecache.Config{
			UseMultichain:   cfg.Pricer.UseMultichain,
			CleanupInterval: cfg.Pricer.CleanupInterval(),
			ProxyURL:        cfg.Pricer.RemoteURL(),
		}, remote, log)
		if err != nil {
			panic("failed to create price cache: " + err.Error())
		}
		return cache
	})

	// Price feed - nil when no feed is configured
	di.RegisterToken(c, pricingDI.PriceFeed, func(sr di.ServiceRegistry) *pricefeed.Feed {
		cfg := di.GetToken(sr, monolith.ConfigToken)
		log := di.GetToken(sr, monolith.LoggerToken)

		if cfg.Pricer.FeedURL == "" {
			return nil
		}

		feed, err := pricefeed.New(pricefeed.Config{
			URL:       cfg.Pricer.FeedURL,
			Subscribe: cfg.Pricer.FeedSubscribe,
		}, pricingDI.GetPriceCache(sr), log)
		if err != nil {
			panic("failed to create price feed: " + err.Error())
		}
		return feed
	})

	// Engine (public) - owns the cache cleanup loop
	di.RegisterToken(c, pricingDI.Engine, func(sr di.ServiceRegistry) *app.Engine {
		cfg := di.GetToken(sr, monolith.ConfigToken)
		log := di.GetToken(sr, monolith.LoggerToken)
		mapper := di.GetToken(sr, monolith.MapperToken)

		cache := pricingDI.GetPriceCache(sr)
		gas := blockchainDI.GetGasService(sr)

		engine, err := app.NewEngine(app.EngineConfig{
			FakePrice: cfg.Pricer.FakePrice,
		}, cache, gas, mapper, cache.InitCleanup(), log)
		if err != nil {
			panic("failed to create pricing engine: " + err.Error())
		}
		return engine
	})

	return nil
}

// Startup builds the engine and connects the price feed when configured.
// Feed connection failures do not block startup.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	engine := pricingDI.GetEngine(mono.Services())
	mono.OnClose(engine)

	if feed := pricingDI.GetPriceFeed(mono.Services()); feed != nil {
		mono.OnClose(feed)

		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := feed.Start(connectCtx); err != nil {
			log.Warn(ctx, "price feed connection failed, will retry in background", "error", err)
			go func() {
				if err := feed.Start(ctx); err != nil {
					log.Error(ctx, "price feed gave up", "error", err)
					return
				}
				log.Info(ctx, "price feed connected")
			}()
		}
	}

	log.Info(ctx, "pricing module started",
		"multichain", mono.Config().Pricer.UseMultichain,
		"remote", mono.Config().Pricer.RemoteURL(),
		"feed", mono.Config().Pricer.FeedURL != "")
	return nil
}
