// Package deal implements the deal bounded context: periodic evaluation of
// configured cross-chain orders and fan-out of the results.
package deal

import (
	"context"
	"fmt"

	blockchainDI "github.com/fd1az/xchain-pricer/business/blockchain/di"
	"github.com/fd1az/xchain-pricer/business/deal/app"
	dealDI "github.com/fd1az/xchain-pricer/business/deal/di"
	"github.com/fd1az/xchain-pricer/business/deal/infra"
	pricingDI "github.com/fd1az/xchain-pricer/business/pricing/di"
	"github.com/fd1az/xchain-pricer/internal/di"
	"github.com/fd1az/xchain-pricer/internal/monolith"
)

// Reporter names accepted in deal.reporters.
const (
	ReporterConsole = "console"
	ReporterTUI     = "tui"
	ReporterRedis   = "redis"
)

// Module implements the deal bounded context.
type Module struct{}

// RegisterServices registers all deal services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Redis publisher - nil when disabled
	di.RegisterToken(c, dealDI.RedisPublisher, func(sr di.ServiceRegistry) *infra.RedisPublisher {
		cfg := di.GetToken(sr, monolith.ConfigToken)
		log := di.GetToken(sr, monolith.LoggerToken)

		if !cfg.Redis.Enabled && !cfg.Deal.HasReporter(ReporterRedis) {
			return nil
		}
		return infra.NewRedisPublisher(infra.RedisConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			KeyPrefix:    cfg.Redis.KeyPrefix,
			StreamMaxLen: cfg.Redis.StreamMaxLen,
		}, log)
	})

	// Reporters - the TUI replaces the console in TUI mode
	di.RegisterToken(c, dealDI.Reporters, func(sr di.ServiceRegistry) []app.Reporter {
		cfg := di.GetToken(sr, monolith.ConfigToken)

		var reporters []app.Reporter
		switch {
		case cfg.App.TUIMode:
			reporters = append(reporters, infra.NewTUIReporter())
		case cfg.Deal.HasReporter(ReporterConsole):
			reporters = append(reporters, infra.NewConsoleReporter(cfg.App.LogLevel == "debug"))
		}
		if pub := dealDI.GetRedisPublisher(sr); pub != nil {
			reporters = append(reporters, pub)
		}
		return reporters
	})

	// Monitor (public)
	di.RegisterToken(c, dealDI.Monitor, func(sr di.ServiceRegistry) *app.Monitor {
		cfg := di.GetToken(sr, monolith.ConfigToken)
		log := di.GetToken(sr, monolith.LoggerToken)

		settings, err := app.SettingsFromConfig(cfg.Deal)
		if err != nil {
			panic("invalid deal settings: " + err.Error())
		}

		monitor, err := app.NewMonitor(app.MonitorConfig{
			Interval: cfg.Deal.Interval,
			Settings: settings,
		}, pricingDI.GetEngine(sr), blockchainDI.GetGasService(sr), dealDI.GetReporters(sr), log)
		if err != nil {
			panic("failed to create deal monitor: " + err.Error())
		}

		if feed := pricingDI.GetPriceFeed(sr); feed != nil {
			monitor.Watch("price-feed", feed.IsConnected)
		}
		return monitor
	})

	return nil
}

// Startup starts the deal monitor when enabled.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	if !cfg.Deal.Enabled {
		log.Info(ctx, "deal monitor disabled")
		return nil
	}
	if _, err := app.SettingsFromConfig(cfg.Deal); err != nil {
		return fmt.Errorf("deal settings: %w", err)
	}

	monitor := dealDI.GetMonitor(mono.Services())
	if err := monitor.Start(ctx); err != nil {
		return fmt.Errorf("start deal monitor: %w", err)
	}
	mono.OnClose(monitor)

	log.Info(ctx, "deal module started",
		"orders", len(cfg.Deal.Orders),
		"interval", cfg.Deal.Interval.String(),
		"reporters", len(dealDI.GetReporters(mono.Services())))
	return nil
}
