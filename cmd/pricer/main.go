// Package main is the entry point for the cross-chain pricer.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/fd1az/xchain-pricer/business/blockchain"
	blockchainDI "github.com/fd1az/xchain-pricer/business/blockchain/di"
	"github.com/fd1az/xchain-pricer/business/deal"
	dealDI "github.com/fd1az/xchain-pricer/business/deal/di"
	"github.com/fd1az/xchain-pricer/business/pricing"
	pricingDI "github.com/fd1az/xchain-pricer/business/pricing/di"
	"github.com/fd1az/xchain-pricer/internal/apm"
	"github.com/fd1az/xchain-pricer/internal/config"
	"github.com/fd1az/xchain-pricer/internal/health"
	"github.com/fd1az/xchain-pricer/internal/logger"
	"github.com/fd1az/xchain-pricer/internal/metrics"
	"github.com/fd1az/xchain-pricer/internal/monolith"
	"github.com/fd1az/xchain-pricer/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	tuiMode := flag.Bool("tui", false, "Run the terminal dashboard instead of console output")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("xchain-pricer %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !*tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
		if *tuiMode {
			ui.Send(tea.Quit())
		}
	}()

	if err := run(ctx, *configPath, *tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.App.TUIMode = tuiMode

	// The dashboard owns the terminal, so logs are discarded in TUI mode.
	var out io.Writer = os.Stderr
	if tuiMode {
		out = io.Discard
	}
	log := logger.New(out, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, map[string]any{
		"version":     version,
		"environment": cfg.App.Environment,
	})
	defer log.Sync()

	log.Info(ctx, "starting cross-chain pricer",
		"multichain", cfg.Pricer.UseMultichain,
		"orders", len(cfg.Deal.Orders))

	stopTelemetry, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer func() {
		if err := mono.Close(); err != nil {
			log.Error(context.Background(), "error during shutdown", "error", err)
		}
	}()

	// Dependency order: pricing costs with blockchain gas, deals use both.
	modules := []monolith.Module{
		&blockchain.Module{},
		&pricing.Module{},
		&deal.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "addr", healthServer.Addr())
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = healthServer.Stop(stopCtx)
		}()
	}

	if tuiMode {
		err := runTUI(ctx, func() error {
			return startModules(ctx, mono, modules, healthServer, ui.Send)
		})
		// Stop the monitor loop before the deferred Close.
		cancel()
		return err
	}

	if err := startModules(ctx, mono, modules, healthServer, nil); err != nil {
		return err
	}
	return runCLI(ctx, log)
}

type starter interface {
	monolith.Monolith
	StartModules(context.Context, ...monolith.Module) error
}

// startModules starts every module and registers the health checks. progress
// receives startup steps for the dashboard and may be nil.
func startModules(ctx context.Context, mono starter, modules []monolith.Module, hs *health.Server, progress func(tea.Msg)) error {
	step := func(name string, status ui.StepStatus, message string) {
		if progress != nil {
			progress(ui.StartupMsg{Step: name, Status: status, Message: message})
		}
	}

	cfg := mono.Config()
	services := mono.Services()

	step("config", ui.StepDone, "")
	step("gas-oracle", ui.StepConnecting, "")
	step("price-feed", ui.StepConnecting, "")

	if err := mono.StartModules(ctx, modules...); err != nil {
		step("deals", ui.StepFailed, err.Error())
		return fmt.Errorf("failed to start modules: %w", err)
	}
	step("pricing", ui.StepDone, "")

	urls, _ := cfg.RPCURLs()
	oracle := blockchainDI.GetGasOracle(services)
	switch connected := len(oracle.Networks()); {
	case len(urls) == 0:
		step("gas-oracle", ui.StepSkipped, "no networks configured")
	case connected == 0:
		step("gas-oracle", ui.StepFailed, "no network reachable")
	default:
		step("gas-oracle", ui.StepConnected, fmt.Sprintf("%d/%d networks", connected, len(urls)))
	}
	hs.RegisterCheck("gas-oracle", gasOracleCheck(oracle, len(urls)))

	hs.RegisterCheck("price-cache", priceCacheCheck(pricingDI.GetPriceCache(services)))
	if proxy := pricingDI.GetProxyClient(services); proxy != nil {
		hs.RegisterCheck("proxy", proxyCheck(proxy))
	}
	if ticker := pricingDI.GetTicker(services); ticker != nil {
		hs.RegisterCheck("binance", proxyCheck(ticker))
	}

	if feed := pricingDI.GetPriceFeed(services); feed != nil {
		if feed.IsConnected() {
			step("price-feed", ui.StepConnected, "")
		} else {
			step("price-feed", ui.StepFailed, "retrying in background")
		}
		hs.RegisterCheck("price-feed", feedCheck(feed))
	} else {
		step("price-feed", ui.StepSkipped, "no feed configured")
	}

	if cfg.Deal.Enabled {
		monitor := dealDI.GetMonitor(services)
		hs.RegisterCheck("deal-monitor", monitorCheck(func() time.Time {
			return monitor.Stats().LastRound
		}, 3*cfg.Deal.Interval))
	} else {
		step("deals", ui.StepSkipped, "deal monitor disabled")
	}

	return nil
}

// setupTelemetry installs tracing and metrics when enabled and returns a
// function releasing them.
func setupTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	tel := cfg.Telemetry
	provider := apm.ParseProvider(tel.TraceProvider)
	traceProvider, err := apm.NewTraceProvider(tel.ServiceName, apm.WithProvider(provider, apm.ExporterConfig{
		ServiceName: tel.ServiceName,
		Endpoint:    tel.OTLPEndpoint,
		Headers:     tel.OTLPHeaders,
		Protocol:    tel.OTLPProtocol,
	}, log))
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	log.Info(ctx, "tracing initialized", "provider", string(provider), "endpoint", tel.OTLPEndpoint)

	exporter, err := metrics.ExporterFor(tel.Metrics, tel.OTLPEndpoint, tel.ServiceName)
	if err != nil {
		_ = traceProvider.Stop()
		return nil, err
	}

	meterProvider, err := metrics.Setup(ctx,
		metrics.WithServiceName(tel.ServiceName),
		metrics.WithExporter(exporter),
	)
	if err != nil {
		_ = traceProvider.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	var promServer *http.Server
	if exporter.Kind == metrics.Prometheus {
		port := tel.PrometheusPort
		if port == 0 {
			port = metrics.DefaultPrometheusPort
		}
		promServer, err = metrics.ServePrometheus(log, port)
		if err != nil {
			log.Warn(ctx, "prometheus metrics server not started", "error", err)
		}
	}

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if promServer != nil {
			_ = promServer.Shutdown(stopCtx)
		}
		if err := meterProvider.Shutdown(stopCtx); err != nil {
			log.Warn(stopCtx, "metrics shutdown failed", "error", err)
		}
		if err := traceProvider.Stop(); err != nil {
			log.Warn(stopCtx, "tracing shutdown failed", "error", err)
		}
	}, nil
}

func runCLI(ctx context.Context, log logger.LoggerInterface) error {
	log.Info(ctx, "all modules started, pricing deals")

	<-ctx.Done()

	log.Info(context.Background(), "shutting down")
	return nil
}

func runTUI(ctx context.Context, startFunc func() error) error {
	// Modules start once the welcome screen hands over.
	startSignal := make(chan struct{}, 1)
	onStart := func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	p := tea.NewProgram(ui.New(ui.WithOnStart(onStart)), tea.WithAltScreen())
	ui.Attach(p)
	defer ui.Attach(nil)

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		if err := startFunc(); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}
		errCh <- nil
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
