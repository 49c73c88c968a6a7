package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/xchain-pricer/business/deal/domain"
	pricingDomain "github.com/fd1az/xchain-pricer/business/pricing/domain"
	"github.com/fd1az/xchain-pricer/internal/apm"
	"github.com/fd1az/xchain-pricer/internal/apperror"
	"github.com/fd1az/xchain-pricer/internal/logger"
)

const (
	tracerName = "github.com/fd1az/xchain-pricer/business/deal/app"
	meterName  = "github.com/fd1az/xchain-pricer/business/deal/app"
)

// MonitorConfig holds configuration for the deal monitor.
type MonitorConfig struct {
	Interval time.Duration
	Settings Settings
}

type monitorMetrics struct {
	rounds     metric.Int64Counter
	reports    metric.Int64Counter
	failures   metric.Int64Counter
	roundTimer metric.Float64Histogram
}

type probe struct {
	name      string
	connected func() bool
	last      *bool
}

// Monitor evaluates the configured orders on a fixed interval and fans the
// results out to the reporters.
type Monitor struct {
	pricer    Pricer
	gas       GasSnapshotter
	reporters []Reporter
	config    MonitorConfig
	logger    logger.LoggerInterface
	tracer    apm.Tracer
	metrics   *monitorMetrics

	mu      sync.Mutex
	round   uint64
	stats   domain.Stats
	probes  []*probe
	gasUp   *bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewMonitor creates a Monitor. gas may be nil.
func NewMonitor(cfg MonitorConfig, pricer Pricer, gas GasSnapshotter, reporters []Reporter, log logger.LoggerInterface) (*Monitor, error) {
	if cfg.Interval <= 0 {
		return nil, apperror.Validation(apperror.CodeConfigurationError, "deal.interval must be positive")
	}
	if cfg.Settings.Balance == nil {
		return nil, apperror.Validation(apperror.CodeConfigurationError, "deal.balance")
	}

	m := &Monitor{
		pricer:    pricer,
		gas:       gas,
		reporters: reporters,
		config:    cfg,
		logger:    log,
		tracer:    apm.NewTracer(tracerName),
		stats:     domain.NewStats(),
	}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return m, nil
}

func (m *Monitor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	m.metrics = &monitorMetrics{}

	m.metrics.rounds, err = meter.Int64Counter(
		"deal_monitor_rounds_total",
		metric.WithDescription("Completed monitor rounds"),
	)
	if err != nil {
		return err
	}

	m.metrics.reports, err = meter.Int64Counter(
		"deal_monitor_reports_total",
		metric.WithDescription("Deal reports by verdict"),
	)
	if err != nil {
		return err
	}

	m.metrics.failures, err = meter.Int64Counter(
		"deal_monitor_failures_total",
		metric.WithDescription("Orders that could not be evaluated"),
	)
	if err != nil {
		return err
	}

	m.metrics.roundTimer, err = meter.Float64Histogram(
		"deal_monitor_round_duration_seconds",
		metric.WithDescription("Time spent evaluating one round"),
		metric.WithUnit("s"),
	)
	return err
}

// Watch registers a connection whose status is pushed to the reporters when
// it changes.
func (m *Monitor) Watch(name string, connected func() bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes = append(m.probes, &probe{name: name, connected: connected})
}

// Start starts the reporters and begins the monitor loop. The first round
// runs immediately.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	m.mu.Unlock()

	m.logger.Info(ctx, "starting deal monitor",
		"orders", len(m.config.Settings.Orders),
		"interval", m.config.Interval.String(),
		"reporters", len(m.reporters))

	for i, r := range m.reporters {
		if err := r.Start(ctx); err != nil {
			for _, started := range m.reporters[:i] {
				if stopErr := started.Stop(); stopErr != nil {
					m.logger.Warn(ctx, "reporter stop failed", "error", stopErr)
				}
			}
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
			return err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(runCtx)

	return nil
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info(context.Background(), "deal monitor stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}

// RunOnce evaluates every order, sends each report to every reporter and
// then pushes the price and gas snapshots.
func (m *Monitor) RunOnce(ctx context.Context) []*domain.Report {
	start := time.Now()

	m.mu.Lock()
	m.round++
	round := m.round
	m.mu.Unlock()

	ctx, span := m.tracer.StartSpanFromContext(ctx, "deal.round",
		trace.WithAttributes(attribute.Int64("round", int64(round))))
	defer span.End()

	reports := make([]*domain.Report, 0, len(m.config.Settings.Orders))
	for _, order := range m.config.Settings.Orders {
		if ctx.Err() != nil {
			break
		}

		r, err := m.Evaluate(ctx, order)
		if err != nil {
			span.RecordError(err)
			m.metrics.failures.Add(ctx, 1)
			m.mu.Lock()
			m.stats.Failed++
			m.mu.Unlock()
			m.logger.Warn(ctx, "order evaluation failed", "order", order.ID, "error", err)
			continue
		}
		r.Round = round

		m.mu.Lock()
		m.stats.Record(r)
		m.mu.Unlock()

		m.metrics.reports.Add(ctx, 1, metric.WithAttributes(
			attribute.String("verdict", string(r.Verdict()))))
		for _, rep := range m.reporters {
			rep.Report(ctx, r)
		}
		reports = append(reports, r)
	}

	m.pushSnapshots(ctx)

	m.mu.Lock()
	m.stats.Rounds = round
	m.stats.LastRound = time.Now()
	m.mu.Unlock()

	elapsed := time.Since(start)
	m.metrics.rounds.Add(ctx, 1)
	m.metrics.roundTimer.Record(ctx, elapsed.Seconds())
	m.logger.Debug(ctx, "deal round completed",
		"round", round,
		"reports", len(reports),
		"duration", elapsed.String())

	return reports
}

func (m *Monitor) pushSnapshots(ctx context.Context) {
	snap := m.pricer.Snapshot()
	for _, rep := range m.reporters {
		rep.UpdatePrices(snap)
	}

	if m.gas != nil {
		start := time.Now()
		prices := m.gas.Snapshot(ctx)
		latency := time.Since(start)
		for _, rep := range m.reporters {
			rep.UpdateGas(prices)
		}
		connected := len(prices) > 0
		m.mu.Lock()
		changed := m.gasUp == nil || *m.gasUp != connected
		m.gasUp = &connected
		m.mu.Unlock()
		if changed {
			m.updateStatus("gas-oracle", connected, latency)
		}
	}

	type change struct {
		name      string
		connected bool
	}
	var changes []change
	m.mu.Lock()
	for _, p := range m.probes {
		connected := p.connected()
		if p.last != nil && *p.last == connected {
			continue
		}
		p.last = &connected
		changes = append(changes, change{p.name, connected})
	}
	m.mu.Unlock()

	for _, c := range changes {
		m.updateStatus(c.name, c.connected, 0)
	}
}

func (m *Monitor) updateStatus(name string, connected bool, latency time.Duration) {
	for _, rep := range m.reporters {
		rep.UpdateConnectionStatus(name, connected, latency)
	}
}

// Evaluate prices, costs and evaluates a single order.
func (m *Monitor) Evaluate(ctx context.Context, order pricingDomain.Order) (*domain.Report, error) {
	ctx, span := m.tracer.StartSpanFromContext(ctx, "deal.evaluate",
		trace.WithAttributes(
			attribute.String("order", order.ID),
			attribute.String("src", order.SrcAsset.String()+"@"+order.SrcNetwork.String()),
			attribute.String("dst", order.DstAsset.String()+"@"+order.DstNetwork.String()),
		),
	)
	defer span.End()

	s := m.config.Settings

	pricing := m.pricer.GetPricing(ctx, order.SrcAsset, order.SrcNetwork, order.DstAsset, order.DstNetwork)

	target := m.pricer.TransferTarget(order.DstAsset, order.DstNetwork)
	if s.TransferTarget != nil {
		target = *s.TransferTarget
	}

	cost, err := m.pricer.EstimateCost(ctx, order.DstAsset, order.DstNetwork, target)
	if err != nil {
		span.NoticeError(err)
		return nil, err
	}

	r := &domain.Report{
		Timestamp:  time.Now(),
		Order:      order,
		Pricing:    pricing,
		Cost:       cost,
		Evaluation: m.pricer.EvaluateDeal(ctx, s.Balance, cost, s.Strategy, order, pricing),
		Assessment: m.pricer.AssessDealForPublication(ctx, s.Balance, cost, s.Strategy, pricing,
			s.Overpay, s.Slippage, s.CustomOverpay, s.CustomSlippage),
		Proposal: m.pricer.ProposeDealForSetAmount(ctx, s.Balance, cost, s.Strategy, order, pricing),
	}

	span.SetAttributes(
		attribute.String("verdict", string(r.Verdict())),
		attribute.Bool("publishable", r.IsPublishable()),
	)
	return r, nil
}

// Stats returns a copy of the accumulated stats.
func (m *Monitor) Stats() domain.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats.Clone()
}

// Stop cancels the loop, waits for the current round and stops the
// reporters.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	m.logger.Info(context.Background(), "stopping deal monitor")
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()

	var errs []error
	for _, r := range m.reporters {
		if err := r.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements io.Closer.
func (m *Monitor) Close() error {
	return m.Stop()
}
