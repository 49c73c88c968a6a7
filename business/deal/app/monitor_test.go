package app

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blockchainDomain "github.com/fd1az/xchain-pricer/business/blockchain/domain"
	"github.com/fd1az/xchain-pricer/business/deal/domain"
	pricingDomain "github.com/fd1az/xchain-pricer/business/pricing/domain"
	"github.com/fd1az/xchain-pricer/business/pricing/infra/pricecache"
	"github.com/fd1az/xchain-pricer/internal/apperror"
	"github.com/fd1az/xchain-pricer/internal/asset"
	"github.com/fd1az/xchain-pricer/internal/logger"
)

// fakePricer prices from a fixed USD table and charges a fixed cost per
// destination network.
type fakePricer struct {
	mu      sync.Mutex
	usd     map[asset.Asset]string
	cost    map[asset.Network]string
	costErr map[asset.Network]error
	targets []common.Address
}

func newFakePricer() *fakePricer {
	return &fakePricer{
		usd: map[asset.Asset]string{
			asset.ETH:  "2000",
			asset.USDC: "1",
		},
		cost: map[asset.Network]string{
			asset.Arbitrum: "2.6",
			asset.Base:     "0.5",
		},
		costErr: map[asset.Network]error{},
	}
}

func (p *fakePricer) GetPricing(_ context.Context, assetA asset.Asset, _ asset.Network, assetB asset.Asset, _ asset.Network) pricingDomain.PriceResult {
	return pricingDomain.NewPriceResult(assetA, assetB,
		pricingDomain.MustParseFixed18(p.usd[assetA]),
		pricingDomain.MustParseFixed18(p.usd[assetB]))
}

func (p *fakePricer) EstimateCost(_ context.Context, a asset.Asset, n asset.Network, target common.Address) (pricingDomain.CostResult, error) {
	p.mu.Lock()
	p.targets = append(p.targets, target)
	p.mu.Unlock()

	if err := p.costErr[n]; err != nil {
		return pricingDomain.CostResult{}, err
	}
	c := pricingDomain.ZeroCost(a)
	c.CostInAsset = pricingDomain.MustParseFixed18(p.cost[n])
	return c, nil
}

func (p *fakePricer) TransferTarget(asset.Asset, asset.Network) common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000000000aa")
}

func (p *fakePricer) EvaluateDeal(_ context.Context, balance *big.Int, cost pricingDomain.CostResult, strategy pricingDomain.Strategy, order pricingDomain.Order, pricing pricingDomain.PriceResult) pricingDomain.DealEvaluation {
	return pricingDomain.EvaluateDeal(balance, cost, strategy, order, pricing)
}

func (p *fakePricer) AssessDealForPublication(_ context.Context, userBalance *big.Int, cost pricingDomain.CostResult, strategy pricingDomain.Strategy, pricing pricingDomain.PriceResult, overpay pricingDomain.OverpayOption, slippage pricingDomain.SlippageOption, customOverpay, customSlippage *float64) pricingDomain.PublicationAssessment {
	return pricingDomain.AssessDealForPublication(userBalance, cost, strategy, pricing, overpay, slippage, customOverpay, customSlippage)
}

func (p *fakePricer) ProposeDealForSetAmount(_ context.Context, balance *big.Int, cost pricingDomain.CostResult, strategy pricingDomain.Strategy, order pricingDomain.Order, pricing pricingDomain.PriceResult) pricingDomain.DealProposal {
	return pricingDomain.ProposeDealForSetAmount(balance, cost, strategy, order, pricing)
}

func (p *fakePricer) Snapshot() pricecache.Snapshot {
	return pricecache.Snapshot{Single: map[asset.Asset]string{asset.ETH: "2000", asset.USDC: "1"}}
}

type fakeGas struct{}

func (fakeGas) Snapshot(context.Context) map[asset.Network]*blockchainDomain.GasPrice {
	return map[asset.Network]*blockchainDomain.GasPrice{
		asset.Arbitrum: blockchainDomain.NewGasPrice(asset.Arbitrum, big.NewInt(100_000_000), time.Now()),
	}
}

type statusUpdate struct {
	name      string
	connected bool
}

type recordingReporter struct {
	mu       sync.Mutex
	started  int
	stopped  int
	reports  []*domain.Report
	prices   int
	gas      int
	statuses []statusUpdate
	startErr error
}

func (r *recordingReporter) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
	return r.startErr
}

func (r *recordingReporter) Report(_ context.Context, rep *domain.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
}

func (r *recordingReporter) UpdatePrices(pricecache.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prices++
}

func (r *recordingReporter) UpdateGas(map[asset.Network]*blockchainDomain.GasPrice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gas++
}

func (r *recordingReporter) UpdateConnectionStatus(name string, connected bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, statusUpdate{name, connected})
}

func (r *recordingReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped++
	return nil
}

func (r *recordingReporter) reportCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

func testSettings() Settings {
	return Settings{
		Balance: pricingDomain.MustParseFixed18("10000"),
		Strategy: pricingDomain.Strategy{
			MinProfitRate:               0.1,
			MaxShareOfMyBalancePerOrder: 50,
			MinProfitPerOrder:           pricingDomain.MustParseFixed18("1"),
			MaxAmountPerOrder:           pricingDomain.MustParseFixed18("1000000"),
			MinAmountPerOrder:           pricingDomain.MustParseFixed18("0"),
			MaxSpendLimit:               pricingDomain.MustParseFixed18("1000000"),
		},
		Orders: []pricingDomain.Order{
			{
				ID:         "profitable",
				SrcNetwork: asset.Ethereum,
				DstNetwork: asset.Arbitrum,
				SrcAsset:   asset.ETH,
				DstAsset:   asset.USDC,
				Amount:     pricingDomain.MustParseFixed18("1900"),
				MaxReward:  pricingDomain.MustParseFixed18("1"),
			},
			{
				ID:         "loss",
				SrcNetwork: asset.Ethereum,
				DstNetwork: asset.Arbitrum,
				SrcAsset:   asset.ETH,
				DstAsset:   asset.USDC,
				Amount:     pricingDomain.MustParseFixed18("2000"),
				MaxReward:  pricingDomain.MustParseFixed18("1"),
			},
		},
		Overpay:  pricingDomain.OverpayRegular,
		Slippage: pricingDomain.SlippageRegular,
	}
}

func newTestMonitor(t *testing.T, interval time.Duration, pricer Pricer, reporters ...Reporter) *Monitor {
	t.Helper()
	m, err := NewMonitor(MonitorConfig{Interval: interval, Settings: testSettings()},
		pricer, fakeGas{}, reporters, logger.NewNop())
	require.NoError(t, err)
	return m
}

func TestMonitor_RunOnce_ReportsEveryOrderToEveryReporter(t *testing.T) {
	r1, r2 := &recordingReporter{}, &recordingReporter{}
	m := newTestMonitor(t, time.Minute, newFakePricer(), r1, r2)

	reports := m.RunOnce(context.Background())
	require.Len(t, reports, 2)

	for _, r := range []*recordingReporter{r1, r2} {
		assert.Len(t, r.reports, 2)
		assert.Equal(t, 1, r.prices)
		assert.Equal(t, 1, r.gas)
		assert.Contains(t, r.statuses, statusUpdate{"gas-oracle", true})
	}

	win := reports[0]
	assert.Equal(t, "profitable", win.Order.ID)
	assert.Equal(t, uint64(1), win.Round)
	assert.Equal(t, domain.VerdictProfitable, win.Verdict())
	// 1 ETH reward = 2000 USDC, minus 2.6 cost and 1900 principal.
	assert.Equal(t, "97.400000000000000000", pricingDomain.FormatFixed18(win.Evaluation.Profit))
	assert.Equal(t, "2000.000000000000000000", pricingDomain.FormatFixed18(win.Proposal.ProposedMaxReward))

	loss := reports[1]
	assert.Equal(t, domain.VerdictLoss, loss.Verdict())
	assert.Equal(t, "2.600000000000000000", pricingDomain.FormatFixed18(loss.Evaluation.Loss))

	stats := m.Stats()
	assert.Equal(t, uint64(1), stats.Rounds)
	assert.Equal(t, uint64(2), stats.Evaluated)
	assert.Equal(t, uint64(1), stats.Profitable)
}

func TestMonitor_RunOnce_SkipsOrdersThatCannotBeCosted(t *testing.T) {
	pricer := newFakePricer()
	pricer.costErr[asset.Arbitrum] = apperror.Validation(apperror.CodeUnknownNetwork, "arbitrum")

	rep := &recordingReporter{}
	m := newTestMonitor(t, time.Minute, pricer, rep)

	reports := m.RunOnce(context.Background())
	assert.Empty(t, reports)
	assert.Empty(t, rep.reports)
	// Snapshots are still pushed.
	assert.Equal(t, 1, rep.prices)
	assert.Equal(t, uint64(2), m.Stats().Failed)
}

func TestMonitor_TransferTarget(t *testing.T) {
	pricer := newFakePricer()
	m := newTestMonitor(t, time.Minute, pricer)

	_, err := m.Evaluate(context.Background(), testSettings().Orders[0])
	require.NoError(t, err)
	assert.Equal(t, pricer.TransferTarget(asset.USDC, asset.Arbitrum), pricer.targets[0])

	override := common.HexToAddress("0x1111111111111111111111111111111111111111")
	m.config.Settings.TransferTarget = &override
	_, err = m.Evaluate(context.Background(), testSettings().Orders[0])
	require.NoError(t, err)
	assert.Equal(t, override, pricer.targets[1])
}

func TestMonitor_Watch_PushesOnlyChanges(t *testing.T) {
	rep := &recordingReporter{}
	m, err := NewMonitor(MonitorConfig{Interval: time.Minute, Settings: testSettings()},
		newFakePricer(), nil, []Reporter{rep}, logger.NewNop())
	require.NoError(t, err)

	up := true
	m.Watch("price-feed", func() bool { return up })

	m.RunOnce(context.Background())
	m.RunOnce(context.Background())
	up = false
	m.RunOnce(context.Background())

	assert.Equal(t, []statusUpdate{
		{"price-feed", true},
		{"price-feed", false},
	}, rep.statuses)
	assert.Zero(t, rep.gas, "no gas source configured")
}

func TestMonitor_StartStop(t *testing.T) {
	rep := &recordingReporter{}
	m := newTestMonitor(t, 10*time.Millisecond, newFakePricer(), rep)

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Start(context.Background()), "second start is a no-op")

	require.Eventually(t, func() bool { return rep.reportCount() >= 4 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())

	rounds := m.Stats().Rounds
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, rounds, m.Stats().Rounds, "no rounds after stop")
	assert.Equal(t, 1, rep.started)
	assert.Equal(t, 1, rep.stopped)
}

func TestMonitor_StartFailsWhenReporterFails(t *testing.T) {
	console := &recordingReporter{}
	tui := &recordingReporter{}
	redis := &recordingReporter{startErr: errors.New("redis down")}
	after := &recordingReporter{}
	m := newTestMonitor(t, time.Minute, newFakePricer(), console, tui, redis, after)

	assert.Error(t, m.Start(context.Background()))
	assert.NoError(t, m.Stop())

	for _, rep := range []*recordingReporter{console, tui} {
		assert.Equal(t, 1, rep.started)
		assert.Equal(t, 1, rep.stopped, "started reporters are rolled back")
	}
	assert.Equal(t, 0, redis.stopped)
	assert.Equal(t, 0, after.started)
	assert.Equal(t, 0, after.stopped)
}

func TestNewMonitor_Validates(t *testing.T) {
	_, err := NewMonitor(MonitorConfig{Interval: 0, Settings: testSettings()}, newFakePricer(), nil, nil, logger.NewNop())
	assert.True(t, apperror.HasCode(err, apperror.CodeConfigurationError))

	_, err = NewMonitor(MonitorConfig{Interval: time.Second}, newFakePricer(), nil, nil, logger.NewNop())
	assert.True(t, apperror.HasCode(err, apperror.CodeConfigurationError))
}
