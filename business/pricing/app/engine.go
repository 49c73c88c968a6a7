package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/xchain-pricer/business/pricing/domain"
	"github.com/fd1az/xchain-pricer/business/pricing/infra/pricecache"
	"github.com/fd1az/xchain-pricer/internal/apperror"
	"github.com/fd1az/xchain-pricer/internal/asset"
	"github.com/fd1az/xchain-pricer/internal/logger"
)

const tracerName = "github.com/fd1az/xchain-pricer/business/pricing/app"

// EngineConfig holds engine settings.
type EngineConfig struct {
	// FakePrice is returned for prices the cache cannot resolve. Empty means
	// unresolved prices are zero.
	FakePrice string
}

// Engine turns cached USD prices into Fixed18 ratios, costs and deal
// decisions.
type Engine struct {
	store   PriceStore
	gas     GasSource
	mapper  *asset.Mapper
	cleanup Stopper
	logger  logger.LoggerInterface
	tracer  trace.Tracer

	fakePrice *big.Int
}

// NewEngine creates an Engine. gas and cleanup may be nil.
func NewEngine(cfg EngineConfig, store PriceStore, gas GasSource, mapper *asset.Mapper, cleanup Stopper, log logger.LoggerInterface) (*Engine, error) {
	e := &Engine{
		store:   store,
		gas:     gas,
		mapper:  mapper,
		cleanup: cleanup,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}

	if cfg.FakePrice != "" {
		fake, err := domain.ParseFixed18(cfg.FakePrice)
		if err != nil {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithCause(err),
				apperror.WithContext("pricer.fake_price"))
		}
		e.fakePrice = fake
	}

	return e, nil
}

// ReceivePrice returns the USD price of a on n as Fixed18. The token address
// from the mapper is the remote lookup hint. Unresolved prices fall back to
// the fake price, or to zero when none is configured. It never fails.
func (e *Engine) ReceivePrice(ctx context.Context, a asset.Asset, n asset.Network) *big.Int {
	ctx, span := e.tracer.Start(ctx, "pricing.receive_price",
		trace.WithAttributes(
			attribute.String("asset", a.String()),
			attribute.String("network", n.String()),
		),
	)
	defer span.End()

	hint := ""
	if addr, ok := e.mapper.AddressOf(n, a); ok {
		hint = addr.Hex()
	}

	raw, ok := e.store.Get(ctx, a, n, hint)
	if !ok {
		return e.fallbackPrice(ctx, span, a, n)
	}

	price, err := domain.ParseFixed18(raw)
	if err != nil {
		e.logger.Error(ctx, "cached price is malformed",
			"asset", a.String(),
			"network", n.String(),
			"price", raw,
			"error", err)
		return e.fallbackPrice(ctx, span, a, n)
	}

	span.SetAttributes(attribute.String("price", raw))
	return price
}

func (e *Engine) fallbackPrice(ctx context.Context, span trace.Span, a asset.Asset, n asset.Network) *big.Int {
	if e.fakePrice != nil {
		span.AddEvent("fake_price")
		e.logger.Warn(ctx, "price not found, using fake price",
			"asset", a.String(),
			"network", n.String(),
			"fake_price", domain.FormatFixed18(e.fakePrice))
		return new(big.Int).Set(e.fakePrice)
	}

	span.AddEvent("zero_price")
	e.logger.Error(ctx, "price not found and no fake price configured",
		"asset", a.String(),
		"network", n.String())
	return new(big.Int)
}

// GetPricing prices assetA on networkA against assetB on networkB.
func (e *Engine) GetPricing(ctx context.Context, assetA asset.Asset, networkA asset.Network, assetB asset.Asset, networkB asset.Network) domain.PriceResult {
	ctx, span := e.tracer.Start(ctx, "pricing.get_pricing")
	defer span.End()

	priceA := e.ReceivePrice(ctx, assetA, networkA)
	priceB := e.ReceivePrice(ctx, assetB, networkB)
	result := domain.NewPriceResult(assetA, assetB, priceA, priceB)

	span.SetAttributes(attribute.String("price_a_in_b", domain.FormatFixed18(result.PriceAinB)))
	e.logger.Debug(ctx, "pricing computed",
		"asset_a", assetA.String(),
		"asset_b", assetB.String(),
		"price_a_in_b", domain.FormatFixed18(result.PriceAinB))

	return result
}

// TransferTarget returns the address a transfer of a on n is sent to: the
// zero address for the native asset, the token contract otherwise. Tokens
// with no known address are costed as ERC-20 transfers.
func (e *Engine) TransferTarget(a asset.Asset, n asset.Network) common.Address {
	if addr, ok := e.mapper.AddressOf(n, a); ok {
		return addr
	}
	return common.MaxAddress
}

// EstimateCost returns the cost of transferring a on n. A gas source failure
// is logged and costed at zero gas.
func (e *Engine) EstimateCost(ctx context.Context, a asset.Asset, n asset.Network, transferTarget common.Address) (domain.CostResult, error) {
	ctx, span := e.tracer.Start(ctx, "pricing.estimate_cost",
		trace.WithAttributes(
			attribute.String("asset", a.String()),
			attribute.String("network", n.String()),
		),
	)
	defer span.End()

	if !a.Valid() {
		return domain.CostResult{}, apperror.Validation(apperror.CodeUnknownAsset, a.String())
	}
	if !n.Valid() {
		return domain.CostResult{}, apperror.Validation(apperror.CodeUnknownNetwork, n.String())
	}

	gasPrice := new(big.Int)
	if e.gas != nil {
		g, err := e.gas.GetGasPrice(ctx, n)
		if err != nil {
			span.RecordError(err)
			e.logger.Warn(ctx, "gas price unavailable, costing at zero gas",
				"network", n.String(),
				"error", err)
		} else {
			gasPrice = g.Wei
		}
	}

	priceNative := e.ReceivePrice(ctx, n.Native(), n)
	priceAsset := e.ReceivePrice(ctx, a, n)

	return e.CostInAsset(ctx, a, priceAsset, priceNative, gasPrice, transferTarget), nil
}

// PriceAinB delegates to domain.PriceAinB.
func (e *Engine) PriceAinB(ctx context.Context, priceA, priceB *big.Int) *big.Int {
	_, span := e.tracer.Start(ctx, "pricing.price_a_in_b")
	defer span.End()

	return domain.PriceAinB(priceA, priceB)
}

// CostInAsset delegates to domain.CostInAsset with the mapper's zero address.
func (e *Engine) CostInAsset(ctx context.Context, a asset.Asset, priceAsset, priceNative, gasPriceWei *big.Int, transferTarget common.Address) domain.CostResult {
	ctx, span := e.tracer.Start(ctx, "pricing.cost_in_asset")
	defer span.End()

	cost := domain.CostInAsset(a, priceAsset, priceNative, gasPriceWei, transferTarget, e.mapper.AddressZero())

	span.SetAttributes(
		attribute.String("cost_in_asset", domain.FormatFixed18(cost.CostInAsset)),
		attribute.Int64("gas_limit", int64(cost.GasLimit)),
	)
	e.logger.Debug(ctx, "cost computed",
		"asset", a.String(),
		"gas_limit", cost.GasLimit,
		"cost_in_eth", cost.CostInEth,
		"cost_in_usd", cost.CostInUSD,
		"cost_in_asset", domain.FormatFixed18(cost.CostInAsset))

	return cost
}

// EvaluateDeal delegates to domain.EvaluateDeal.
func (e *Engine) EvaluateDeal(ctx context.Context, balance *big.Int, cost domain.CostResult, strategy domain.Strategy, order domain.Order, pricing domain.PriceResult) domain.DealEvaluation {
	ctx, span := e.tracer.Start(ctx, "pricing.evaluate_deal",
		trace.WithAttributes(attribute.String("order", order.ID)),
	)
	defer span.End()

	ev := domain.EvaluateDeal(balance, cost, strategy, order, pricing)

	span.SetAttributes(attribute.Bool("profitable", ev.IsProfitable))
	e.logger.Debug(ctx, "deal evaluated",
		"order", order.ID,
		"profitable", ev.IsProfitable,
		"profit", domain.FormatFixed18(ev.Profit),
		"loss", domain.FormatFixed18(ev.Loss))

	return ev
}

// AssessDealForPublication delegates to domain.AssessDealForPublication.
func (e *Engine) AssessDealForPublication(
	ctx context.Context,
	userBalance *big.Int,
	cost domain.CostResult,
	strategy domain.Strategy,
	pricing domain.PriceResult,
	overpay domain.OverpayOption,
	slippage domain.SlippageOption,
	customOverpay, customSlippage *float64,
) domain.PublicationAssessment {
	ctx, span := e.tracer.Start(ctx, "pricing.assess_publication",
		trace.WithAttributes(
			attribute.String("overpay", overpay.String()),
			attribute.String("slippage", slippage.String()),
		),
	)
	defer span.End()

	pa := domain.AssessDealForPublication(userBalance, cost, strategy, pricing, overpay, slippage, customOverpay, customSlippage)

	span.SetAttributes(attribute.Bool("publishable", pa.IsPublishable))
	e.logger.Debug(ctx, "publication assessed",
		"publishable", pa.IsPublishable,
		"max_reward", domain.FormatFixed18(pa.MaxReward))

	return pa
}

// ProposeDealForSetAmount delegates to domain.ProposeDealForSetAmount.
func (e *Engine) ProposeDealForSetAmount(ctx context.Context, balance *big.Int, cost domain.CostResult, strategy domain.Strategy, order domain.Order, pricing domain.PriceResult) domain.DealProposal {
	ctx, span := e.tracer.Start(ctx, "pricing.propose_deal",
		trace.WithAttributes(attribute.String("order", order.ID)),
	)
	defer span.End()

	p := domain.ProposeDealForSetAmount(balance, cost, strategy, order, pricing)

	e.logger.Debug(ctx, "deal proposed",
		"order", order.ID,
		"proposed_max_reward", domain.FormatFixed18(p.ProposedMaxReward))

	return p
}

// Snapshot returns a copy of the price cache.
func (e *Engine) Snapshot() pricecache.Snapshot {
	return e.store.GetWholeCache()
}

// Close stops the cache cleanup loop.
func (e *Engine) Close() error {
	if e.cleanup != nil {
		e.cleanup.Stop()
	}
	return nil
}
