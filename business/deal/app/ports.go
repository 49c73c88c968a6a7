// Package app contains application services and port definitions for the deal context.
package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	blockchainDomain "github.com/fd1az/xchain-pricer/business/blockchain/domain"
	"github.com/fd1az/xchain-pricer/business/deal/domain"
	pricingDomain "github.com/fd1az/xchain-pricer/business/pricing/domain"
	"github.com/fd1az/xchain-pricer/business/pricing/infra/pricecache"
	"github.com/fd1az/xchain-pricer/internal/asset"
)

// Reporter defines the interface for reporting deal evaluations.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Report sends a deal report to be displayed, logged or published.
	Report(ctx context.Context, r *domain.Report)

	// UpdatePrices updates the current price display.
	UpdatePrices(snap pricecache.Snapshot)

	// UpdateGas updates the per-network gas display.
	UpdateGas(prices map[asset.Network]*blockchainDomain.GasPrice)

	// UpdateConnectionStatus updates a connection status display.
	UpdateConnectionStatus(name string, connected bool, latency time.Duration)

	// Stop gracefully shuts down the reporter.
	Stop() error
}

// Pricer is the pricing engine surface the monitor drives.
type Pricer interface {
	GetPricing(ctx context.Context, assetA asset.Asset, networkA asset.Network, assetB asset.Asset, networkB asset.Network) pricingDomain.PriceResult
	EstimateCost(ctx context.Context, a asset.Asset, n asset.Network, transferTarget common.Address) (pricingDomain.CostResult, error)
	TransferTarget(a asset.Asset, n asset.Network) common.Address
	EvaluateDeal(ctx context.Context, balance *big.Int, cost pricingDomain.CostResult, strategy pricingDomain.Strategy, order pricingDomain.Order, pricing pricingDomain.PriceResult) pricingDomain.DealEvaluation
	AssessDealForPublication(ctx context.Context, userBalance *big.Int, cost pricingDomain.CostResult, strategy pricingDomain.Strategy, pricing pricingDomain.PriceResult, overpay pricingDomain.OverpayOption, slippage pricingDomain.SlippageOption, customOverpay, customSlippage *float64) pricingDomain.PublicationAssessment
	ProposeDealForSetAmount(ctx context.Context, balance *big.Int, cost pricingDomain.CostResult, strategy pricingDomain.Strategy, order pricingDomain.Order, pricing pricingDomain.PriceResult) pricingDomain.DealProposal
	Snapshot() pricecache.Snapshot
}

// GasSnapshotter returns the current gas price of every connected network.
type GasSnapshotter interface {
	Snapshot(ctx context.Context) map[asset.Network]*blockchainDomain.GasPrice
}
