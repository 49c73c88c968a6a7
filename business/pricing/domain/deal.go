package domain

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/fd1az/xchain-pricer/internal/apperror"
	"github.com/fd1az/xchain-pricer/internal/asset"
)

// Order is a cross-chain order under evaluation. Amount and MaxReward are
// Fixed18; MaxReward is denominated in SrcAsset, Amount in DstAsset.
type Order struct {
	ID         string
	SrcNetwork asset.Network
	DstNetwork asset.Network
	SrcAsset   asset.Asset
	DstAsset   asset.Asset
	Amount     *big.Int
	MaxReward  *big.Int
}

// Validate checks that the order is complete.
func (o Order) Validate() error {
	switch {
	case !o.SrcNetwork.Valid() || !o.DstNetwork.Valid():
		return apperror.Validation(apperror.CodeInvalidOrder, fmt.Sprintf("order %s: unknown network", o.ID))
	case !o.SrcAsset.Valid() || !o.DstAsset.Valid():
		return apperror.Validation(apperror.CodeInvalidOrder, fmt.Sprintf("order %s: unknown asset", o.ID))
	case o.Amount == nil || o.Amount.Sign() <= 0:
		return apperror.Validation(apperror.CodeInvalidOrder, fmt.Sprintf("order %s: amount must be positive", o.ID))
	case o.MaxReward == nil || o.MaxReward.Sign() < 0:
		return apperror.Validation(apperror.CodeInvalidOrder, fmt.Sprintf("order %s: max reward must not be negative", o.ID))
	}
	return nil
}

// Strategy holds the caller's bounds for accepting a deal. Rates are
// percentages of the balance; bounds are Fixed18.
type Strategy struct {
	MinProfitRate               float64
	MaxShareOfMyBalancePerOrder float64
	MinProfitPerOrder           *big.Int
	MaxAmountPerOrder           *big.Int
	MinAmountPerOrder           *big.Int
	MaxSpendLimit               *big.Int

	// Used for the custom overpay and slippage options when no explicit
	// ratio is passed. Zero means 1.0.
	CustomOverpayRatio float64
	CustomSlippage     float64
}

// Validate checks that the strategy bounds are complete and consistent.
func (s Strategy) Validate() error {
	if s.MinProfitPerOrder == nil || s.MaxAmountPerOrder == nil || s.MinAmountPerOrder == nil || s.MaxSpendLimit == nil {
		return apperror.Validation(apperror.CodeInvalidStrategy, "missing bound")
	}
	if !finite(s.MinProfitRate) || !finite(s.MaxShareOfMyBalancePerOrder) {
		return apperror.Validation(apperror.CodeInvalidStrategy, "rates must be finite")
	}
	if s.MinProfitRate < 0 || s.MaxShareOfMyBalancePerOrder < 0 {
		return apperror.Validation(apperror.CodeInvalidStrategy, "rates must not be negative")
	}
	if s.MinAmountPerOrder.Cmp(s.MaxAmountPerOrder) > 0 {
		return apperror.Validation(apperror.CodeInvalidStrategy, "min amount per order exceeds max amount per order")
	}
	return nil
}

// DealEvaluation is the outcome of EvaluateDeal. At most one of Profit and
// Loss is non-zero.
type DealEvaluation struct {
	IsProfitable bool
	Profit       *big.Int
	Loss         *big.Int
}

// DealProposal is a DealEvaluation plus the reward that funds it.
type DealProposal struct {
	DealEvaluation
	ProposedMaxReward *big.Int
}

// EvaluateDeal decides whether order is profitable for a holder of balance.
//
// The potential profit is the order reward converted to the destination
// asset minus execution cost and principal. A non-positive profit is a loss.
// A positive profit must fall between the balance-relative baselines, reach
// the per-order minimum, and the amount must respect the per-order bounds.
func EvaluateDeal(balance *big.Int, cost CostResult, strategy Strategy, order Order, pricing PriceResult) DealEvaluation {
	apperror.Required(balance, "balance")
	apperror.Required(cost.CostInAsset, "cost.CostInAsset")
	apperror.Required(order.Amount, "order.Amount")
	apperror.Required(order.MaxReward, "order.MaxReward")
	apperror.Required(pricing.PriceAinB, "pricing.PriceAinB")
	apperror.Required(strategy.MinProfitPerOrder, "strategy.MinProfitPerOrder")
	apperror.Required(strategy.MaxAmountPerOrder, "strategy.MaxAmountPerOrder")
	apperror.Required(strategy.MinAmountPerOrder, "strategy.MinAmountPerOrder")

	reward := new(big.Int).Mul(order.MaxReward, pricing.PriceAinB)
	reward.Quo(reward, One18)

	potentialProfit := new(big.Int).Sub(reward, cost.CostInAsset)
	potentialProfit.Sub(potentialProfit, order.Amount)

	if potentialProfit.Sign() <= 0 {
		return DealEvaluation{
			IsProfitable: false,
			Profit:       new(big.Int),
			Loss:         new(big.Int).Abs(potentialProfit),
		}
	}

	minBaseline, maxBaseline, ok := profitBaselines(balance, strategy.MinProfitRate, strategy.MaxShareOfMyBalancePerOrder)
	if !ok {
		return DealEvaluation{
			IsProfitable: false,
			Profit:       new(big.Int),
			Loss:         potentialProfit,
		}
	}

	profitable := potentialProfit.Cmp(minBaseline) >= 0 &&
		potentialProfit.Cmp(maxBaseline) <= 0 &&
		potentialProfit.Cmp(strategy.MinProfitPerOrder) >= 0 &&
		order.Amount.Cmp(strategy.MaxAmountPerOrder) <= 0 &&
		order.Amount.Cmp(strategy.MinAmountPerOrder) >= 0

	return DealEvaluation{
		IsProfitable: profitable,
		Profit:       potentialProfit,
		Loss:         new(big.Int),
	}
}

// profitBaselines returns floor(minRate% * balance) and
// ceil(maxShare% * balance). ok is false when a rate is not finite.
func profitBaselines(balance *big.Int, minRate, maxShare float64) (minBaseline, maxBaseline *big.Int, ok bool) {
	if !finite(minRate) || !finite(maxShare) {
		return nil, nil, false
	}

	bal := decimal.NewFromBigInt(balance, 0)

	// Shift(-2) divides by 100 exactly.
	minBaseline = bal.Mul(decimal.NewFromFloat(minRate)).Shift(-2).Floor().BigInt()
	maxBaseline = bal.Mul(decimal.NewFromFloat(maxShare)).Shift(-2).Ceil().BigInt()
	return minBaseline, maxBaseline, true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ProposeDealForSetAmount evaluates order and proposes the reward that covers
// profit, cost and principal.
func ProposeDealForSetAmount(balance *big.Int, cost CostResult, strategy Strategy, order Order, pricing PriceResult) DealProposal {
	eval := EvaluateDeal(balance, cost, strategy, order, pricing)

	proposed := new(big.Int).Add(eval.Profit, cost.CostInAsset)
	proposed.Add(proposed, order.Amount)

	return DealProposal{
		DealEvaluation:    eval,
		ProposedMaxReward: proposed,
	}
}
