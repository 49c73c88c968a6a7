package domain

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/xchain-pricer/internal/apperror"
)

// OverpayOption selects how much above the estimated cost a publisher pays.
type OverpayOption uint8

const (
	OverpayUnknown OverpayOption = iota
	OverpaySlow
	OverpayRegular
	OverpayFast
	OverpayCustom
)

func (o OverpayOption) String() string {
	switch o {
	case OverpaySlow:
		return "slow"
	case OverpayRegular:
		return "regular"
	case OverpayFast:
		return "fast"
	case OverpayCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Ratio returns the cost multiplier. custom is used for OverpayCustom; zero
// or a non-finite value means 1.0.
func (o OverpayOption) Ratio(custom float64) float64 {
	switch o {
	case OverpaySlow:
		return 1.05
	case OverpayRegular:
		return 1.10
	case OverpayFast:
		return 1.20
	case OverpayCustom:
		return orOne(custom)
	default:
		return 1.0
	}
}

// ParseOverpayOption resolves a config value.
func ParseOverpayOption(s string) (OverpayOption, error) {
	switch strings.ToLower(s) {
	case "slow":
		return OverpaySlow, nil
	case "regular", "":
		return OverpayRegular, nil
	case "fast":
		return OverpayFast, nil
	case "custom":
		return OverpayCustom, nil
	default:
		return OverpayUnknown, apperror.Validation(apperror.CodeInvalidInput, "overpay option "+s)
	}
}

// SlippageOption selects how much price movement a publisher tolerates.
type SlippageOption uint8

const (
	SlippageUnknown SlippageOption = iota
	SlippageZero
	SlippageRegular
	SlippageHigh
	SlippageCustom
)

func (s SlippageOption) String() string {
	switch s {
	case SlippageZero:
		return "zero"
	case SlippageRegular:
		return "regular"
	case SlippageHigh:
		return "high"
	case SlippageCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Ratio returns the price multiplier. custom is used for SlippageCustom;
// zero or a non-finite value means 1.0.
func (s SlippageOption) Ratio(custom float64) float64 {
	switch s {
	case SlippageZero:
		return 1.0
	case SlippageRegular:
		return 1.02
	case SlippageHigh:
		return 1.05
	case SlippageCustom:
		return orOne(custom)
	default:
		return 1.0
	}
}

// ParseSlippageOption resolves a config value.
func ParseSlippageOption(s string) (SlippageOption, error) {
	switch strings.ToLower(s) {
	case "zero":
		return SlippageZero, nil
	case "regular", "":
		return SlippageRegular, nil
	case "high":
		return SlippageHigh, nil
	case "custom":
		return SlippageCustom, nil
	default:
		return SlippageUnknown, apperror.Validation(apperror.CodeInvalidInput, "slippage option "+s)
	}
}

func orOne(f float64) float64 {
	if f == 0 || !finite(f) {
		return 1.0
	}
	return f
}

// ratioFraction turns r into num/den with den a power of ten, counting the
// decimal places of r's shortest representation. 1.05 becomes 105/100.
func ratioFraction(r float64) (num, den *big.Int) {
	d := decimal.NewFromFloat(r)
	num = new(big.Int).Set(d.Coefficient())
	den = big.NewInt(1)

	exp := d.Exponent()
	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(absInt32(exp))), nil)
	if exp < 0 {
		den = pow
	} else {
		num.Mul(num, pow)
	}
	return num, den
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// PublicationAssessment is the outcome of AssessDealForPublication.
type PublicationAssessment struct {
	IsPublishable bool
	MaxReward     *big.Int
}

// AssessDealForPublication computes the reward a publisher would offer and
// whether they can afford it.
//
// maxReward = cost * overpay + priceAinB * slippage. When the balance cannot
// cover it the deal is not publishable and maxReward is still reported. When
// it exceeds the strategy's spend limit the deal is not publishable and
// maxReward is zero.
//
// customOverpay and customSlippage take precedence over the strategy's custom
// ratios and apply only to the custom options.
func AssessDealForPublication(
	userBalance *big.Int,
	cost CostResult,
	strategy Strategy,
	pricing PriceResult,
	overpay OverpayOption,
	slippage SlippageOption,
	customOverpay, customSlippage *float64,
) PublicationAssessment {
	apperror.Required(userBalance, "userBalance")
	apperror.Required(cost.CostInAsset, "cost.CostInAsset")
	apperror.Required(pricing.PriceAinB, "pricing.PriceAinB")
	apperror.Required(strategy.MaxSpendLimit, "strategy.MaxSpendLimit")

	overpayCustom := strategy.CustomOverpayRatio
	if customOverpay != nil {
		overpayCustom = *customOverpay
	}
	slippageCustom := strategy.CustomSlippage
	if customSlippage != nil {
		slippageCustom = *customSlippage
	}

	oNum, oDen := ratioFraction(overpay.Ratio(overpayCustom))
	sNum, sDen := ratioFraction(slippage.Ratio(slippageCustom))

	adjustedCost := new(big.Int).Mul(cost.CostInAsset, oNum)
	adjustedCost.Quo(adjustedCost, oDen)

	adjustedPrice := new(big.Int).Mul(pricing.PriceAinB, sNum)
	adjustedPrice.Quo(adjustedPrice, sDen)

	maxReward := adjustedCost.Add(adjustedCost, adjustedPrice)

	if userBalance.Cmp(maxReward) < 0 {
		return PublicationAssessment{IsPublishable: false, MaxReward: maxReward}
	}
	if maxReward.Cmp(strategy.MaxSpendLimit) > 0 {
		return PublicationAssessment{IsPublishable: false, MaxReward: new(big.Int)}
	}
	return PublicationAssessment{IsPublishable: true, MaxReward: maxReward}
}
