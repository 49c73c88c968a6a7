// Package domain contains the pure pricing arithmetic: Fixed18 normalization,
// relative prices, execution cost and deal decisions.
package domain

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/xchain-pricer/internal/apperror"
	"github.com/fd1az/xchain-pricer/internal/asset"
)

// Decimals18 is the number of fractional digits of every Fixed18 value.
const Decimals18 = 18

var (
	// One18 is 1.0 in Fixed18.
	One18 = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals18), nil)

	zeroFraction = strings.Repeat("0", Decimals18)
)

// ParseFixed18 turns a decimal string into an integer scaled by 10^18.
// The fractional part is right-padded with zeros or truncated to 18 digits;
// a string without a dot gets 18 zeros appended. The integer part is never
// truncated.
func ParseFixed18(s string) (*big.Int, error) {
	if s == "" {
		return nil, apperror.Validation(apperror.CodeInvalidPrice, "empty price string")
	}

	sign := ""
	body := s
	if body[0] == '-' || body[0] == '+' {
		if body[0] == '-' {
			sign = "-"
		}
		body = body[1:]
	}

	intPart, fracPart, hasDot := strings.Cut(body, ".")
	if !hasDot {
		fracPart = ""
	}
	if intPart == "" && fracPart == "" {
		return nil, apperror.Validation(apperror.CodeInvalidPrice, s)
	}
	if !isDigits(intPart) || !isDigits(fracPart) {
		return nil, apperror.Validation(apperror.CodeInvalidPrice, s)
	}

	if len(fracPart) > Decimals18 {
		fracPart = fracPart[:Decimals18]
	} else {
		fracPart += zeroFraction[:Decimals18-len(fracPart)]
	}

	v, ok := new(big.Int).SetString(sign+intPart+fracPart, 10)
	if !ok {
		return nil, apperror.Validation(apperror.CodeInvalidPrice, s)
	}
	return v, nil
}

// MustParseFixed18 is like ParseFixed18 but panics on malformed input.
func MustParseFixed18(s string) *big.Int {
	v, err := ParseFixed18(s)
	if err != nil {
		panic(err)
	}
	return v
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatFixed18 renders v with exactly 18 fractional digits.
func FormatFixed18(v *big.Int) string {
	if v == nil {
		return decimal.Zero.StringFixed(Decimals18)
	}
	return decimal.NewFromBigInt(v, -Decimals18).StringFixed(Decimals18)
}

// Fixed18ToFloat converts v to the nearest float64 of v / 10^18.
func Fixed18ToFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := decimal.NewFromBigInt(v, -Decimals18).Float64()
	return f
}

// FloatToFixed18 renders f as its shortest round-trip decimal and parses
// that string. Non-finite values are rejected.
func FloatToFixed18(f float64) (*big.Int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, apperror.Validation(apperror.CodeInvalidPrice, strconv.FormatFloat(f, 'g', -1, 64))
	}
	return ParseFixed18(strconv.FormatFloat(f, 'f', -1, 64))
}

// PriceAinB returns how many B one A is worth, in Fixed18. A zero priceB
// yields zero.
//
// The ratio is computed as a truncated integer division, converted to
// float64 and parsed back. The float step drops digits past float64
// precision and existing consumers depend on those exact digits.
func PriceAinB(priceA, priceB *big.Int) *big.Int {
	apperror.Required(priceA, "priceA")
	apperror.Required(priceB, "priceB")

	if priceB.Sign() == 0 {
		return new(big.Int)
	}

	ratio := new(big.Int).Mul(priceA, One18)
	ratio.Quo(ratio, priceB)

	v, err := FloatToFixed18(Fixed18ToFloat(ratio))
	if err != nil {
		return ratio
	}
	return v
}

// PriceResult is a snapshot of two USD prices and their ratio. It holds no
// reference back to the cache.
type PriceResult struct {
	AssetA      asset.Asset
	AssetB      asset.Asset
	PriceAinB   *big.Int
	PriceAInUSD *big.Int
	PriceBInUSD *big.Int
}

// NewPriceResult computes PriceAinB from two USD prices.
func NewPriceResult(assetA, assetB asset.Asset, priceAInUSD, priceBInUSD *big.Int) PriceResult {
	return PriceResult{
		AssetA:      assetA,
		AssetB:      assetB,
		PriceAinB:   PriceAinB(priceAInUSD, priceBInUSD),
		PriceAInUSD: new(big.Int).Set(priceAInUSD),
		PriceBInUSD: new(big.Int).Set(priceBInUSD),
	}
}
