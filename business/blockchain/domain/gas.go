// Package domain contains the core domain types for the blockchain context.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/params"
	"github.com/shopspring/decimal"

	"github.com/fd1az/xchain-pricer/internal/asset"
)

// GasPrice is a suggested legacy gas price on one network.
type GasPrice struct {
	Network   asset.Network
	Wei       *big.Int
	Gwei      float64
	Clamped   bool
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(n asset.Network, wei *big.Int, at time.Time) *GasPrice {
	gwei, _ := decimal.NewFromBigInt(wei, 0).
		Div(decimal.NewFromInt(params.GWei)).
		Float64()

	return &GasPrice{
		Network:   n,
		Wei:       new(big.Int).Set(wei),
		Gwei:      gwei,
		Timestamp: at,
	}
}

// Clamp caps the price at max. A nil or non-positive max is ignored.
func (g *GasPrice) Clamp(max *big.Int) *GasPrice {
	if max == nil || max.Sign() <= 0 || g.Wei.Cmp(max) <= 0 {
		return g
	}
	clamped := NewGasPrice(g.Network, max, g.Timestamp)
	clamped.Clamped = true
	return clamped
}

// Age returns how long ago the price was observed.
func (g *GasPrice) Age(now time.Time) time.Duration {
	return now.Sub(g.Timestamp)
}

// GweiToWei converts a gwei amount to wei.
func GweiToWei(gwei float64) *big.Int {
	return decimal.NewFromFloat(gwei).Mul(decimal.NewFromInt(params.GWei)).BigInt()
}
