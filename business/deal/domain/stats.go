package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/xchain-pricer/business/pricing/domain"
)

// Stats accumulates monitor outcomes across rounds.
type Stats struct {
	Rounds      uint64
	Evaluated   uint64
	Profitable  uint64
	Publishable uint64
	Failed      uint64
	// TotalProfit sums the Fixed18 profit of profitable reports.
	TotalProfit *big.Int
	LastRound   time.Time
}

// NewStats returns empty stats.
func NewStats() Stats {
	return Stats{TotalProfit: new(big.Int)}
}

// Record adds one report.
func (s *Stats) Record(r *Report) {
	s.Evaluated++
	if r.IsPublishable() {
		s.Publishable++
	}
	if r.IsProfitable() {
		s.Profitable++
		s.TotalProfit.Add(s.TotalProfit, r.Evaluation.Profit)
	}
}

// ProfitableRate returns the share of evaluated orders that were profitable,
// as a percentage.
func (s Stats) ProfitableRate() decimal.Decimal {
	if s.Evaluated == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(s.Profitable)).
		Div(decimal.NewFromInt(int64(s.Evaluated))).
		Mul(decimal.NewFromInt(100))
}

// TotalProfitString formats TotalProfit as a decimal.
func (s Stats) TotalProfitString() string {
	return pricingDomain.FormatFixed18(s.TotalProfit)
}

// Clone returns a copy that shares no state with s.
func (s Stats) Clone() Stats {
	c := s
	c.TotalProfit = new(big.Int).Set(s.TotalProfit)
	return c
}
