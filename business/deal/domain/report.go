// Package domain contains the core domain types for the deal context.
package domain

import (
	"time"

	pricingDomain "github.com/fd1az/xchain-pricer/business/pricing/domain"
)

// Verdict summarizes a deal evaluation.
type Verdict string

const (
	// VerdictProfitable means the deal passed every strategy gate.
	VerdictProfitable Verdict = "PROFITABLE"

	// VerdictRejected means the deal has a positive profit that the strategy
	// refuses.
	VerdictRejected Verdict = "REJECTED"

	// VerdictLoss means the reward does not cover cost and principal.
	VerdictLoss Verdict = "LOSS"
)

// String returns a human-readable description of the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictProfitable:
		return "Profitable"
	case VerdictRejected:
		return "Rejected by strategy"
	case VerdictLoss:
		return "Loss"
	default:
		return "Unknown"
	}
}

// VerdictOf classifies an evaluation.
func VerdictOf(ev pricingDomain.DealEvaluation) Verdict {
	switch {
	case ev.IsProfitable:
		return VerdictProfitable
	case ev.Profit != nil && ev.Profit.Sign() > 0:
		return VerdictRejected
	default:
		return VerdictLoss
	}
}

// Report is the outcome of evaluating one order in one monitor round.
type Report struct {
	Round      uint64
	Timestamp  time.Time
	Order      pricingDomain.Order
	Pricing    pricingDomain.PriceResult
	Cost       pricingDomain.CostResult
	Evaluation pricingDomain.DealEvaluation
	Assessment pricingDomain.PublicationAssessment
	Proposal   pricingDomain.DealProposal
}

// Verdict classifies the report's evaluation.
func (r *Report) Verdict() Verdict {
	return VerdictOf(r.Evaluation)
}

// IsProfitable returns true if the order passed every strategy gate.
func (r *Report) IsProfitable() bool {
	return r.Evaluation.IsProfitable
}

// IsPublishable returns true if the publisher can afford the max reward.
func (r *Report) IsPublishable() bool {
	return r.Assessment.IsPublishable
}
