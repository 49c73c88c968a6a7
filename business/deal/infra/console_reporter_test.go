package infra

import (
	"bytes"
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	blockchainDomain "github.com/fd1az/xchain-pricer/business/blockchain/domain"
	"github.com/fd1az/xchain-pricer/business/deal/domain"
	pricingDomain "github.com/fd1az/xchain-pricer/business/pricing/domain"
	"github.com/fd1az/xchain-pricer/internal/asset"
)

func testReport(profitable bool) *domain.Report {
	f := pricingDomain.MustParseFixed18
	profit, loss := f("97.4"), new(big.Int)
	if !profitable {
		profit, loss = new(big.Int), f("2.6")
	}
	cost := pricingDomain.ZeroCost(asset.USDC)
	cost.GasLimit = pricingDomain.ERC20TransferGasLimit
	cost.CostInEth = "0.0013"
	cost.CostInUSD = 2.6
	cost.CostInAsset = f("2.6")

	return &domain.Report{
		Round:     7,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Order: pricingDomain.Order{
			ID:         "eth-usdc",
			SrcNetwork: asset.Ethereum,
			DstNetwork: asset.Arbitrum,
			SrcAsset:   asset.ETH,
			DstAsset:   asset.USDC,
			Amount:     f("1900"),
			MaxReward:  f("1"),
		},
		Pricing:    pricingDomain.NewPriceResult(asset.ETH, asset.USDC, f("2000"), f("1")),
		Cost:       cost,
		Evaluation: pricingDomain.DealEvaluation{IsProfitable: profitable, Profit: profit, Loss: loss},
		Assessment: pricingDomain.PublicationAssessment{IsPublishable: true, MaxReward: f("2002.86")},
		Proposal: pricingDomain.DealProposal{
			DealEvaluation:    pricingDomain.DealEvaluation{IsProfitable: profitable, Profit: profit, Loss: loss},
			ProposedMaxReward: f("2000"),
		},
	}
}

func TestConsoleReporter_Report(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporterTo(&buf, false)

	r.Report(context.Background(), testReport(true))
	out := buf.String()

	for _, want := range []string{
		"DEAL eth-usdc: Profitable",
		"Round:          #7",
		"Route:          ETH@ethereum -> USDC@arbitrum",
		"ETH in USDC:  2000.000000000000000000",
		"Gas Limit:      65000",
		"Profit:         97.400000000000000000",
		"Publishable:    true (max reward 2002.860000000000000000)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestConsoleReporter_QuietSkipsLosses(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleReporterTo(&buf, false).Report(context.Background(), testReport(false))
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}

	buf.Reset()
	NewConsoleReporterTo(&buf, true).Report(context.Background(), testReport(false))
	if !strings.Contains(buf.String(), "DEAL eth-usdc: Loss") {
		t.Errorf("verbose output missing loss report:\n%s", buf.String())
	}
}

func TestConsoleReporter_Gas(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporterTo(&buf, true)
	now := time.Now()

	r.UpdateGas(map[asset.Network]*blockchainDomain.GasPrice{
		asset.Base:     blockchainDomain.NewGasPrice(asset.Base, big.NewInt(50_000_000), now),
		asset.Ethereum: blockchainDomain.NewGasPrice(asset.Ethereum, big.NewInt(20_000_000_000), now),
	})

	out := buf.String()
	if !strings.Contains(out, "ethereum=20.00 gwei base=0.05 gwei") {
		t.Errorf("unexpected gas line %q", out)
	}
}

func TestConsoleReporter_Lifecycle(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporterTo(&buf, false)

	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	r.UpdateConnectionStatus("price-feed", false, 0)
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"Cross-Chain Pricer Started", "price-feed: disconnected", "Cross-Chain Pricer Stopped"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
