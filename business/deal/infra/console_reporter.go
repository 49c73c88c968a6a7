// Package infra contains infrastructure adapters for the deal context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	blockchainDomain "github.com/fd1az/xchain-pricer/business/blockchain/domain"
	"github.com/fd1az/xchain-pricer/business/deal/domain"
	pricingDomain "github.com/fd1az/xchain-pricer/business/pricing/domain"
	"github.com/fd1az/xchain-pricer/business/pricing/infra/pricecache"
	"github.com/fd1az/xchain-pricer/internal/asset"
)

const rule = "================================================================================"
const thinRule = "--------------------------------------------------------------------------------"

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
	// Verbose also prints loss and rejected reports.
	verbose bool
}

// NewConsoleReporter creates a ConsoleReporter writing to stdout.
func NewConsoleReporter(verbose bool) *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout, verbose)
}

// NewConsoleReporterTo creates a ConsoleReporter writing to w.
func NewConsoleReporterTo(w io.Writer, verbose bool) *ConsoleReporter {
	return &ConsoleReporter{out: w, verbose: verbose}
}

// Start prints the banner.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "Cross-Chain Pricer Started")
	fmt.Fprintln(r.out, "==========================")
	return nil
}

// Report prints a deal report. Loss and rejected reports are only printed in
// verbose mode.
func (r *ConsoleReporter) Report(_ context.Context, rep *domain.Report) {
	if !rep.IsProfitable() && !r.verbose {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f18 := pricingDomain.FormatFixed18
	o := rep.Order

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "DEAL %s: %s\n", o.ID, rep.Verdict().String())
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "Round:          #%d\n", rep.Round)
	fmt.Fprintf(r.out, "Timestamp:      %s\n", rep.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Route:          %s@%s -> %s@%s\n", o.SrcAsset, o.SrcNetwork, o.DstAsset, o.DstNetwork)
	fmt.Fprintln(r.out, thinRule)
	fmt.Fprintln(r.out, "PRICES")
	fmt.Fprintf(r.out, "  %-6s USD:     $%s\n", rep.Pricing.AssetA, f18(rep.Pricing.PriceAInUSD))
	fmt.Fprintf(r.out, "  %-6s USD:     $%s\n", rep.Pricing.AssetB, f18(rep.Pricing.PriceBInUSD))
	fmt.Fprintf(r.out, "  %s in %s:  %s\n", rep.Pricing.AssetA, rep.Pricing.AssetB, f18(rep.Pricing.PriceAinB))
	fmt.Fprintln(r.out, thinRule)
	fmt.Fprintln(r.out, "COST")
	fmt.Fprintf(r.out, "  Gas Limit:      %d\n", rep.Cost.GasLimit)
	fmt.Fprintf(r.out, "  Native:         %s\n", rep.Cost.CostInEth)
	fmt.Fprintf(r.out, "  USD:            $%.4f\n", rep.Cost.CostInUSD)
	fmt.Fprintf(r.out, "  In %-6s       %s\n", o.DstAsset.String()+":", f18(rep.Cost.CostInAsset))
	fmt.Fprintln(r.out, thinRule)
	fmt.Fprintln(r.out, "DEAL")
	fmt.Fprintf(r.out, "  Amount:         %s %s\n", f18(o.Amount), o.DstAsset)
	fmt.Fprintf(r.out, "  Max Reward:     %s %s\n", f18(o.MaxReward), o.SrcAsset)
	fmt.Fprintf(r.out, "  Profit:         %s\n", f18(rep.Evaluation.Profit))
	fmt.Fprintf(r.out, "  Loss:           %s\n", f18(rep.Evaluation.Loss))
	fmt.Fprintf(r.out, "  Proposed:       %s\n", f18(rep.Proposal.ProposedMaxReward))
	fmt.Fprintf(r.out, "  Publishable:    %t (max reward %s)\n", rep.IsPublishable(), f18(rep.Assessment.MaxReward))
	fmt.Fprintln(r.out, rule)
}

// UpdatePrices is a no-op: the console only prints deals.
func (r *ConsoleReporter) UpdatePrices(pricecache.Snapshot) {}

// UpdateGas prints gas prices in verbose mode.
func (r *ConsoleReporter) UpdateGas(prices map[asset.Network]*blockchainDomain.GasPrice) {
	if !r.verbose || len(prices) == 0 {
		return
	}

	nets := make([]asset.Network, 0, len(prices))
	for n := range prices {
		nets = append(nets, n)
	}
	sort.Slice(nets, func(i, j int) bool { return nets[i] < nets[j] })

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] gas:", time.Now().Format("15:04:05"))
	for _, n := range nets {
		fmt.Fprintf(r.out, " %s=%.2f gwei", n, prices[n].Gwei)
	}
	fmt.Fprintln(r.out)
}

// UpdateConnectionStatus outputs connection status changes.
func (r *ConsoleReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	status := "disconnected"
	if connected {
		status = fmt.Sprintf("connected (%s)", latency)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] %s: %s\n", time.Now().Format("15:04:05"), name, status)
}

// Stop prints the footer.
func (r *ConsoleReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Cross-Chain Pricer Stopped")
	return nil
}
