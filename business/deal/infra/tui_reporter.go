package infra

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	blockchainDomain "github.com/fd1az/xchain-pricer/business/blockchain/domain"
	"github.com/fd1az/xchain-pricer/business/deal/domain"
	"github.com/fd1az/xchain-pricer/business/pricing/infra/pricecache"
	"github.com/fd1az/xchain-pricer/internal/asset"
	"github.com/fd1az/xchain-pricer/pkg/ui"
)

// TUIReporter implements Reporter for the Bubble Tea TUI.
type TUIReporter struct {
	send func(tea.Msg)
}

// NewTUIReporter creates a TUIReporter that sends to the running program.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{send: ui.Send}
}

// NewTUIReporterWith creates a TUIReporter with a custom sender.
func NewTUIReporterWith(send func(tea.Msg)) *TUIReporter {
	return &TUIReporter{send: send}
}

// Start marks the deal monitor step as done.
func (r *TUIReporter) Start(ctx context.Context) error {
	r.send(ui.StartupMsg{Step: "deals", Status: ui.StepDone})
	return nil
}

// Report sends a deal report to the TUI. A profitable order the publisher
// cannot fund is also logged.
func (r *TUIReporter) Report(_ context.Context, rep *domain.Report) {
	r.send(ui.DealMsg{Report: rep})
	if rep.IsProfitable() && !rep.IsPublishable() {
		r.send(ui.LogMsg{
			Level:   "warn",
			Message: fmt.Sprintf("order %s is profitable but balance cannot cover the max reward", rep.Order.ID),
		})
	}
}

// UpdatePrices sends the cache snapshot to the TUI.
func (r *TUIReporter) UpdatePrices(snap pricecache.Snapshot) {
	r.send(ui.PriceUpdateMsg{Snapshot: snap})
}

// UpdateGas sends gas prices to the TUI.
func (r *TUIReporter) UpdateGas(prices map[asset.Network]*blockchainDomain.GasPrice) {
	r.send(ui.GasUpdateMsg{Prices: prices})
}

// UpdateConnectionStatus sends connection status to the TUI.
func (r *TUIReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.send(ui.ConnectionStatusMsg{Name: name, Connected: connected, Latency: latency})
}

// Stop is a no-op: the program is owned by main.
func (r *TUIReporter) Stop() error {
	return nil
}
