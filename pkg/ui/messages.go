// Package ui provides the Bubble Tea TUI for the cross-chain pricer.
package ui

import (
	"time"

	blockchainDomain "github.com/fd1az/xchain-pricer/business/blockchain/domain"
	dealDomain "github.com/fd1az/xchain-pricer/business/deal/domain"
	"github.com/fd1az/xchain-pricer/business/pricing/infra/pricecache"
	"github.com/fd1az/xchain-pricer/internal/asset"
)

// StepStatus is the progress of one startup step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepConnecting StepStatus = "connecting"
	StepConnected  StepStatus = "connected"
	StepDone       StepStatus = "done"
	StepFailed     StepStatus = "failed"
	StepSkipped    StepStatus = "skipped"
)

// Settled reports whether the step no longer blocks the dashboard.
func (s StepStatus) Settled() bool {
	return s != StepPending && s != StepConnecting
}

// StartupMsg moves a startup step to Status. Message is shown for failed
// steps.
type StartupMsg struct {
	Step    string
	Status  StepStatus
	Message string
}

// DealMsg carries one evaluated order.
type DealMsg struct {
	Report *dealDomain.Report
}

// PriceUpdateMsg carries a copy of the price cache.
type PriceUpdateMsg struct {
	Snapshot pricecache.Snapshot
}

// GasUpdateMsg carries the gas price of every connected network.
type GasUpdateMsg struct {
	Prices map[asset.Network]*blockchainDomain.GasPrice
}

type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

type ErrorMsg struct {
	Error error
}

// LogMsg appends a line to the log pane. Level is "info", "warn" or "error".
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg drives the spinner and the periodic redraw.
type TickMsg struct{}
