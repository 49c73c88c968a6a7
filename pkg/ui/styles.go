// Package ui provides the Bubble Tea TUI for the cross-chain pricer.
package ui

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Palette. Profit and loss share their hues with the deals table.
var (
	ColorPrimary  = lipgloss.Color("#7C3AED")
	ColorProfit   = lipgloss.Color("#10B981")
	ColorLoss     = lipgloss.Color("#EF4444")
	ColorRejected = lipgloss.Color("#F59E0B")
	ColorMuted    = lipgloss.Color("#6B7280")
	ColorFaint    = lipgloss.Color("#9CA3AF")
	ColorBorder   = lipgloss.Color("#374151")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(ColorPrimary).
			Padding(0, 2)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	HelpStyle  = lipgloss.NewStyle().Foreground(ColorMuted).Padding(0, 1)
	MutedValue = lipgloss.NewStyle().Foreground(ColorMuted)

	logoStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	bannerStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).MarginBottom(1)
	stepsHeader  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	pausedStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorRejected)
	errorHeader  = lipgloss.NewStyle().Bold(true).Foreground(ColorLoss)
	errorLine    = lipgloss.NewStyle().Foreground(ColorLoss)
	errorAge     = lipgloss.NewStyle().Foreground(ColorFaint)
	initializing = lipgloss.NewStyle().Foreground(ColorProfit)
)

var spinnerFrames = []string{"◐", "◓", "◑", "◒"}

// stepAppearance returns the glyph, label and style for a startup step.
// elapsed drives the spinner of steps still connecting.
func stepAppearance(status StepStatus, elapsed time.Duration) (string, string, lipgloss.Style) {
	switch status {
	case StepConnected, StepDone:
		return "✓", "Ready", lipgloss.NewStyle().Foreground(ColorProfit)
	case StepConnecting:
		frame := spinnerFrames[int(elapsed.Milliseconds()/200)%len(spinnerFrames)]
		return frame, "Connecting...", lipgloss.NewStyle().Foreground(ColorRejected)
	case StepFailed:
		return "✗", "Failed", errorLine
	case StepSkipped:
		return "-", "Not configured", MutedValue
	default:
		return "○", "Pending", MutedValue
	}
}
