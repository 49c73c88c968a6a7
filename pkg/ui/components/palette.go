package components

import "github.com/charmbracelet/lipgloss"

// Component palette. It mirrors the colors in package ui, which imports this
// package and so cannot be imported back.
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	goodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)
