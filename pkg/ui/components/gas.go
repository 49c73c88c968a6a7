package components

import (
	"fmt"
	"strings"
	"time"
)

// GasRow is the gas price of one network.
type GasRow struct {
	Network string
	Gwei    float64
	Clamped bool
	Age     time.Duration
}

// GasComponent renders gas prices per network.
type GasComponent struct {
	rows []GasRow
}

// NewGasComponent creates a new gas component.
func NewGasComponent() *GasComponent {
	return &GasComponent{}
}

// Update replaces the rows. Rows are shown in the given order.
func (g *GasComponent) Update(rows []GasRow) {
	g.rows = rows
}

// Rows returns the current rows.
func (g *GasComponent) Rows() []GasRow {
	return g.rows
}

// View renders the gas component.
func (g *GasComponent) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("GAS"))
	b.WriteString("\n\n")

	if len(g.rows) == 0 {
		b.WriteString(dimStyle.Render("  No gas oracle data..."))
		return b.String()
	}

	for _, r := range g.rows {
		line := fmt.Sprintf("  %-10s %10.3f gwei", r.Network, r.Gwei)
		if r.Clamped {
			line += warnStyle.Render(" (capped)")
		}
		line += dimStyle.Render(fmt.Sprintf("  %s ago", r.Age.Round(time.Second)))
		b.WriteString(line + "\n")
	}
	return b.String()
}
