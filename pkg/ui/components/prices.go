// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// SingleColumn is the network label used when prices are not per network.
const SingleColumn = "all"

// PriceCell is one cached USD price.
type PriceCell struct {
	Asset   string
	Network string
	Price   string
}

// PricesComponent renders the cached prices as an asset by network grid.
type PricesComponent struct {
	multichain bool
	assets     []string
	networks   []string
	grid       map[string]map[string]string
}

// NewPricesComponent creates a new prices component.
func NewPricesComponent() *PricesComponent {
	return &PricesComponent{grid: make(map[string]map[string]string)}
}

// Update replaces the grid. Cells are sorted by asset and network name.
func (p *PricesComponent) Update(multichain bool, cells []PriceCell) {
	p.multichain = multichain
	p.grid = make(map[string]map[string]string)

	assets := make(map[string]bool)
	networks := make(map[string]bool)
	for _, c := range cells {
		network := c.Network
		if !multichain {
			network = SingleColumn
		}
		if p.grid[c.Asset] == nil {
			p.grid[c.Asset] = make(map[string]string)
		}
		p.grid[c.Asset][network] = c.Price
		assets[c.Asset] = true
		networks[network] = true
	}

	p.assets = sortedKeys(assets)
	p.networks = sortedKeys(networks)
}

// Price returns the cell for asset on network.
func (p *PricesComponent) Price(asset, network string) (string, bool) {
	if !p.multichain {
		network = SingleColumn
	}
	v, ok := p.grid[asset][network]
	return v, ok
}

// Len returns the number of cells.
func (p *PricesComponent) Len() int {
	n := 0
	for _, row := range p.grid {
		n += len(row)
	}
	return n
}

// View renders the prices component.
func (p *PricesComponent) View() string {
	mode := "single network"
	if p.multichain {
		mode = "multichain"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("PRICES USD (%s)", mode)))
	b.WriteString("\n\n")

	if len(p.assets) == 0 {
		b.WriteString(dimStyle.Render("  Waiting for price data..."))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %-6s", "Asset"))
	for _, n := range p.networks {
		b.WriteString(fmt.Sprintf("  %12s", n))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  "+strings.Repeat("─", 6+14*len(p.networks))) + "\n")

	for _, a := range p.assets {
		b.WriteString(fmt.Sprintf("  %-6s", a))
		for _, n := range p.networks {
			v, ok := p.grid[a][n]
			if !ok {
				b.WriteString(dimStyle.Render(fmt.Sprintf("  %12s", "-")))
				continue
			}
			b.WriteString(fmt.Sprintf("  %12s", FormatPrice(v)))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// FormatPrice renders a decimal price string with a precision that keeps
// small prices readable. Unparseable input is returned unchanged.
func FormatPrice(s string) string {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	if d.Abs().LessThan(decimal.NewFromInt(1)) {
		return d.StringFixed(6)
	}
	return d.StringFixed(2)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
