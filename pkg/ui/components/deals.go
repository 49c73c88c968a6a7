package components

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DealRow represents a deal evaluation in the list.
type DealRow struct {
	Timestamp   string
	Round       uint64
	OrderID     string
	Route       string
	Profit      decimal.Decimal
	Loss        decimal.Decimal
	MaxReward   decimal.Decimal
	Verdict     string
	Profitable  bool
	Publishable bool
}

// DealsComponent renders the most recent deal evaluations, newest first.
type DealsComponent struct {
	rows    []DealRow
	maxRows int
	visible int
	offset  int
}

// NewDealsComponent keeps at most maxRows rows and shows visible of them.
func NewDealsComponent(maxRows, visible int) *DealsComponent {
	return &DealsComponent{
		rows:    make([]DealRow, 0),
		maxRows: maxRows,
		visible: visible,
	}
}

// Add adds a new deal to the top of the list.
func (d *DealsComponent) Add(row DealRow) {
	d.rows = append([]DealRow{row}, d.rows...)
	if len(d.rows) > d.maxRows {
		d.rows = d.rows[:d.maxRows]
	}
	if d.offset > 0 {
		d.offset = min(d.offset+1, d.maxOffset())
	}
}

// Clear clears all deals.
func (d *DealsComponent) Clear() {
	d.rows = make([]DealRow, 0)
	d.offset = 0
}

// Len returns the number of stored rows.
func (d *DealsComponent) Len() int {
	return len(d.rows)
}

// Offset returns the index of the first visible row.
func (d *DealsComponent) Offset() int {
	return d.offset
}

// ScrollUp moves the window towards newer rows.
func (d *DealsComponent) ScrollUp() {
	if d.offset > 0 {
		d.offset--
	}
}

// ScrollDown moves the window towards older rows.
func (d *DealsComponent) ScrollDown() {
	if d.offset < d.maxOffset() {
		d.offset++
	}
}

func (d *DealsComponent) maxOffset() int {
	return max(len(d.rows)-d.visible, 0)
}

// View renders the deals component.
func (d *DealsComponent) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("DEALS (%d)", len(d.rows))))
	b.WriteString("\n\n")

	if len(d.rows) == 0 {
		b.WriteString(dimStyle.Render("  No deals evaluated yet..."))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %-8s %5s  %-12s %-26s %14s %14s %4s  %s\n",
		"Time", "Round", "Order", "Route", "Profit/Loss", "Max Reward", "Pub", "Verdict"))
	b.WriteString(dimStyle.Render("  "+strings.Repeat("─", 100)) + "\n")

	end := min(d.offset+d.visible, len(d.rows))
	for _, row := range d.rows[d.offset:end] {
		style := badStyle
		pl := "-" + row.Loss.StringFixed(4)
		switch {
		case row.Profitable:
			style = goodStyle
			pl = "+" + row.Profit.StringFixed(4)
		case row.Profit.IsPositive():
			style = warnStyle
			pl = "+" + row.Profit.StringFixed(4)
		}

		pub := "no"
		if row.Publishable {
			pub = "yes"
		}

		b.WriteString(fmt.Sprintf("  %-8s %5d  %-12s %-26s %s %14s %4s  %s\n",
			row.Timestamp,
			row.Round,
			truncate(row.OrderID, 12),
			truncate(row.Route, 26),
			style.Render(fmt.Sprintf("%14s", pl)),
			row.MaxReward.StringFixed(4),
			pub,
			style.Render(row.Verdict),
		))
	}

	if len(d.rows) > d.visible {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  showing %d-%d of %d", d.offset+1, end, len(d.rows))))
	}

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
