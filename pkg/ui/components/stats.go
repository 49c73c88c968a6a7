package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Stats is the running deal monitor summary.
type Stats struct {
	Rounds         uint64
	Evaluated      uint64
	Profitable     uint64
	Publishable    uint64
	ProfitableRate float64
	TotalProfit    string
	Errors         int64
}

type StatsComponent struct {
	stats Stats
}

func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

const statSeparator = "  │  "

func statCell(label, value string, style lipgloss.Style) string {
	return dimStyle.Render(label+": ") + style.Render(value)
}

// View renders two rows: counters, then totals.
func (s *StatsComponent) View() string {
	st := s.stats

	errStyle := valueStyle
	if st.Errors > 0 {
		errStyle = badStyle.Bold(true)
	}

	counters := []string{
		statCell("Rounds", fmt.Sprint(st.Rounds), valueStyle),
		statCell("Evaluated", fmt.Sprint(st.Evaluated), valueStyle),
		statCell("Profitable", fmt.Sprintf("%d (%.1f%%)", st.Profitable, st.ProfitableRate), valueStyle),
		statCell("Publishable", fmt.Sprint(st.Publishable), valueStyle),
	}
	totals := []string{
		statCell("Total profit", st.TotalProfit, valueStyle),
		statCell("Errors", fmt.Sprint(st.Errors), errStyle),
	}

	return dimStyle.Render("STATS") + "\n" +
		strings.Join(counters, statSeparator) + "\n" +
		strings.Join(totals, statSeparator)
}
