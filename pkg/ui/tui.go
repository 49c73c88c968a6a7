package ui

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	dealDomain "github.com/fd1az/xchain-pricer/business/deal/domain"
	pricingDomain "github.com/fd1az/xchain-pricer/business/pricing/domain"
	"github.com/fd1az/xchain-pricer/internal/asset"
	"github.com/fd1az/xchain-pricer/pkg/ui/components"
)

// StartupStep is one line of the startup checklist.
type StartupStep struct {
	Name   string
	Status StepStatus
}

// Phase is the screen being shown. The model moves welcome -> startup ->
// dashboard and never back.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseStartup   Phase = "startup"
	PhaseDashboard Phase = "dashboard"
)

// WelcomeDuration is how long the logo shows unless a key is pressed.
const WelcomeDuration = 2 * time.Second

type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// startupOrder lists the startup steps in display order.
var startupOrder = []string{"config", "pricing", "gas-oracle", "price-feed", "deals"}

// Model is the Bubble Tea model of the pricer dashboard.
type Model struct {
	prices      *components.PricesComponent
	gas         *components.GasComponent
	deals       *components.DealsComponent
	stats       *components.StatsComponent
	connections *components.StatusComponent
	keys        KeyMap

	phase        Phase
	welcomeStart time.Time

	ready      bool
	quitting   bool
	paused     bool
	width      int
	height     int
	lastUpdate time.Time
	errors     []ErrorEntry
	logs       []string
	dealStats  dealDomain.Stats
	errorCount int64

	startupSteps map[string]*StartupStep
	startupTime  time.Time
	onStart      func()
}

// Option configures New.
type Option func(*Model)

// WithOnStart sets the callback run, in its own goroutine, when the welcome
// screen hands over to startup.
func WithOnStart(fn func()) Option {
	return func(m *Model) { m.onStart = fn }
}

// New creates the dashboard model in the welcome phase.
func New(opts ...Option) Model {
	now := time.Now()
	m := Model{
		prices:       components.NewPricesComponent(),
		gas:          components.NewGasComponent(),
		deals:        components.NewDealsComponent(50, 10),
		stats:        components.NewStatsComponent(),
		connections:  components.NewStatusComponent(),
		keys:         DefaultKeyMap(),
		phase:        PhaseWelcome,
		welcomeStart: now,
		logs:         make([]string, 0, maxLogs),
		errors:       make([]ErrorEntry, 0, maxErrors),
		dealStats:    dealDomain.NewStats(),
		startupSteps: map[string]*StartupStep{
			"config":     {Name: "Loading configuration", Status: StepPending},
			"pricing":    {Name: "Starting price cache", Status: StepPending},
			"gas-oracle": {Name: "Connecting gas oracles", Status: StepPending},
			"price-feed": {Name: "Connecting price feed", Status: StepPending},
			"deals":      {Name: "Starting deal monitor", Status: StepPending},
		},
		startupTime: now,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Phase returns the current phase.
func (m Model) Phase() Phase {
	return m.phase
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd drives the spinner at 10 frames a second.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m *Model) enterStartup() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	if m.onStart != nil {
		go m.onStart()
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		// Any other key skips the welcome screen.
		if m.phase == PhaseWelcome {
			m.enterStartup()
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.deals.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Up):
			m.deals.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.deals.ScrollDown()
		case key.Matches(msg, m.keys.ClearErrors):
			m.errors = nil
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.enterStartup()
		}
		return m, tickCmd()

	case DealMsg:
		if msg.Report == nil || m.paused {
			return m, nil
		}
		r := msg.Report
		m.deals.Add(dealRow(r))

		if r.Round > m.dealStats.Rounds {
			m.dealStats.Rounds = r.Round
		}
		m.dealStats.Record(r)
		m.refreshStats()
		m.markReady("deals")
		m.lastUpdate = time.Now()

	case PriceUpdateMsg:
		s := msg.Snapshot
		cells := make([]components.PriceCell, 0, s.Len())
		if s.Multichain {
			for a, inner := range s.Multi {
				for n, price := range inner {
					cells = append(cells, components.PriceCell{Asset: a.String(), Network: n.String(), Price: price})
				}
			}
		} else {
			for a, price := range s.Single {
				cells = append(cells, components.PriceCell{Asset: a.String(), Price: price})
			}
		}
		m.prices.Update(s.Multichain, cells)
		m.markReady("pricing")
		m.lastUpdate = time.Now()

	case GasUpdateMsg:
		nets := make([]asset.Network, 0, len(msg.Prices))
		for n := range msg.Prices {
			nets = append(nets, n)
		}
		sort.Slice(nets, func(i, j int) bool { return nets[i] < nets[j] })

		now := time.Now()
		rows := make([]components.GasRow, 0, len(nets))
		for _, n := range nets {
			g := msg.Prices[n]
			rows = append(rows, components.GasRow{
				Network: n.String(),
				Gwei:    g.Gwei,
				Clamped: g.Clamped,
				Age:     g.Age(now),
			})
		}
		m.gas.Update(rows)
		m.lastUpdate = now

	case ConnectionStatusMsg:
		m.connections.Update(components.ConnectionStatus{
			Name:       msg.Name,
			Connected:  msg.Connected,
			Latency:    msg.Latency,
			LastUpdate: time.Now(),
		})
		m.lastUpdate = time.Now()

		if step, ok := m.startupSteps[strings.ToLower(msg.Name)]; ok {
			if msg.Connected {
				step.Status = StepConnected
			} else if step.Status == StepPending {
				step.Status = StepConnecting
			}
		}
		m.markReady("config")

	case ErrorMsg:
		m.logs = addLog(m.logs, "error", msg.Error.Error())
		m.errors = keepLast(m.errors, ErrorEntry{Message: msg.Error.Error(), Timestamp: time.Now()}, maxErrors)
		m.errorCount++
		m.refreshStats()

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
		if msg.Status == StepFailed && msg.Message != "" {
			m.logs = addLog(m.logs, "error", msg.Step+": "+msg.Message)
		}
	}

	if m.phase == PhaseStartup && m.startupComplete() {
		m.phase = PhaseDashboard
	}

	return m, nil
}

func (m *Model) markReady(step string) {
	if s, ok := m.startupSteps[step]; ok && s.Status != StepConnected {
		s.Status = StepDone
	}
}

// startupComplete reports whether no step is still pending or connecting.
// The first deal report also completes startup.
func (m Model) startupComplete() bool {
	if m.deals.Len() > 0 {
		return true
	}
	for _, step := range m.startupSteps {
		if !step.Status.Settled() {
			return false
		}
	}
	return true
}

func (m *Model) refreshStats() {
	m.stats.Update(components.Stats{
		Rounds:         m.dealStats.Rounds,
		Evaluated:      m.dealStats.Evaluated,
		Profitable:     m.dealStats.Profitable,
		Publishable:    m.dealStats.Publishable,
		ProfitableRate: m.dealStats.ProfitableRate().InexactFloat64(),
		TotalProfit:    components.FormatPrice(m.dealStats.TotalProfitString()),
		Errors:         m.errorCount,
	})
}

func toDecimal(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -pricingDomain.Decimals18)
}

func dealRow(r *dealDomain.Report) components.DealRow {
	o := r.Order
	return components.DealRow{
		Timestamp:   r.Timestamp.Format("15:04:05"),
		Round:       r.Round,
		OrderID:     o.ID,
		Route:       fmt.Sprintf("%s@%s→%s@%s", o.SrcAsset, o.SrcNetwork, o.DstAsset, o.DstNetwork),
		Profit:      toDecimal(r.Evaluation.Profit),
		Loss:        toDecimal(r.Evaluation.Loss),
		MaxReward:   toDecimal(r.Assessment.MaxReward),
		Verdict:     string(r.Verdict()),
		Profitable:  r.IsProfitable(),
		Publishable: r.IsPublishable(),
	}
}

const (
	maxLogs   = 5
	maxErrors = 3
)

// keepLast appends v and drops the oldest entries beyond n.
func keepLast[T any](s []T, v T, n int) []T {
	s = append(s, v)
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}

func addLog(logs []string, level, message string) []string {
	line := fmt.Sprintf("[%s] %s: %s", time.Now().Format("15:04:05"), level, message)
	return keepLast(logs, line, maxLogs)
}

func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		return m.renderStartupScreen()
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" Cross-Chain Pricer "))
	b.WriteString("\n\n")

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	// Prices on the left, gas and stats on the right, deals below
	leftCol := m.prices.View()
	rightCol := m.gas.View() + "\n\n" + m.stats.View()

	if m.width > 100 {
		left := BoxStyle.Width(m.width/2 - 2).Render(leftCol)
		right := BoxStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		b.WriteString(BoxStyle.Width(max(m.width-4, 40)).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(max(m.width-4, 40)).Render(rightCol))
	}
	b.WriteString("\n")
	b.WriteString(BoxStyle.Width(max(m.width-4, 40)).Render(m.deals.View()))
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString(errorAge.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(errorLine.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(errorAge.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(pausedStyle.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.keys.HelpLine()))

	return b.String()
}

func (m Model) renderWelcomeScreen() string {
	dots := strings.Repeat(".", int(time.Since(m.welcomeStart)/(300*time.Millisecond))%4)

	var sb strings.Builder
	sb.WriteString(strings.Repeat("\n", 4))

	logo := `
   ██╗  ██╗ ██████╗██╗  ██╗ █████╗ ██╗███╗   ██╗
   ╚██╗██╔╝██╔════╝██║  ██║██╔══██╗██║████╗  ██║
    ╚███╔╝ ██║     ███████║███████║██║██╔██╗ ██║
    ██╔██╗ ██║     ██╔══██║██╔══██║██║██║╚██╗██║
   ██╔╝ ██╗╚██████╗██║  ██║██║  ██║██║██║ ╚████║
   ╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝╚═╝  ╚═══╝
`
	sb.WriteString(logoStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(MutedValue.Render("            C R O S S - C H A I N   P R I C E R"))
	sb.WriteString("\n\n\n")
	sb.WriteString(initializing.Render(fmt.Sprintf("                  Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("            Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

// renderStartupScreen lists the startup steps and any failure logs.
func (m Model) renderStartupScreen() string {
	var sb strings.Builder

	sb.WriteString("\n\n")
	sb.WriteString(bannerStyle.Render("  Cross-Chain Pricer"))
	sb.WriteString("\n\n")
	sb.WriteString(stepsHeader.Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, k := range startupOrder {
		step, ok := m.startupSteps[k]
		if !ok {
			continue
		}

		icon, statusText, style := stepAppearance(step.Status, time.Since(m.startupTime))

		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			style.Render(icon),
			MutedValue.Render(step.Name),
			style.Render(statusText),
		))
	}

	sb.WriteString("\n")
	elapsed := time.Since(m.startupTime).Round(time.Second)
	sb.WriteString(MutedValue.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n\n")

	for _, l := range m.logs {
		sb.WriteString(errorLine.Render("  " + l))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	if m.dealStats.Rounds > 0 {
		parts = append(parts, fmt.Sprintf("Round: #%d", m.dealStats.Rounds))
	}
	parts = append(parts, fmt.Sprintf("Prices: %d", m.prices.Len()))

	if conns := m.connections.Inline("  │  "); conns != "" {
		parts = append(parts, conns)
	}

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		fresh := ""
		if ago < 2*time.Second {
			fresh = " ▪"
		}
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago%s", ago, fresh)))
	}

	return strings.Join(parts, "  │  ")
}
