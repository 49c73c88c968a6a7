package components

import (
	"fmt"
	"strings"
	"time"
)

// ConnectionStatus is the last reported state of one upstream.
type ConnectionStatus struct {
	Name       string
	Connected  bool
	Latency    time.Duration
	LastUpdate time.Time
}

// StatusComponent tracks connections in first-seen order.
type StatusComponent struct {
	order  []string
	byName map[string]ConnectionStatus
}

func NewStatusComponent() *StatusComponent {
	return &StatusComponent{byName: make(map[string]ConnectionStatus)}
}

// Update records status, replacing any earlier report for the same name.
func (s *StatusComponent) Update(status ConnectionStatus) {
	if _, seen := s.byName[status.Name]; !seen {
		s.order = append(s.order, status.Name)
	}
	s.byName[status.Name] = status
}

func (s *StatusComponent) Get(name string) (ConnectionStatus, bool) {
	c, ok := s.byName[name]
	return c, ok
}

// Inline renders every connection on one line joined by sep, e.g.
// "● gas-oracle (12ms) │ ○ price-feed (disconnected)".
func (s *StatusComponent) Inline(sep string) string {
	parts := make([]string, 0, len(s.order))
	for _, name := range s.order {
		c := s.byName[name]
		switch {
		case !c.Connected:
			parts = append(parts, badStyle.Bold(true).Render("○ "+name+" (disconnected)"))
		case c.Latency > 0:
			parts = append(parts, goodStyle.Bold(true).Render(fmt.Sprintf("● %s (%dms)", name, c.Latency.Milliseconds())))
		default:
			parts = append(parts, goodStyle.Bold(true).Render("● "+name))
		}
	}
	return strings.Join(parts, sep)
}
