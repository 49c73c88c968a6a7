package ui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

var program atomic.Pointer[tea.Program]

// Attach makes p the target of Send. Reporters and main send from their own
// goroutines, so the program is swapped atomically.
func Attach(p *tea.Program) {
	program.Store(p)
}

// Send delivers msg to the attached program. It is a no-op before Attach.
func Send(msg tea.Msg) {
	if p := program.Load(); p != nil {
		p.Send(msg)
	}
}
