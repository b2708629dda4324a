package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vitalsense/ecglogd/internal/engine"
	"github.com/vitalsense/ecglogd/internal/sim"
)

// Run starts the dashboard over a running engine and its simulated world.
func Run(eng *engine.Engine, world *sim.World) error {
	m := NewModel(eng, world)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		return err
	}

	return nil
}
