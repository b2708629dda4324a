package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vitalsense/ecglogd/internal/engine"
	"github.com/vitalsense/ecglogd/internal/sim"
)

// pollInterval is how often the dashboard samples engine and world state.
const pollInterval = 200 * time.Millisecond

// statusMsg carries one poll result into the update loop.
type statusMsg struct {
	snap  engine.Snapshot
	world sim.Status
	err   error
}

type tickMsg time.Time

// Model is the dashboard state: the engine and simulated world it watches,
// the latest poll result, and the UI toggles it drives.
type Model struct {
	eng   *engine.Engine
	world *sim.World

	keys   KeyMap
	styles Styles
	help   help.Model

	snap    engine.Snapshot
	status  sim.Status
	pollErr error

	leadsOn bool
	peerOn  bool
}

// NewModel creates the dashboard model around a running engine and its
// simulated world.
func NewModel(eng *engine.Engine, world *sim.World) Model {
	return Model{
		eng:    eng,
		world:  world,
		keys:   DefaultKeyMap(),
		styles: DefaultStyles(),
		help:   help.New(),
	}
}

// Init starts the poll loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.poll(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// poll samples the engine and the world off the UI goroutine.
func (m Model) poll() tea.Cmd {
	eng, world := m.eng, m.world
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		snap, err := eng.Snapshot(ctx)
		return statusMsg{snap: snap, world: world.Status(), err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tea.Batch(m.poll(), tick())

	case statusMsg:
		m.pollErr = msg.err
		if msg.err == nil {
			m.snap = msg.snap
			m.status = msg.world
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Leads):
			m.leadsOn = !m.leadsOn
			m.world.SetLeads(m.leadsOn)
		case key.Matches(msg, m.keys.Peer):
			m.peerOn = !m.peerOn
			m.eng.HandlePeerState(m.peerOn)
		case key.Matches(msg, m.keys.Subscribe):
			m.eng.HandleCommandWrite(append([]byte{1, 1}, "/Meas/ECG/200/mV"...))
		case key.Matches(msg, m.keys.Fetch):
			m.eng.HandleCommandWrite([]byte{3, 2, 0, 0, 0, 0})
		case key.Matches(msg, m.keys.Count):
			m.eng.HandleCommandWrite([]byte{5, 3})
		case key.Matches(msg, m.keys.Stop):
			m.eng.HandleCommandWrite([]byte{6, 4})
		case key.Matches(msg, m.keys.Hello):
			m.eng.HandleCommandWrite([]byte{0, 5})
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	s := m.styles
	var b strings.Builder

	b.WriteString(s.Title.Render("ecglogd simulator"))
	b.WriteString("\n")

	if m.pollErr != nil {
		b.WriteString(s.Off.Render(fmt.Sprintf("poll error: %v", m.pollErr)))
		b.WriteString("\n")
	}

	b.WriteString(m.row("Leads", m.onOff(m.snap.LeadsConnected)))
	b.WriteString(m.row("Peer", m.onOff(m.snap.LinkConnected)))
	recording := m.onOff(m.snap.Logging)
	if !m.snap.Logging && m.snap.StopRequested {
		recording = s.Muted.Render("stopped")
	}
	b.WriteString(m.row("Recording", recording))
	b.WriteString(m.row("Indication", s.Value.Render(visualName(m.status.Visual))))
	b.WriteString(m.row("Stored logs", s.Value.Render(fmt.Sprintf("%d", m.status.StoredLogs))))
	b.WriteString(m.row("Frames sent", s.Value.Render(fmt.Sprintf("%d", m.snap.FramesSent))))

	if m.snap.Fetch != nil {
		b.WriteString(m.row("Fetch",
			s.Warning.Render(fmt.Sprintf("log %d at offset %d",
				m.snap.Fetch.LogID, m.snap.Fetch.Offset))))
	}

	if len(m.snap.Subscriptions) > 0 {
		b.WriteString("\n")
		b.WriteString(s.Muted.Render("Subscriptions"))
		b.WriteString("\n")
		for _, sub := range m.snap.Subscriptions {
			state := "pending"
			if sub.Completed {
				state = "live"
			}
			b.WriteString(m.row(fmt.Sprintf("  ref %d", sub.Reference),
				s.Value.Render(fmt.Sprintf("%s (%s)", sub.Path, state))))
		}
	}

	if m.status.PoweredOff {
		b.WriteString("\n")
		b.WriteString(s.Off.Render("POWERED OFF"))
		if m.status.WakeArmed {
			b.WriteString(s.Muted.Render("  wake source armed"))
		}
		b.WriteString("\n")
	}

	b.WriteString(s.Help.Render(m.help.View(m.keys)))
	return s.App.Render(b.String())
}

func (m Model) row(label, value string) string {
	return m.styles.Label.Render(label) + value + "\n"
}

func (m Model) onOff(v bool) string {
	if v {
		return m.styles.On.Render("connected")
	}
	return m.styles.Off.Render("disconnected")
}

func visualName(v engine.VisualMode) string {
	switch v {
	case engine.VisualShort:
		return "short blink"
	case engine.VisualContinuous:
		return "continuous"
	default:
		return "off"
	}
}
