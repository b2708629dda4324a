package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keybindings for the dashboard. Most keys inject
// simulated inputs: client commands on the command characteristic, or
// electrode and peer connectivity changes.
type KeyMap struct {
	Leads     key.Binding
	Peer      key.Binding
	Subscribe key.Binding
	Fetch     key.Binding
	Count     key.Binding
	Stop      key.Binding
	Hello     key.Binding
	Quit      key.Binding
	Help      key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Leads: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "toggle leads"),
		),
		Peer: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "toggle peer"),
		),
		Subscribe: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "subscribe ECG"),
		),
		Fetch: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "fetch log 0"),
		),
		Count: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "log count"),
		),
		Stop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop logging"),
		),
		Hello: key.NewBinding(
			key.WithKeys("H"),
			key.WithHelp("H", "hello (power down)"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// ShortHelp returns keybindings to show in the help view (horizontal).
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Leads, k.Peer, k.Subscribe, k.Fetch, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Leads, k.Peer, k.Subscribe},
		{k.Fetch, k.Count, k.Stop},
		{k.Hello, k.Quit},
	}
}
