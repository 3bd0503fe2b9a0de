package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	NextRoute   key.Binding
	PrevRoute   key.Binding
	Home        key.Binding
	Analyze     key.Binding
	About       key.Binding
	Submit      key.Binding
	FocusUpload key.Binding
	Esc         key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Quit        key.Binding
	ForceQuit   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		NextRoute: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next page"),
		),
		PrevRoute: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev page"),
		),
		Home: key.NewBinding(
			key.WithKeys("alt+1"),
			key.WithHelp("alt+1", "home"),
		),
		Analyze: key.NewBinding(
			key.WithKeys("alt+2"),
			key.WithHelp("alt+2", "analyze"),
		),
		About: key.NewBinding(
			key.WithKeys("alt+3"),
			key.WithHelp("alt+3", "about"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		FocusUpload: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "upload report"),
		),
		Esc: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back to question"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextRoute, k.Submit, k.FocusUpload, k.PageUp, k.PageDown, k.ForceQuit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextRoute, k.PrevRoute, k.Home, k.Analyze, k.About},
		{k.Submit, k.FocusUpload, k.Esc, k.PageUp, k.PageDown},
		{k.Quit, k.ForceQuit},
	}
}
