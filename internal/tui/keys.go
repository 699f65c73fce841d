package tui

import "github.com/charmbracelet/bubbles/key"

type cloudKeys struct {
	Taxonomy key.Binding
	Rank     key.Binding
	Range    key.Binding
	Search   key.Binding
	Cluster  key.Binding
	Theme    key.Binding
	Play     key.Binding
	Back     key.Binding
	Forward  key.Binding
	Open     key.Binding
	Plan     key.Binding
	Refresh  key.Binding
	Quit     key.Binding
}

func (k cloudKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Taxonomy, k.Rank, k.Range, k.Search, k.Play, k.Open, k.Plan, k.Quit}
}

func (k cloudKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Taxonomy, k.Rank, k.Range, k.Search},
		{k.Cluster, k.Theme, k.Refresh},
		{k.Play, k.Back, k.Forward},
		{k.Open, k.Plan, k.Quit},
	}
}

type sheetKeys struct {
	Favorite key.Binding
	Pin      key.Binding
	Scroll   key.Binding
	Close    key.Binding
}

func (k sheetKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Favorite, k.Pin, k.Scroll, k.Close}
}

func (k sheetKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultCloudKeys = cloudKeys{
	Taxonomy: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "words/phonemes")),
	Rank:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rank")),
	Range:    key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "range")),
	Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Cluster:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cluster")),
	Theme:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
	Play:     key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "replay")),
	Back:     key.NewBinding(key.WithKeys("["), key.WithHelp("[", "day back")),
	Forward:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "day forward")),
	Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	Plan:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "practice plan")),
	Refresh:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "reload")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var defaultSheetKeys = sheetKeys{
	Favorite: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorite")),
	Pin:      key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "pin")),
	Scroll:   key.NewBinding(key.WithKeys("up", "down", "pgup", "pgdown"), key.WithHelp("↑/↓", "scroll")),
	Close:    key.NewBinding(key.WithKeys("esc", "q"), key.WithHelp("esc", "close")),
}
