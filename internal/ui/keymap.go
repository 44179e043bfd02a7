package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Top         key.Binding
	Bottom      key.Binding
	Search      key.Binding
	SearchNext  key.Binding
	SearchPrev  key.Binding
	ToggleRegex key.Binding
	ToggleCase  key.Binding
	Filters     key.Binding
	ToggleItem  key.Binding
	ToggleAll   key.Binding
	Events      key.Binding
	NextEvent   key.Binding
	PrevEvent   key.Binding
	TimeRange   key.Binding
	Timeline    key.Binding
	Mark        key.Binding
	RenameMark  key.Binding
	NextMark    key.Binding
	PrevMark    key.Binding
	Save        key.Binding
	Reload      key.Binding
	Follow      key.Binding
	AppLogs     key.Binding
	Help        key.Binding
	Close       key.Binding
	Quit        key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:      key.NewBinding(key.WithKeys("pgup", "ctrl+b"), key.WithHelp("pgup", "page up")),
		PageDown:    key.NewBinding(key.WithKeys("pgdown", "ctrl+f"), key.WithHelp("pgdn", "page down")),
		Top:         key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:      key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		SearchNext:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next match")),
		SearchPrev:  key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "prev match")),
		ToggleRegex: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "regex")),
		ToggleCase:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "case")),
		Filters:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filters")),
		ToggleItem:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		ToggleAll:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "toggle all")),
		Events:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "events")),
		NextEvent:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next event")),
		PrevEvent:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev event")),
		TimeRange:   key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "time range")),
		Timeline:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "timeline")),
		Mark:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mark")),
		RenameMark:  key.NewBinding(key.WithKeys("M"), key.WithHelp("M", "rename mark")),
		NextMark:    key.NewBinding(key.WithKeys("'"), key.WithHelp("'", "next mark")),
		PrevMark:    key.NewBinding(key.WithKeys(`"`), key.WithHelp(`"`, "prev mark")),
		Save:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save visible")),
		Reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload rules")),
		Follow:      key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "follow")),
		AppLogs:     key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "app logs")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Close:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp and FullHelp implement help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.SearchNext, k.Filters, k.Timeline, k.Follow, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.Search, k.SearchNext, k.SearchPrev, k.ToggleRegex, k.ToggleCase},
		{k.Filters, k.Events, k.ToggleItem, k.ToggleAll, k.TimeRange, k.Timeline, k.AppLogs},
		{k.NextEvent, k.PrevEvent, k.Mark, k.RenameMark, k.NextMark, k.PrevMark},
		{k.Save, k.Reload, k.Follow, k.Quit},
	}
}
