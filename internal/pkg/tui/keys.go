package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the table key bindings
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Top        key.Binding
	Bottom     key.Binding
	Left       key.Binding
	Right      key.Binding
	Select     key.Binding
	SelectAll  key.Binding
	Check      key.Binding
	CheckAll   key.Binding
	Expand     key.Binding
	ExpandAll  key.Binding
	Sort       key.Binding
	MultiSort  key.Binding
	Group      key.Binding
	Aggregate  key.Binding
	Filter     key.Binding
	ClearQuery key.Binding
	Save       key.Binding
	Cancel     key.Binding
	Help       key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:     key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		PageDown:   key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
		Top:        key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
		Bottom:     key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
		Left:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev column")),
		Right:      key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next column")),
		Select:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		SelectAll:  key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "select all")),
		Check:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "check")),
		CheckAll:   key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "check all")),
		Expand:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "expand/collapse")),
		ExpandAll:  key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "expand all")),
		Sort:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		MultiSort:  key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "add sort")),
		Group:      key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "group")),
		Aggregate:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "aggregation")),
		Filter:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		ClearQuery: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear filter")),
		Save:       key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save")),
		Cancel:     key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "cancel request")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Check, k.Expand, k.Sort, k.Filter, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom, k.Left, k.Right},
		{k.Select, k.SelectAll, k.Check, k.CheckAll, k.Expand, k.ExpandAll},
		{k.Sort, k.MultiSort, k.Group, k.Aggregate, k.Filter, k.ClearQuery},
		{k.Save, k.Cancel, k.Help, k.Quit},
	}
}
