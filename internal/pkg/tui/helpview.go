package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/endorses/gridsync/internal/pkg/tui/help"
	"github.com/endorses/gridsync/internal/pkg/tui/themes"
)

const helpFile = "keybindings.md"

// HelpContentLoadedMsg is sent when help content finishes rendering
type HelpContentLoadedMsg struct {
	Width    int
	Rendered string
}

// HelpView displays the embedded markdown help
type HelpView struct {
	viewport viewport.Model
	theme    themes.Theme
	width    int
	ready    bool
	loaded   bool
}

// NewHelpView creates a new help view
func NewHelpView(theme themes.Theme) HelpView {
	return HelpView{theme: theme}
}

// SetTheme updates the theme. Content is rendered again on next load.
func (h *HelpView) SetTheme(theme themes.Theme) {
	h.theme = theme
	h.loaded = false
}

// SetSize sets the display size
func (h *HelpView) SetSize(width, height int) {
	if width != h.width {
		h.loaded = false
	}
	h.width = width
	if !h.ready {
		h.viewport = viewport.New(width, height)
		h.ready = true
		return
	}
	h.viewport.Width = width
	h.viewport.Height = height
}

// NeedsContentLoad returns true if content needs to be rendered
func (h *HelpView) NeedsContentLoad() bool {
	return h.ready && !h.loaded
}

// LoadContentAsync returns a command that renders the help off the UI goroutine
func (h *HelpView) LoadContentAsync() tea.Cmd {
	width := h.width
	style := "dark"
	if !h.theme.Dark {
		style = "light"
	}
	return func() tea.Msg {
		return HelpContentLoadedMsg{Width: width, Rendered: renderHelp(style, width)}
	}
}

// HandleContentLoaded applies rendered content unless the size changed since
func (h *HelpView) HandleContentLoaded(msg HelpContentLoadedMsg) {
	if msg.Width != h.width {
		return
	}
	h.viewport.SetContent(msg.Rendered)
	h.viewport.GotoTop()
	h.loaded = true
}

// Update scrolls the help
func (h *HelpView) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	h.viewport, cmd = h.viewport.Update(msg)
	return cmd
}

// View renders the help
func (h *HelpView) View() string {
	if !h.loaded {
		return "Loading help..."
	}
	return h.viewport.View()
}

func renderHelp(style string, width int) string {
	content, err := help.Files.ReadFile(helpFile)
	if err != nil {
		return "Error loading help: " + err.Error()
	}
	raw := string(content)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		return raw
	}
	rendered, err := renderer.Render(raw)
	if err != nil {
		return raw
	}
	return rendered
}
