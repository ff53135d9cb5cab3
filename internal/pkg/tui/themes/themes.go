package themes

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Theme represents a color theme for the TUI
type Theme struct {
	Name string
	// Dark selects the markdown style used for the help overlay
	Dark bool

	// General UI colors
	Foreground         lipgloss.Color
	HeaderBg           lipgloss.Color
	HeaderFg           lipgloss.Color
	StatusBarBg        lipgloss.Color
	StatusBarFg        lipgloss.Color
	SelectionBg        lipgloss.Color
	SelectionFg        lipgloss.Color
	CursorBg           lipgloss.Color
	CursorFg           lipgloss.Color
	BorderColor        lipgloss.Color
	FocusedBorderColor lipgloss.Color

	// Table colors
	AggregateFg lipgloss.Color
	CheckedFg   lipgloss.Color
	DisabledFg  lipgloss.Color
	SortFg      lipgloss.Color

	// Emphasis colors
	ErrorColor   lipgloss.Color
	WarningColor lipgloss.Color
	SuccessColor lipgloss.Color
	InfoColor    lipgloss.Color
	FilterColor  lipgloss.Color
}

// Solarized color palette
var (
	solarizedBase03 = lipgloss.Color("#002b36") // background
	solarizedBase02 = lipgloss.Color("#073642") // background highlights
	solarizedBase01 = lipgloss.Color("#586e75") // comments / secondary content
	solarizedBase00 = lipgloss.Color("#657b83") // body text (light)
	solarizedBase0  = lipgloss.Color("#839496") // body text (dark)
	solarizedBase1  = lipgloss.Color("#93a1a1") // emphasized content
	solarizedBase2  = lipgloss.Color("#eee8d5") // background highlights (light)
	solarizedBase3  = lipgloss.Color("#fdf6e3") // background (light)

	solarizedYellow  = lipgloss.Color("#b58900")
	solarizedOrange  = lipgloss.Color("#cb4b16")
	solarizedRed     = lipgloss.Color("#dc322f")
	solarizedMagenta = lipgloss.Color("#d33682")
	solarizedViolet  = lipgloss.Color("#6c71c4")
	solarizedBlue    = lipgloss.Color("#268bd2")
	solarizedCyan    = lipgloss.Color("#2aa198")
	solarizedGreen   = lipgloss.Color("#859900")
)

// Solarized returns the Solarized dark theme (htop-like with transparent background)
func Solarized() Theme {
	return Theme{
		Name: "solarized",
		Dark: true,

		Foreground:         solarizedBase0,
		HeaderBg:           solarizedGreen,
		HeaderFg:           lipgloss.Color("0"),
		StatusBarBg:        solarizedBase02,
		StatusBarFg:        solarizedBase0,
		SelectionBg:        solarizedCyan,
		SelectionFg:        lipgloss.Color("0"),
		CursorBg:           solarizedBlue,
		CursorFg:           solarizedBase3,
		BorderColor:        solarizedBase1,
		FocusedBorderColor: solarizedRed,

		AggregateFg: solarizedYellow,
		CheckedFg:   solarizedGreen,
		DisabledFg:  solarizedBase01,
		SortFg:      solarizedMagenta,

		ErrorColor:   solarizedRed,
		WarningColor: solarizedOrange,
		SuccessColor: solarizedGreen,
		InfoColor:    solarizedBlue,
		FilterColor:  solarizedViolet,
	}
}

// SolarizedLight returns the Solarized light theme
func SolarizedLight() Theme {
	t := Solarized()
	t.Name = "light"
	t.Dark = false
	t.Foreground = solarizedBase00
	t.HeaderFg = solarizedBase3
	t.StatusBarBg = solarizedBase2
	t.StatusBarFg = solarizedBase00
	t.SelectionFg = solarizedBase3
	t.CursorFg = solarizedBase3
	t.BorderColor = solarizedBase01
	t.DisabledFg = solarizedBase1
	return t
}

// Mono returns a theme that relies on the terminal's default colors
func Mono() Theme {
	return Theme{
		Name:               "mono",
		Dark:               true,
		Foreground:         lipgloss.Color("7"),
		HeaderBg:           lipgloss.Color("7"),
		HeaderFg:           lipgloss.Color("0"),
		StatusBarBg:        lipgloss.Color("8"),
		StatusBarFg:        lipgloss.Color("15"),
		SelectionBg:        lipgloss.Color("7"),
		SelectionFg:        lipgloss.Color("0"),
		CursorBg:           lipgloss.Color("15"),
		CursorFg:           lipgloss.Color("0"),
		BorderColor:        lipgloss.Color("8"),
		FocusedBorderColor: lipgloss.Color("15"),
		AggregateFg:        lipgloss.Color("15"),
		CheckedFg:          lipgloss.Color("15"),
		DisabledFg:         lipgloss.Color("8"),
		SortFg:             lipgloss.Color("15"),
		ErrorColor:         lipgloss.Color("9"),
		WarningColor:       lipgloss.Color("11"),
		SuccessColor:       lipgloss.Color("10"),
		InfoColor:          lipgloss.Color("12"),
		FilterColor:        lipgloss.Color("13"),
	}
}

var registry = map[string]func() Theme{
	"solarized": Solarized,
	"dark":      Solarized,
	"light":     SolarizedLight,
	"mono":      Mono,
}

// GetTheme returns a theme by name, defaulting to Solarized
func GetTheme(name string) Theme {
	if fn, ok := registry[name]; ok {
		return fn()
	}
	return Solarized()
}

// Names lists the accepted theme names
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
