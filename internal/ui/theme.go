package ui

import "github.com/gdamore/tcell/v2"

// Theme groups the styles used by the UI panes.
type Theme struct {
	Text            tcell.Style
	Border          tcell.Style
	Selected        tcell.Style
	Current         tcell.Style
	Status          tcell.Style
	Finding         tcell.Style
	FindingSelected tcell.Style
}

// DarkTheme is the default theme.
func DarkTheme() Theme {
	base := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite)

	return Theme{
		Text:            base,
		Border:          base.Foreground(tcell.ColorGray),
		Selected:        base.Reverse(true),
		Current:         base.Bold(true),
		Status:          base.Reverse(true),
		Finding:         base.Foreground(tcell.ColorRed).Underline(true),
		FindingSelected: base.Foreground(tcell.ColorRed).Underline(true).Reverse(true),
	}
}

// LightTheme mirrors DarkTheme on a light background.
func LightTheme() Theme {
	base := tcell.StyleDefault.
		Background(tcell.ColorWhite).
		Foreground(tcell.ColorBlack)

	return Theme{
		Text:            base,
		Border:          base.Foreground(tcell.ColorGray),
		Selected:        base.Reverse(true),
		Current:         base.Bold(true),
		Status:          base.Reverse(true),
		Finding:         base.Foreground(tcell.ColorDarkRed).Underline(true),
		FindingSelected: base.Foreground(tcell.ColorDarkRed).Underline(true).Reverse(true),
	}
}

// ThemeByName maps a config theme name to a Theme, defaulting to dark.
func ThemeByName(name string) Theme {
	if name == "light" {
		return LightTheme()
	}
	return DarkTheme()
}
