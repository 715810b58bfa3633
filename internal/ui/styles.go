package ui

import "github.com/charmbracelet/lipgloss"

// Color palette. One accent colour; relevance uses a traffic-light scale.
const (
	ColorLime     = "154" // accent
	ColorLimeDim  = "106" // borders, inactive
	ColorWhite    = "255"
	ColorGray     = "245" // labels
	ColorDarkGray = "238" // separators
	ColorRed      = "196"
	ColorOrange   = "208"
	ColorYellow   = "220"
)

// Styles holds all rendering styles.
type Styles struct {
	Header   lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Dim      lipgloss.Style
	Label    lipgloss.Style
	Selected lipgloss.Style
	Prompt   lipgloss.Style

	// Rule fields
	Point      lipgloss.Style
	Punishment lipgloss.Style
	Category   lipgloss.Style
	RelHigh    lipgloss.Style
	RelMid     lipgloss.Style
	RelLow     lipgloss.Style

	Panel lipgloss.Style
	Bar   lipgloss.Style
}

// DefaultStyles returns the coloured styles.
func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Label:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),

		Point:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Punishment: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorOrange)),
		Category:   lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(ColorGray)),
		RelHigh:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		RelMid:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		RelLow:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),
		Bar: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
	}
}

// NoColorStyles returns unstyled components for plain output.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:     plain,
		Success:    plain,
		Warning:    plain,
		Error:      plain,
		Dim:        plain,
		Label:      plain,
		Selected:   plain,
		Prompt:     plain,
		Point:      plain,
		Punishment: plain,
		Category:   plain,
		RelHigh:    plain,
		RelMid:     plain,
		RelLow:     plain,
		Panel:      plain,
		Bar:        plain,
	}
}

// GetStyles returns the styles for the colour preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}

// Relevance returns the style for a relevance percentage.
func (s Styles) Relevance(pct int) lipgloss.Style {
	switch {
	case pct >= 70:
		return s.RelHigh
	case pct >= 40:
		return s.RelMid
	default:
		return s.RelLow
	}
}
