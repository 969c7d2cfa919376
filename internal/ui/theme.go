package ui

import (
	"image/color"

	"charm.land/bubbles/v2/spinner"
	"charm.land/lipgloss/v2"
)

// Theme defines the color scheme of the table host
type Theme struct {
	Primary   color.Color // titles, highlights
	Secondary color.Color
	Accent    color.Color // spinner, sort indicators

	Text       color.Color
	TextBright color.Color
	TextDim    color.Color // labels, hints
	TextMuted  color.Color // separators, borders

	Warning color.Color
	Danger  color.Color // loading errors

	Border        color.Color
	Background    color.Color // search field, detail panels
	Selection     color.Color // cursor row background
	SelectionText color.Color
	Marked        color.Color // selected (marked) rows

	TableHeader     color.Color
	TableHeaderText color.Color
}

// DefaultTheme returns the default dark theme
func DefaultTheme() *Theme {
	return &Theme{
		Primary:   lipgloss.Color("170"), // Pink/Magenta
		Secondary: lipgloss.Color("33"),  // Blue
		Accent:    lipgloss.Color("86"),  // Cyan

		Text:       lipgloss.Color("252"), // Light gray
		TextBright: lipgloss.Color("255"), // White
		TextDim:    lipgloss.Color("247"), // Medium gray
		TextMuted:  lipgloss.Color("244"), // Darker gray

		Warning: lipgloss.Color("214"), // Orange
		Danger:  lipgloss.Color("196"), // Red

		Border:        lipgloss.Color("244"),
		Background:    lipgloss.Color("235"),
		Selection:     lipgloss.Color("57"),  // Purple
		SelectionText: lipgloss.Color("229"), // Light yellow
		Marked:        lipgloss.Color("42"),  // Green

		TableHeader:     lipgloss.Color("63"),
		TableHeaderText: lipgloss.Color("229"),
	}
}

var current = DefaultTheme()

// Current returns the active theme
func Current() *Theme {
	return current
}

// NoStyle returns an empty style, the base for per-cell styles
func NoStyle() lipgloss.Style {
	return lipgloss.NewStyle()
}

func DimStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(current.TextDim)
}

func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(current.TextMuted)
}

func WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(current.Warning)
}

func DangerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(current.Danger)
}

func TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(current.Primary)
}

func HighlightStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(current.Accent)
}

// BorderStyle returns a style for border-colored text (separators)
func BorderStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(current.Border)
}

// StatusStyle returns the full-width status bar style
func StatusStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Background(current.TableHeader).
		Foreground(current.TableHeaderText).
		Padding(0, 1).
		Width(width)
}

// PanelStyle returns the style of an expanded row's detail panel
func PanelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(current.Border).
		Foreground(current.Text).
		Padding(0, 1).
		MarginLeft(2)
}

// InputFieldStyle returns a style for the search input
func InputFieldStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(current.Background).
		Foreground(current.Text).
		Padding(0, 1)
}

func NewSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(current.Accent)
	return s
}
