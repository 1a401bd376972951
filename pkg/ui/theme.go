package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals keep their own
// background.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Scene
	Satellite lipgloss.AdaptiveColor
	Covering  lipgloss.AdaptiveColor
	Area      lipgloss.AdaptiveColor
	Connector lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	// Styles
	Base     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style
	Panel    lipgloss.Style

	// Pre-computed row styles, created once instead of per frame
	MutedText     lipgloss.Style
	InfoText      lipgloss.Style
	SecondaryText lipgloss.Style
	PrimaryBold   lipgloss.Style
	AreaText      lipgloss.Style
	CoveringText  lipgloss.Style
	SatelliteText lipgloss.Style
	ConnectorText lipgloss.Style
	ErrorText     lipgloss.Style
	SuccessText   lipgloss.Style
	WarningText   lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   ColorPrimary,
		Secondary: ColorSecondary,
		Subtext:   ColorSubtext,

		Satellite: ColorSatellite,
		Covering:  ColorCovering,
		Area:      ColorArea,
		Connector: ColorConnector,

		Border:    ColorBorder,
		Highlight: ColorHighlight,
		Muted:     ColorMuted,
	}

	t.Base = r.NewStyle().Foreground(ColorText)

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(t.Primary).
		PaddingLeft(1).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.Panel = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)

	t.MutedText = r.NewStyle().Foreground(ColorMuted)
	t.InfoText = r.NewStyle().Foreground(ColorInfo)
	t.SecondaryText = r.NewStyle().Foreground(t.Secondary)
	t.PrimaryBold = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.AreaText = r.NewStyle().Foreground(t.Area).Bold(true)
	t.CoveringText = r.NewStyle().Foreground(t.Covering)
	t.SatelliteText = r.NewStyle().Foreground(t.Satellite)
	t.ConnectorText = r.NewStyle().Foreground(t.Connector)
	t.ErrorText = r.NewStyle().Foreground(ColorDanger).Bold(true)
	t.SuccessText = r.NewStyle().Foreground(ColorSuccess)
	t.WarningText = r.NewStyle().Foreground(ColorWarning)

	return t
}
