package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Spacing constants for consistent layout (in characters)
const (
	SpaceXS = 1
	SpaceSM = 2
	SpaceMD = 3
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Adaptive colors for light and dark terminals
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorText    = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorSubtext = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}

	ColorPrimary   = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorSecondary = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}
	ColorInfo      = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorSuccess   = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorWarning   = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger    = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}

	// Scene colors follow the snapshot export: satellites yellow, covering
	// satellites red, coverage areas green, connectors blue.
	ColorSatellite = lipgloss.AdaptiveColor{Light: "#808000", Dark: "#F1FA8C"}
	ColorCovering  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}
	ColorArea      = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorConnector = lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#6699FF"}

	ColorBorder    = lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"}
	ColorHighlight = lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"}
)
