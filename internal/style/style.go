package style

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/riskmap/cli/internal/riskmap"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF0000"))

	CriticalStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF2D55"))

	HighStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF9500"))

	MediumStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFCC00"))

	LowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#34C759"))
)

// ForCriticality maps a criticality level to its display style.
func ForCriticality(c riskmap.Criticality) lipgloss.Style {
	switch c {
	case riskmap.CriticalityCritical:
		return CriticalStyle
	case riskmap.CriticalityHigh:
		return HighStyle
	case riskmap.CriticalityMedium:
		return MediumStyle
	case riskmap.CriticalityLow:
		return LowStyle
	}
	return DimStyle
}
