package ui

import "github.com/charmbracelet/lipgloss"

type Style struct {
	Header        lipgloss.Style
	Outline       lipgloss.Style
	Messages      lipgloss.Style
	SelectedRow   lipgloss.Style
	ActiveMarker  lipgloss.Style
	UserRole      lipgloss.Style
	AssistantRole lipgloss.Style
	Highlight     lipgloss.Style
	Input         lipgloss.Style
	Error         lipgloss.Style
}

type BorderColors struct {
	Unselected string
	Selected   string
	Focused    string
}

func DefaultStyles() *Style {
	lightModeColors := BorderColors{
		Unselected: "#CCCCCC",
		Selected:   "#FFB6C1", // Light pink
		Focused:    "#FFFF99", // Light yellow
	}

	darkModeColors := BorderColors{
		Unselected: "#444444",
		Selected:   "#DD7090", // Desaturated pink for dark mode
		Focused:    "#DDDD77", // Desaturated yellow for dark mode
	}

	unselected := lipgloss.AdaptiveColor{Light: lightModeColors.Unselected, Dark: darkModeColors.Unselected}
	selected := lipgloss.AdaptiveColor{Light: lightModeColors.Selected, Dark: darkModeColors.Selected}
	focused := lipgloss.AdaptiveColor{Light: lightModeColors.Focused, Dark: darkModeColors.Focused}

	return &Style{
		Header: lipgloss.NewStyle().Bold(true).Padding(0, 1),
		Outline: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			BorderForeground(unselected),
		Messages: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			BorderForeground(unselected),
		SelectedRow:   lipgloss.NewStyle().Bold(true).Foreground(selected),
		ActiveMarker:  lipgloss.NewStyle().Foreground(selected),
		UserRole:      lipgloss.NewStyle().Bold(true),
		AssistantRole: lipgloss.NewStyle().Bold(true).Faint(true),
		Highlight:     lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("#3B82F6")),
		Input: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).
			BorderForeground(focused),
		Error: lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")),
	}
}
