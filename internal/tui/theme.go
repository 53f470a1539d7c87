package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/berealtors/wrapsheet/internal/config"
)

type Theme struct {
	Name          string
	Base          lipgloss.Style
	Header        lipgloss.Style
	Category      lipgloss.Style
	Goal          lipgloss.Style
	CompletedGoal lipgloss.Style
	Subtask       lipgloss.Style
	DoneSubtask   lipgloss.Style
	Input         lipgloss.Style
	Focused       lipgloss.Style
	Dim           lipgloss.Style
	Error         lipgloss.Style
	ProgressFrom  string
	ProgressTo    string
}

var Themes = map[string]Theme{
	"default": {
		Name:          "Default",
		Base:          lipgloss.NewStyle().Margin(1, 2),
		Header:        lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		Category:      lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true).Underline(true),
		Goal:          lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		CompletedGoal: lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Strikethrough(true),
		Subtask:       lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		DoneSubtask:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Input:         lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("205")).Padding(0, 1).Width(50),
		Focused:       lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		Dim:           lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Error:         lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		ProgressFrom:  "#5A56E0",
		ProgressTo:    "#EE6FF8",
	},
	"dracula": {
		Name:          "Dracula",
		Base:          lipgloss.NewStyle().Margin(1, 2),
		Header:        lipgloss.NewStyle().Foreground(lipgloss.Color("50")).Bold(true),
		Category:      lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Bold(true),
		Goal:          lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		CompletedGoal: lipgloss.NewStyle().Foreground(lipgloss.Color("60")).Strikethrough(true),
		Subtask:       lipgloss.NewStyle().Foreground(lipgloss.Color("253")),
		DoneSubtask:   lipgloss.NewStyle().Foreground(lipgloss.Color("60")),
		Input:         lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("50")).Padding(0, 1).Width(50),
		Focused:       lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		Dim:           lipgloss.NewStyle().Foreground(lipgloss.Color("60")),
		Error:         lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		ProgressFrom:  "#BD93F9",
		ProgressTo:    "#50FA7B",
	},
}

// CurrentTheme holds the active theme.
var CurrentTheme = Themes[config.DefaultBoardTheme]

func SetTheme(name string) bool {
	t, ok := Themes[name]
	if ok {
		CurrentTheme = t
	}
	return ok
}
