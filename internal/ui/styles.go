package ui

import (
	"github.com/charmbracelet/lipgloss"

	"logscope/internal/timeline"
)

type Styles struct {
	Base       lipgloss.Style
	Status     lipgloss.Style
	Help       lipgloss.Style
	Prompt     lipgloss.Style
	Error      lipgloss.Style
	Cursor     lipgloss.Style
	Critical   lipgloss.Style
	Mark       lipgloss.Style
	Match      lipgloss.Style
	PopupBox   lipgloss.Style
	PopupTitle lipgloss.Style
	Selected   lipgloss.Style
	// Intensity colours timeline cells by level.
	Intensity map[timeline.Level]lipgloss.Style
}

func NewStyles(dark bool) Styles {
	s := Styles{}
	if dark {
		s.Base = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
		s.Status = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
		s.Help = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
		s.Prompt = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
		s.Cursor = lipgloss.NewStyle().Background(lipgloss.Color("237"))
		s.PopupBox = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("60")).Padding(1, 2)
		s.PopupTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	} else {
		s.Base = lipgloss.NewStyle()
		s.Status = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
		s.Help = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
		s.Prompt = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("27"))
		s.Cursor = lipgloss.NewStyle().Background(lipgloss.Color("254"))
		s.PopupBox = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("12")).Padding(1, 2)
		s.PopupTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("27"))
	}
	s.Error = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	s.Critical = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	s.Mark = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	s.Match = lipgloss.NewStyle().Reverse(true)
	s.Selected = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("220"))
	s.Intensity = map[timeline.Level]lipgloss.Style{
		timeline.None:       lipgloss.NewStyle(),
		timeline.Low:        lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		timeline.MediumLow:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		timeline.MediumHigh: lipgloss.NewStyle().Foreground(lipgloss.Color("202")),
		timeline.High:       lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
	return s
}
