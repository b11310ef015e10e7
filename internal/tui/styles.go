// Package tui implements the interactive terminal surface: the diagnosis
// form and the history browser.
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

const (
	colorCyan   = lipgloss.Color("12")
	colorYellow = lipgloss.Color("11")
	colorGreen  = lipgloss.Color("10")
	colorRed    = lipgloss.Color("9")
	colorGray   = lipgloss.Color("8")
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)

	taglineStyle = lipgloss.NewStyle().Foreground(colorGray)

	labelStyle = lipgloss.NewStyle().Bold(true)

	sectionStyle = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)

	metricValueStyle = lipgloss.NewStyle().Bold(true)

	dimStyle = lipgloss.NewStyle().Foreground(colorGray)

	okStyle = lipgloss.NewStyle().Foreground(colorGreen)

	warnStyle = lipgloss.NewStyle().Foreground(colorYellow)

	errorStyle = lipgloss.NewStyle().Foreground(colorRed)

	selectedStyle = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)

	helpStyle = lipgloss.NewStyle().Foreground(colorGray)
)

func rankStyle(rank string) lipgloss.Style {
	switch rank {
	case "S", "A":
		return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	case "B", "C":
		return lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	}
}
