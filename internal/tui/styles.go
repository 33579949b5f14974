package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Zuo-Peng/ai-session-browser/internal/search"
)

var (
	colorAccent = lipgloss.Color("12")  // bright blue
	colorMuted  = lipgloss.Color("240") // gray
	colorFrame  = lipgloss.Color("238")
	colorCursor = lipgloss.Color("11") // bright yellow
	colorError  = lipgloss.Color("9")

	styleInput = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	styleCursor  = lipgloss.NewStyle().Foreground(colorCursor).Bold(true)
	styleTitle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleSrcCell = lipgloss.NewStyle().Width(sourceCellWidth)

	styleListFrame    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorFrame)
	stylePreviewFrame = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorAccent)

	styleStatus  = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)
	styleFilter  = lipgloss.NewStyle().Foreground(colorCursor)
	styleError   = lipgloss.NewStyle().Foreground(colorError)
	styleSpinner = lipgloss.NewStyle().Foreground(colorAccent)
)

// sourceCellWidth fits the longest transcript source name plus a space.
const sourceCellWidth = 8

var sourceStyles = map[string]lipgloss.Style{
	"claude":  lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	"codex":   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	"generic": lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
}

func sourceStyle(source string) lipgloss.Style {
	if st, ok := sourceStyles[source]; ok {
		return st
	}
	return styleMuted
}

// Rows found through terminal metadata carry a tag, one colour per
// surface so a glance tells a session-name hit from a directory hit.
var tagStyles = map[search.Source]lipgloss.Style{
	search.SourceAuxName:      lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
	search.SourceAuxCommand:   lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	search.SourceAuxDirectory: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
}
