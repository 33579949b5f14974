package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/ai-session-browser/internal/parse"
	"github.com/Zuo-Peng/ai-session-browser/internal/search"
)

// linesPerItem is the number of terminal lines each result occupies.
const linesPerItem = 2

// renderList renders the left panel: search results list with scrolling.
func (m model) renderList(width, height int) string {
	if len(m.rows) == 0 {
		msg := "No results"
		switch {
		case m.shown == nil && m.loading:
			msg = "Loading..."
		case m.query == "":
			msg = "No sessions"
		}
		return styleMuted.
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render(msg)
	}

	sessions := m.shown.Sessions()
	var lines []string
	for i, r := range m.rows {
		if i < m.listOffset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, formatRow(sessions[r.session], r, width, i == m.cursor)...)
	}

	// Pad remaining lines
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// sourceTag marks results that matched terminal metadata rather than
// the conversation text.
func sourceTag(r row) string {
	if !r.matched {
		return ""
	}
	switch r.source {
	case search.SourceAuxName:
		return "[tmux]"
	case search.SourceAuxCommand:
		return "[cmd]"
	case search.SourceAuxDirectory:
		return "[dir]"
	}
	return ""
}

// formatRow formats a single row as two lines:
//
//	line 1: [>] source  age  [tag] title
//	line 2:    snippet (dimmed)
func formatRow(s *parse.Session, r row, width int, selected bool) []string {
	src := styleSrcCell.Render(sourceStyle(s.Source).Render(s.Source))

	age := humanize.Time(s.UpdatedAt)
	tag := sourceTag(r)

	title := strings.ReplaceAll(s.Title, "\n", " ")
	if title == "" {
		title = s.ID
	}
	titleMax := width - 2 - sourceCellWidth - runewidth.StringWidth(age) - 2
	if tag != "" {
		titleMax -= runewidth.StringWidth(tag) + 1
	}
	titleMax = max(titleMax, 0)
	if runewidth.StringWidth(title) > titleMax {
		title = runewidth.Truncate(title, titleMax, "…")
	}

	line1 := fmt.Sprintf("%s %s ", src, styleMuted.Render(age))
	if tag != "" {
		line1 += tagStyles[r.source].Render(tag) + " "
	}
	if selected {
		line1 = styleCursor.Render("> ") + line1 + styleCursor.Render(title)
	} else {
		line1 = "  " + line1 + styleTitle.Render(title)
	}

	snippet := r.snippet
	if !r.matched && s.Cwd != "" {
		snippet = s.Cwd
	}
	snippet = strings.NewReplacer("\n", " ", "\t", " ", ">>>", "", "<<<", "").Replace(snippet)
	snippetMax := max(width-4, 0)
	if runewidth.StringWidth(snippet) > snippetMax {
		snippet = runewidth.Truncate(snippet, snippetMax, "")
	}
	line2 := "    " + styleMuted.Render(snippet)

	return []string{line1, line2}
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *model) adjustListScroll(listHeight int) {
	visibleItems := max(listHeight/linesPerItem, 1)
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
