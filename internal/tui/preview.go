package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Zuo-Peng/ai-session-browser/internal/parse"
	"github.com/Zuo-Peng/ai-session-browser/internal/render"
)

// previewRenderedMsg is sent when an async preview render completes.
type previewRenderedMsg struct {
	key     string
	content string
	hitLine int
}

// loadPreviewCmd returns a tea.Cmd that renders the conversation preview async.
func loadPreviewCmd(s *parse.Session, block int, query string, width int, thinking bool) tea.Cmd {
	return func() tea.Msg {
		content, hitLine := render.Conversation(s, render.Options{
			HitBlock: block,
			Context:  -1,
			Width:    width,
			Query:    query,
			Thinking: thinking,
		})
		return previewRenderedMsg{
			key:     previewCacheKey(s.Path, block, thinking),
			content: content,
			hitLine: hitLine,
		}
	}
}

// newViewport creates a new viewport model with the given dimensions.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = styleListFrame
	return vp
}
