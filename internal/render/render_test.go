package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/ai-session-browser/internal/parse"
)

func session(n int) *parse.Session {
	s := &parse.Session{ID: "abc", Source: "claude", Cwd: "/w", Size: 2048}
	ts := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		role := parse.RoleUser
		if i%2 == 1 {
			role = parse.RoleAssistant
		}
		s.Blocks = append(s.Blocks, parse.Block{
			Seq: i, Line: i + 1, Role: role, Timestamp: ts.Add(time.Duration(i) * time.Minute),
			Text: "message " + string(rune('a'+i)),
		})
	}
	return s
}

func TestWrapLineSkipsANSI(t *testing.T) {
	line := colorBoldRed + "abcdef" + colorReset
	got := wrapLine(line, 3)
	require.Len(t, got, 2)
	assert.Equal(t, colorBoldRed+"abc", got[0])
	assert.Equal(t, "def"+colorReset, got[1])
}

func TestWrapLineWideRunes(t *testing.T) {
	assert.Equal(t, []string{"日本", "語"}, wrapLine("日本語", 4))
	assert.Equal(t, []string{"x"}, wrapLine("x", 0))
	assert.Equal(t, []string{""}, wrapLine("", 10))
}

func TestHighlightKeywords(t *testing.T) {
	got := highlightKeywords("Fix the BUG, then bug again", "bug")
	assert.Equal(t, "Fix the "+colorBoldRed+"BUG"+colorReset+", then "+colorBoldRed+"bug"+colorReset+" again", got)
	assert.Equal(t, "plain", highlightKeywords("plain", "  "))
}

func TestIndentLines(t *testing.T) {
	assert.Equal(t, "> a\n> b", indentLines("a\nb", "> "))
}

func TestConversationWindow(t *testing.T) {
	s := session(10)
	out, hit := Conversation(s, Options{HitBlock: 5, Context: 1})

	lines := strings.Split(out, "\n")
	require.Greater(t, hit, 0)
	assert.Contains(t, lines[hit], ">> ASST")
	assert.Contains(t, out, "(4 blocks before)")
	assert.Contains(t, out, "(3 blocks after)")
	assert.Contains(t, out, "message e")
	assert.Contains(t, out, "message g")
	assert.NotContains(t, out, "message d")
}

func TestConversationHidesThinkingUnlessHit(t *testing.T) {
	s := session(2)
	s.Blocks = append(s.Blocks, parse.Block{Seq: 2, Role: parse.RoleAssistant, Thinking: true, Text: "pondering"})

	out, _ := Conversation(s, Options{HitBlock: -1, Context: -1})
	assert.NotContains(t, out, "pondering")

	out, hit := Conversation(s, Options{HitBlock: 2, Context: -1})
	assert.Contains(t, out, "pondering")
	assert.Contains(t, strings.Split(out, "\n")[hit], "THINK")
}

func TestConversationAuxHeaderAndEmpty(t *testing.T) {
	s := session(1)
	s.Aux = &parse.Aux{Name: "work", Command: "nvim .", Confidence: 1}
	out, hit := Conversation(s, Options{HitBlock: -1})
	assert.Equal(t, -1, hit)
	assert.Contains(t, out, "tmux work  $ nvim .  (100%)")

	out, hit = Conversation(&parse.Session{}, Options{})
	assert.Equal(t, "(empty session)", out)
	assert.Equal(t, -1, hit)
}

func TestSummary(t *testing.T) {
	s := session(2)
	s.Title = "hello"
	s.Stats = parse.Statistics{Blocks: 2, UserBlocks: 1, AssistantBlocks: 1, Words: 1234,
		Languages: map[string]int{"go": 2, "bash": 1}}
	s.Insights = parse.Insights{Style: parse.StyleDirective,
		Phases: []parse.Phase{{Intent: parse.IntentDebugging, Start: 0, End: 1}}}

	out := Summary(s)
	assert.Contains(t, out, "2.0 KiB")
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "[bash:1 go:2]")
	assert.Contains(t, out, "debugging")
	assert.Contains(t, out, "style       directive")
}
