package parse

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/ai-session-browser/internal/parse/parsetest"
)

func TestSegmentPhases(t *testing.T) {
	intents := []Intent{IntentGeneral, IntentDebugging, IntentGeneral, IntentDebugging,
		IntentImplementation, IntentGeneral, IntentQuestion}
	blocks := make([]Block, len(intents))
	for i, in := range intents {
		blocks[i].Intent = in
	}
	want := []Phase{
		{Intent: IntentDebugging, Start: 0, End: 3},
		{Intent: IntentImplementation, Start: 4, End: 5},
		{Intent: IntentQuestion, Start: 6, End: 6},
	}
	if diff := cmp.Diff(want, segmentPhases(blocks)); diff != "" {
		t.Errorf("phases (-want +got):\n%s", diff)
	}
}

func TestRankTopics(t *testing.T) {
	blocks := []Block{
		{Topics: []string{"testing"}},
		{Topics: []string{"git", "testing"}},
		{},
		{Topics: []string{"testing"}},
	}
	got := rankTopics(blocks)
	require.Len(t, got, 2)
	assert.Equal(t, "testing", got[0].Topic)
	assert.Equal(t, 3, got[0].Mentions)
	assert.InDelta(t, 0.75*(1+math.Log(3)), got[0].Relevance, 1e-9)
	assert.Equal(t, "git", got[1].Topic)
	assert.InDelta(t, 0.25, got[1].Relevance, 1e-9)
}

func TestCodeQuality(t *testing.T) {
	blocks := []Block{{CodeBlocks: []CodeBlock{
		{Language: "go", Content: "func TestX(t *testing.T) {}"},
		{Content: "foo bar"},
	}}}
	assert.Equal(t, 8.0, codeQuality(blocks, 0, 0))
	assert.Equal(t, 6.5, codeQuality(blocks, 2, 1))
	assert.Equal(t, 0.0, codeQuality([]Block{{}}, 0, 0))
}

func TestSessionInsights(t *testing.T) {
	content := parsetest.NewSessionBuilder().
		User("2026-03-01T10:00:00Z", "The build is broken, can you fix it?").
		Assistant("2026-03-01T10:00:30Z", "Try this: the solution is to pin the version.").
		User("2026-03-01T10:01:00Z", "thanks").
		Assistant("2026-03-01T10:01:10Z", "Done, all tests pass.").
		String()

	s := quietParser(Options{}).Parse(strings.NewReader(content), "i.jsonl", 0, time.Time{})
	in := s.Insights

	assert.Equal(t, 1, in.ProblemsRaised)
	assert.Equal(t, 1, in.ProblemsSolved)
	assert.Equal(t, 1, in.TasksCompleted)
	assert.Equal(t, 1, in.Questions)
	assert.Equal(t, 10.0, in.Collaboration)
	assert.Equal(t, 0.0, in.CodeQuality)
	assert.Equal(t, StyleCollaborative, in.Style)
	assert.Equal(t, len(in.Phases)-1, in.FocusShifts)

	assert.Equal(t, 20*time.Second, s.Stats.AvgResponse)
	assert.Equal(t, 70*time.Second, s.Stats.Duration)
}

func TestEmptySessionInsights(t *testing.T) {
	s := quietParser(Options{}).Parse(strings.NewReader(""), "e.jsonl", 0, time.Time{})
	assert.Empty(t, s.Blocks)
	assert.Equal(t, StyleExploratory, s.Insights.Style)
	assert.Zero(t, s.Insights.FocusShifts)
	assert.Zero(t, s.Stats.Blocks)
}
