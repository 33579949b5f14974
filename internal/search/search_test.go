package search

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/ai-session-browser/internal/config"
	"github.com/Zuo-Peng/ai-session-browser/internal/parse"
	"github.com/Zuo-Peng/ai-session-browser/internal/parse/parsetest"
)

var (
	testParser = parse.New(parse.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	day0       = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
)

// sessionOf alternates user and assistant turns, one minute apart.
func sessionOf(name string, texts ...string) *parse.Session {
	b := parsetest.NewSessionBuilder()
	for i, text := range texts {
		ts := day0.Add(time.Duration(i) * time.Minute).Format(time.RFC3339)
		if i%2 == 0 {
			b.User(ts, text)
		} else {
			b.Assistant(ts, text)
		}
	}
	return testParser.Parse(strings.NewReader(b.String()), fmt.Sprintf("/t/%s.jsonl", name), 0, time.Time{})
}

func withAux(s *parse.Session, name, command, dir string) *parse.Session {
	s.Aux = &parse.Aux{Name: name, Command: command, Dir: dir, Confidence: 1}
	return s
}

func TestEmptyQueryReturnsNothing(t *testing.T) {
	var sessions []*parse.Session
	for i := range 50 {
		sessions = append(sessions, withAux(sessionOf(fmt.Sprint(i), "anything at all"), "n", "c", "/d"))
	}
	assert.Empty(t, Search(sessions, "", 10))
	assert.Empty(t, Search(sessions, "   ", 10))
	assert.Empty(t, Search(nil, "", 10))
}

func TestBashScenario(t *testing.T) {
	a := withAux(sessionOf("a", "deploy the website", "ok"), "dev", "bash -l", "/home/u/web")
	b := sessionOf("b", "why did it fail", "I was running bash script checks")

	got := Search([]*parse.Session{a, b}, "bash", 10)
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].SessionIndex)
	assert.Equal(t, SourcePrimary, got[0].Source)
	assert.GreaterOrEqual(t, got[0].Score, 1000)
	assert.Equal(t, 1, got[0].BlockIndex)
	assert.Contains(t, got[0].Snippet, ">>>bash<<<")

	assert.Equal(t, Match{
		SessionIndex: 0, BlockIndex: 0, Score: 60,
		Snippet: "$ >>>bash<<< -l", Source: SourceAuxCommand,
	}, got[1])
}

func TestLiteralTranscriptOutranksFuzzyName(t *testing.T) {
	s := withAux(sessionOf("s", "please deploy to staging"), "de_pl_oy", "", "")
	got := Search([]*parse.Session{s}, "deploy", 10)
	require.Len(t, got, 2)
	assert.Equal(t, SourcePrimary, got[0].Source)
	assert.Equal(t, SourceAuxName, got[1].Source)
	assert.Greater(t, got[0].Score, got[1].Score)
	assert.Greater(t, got[1].Score, 80)
	assert.LessOrEqual(t, got[1].Score, 100)
}

func TestFuzzyPrimaryStaysBelowExactTier(t *testing.T) {
	w := config.DefaultSearch()
	fuzzyOnly := sessionOf("f", "we should deploy tomorrow")
	exact := sessionOf("e", "dply is the binary name")
	ix := NewIndex([]*parse.Session{fuzzyOnly, exact})

	got := New(w).Search(ix, Options{Query: "dply"})
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].SessionIndex)
	assert.Equal(t, w.PrimaryBase+w.PrimaryExactBonus, got[0].Score)

	assert.Equal(t, 0, got[1].SessionIndex)
	assert.GreaterOrEqual(t, got[1].Score, w.PrimaryBase)
	assert.LessOrEqual(t, got[1].Score, w.PrimaryBase+w.PrimaryFuzzyCap)
	assert.Contains(t, got[1].Snippet, ">>>deploy<<<")
}

func TestFuzzyNeedsEveryWord(t *testing.T) {
	s := sessionOf("s", "refactor the scanner queue")
	assert.Len(t, Search([]*parse.Session{s}, "scnr queue", 10), 1)
	assert.Empty(t, Search([]*parse.Session{s}, "scnr zebra", 10))
}

func TestLooseAlignmentIsRejected(t *testing.T) {
	// b..a..s..h is a subsequence of "backgroundshell" but spread too wide.
	s := sessionOf("s", "backgroundshell")
	assert.Empty(t, Search([]*parse.Session{s}, "bash", 10))
}

func TestOneMatchPerSessionAndSource(t *testing.T) {
	s := sessionOf("s", "first token here", "token again", "token once more")
	got := Search([]*parse.Session{s}, "token", 10)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].BlockIndex)
}

func TestTieBreaks(t *testing.T) {
	w := config.DefaultSearch()
	w.NameBase, w.CommandBase, w.DirectoryBase = 50, 50, 50
	w.NameFuzzyCap, w.DirectoryFuzzyCap = 0, 0

	s0 := withAux(sessionOf("s0", "nothing"), "job", "run job", "/srv/job")
	s1 := withAux(sessionOf("s1", "nothing"), "job", "run job", "/srv/job")
	got := New(w).Search(NewIndex([]*parse.Session{s1, s0}), Options{Query: "job"})

	require.Len(t, got, 6)
	var order []string
	for _, m := range got {
		assert.Equal(t, 50, m.Score)
		order = append(order, fmt.Sprintf("%d:%s", m.SessionIndex, m.Source))
	}
	assert.Equal(t, []string{
		"0:aux-name", "0:aux-command", "0:aux-directory",
		"1:aux-name", "1:aux-command", "1:aux-directory",
	}, order)
}

func TestCommandIsExactOnly(t *testing.T) {
	s := withAux(sessionOf("s", "nothing"), "", "bash -l", "")
	assert.Empty(t, Search([]*parse.Session{s}, "bsh", 10))
	assert.Len(t, Search([]*parse.Session{s}, "BASH", 10), 1)
}

func TestSubstringFallbackForCJK(t *testing.T) {
	s := withAux(sessionOf("s", "nothing"), "开发环境", "", "/home/u/项目")
	got := Search([]*parse.Session{s}, "开发", 10)
	require.Len(t, got, 1)
	assert.Equal(t, 80, got[0].Score)
	assert.Equal(t, SourceAuxName, got[0].Source)

	got = Search([]*parse.Session{s}, "项目", 10)
	require.Len(t, got, 1)
	assert.Equal(t, 40, got[0].Score)
	assert.Equal(t, SourceAuxDirectory, got[0].Source)
}

func TestLimit(t *testing.T) {
	var sessions []*parse.Session
	for i := range 30 {
		sessions = append(sessions, sessionOf(fmt.Sprint(i), "needle"))
	}
	got := Search(sessions, "needle", 5)
	require.Len(t, got, 5)
	for i, m := range got {
		assert.Equal(t, i, m.SessionIndex)
	}

	w := config.DefaultSearch()
	w.Limit = 7
	assert.Len(t, New(w).Search(NewIndex(sessions), Options{Query: "needle"}), 7)
}

func TestFilters(t *testing.T) {
	claude := sessionOf("c", "hello", "alpha reply")
	codex := sessionOf("x", "alpha question")
	codex.Source = "codex"
	ix := NewIndex([]*parse.Session{claude, codex})
	e := New(config.DefaultSearch())

	got := e.Search(ix, Options{Query: "alpha", Role: "user"})
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].SessionIndex)

	got = e.Search(ix, Options{Query: "alpha", Source: "claude"})
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].SessionIndex)
	assert.Equal(t, 1, got[0].BlockIndex)

	assert.Empty(t, e.Search(ix, Options{Query: "alpha", Since: day0.Add(time.Hour)}))
}

func TestSessionsAreNotModified(t *testing.T) {
	s := withAux(sessionOf("s", "alpha beta"), "alpha", "alpha", "/alpha")
	before := *s
	blocks := append([]parse.Block(nil), s.Blocks...)
	Search([]*parse.Session{s}, "alpha", 10)
	assert.Equal(t, before.Aux, s.Aux)
	assert.Equal(t, blocks, s.Blocks)
}

func TestMakeSnippet(t *testing.T) {
	text := strings.Repeat("a", 20) + " Needle " + strings.Repeat("b", 20)
	assert.Equal(t, "...aaaaa >>>Needle<<< bbbbb...", makeSnippet(text, "needle", 6))
	assert.Equal(t, ">>>x<<<", makeSnippet("x", "x", 10))
	assert.Equal(t, "line one line two", makeSnippet("line one\n\nline two", "zzz", 60))
	assert.Equal(t, "abcd...", makeSnippet("abcdefgh", "zzz", 2))
	assert.Equal(t, "ÄÖ >>>Über<<< ß", makeSnippet("ÄÖ Über ß", "über", 10))
}
