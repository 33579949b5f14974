// Package search ranks sessions against a query across the transcript
// text and the attached terminal metadata. Everything is in memory;
// the caller is expected to debounce per-keystroke queries.
package search

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/sahilm/fuzzy"

	"github.com/Zuo-Peng/ai-session-browser/internal/config"
	"github.com/Zuo-Peng/ai-session-browser/internal/parse"
)

type Source int

// Declaration order is the tie-break priority.
const (
	SourcePrimary Source = iota
	SourceAuxName
	SourceAuxCommand
	SourceAuxDirectory
)

func (s Source) String() string {
	switch s {
	case SourcePrimary:
		return "primary"
	case SourceAuxName:
		return "aux-name"
	case SourceAuxCommand:
		return "aux-command"
	case SourceAuxDirectory:
		return "aux-directory"
	}
	return "unknown"
}

type Match struct {
	SessionIndex int
	BlockIndex   int // 0 for aux matches
	Score        int
	Snippet      string
	Source       Source
}

type Options struct {
	Query  string
	Source string    // "" = all, "claude", "codex", "generic"
	Role   string    // "" = all, else only blocks with this role
	Since  time.Time // zero = no filter on UpdatedAt
	Limit  int       // <= 0 uses the configured limit
}

// Index holds sessions with their block text lowercased once, so
// repeated queries over the same load do not redo that work.
type Index struct {
	sessions []*parse.Session
	lower    [][]string
}

func NewIndex(sessions []*parse.Session) *Index {
	ix := &Index{sessions: sessions, lower: make([][]string, len(sessions))}
	for i, s := range sessions {
		ix.lower[i] = make([]string, len(s.Blocks))
		for j, b := range s.Blocks {
			ix.lower[i][j] = lowerRunes(b.Text)
		}
	}
	return ix
}

func (ix *Index) Sessions() []*parse.Session {
	return ix.sessions
}

type Engine struct {
	w config.Search
}

func New(w config.Search) *Engine {
	return &Engine{w: w}
}

// Search returns matches over the default weights.
func Search(sessions []*parse.Session, query string, limit int) []Match {
	return New(config.DefaultSearch()).Search(NewIndex(sessions), Options{Query: query, Limit: limit})
}

// Search scores every session on up to four surfaces and returns at
// most one match per session and surface. An empty query returns nil.
func (e *Engine) Search(ix *Index, opts Options) []Match {
	q := strings.TrimSpace(opts.Query)
	if q == "" || ix == nil {
		return nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = e.w.Limit
	}

	qr := newQuery(q)
	var out []Match
	for i, s := range ix.sessions {
		if !keep(s, opts) {
			continue
		}
		if m, ok := e.primary(i, s, ix.lower[i], qr, opts.Role); ok {
			out = append(out, m)
		}
		if s.Aux != nil {
			out = append(out, e.aux(i, s.Aux, qr)...)
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		x, y := out[a], out[b]
		if x.Score != y.Score {
			return x.Score > y.Score
		}
		if x.SessionIndex != y.SessionIndex {
			return x.SessionIndex < y.SessionIndex
		}
		if x.Source != y.Source {
			return x.Source < y.Source
		}
		return x.BlockIndex < y.BlockIndex
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func keep(s *parse.Session, opts Options) bool {
	if opts.Source != "" && s.Source != opts.Source {
		return false
	}
	if !opts.Since.IsZero() && s.UpdatedAt.Before(opts.Since) {
		return false
	}
	return true
}

type query struct {
	raw   string
	lower string
	words []string
	fuzzy bool // false for CJK queries, where subsequence matching is noise
}

func newQuery(q string) query {
	lower := lowerRunes(q)
	return query{
		raw:   q,
		lower: lower,
		words: strings.Fields(lower),
		fuzzy: !containsCJK(q),
	}
}

// primary picks the best block. A literal hit always outranks a fuzzy
// one because the fuzzy boost is capped below the exact bonus.
func (e *Engine) primary(si int, s *parse.Session, lower []string, q query, role string) (Match, bool) {
	best := Match{SessionIndex: si, Source: SourcePrimary, Score: -1}
	ctx := e.w.SnippetContext

	for bi, b := range s.Blocks {
		if role != "" && b.Role.String() != role {
			continue
		}
		if strings.Contains(lower[bi], q.lower) {
			score := e.w.PrimaryBase + e.w.PrimaryExactBonus
			if score > best.Score {
				best.Score, best.BlockIndex = score, bi
				best.Snippet = makeSnippet(b.Text, q.raw, ctx)
			}
			continue
		}
		if !q.fuzzy {
			continue
		}
		fs, token, ok := fuzzyTokens(q.words, b.Tokens)
		if !ok {
			continue
		}
		score := e.w.PrimaryBase + boost(fs, e.w.PrimaryFuzzyDivisor, e.w.PrimaryFuzzyCap)
		if score > best.Score {
			best.Score, best.BlockIndex = score, bi
			best.Snippet = makeSnippet(b.Text, token, ctx)
		}
	}
	return best, best.Score >= 0
}

func (e *Engine) aux(si int, a *parse.Aux, q query) []Match {
	var out []Match
	add := func(src Source, score int, label, field, hit string) {
		out = append(out, Match{
			SessionIndex: si,
			Score:        score,
			Source:       src,
			Snippet:      label + makeSnippet(field, hit, e.w.SnippetContext),
		})
	}

	if score, ok := fuzzyField(q, a.Name, e.w.NameBase, e.w.NameFuzzyDivisor, e.w.NameFuzzyCap); ok {
		add(SourceAuxName, score, "session: ", a.Name, q.raw)
	}
	if a.Command != "" && strings.Contains(lowerRunes(a.Command), q.lower) {
		add(SourceAuxCommand, e.w.CommandBase, "$ ", a.Command, q.raw)
	}
	if score, ok := fuzzyField(q, a.Dir, e.w.DirectoryBase, e.w.DirectoryFuzzyDivisor, e.w.DirectoryFuzzyCap); ok {
		add(SourceAuxDirectory, score, "dir: ", a.Dir, q.raw)
	}
	return out
}

// fuzzyField scores a short metadata string: base plus a capped fuzzy
// boost, or the bare base when only a plain substring is found.
func fuzzyField(q query, field string, base, div, ceiling int) (int, bool) {
	if field == "" {
		return 0, false
	}
	if q.fuzzy {
		if ms := fuzzy.Find(q.lower, []string{lowerRunes(field)}); len(ms) > 0 {
			return base + boost(ms[0].Score, div, ceiling), true
		}
	}
	if strings.Contains(lowerRunes(field), q.lower) {
		return base, true
	}
	return 0, false
}

// fuzzyTokens requires every query word to align tightly with some
// block token and returns the summed score plus the first matched token.
func fuzzyTokens(words, tokens []string) (int, string, bool) {
	if len(words) == 0 || len(tokens) == 0 {
		return 0, "", false
	}
	src := tokenSource(tokens)
	total := 0
	first := ""
	for _, w := range words {
		found := false
		for _, m := range fuzzy.FindFrom(w, src) {
			if !tight(m, w) {
				continue
			}
			total += m.Score
			if first == "" {
				first = m.Str
			}
			found = true
			break
		}
		if !found {
			return 0, "", false
		}
	}
	return total, first, true
}

// tight rejects alignments spread over more than twice the word length,
// which would otherwise let short words match almost any long token.
func tight(m fuzzy.Match, word string) bool {
	n := len(m.MatchedIndexes)
	if n == 0 {
		return false
	}
	span := m.MatchedIndexes[n-1] - m.MatchedIndexes[0] + 1
	return span <= 2*len(word)
}

type tokenSource []string

func (t tokenSource) String(i int) string { return t[i] }
func (t tokenSource) Len() int            { return len(t) }

func boost(score, div, ceiling int) int {
	if div < 1 {
		div = 1
	}
	b := score / div
	if b < 0 {
		return 0
	}
	return min(b, ceiling)
}

// containsCJK returns true if the string contains any CJK Unified Ideograph.
func containsCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// lowerRunes lowercases rune by rune so rune offsets in the result line
// up with the original.
func lowerRunes(s string) string {
	return strings.Map(unicode.ToLower, s)
}

// makeSnippet extracts a snippet around the first occurrence of query in text.
func makeSnippet(text, query string, contextChars int) string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	lower := []rune(lowerRunes(string(runes)))
	qRunes := []rune(lowerRunes(query))

	runePos := indexRunes(lower, qRunes)
	if runePos < 0 || len(qRunes) == 0 {
		// no match, return head
		if len(runes) > contextChars*2 {
			return string(runes[:contextChars*2]) + "..."
		}
		return string(runes)
	}
	start := max(runePos-contextChars, 0)
	end := min(runePos+len(qRunes)+contextChars, len(runes))
	prefix := ""
	suffix := ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(runes) {
		suffix = "..."
	}
	// wrap the matched part with markers
	snippet := string(runes[start:runePos]) +
		">>>" + string(runes[runePos:runePos+len(qRunes)]) + "<<<" +
		string(runes[runePos+len(qRunes):end])
	return prefix + snippet + suffix
}

func indexRunes(hay, needle []rune) int {
	if len(needle) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(hay); i++ {
		for j, r := range needle {
			if hay[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}
