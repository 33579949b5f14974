package render

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/ai-session-browser/internal/parse"
)

const (
	colorReset   = "\033[0m"
	colorUser    = "\033[1;34m" // bold blue
	colorAssist  = "\033[1;32m" // bold green
	colorThink   = "\033[2;35m" // dim magenta for thinking
	colorTool    = "\033[36m"
	colorDim     = "\033[2m"
	colorHit     = "\033[43m"   // yellow background
	colorBoldRed = "\033[1;31m" // bold red for keyword highlights
)

const timeLayout = "2006-01-02 15:04:05"

type Options struct {
	HitBlock int    // index into Session.Blocks, -1 for none
	Context  int    // blocks before/after the hit to show; <0 shows all
	Width    int    // wrap width (0 = no wrap)
	Query    string // terms to highlight
	Thinking bool   // include thinking blocks
}

// highlightKeywords wraps case-insensitive matches of query terms in bold red ANSI codes.
func highlightKeywords(text, query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return text
	}
	for _, term := range terms {
		lower := strings.ToLower(term)
		i := 0
		for i < len(text) {
			idx := strings.Index(strings.ToLower(text[i:]), lower)
			if idx < 0 {
				break
			}
			pos := i + idx
			end := pos + len(term)
			// ToLower can change byte lengths outside ASCII.
			if end > len(text) || !strings.EqualFold(text[pos:end], term) {
				break
			}
			replacement := colorBoldRed + text[pos:end] + colorReset
			text = text[:pos] + replacement + text[end:]
			i = pos + len(replacement)
		}
	}
	return text
}

// indentLines prepends each line of text with the given prefix.
func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, correctly skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		// check for ANSI escape sequence: ESC[ ... m
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++ // include 'm'
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth && visW > 0 {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}

	if len(result) == 0 {
		return []string{""}
	}
	return result
}

func roleLabel(b parse.Block) (label, color string) {
	switch {
	case b.Thinking:
		return "THINK", colorThink
	case b.Role == parse.RoleUser:
		return "USER", colorUser
	case b.Role == parse.RoleAssistant:
		return "ASST", colorAssist
	case b.Role == parse.RoleTool:
		return "TOOL", colorTool
	}
	return strings.ToUpper(b.Role.String()), colorDim
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

// Conversation renders s around opts.HitBlock and returns the text and the
// 0-based line of the hit block header (-1 if no hit is shown).
func Conversation(s *parse.Session, opts Options) (string, int) {
	if len(s.Blocks) == 0 {
		return "(empty session)", -1
	}
	if opts.Context == 0 {
		opts.Context = 10
	}

	start, end := 0, len(s.Blocks)
	if opts.Context > 0 && opts.HitBlock >= 0 && opts.HitBlock < len(s.Blocks) {
		start = max(0, opts.HitBlock-opts.Context)
		end = min(len(s.Blocks), opts.HitBlock+opts.Context+1)
	} else if opts.Context > 0 && opts.HitBlock < 0 {
		end = min(len(s.Blocks), 2*opts.Context+1)
	}

	var b strings.Builder
	hitLine := -1
	lineCount := 0
	separator := colorDim + strings.Repeat("-", 50) + colorReset

	writeLine := func(line string) {
		for _, wl := range wrapLine(line, opts.Width) {
			b.WriteString(wl)
			b.WriteString("\n")
			lineCount++
		}
	}

	writeLine(fmt.Sprintf("%s--- %s [%s] %s ---%s", colorDim, s.ID, s.Source, s.Cwd, colorReset))
	if s.Aux != nil {
		writeLine(fmt.Sprintf("%s    tmux %s  $ %s  (%.0f%%)%s", colorDim, s.Aux.Name, s.Aux.Command,
			s.Aux.Confidence*100, colorReset))
	}
	if start > 0 {
		writeLine(fmt.Sprintf("%s... (%d blocks before) ...%s", colorDim, start, colorReset))
	}

	first := true
	for i := start; i < end; i++ {
		blk := s.Blocks[i]
		isHit := i == opts.HitBlock
		if blk.Thinking && !opts.Thinking && !isHit {
			continue
		}
		if !first {
			writeLine(separator)
		}
		first = false

		label, color := roleLabel(blk)
		if isHit {
			hitLine = lineCount
			writeLine(fmt.Sprintf("%s>> %s > %s <<%s", colorHit, label, stamp(blk.Timestamp), colorReset))
		} else {
			writeLine(fmt.Sprintf("%s%s >%s %s%s%s", color, label, colorReset, colorDim, stamp(blk.Timestamp), colorReset))
		}

		text := blk.Text
		if blk.Thinking {
			text = colorDim + text + colorReset
		}
		text = highlightKeywords(text, opts.Query)
		for _, tl := range strings.Split(indentLines(text, "  "), "\n") {
			writeLine(tl)
		}
		writeLine("")
	}

	if after := len(s.Blocks) - end; after > 0 {
		writeLine(fmt.Sprintf("%s... (%d blocks after) ...%s", colorDim, after, colorReset))
	}
	return b.String(), hitLine
}

// Summary is the plain-text report printed by `asb stats`.
func Summary(s *parse.Session) string {
	var b strings.Builder
	st, in := s.Stats, s.Insights

	fmt.Fprintf(&b, "session     %s\n", s.ID)
	fmt.Fprintf(&b, "source      %s\n", s.Source)
	fmt.Fprintf(&b, "file        %s (%s)\n", s.Path, humanize.IBytes(uint64(max(s.Size, 0))))
	if s.Title != "" {
		fmt.Fprintf(&b, "title       %s\n", s.Title)
	}
	if s.Cwd != "" {
		fmt.Fprintf(&b, "cwd         %s\n", s.Cwd)
	}
	if s.GitBranch != "" {
		fmt.Fprintf(&b, "branch      %s\n", s.GitBranch)
	}
	fmt.Fprintf(&b, "created     %s (%s)\n", stamp(s.CreatedAt), humanize.Time(s.CreatedAt))
	fmt.Fprintf(&b, "updated     %s\n", stamp(s.UpdatedAt))
	if s.Aux != nil {
		fmt.Fprintf(&b, "tmux        %s  $ %s  dir %s  confidence %.2f\n",
			s.Aux.Name, s.Aux.Command, s.Aux.Dir, s.Aux.Confidence)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "blocks      %d (user %d, assistant %d, tool %d, system %d)\n",
		st.Blocks, st.UserBlocks, st.AssistantBlocks, st.ToolBlocks, st.SystemBlocks)
	fmt.Fprintf(&b, "words       %s (%s chars)\n", humanize.Comma(int64(st.Words)), humanize.Comma(int64(st.Chars)))
	fmt.Fprintf(&b, "code        %d blocks %s\n", st.CodeBlocks, languages(st.Languages))
	fmt.Fprintf(&b, "links       %d  mentions %d  tool calls %d\n", st.Links, st.Mentions, st.ToolCalls)
	fmt.Fprintf(&b, "malformed   %d lines\n", st.Malformed)
	fmt.Fprintf(&b, "duration    %s  avg response %s\n", st.Duration.Round(time.Second), st.AvgResponse.Round(time.Second))

	b.WriteString("\n")
	fmt.Fprintf(&b, "style       %s\n", in.Style)
	fmt.Fprintf(&b, "phases      %d (focus shifts %d)\n", len(in.Phases), in.FocusShifts)
	for _, p := range in.Phases {
		fmt.Fprintf(&b, "  %-15s blocks %d-%d\n", p.Intent, p.Start, p.End)
	}
	if len(in.Topics) > 0 {
		names := make([]string, len(in.Topics))
		for i, t := range in.Topics {
			names[i] = fmt.Sprintf("%s(%.1f)", t.Topic, t.Relevance)
		}
		fmt.Fprintf(&b, "topics      %s\n", strings.Join(names, " "))
	}
	fmt.Fprintf(&b, "questions   %d  tasks done %d  problems %d/%d solved\n",
		in.Questions, in.TasksCompleted, in.ProblemsSolved, in.ProblemsRaised)
	fmt.Fprintf(&b, "scores      collaboration %.1f  code quality %.1f\n", in.Collaboration, in.CodeQuality)
	return b.String()
}

func languages(m map[string]int) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s:%d", k, m[k])
	}
	return "[" + strings.Join(parts, " ") + "]"
}
