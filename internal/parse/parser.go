// Package parse turns JSONL transcript files into Sessions. It
// understands Claude Code and Codex records plus plain role/content
// records, and never fails a whole file because of one bad line.
package parse

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/Zuo-Peng/ai-session-browser/internal/errs"
	"github.com/Zuo-Peng/ai-session-browser/internal/logging"
	"github.com/Zuo-Peng/ai-session-browser/internal/pool"
)

const (
	DefaultMaxLineBytes = 20 << 20
	titleLen            = 200
)

type Options struct {
	MaxLineBytes int
	Keywords     KeywordTable
	Logger       *slog.Logger
}

type Parser struct {
	maxLine  int
	keywords KeywordTable
	log      *slog.Logger
}

func New(opts Options) *Parser {
	p := &Parser{
		maxLine:  opts.MaxLineBytes,
		keywords: opts.Keywords,
		log:      opts.Logger,
	}
	if p.maxLine <= 0 {
		p.maxLine = DefaultMaxLineBytes
	}
	if p.keywords.Intents == nil && p.keywords.Topics == nil {
		p.keywords = DefaultKeywords()
	}
	if p.log == nil {
		p.log = logging.ForComponent(logging.CompParse)
	}
	return p
}

// ParseFile never returns nil. A file that cannot be opened yields a
// Session with no blocks and ReadErr set.
func (p *Parser) ParseFile(path string) *Session {
	f, err := os.Open(path)
	if err != nil {
		s := &Session{Path: path, ID: sessionID(path, ""), Source: "generic"}
		s.ReadErr = errs.FromFS("open", path, err)
		p.log.Warn("cannot read transcript", "path", path, "err", err)
		p.finish(s, nil)
		return s
	}
	defer f.Close()

	var size int64
	var mtime time.Time
	if info, err := f.Stat(); err == nil {
		size, mtime = info.Size(), info.ModTime()
	}
	return p.Parse(f, path, size, mtime)
}

// Parse reads one transcript from r. path is used for the session id
// and in log messages only.
func (p *Parser) Parse(r io.Reader, path string, size int64, mtime time.Time) *Session {
	b := &builder{
		p: p,
		s: &Session{Path: path, Size: size, ModTime: mtime},
	}

	lr := newLineReader(r, p.maxLine)
	for {
		line, ok := lr.next()
		if !ok {
			break
		}
		b.s.Lines++
		if line.oversized {
			b.malformed(line.num, "line exceeds max_line_bytes")
			continue
		}
		b.handle(line.num, string(line.data))
	}
	if err := lr.Err(); err != nil {
		b.s.ReadErr = errs.FromFS("read", path, err)
		p.log.Warn("transcript read stopped early", "path", path, "err", err)
	}
	if b.s.Skipped > 0 {
		p.log.Warn("skipped malformed lines", "path", path, "count", b.s.Skipped, "lines", b.s.Lines)
	}

	p.finish(b.s, b)
	return b.s
}

// ParseFiles parses paths on the pool and returns sessions in input
// order. Per-file problems are recorded on each Session; the only error
// is ctx ending.
func (p *Parser) ParseFiles(ctx context.Context, pl *pool.Pool, paths []string) ([]*Session, error) {
	return pool.Map(ctx, pl, paths, p.ParseFile)
}

func (p *Parser) finish(s *Session, b *builder) {
	if b != nil {
		switch {
		case b.sawCodex:
			s.Source = "codex"
		case b.sawClaude:
			s.Source = "claude"
		default:
			s.Source = "generic"
		}
		s.ID = sessionID(s.Path, b.recordID)
		s.Title = b.summary
	}
	if s.Title == "" {
		for _, bl := range s.Blocks {
			if bl.Role == RoleUser && !bl.Thinking {
				s.Title = truncateRunes(strings.Join(strings.Fields(bl.Text), " "), titleLen)
				break
			}
		}
	}

	s.CreatedAt, s.UpdatedAt = s.ModTime, s.ModTime
	for _, bl := range s.Blocks {
		if !bl.Timestamp.IsZero() {
			s.CreatedAt = bl.Timestamp
			break
		}
	}
	for i := len(s.Blocks) - 1; i >= 0; i-- {
		if ts := s.Blocks[i].Timestamp; !ts.IsZero() {
			s.UpdatedAt = ts
			break
		}
	}

	s.Stats = computeStatistics(s)
	s.Insights = computeInsights(s, p.keywords)
}

// builder accumulates one file's state while its lines are handled.
type builder struct {
	p         *Parser
	s         *Session
	summary   string
	recordID  string
	sawClaude bool
	sawCodex  bool
}

func (b *builder) handle(num int, data string) {
	if !gjson.Valid(data) {
		b.malformed(num, "invalid JSON")
		return
	}
	rec := gjson.Parse(data)
	if !rec.IsObject() {
		b.malformed(num, "record is not an object")
		return
	}

	typ := rec.Get("type").String()
	var n int
	switch {
	case codexTypes[typ]:
		b.sawCodex = true
		n = b.codex(num, typ, rec)
	case claudeTypes[typ]:
		b.sawClaude = true
		n = b.claude(num, typ, rec)
	case rec.Get("role").Exists():
		n = b.direct(num, rec)
	}
	if n == 0 {
		b.s.Ignored++
	}
}

func (b *builder) malformed(num int, reason string) {
	b.s.Skipped++
	b.p.log.Debug("skipping line", "err", errs.Malformed(b.s.Path, num, errors.New(reason)))
}

// direct handles bare {"role": ..., "content": ...} records.
func (b *builder) direct(num int, rec gjson.Result) int {
	role, ok := roleOf(strings.ToLower(rec.Get("role").String()))
	if !ok {
		return 0
	}
	c := contentOf(rec.Get("content"))
	if role == RoleUser && c.onlyToolResults {
		role = RoleTool
	}
	return b.add(num, role, parseTimestamp(rec.Get("timestamp")), c.text, c.tools, false)
}

func (b *builder) noteMeta(cwd, branch, id string) {
	if b.s.Cwd == "" && cwd != "" {
		b.s.Cwd = cwd
	}
	if b.s.GitBranch == "" && branch != "" {
		b.s.GitBranch = branch
	}
	if b.recordID == "" && id != "" {
		b.recordID = id
	}
}

// add appends a block and returns 1, or returns 0 when text is empty.
func (b *builder) add(num int, role Role, ts time.Time, text string, tools []string, thinking bool) int {
	text = tidy(text)
	if text == "" {
		return 0
	}
	kw := b.p.keywords
	b.s.Blocks = append(b.s.Blocks, Block{
		Seq:        len(b.s.Blocks) + 1,
		Line:       num,
		Role:       role,
		Thinking:   thinking,
		Timestamp:  ts,
		Text:       text,
		Tools:      tools,
		CodeBlocks: extractCodeBlocks(text),
		Links:      extractLinks(text),
		Mentions:   extractMentions(text),
		Tokens:     tokenize(text),
		Topics:     TopicsOf(text, kw),
		Intent:     Classify(text, kw),
	})
	return 1
}

type content struct {
	text            string
	thinking        string
	tools           []string
	onlyToolResults bool
}

// contentOf flattens a message content value, which is either a string
// or an array of typed parts.
func contentOf(v gjson.Result) content {
	if v.Type == gjson.String {
		return content{text: v.String()}
	}
	if !v.IsArray() {
		return content{}
	}

	var texts, thinking, results []string
	var c content
	v.ForEach(func(_, part gjson.Result) bool {
		switch part.Get("type").String() {
		case "text", "input_text", "output_text":
			if t := part.Get("text").String(); t != "" {
				texts = append(texts, t)
			}
		case "thinking":
			t := part.Get("thinking").String()
			if t == "" {
				t = part.Get("text").String()
			}
			if t != "" {
				thinking = append(thinking, t)
			}
		case "tool_use":
			name := part.Get("name").String()
			if name == "" {
				name = "unknown"
			}
			c.tools = append(c.tools, name)
			texts = append(texts, "[Tool: "+name+"]")
		case "tool_result":
			if t := toolResultText(part.Get("content")); t != "" {
				results = append(results, t)
			}
		}
		return true
	})

	c.onlyToolResults = len(results) > 0 && len(texts) == 0
	c.text = strings.Join(append(texts, results...), "\n")
	c.thinking = strings.Join(thinking, "\n")
	return c
}

func toolResultText(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.String()
	}
	var parts []string
	v.ForEach(func(_, part gjson.Result) bool {
		if t := part.Get("text").String(); t != "" {
			parts = append(parts, t)
		}
		return true
	})
	return strings.Join(parts, "\n")
}

func parseTimestamp(v gjson.Result) time.Time {
	switch v.Type {
	case gjson.Number:
		n := v.Int()
		if n > 1e12 {
			return time.UnixMilli(n).UTC()
		}
		return time.Unix(n, 0).UTC()
	case gjson.String:
		s := v.String()
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// sessionID prefers a UUID in the file name, then one found in the
// records, and otherwise derives a stable UUID from the path.
func sessionID(path, recordID string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if id, err := uuid.Parse(stem); err == nil {
		return id.String()
	}
	if len(stem) > 36 {
		if id, err := uuid.Parse(stem[len(stem)-36:]); err == nil {
			return id.String()
		}
	}
	if id, err := uuid.Parse(recordID); err == nil {
		return id.String()
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path)).String()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
