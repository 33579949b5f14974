// Package catalog runs the load pipeline: scan every root, parse the
// transcripts, attach terminal metadata and order the result.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Zuo-Peng/ai-session-browser/internal/auxmeta"
	"github.com/Zuo-Peng/ai-session-browser/internal/config"
	"github.com/Zuo-Peng/ai-session-browser/internal/errs"
	"github.com/Zuo-Peng/ai-session-browser/internal/logging"
	"github.com/Zuo-Peng/ai-session-browser/internal/parse"
	"github.com/Zuo-Peng/ai-session-browser/internal/pool"
	"github.com/Zuo-Peng/ai-session-browser/internal/scan"
)

// Claude writes sub-agent transcripts here; they repeat the parent session.
var skipDirs = []string{"subagents"}

type Stats struct {
	Roots          int
	MissingRoots   int
	Scanned        int
	Parsed         int
	Reused         int
	Pruned         int
	Duplicates     int // files reported again by an overlapping root
	Empty          int // files that produced no blocks
	Unreadable     int
	MalformedLines int
	AuxRecords     int
	AuxAttached    int
	Elapsed        time.Duration
}

// Skipped counts files that did not become a listed session.
func (s Stats) Skipped() int {
	return s.Empty
}

func (s Stats) String() string {
	return fmt.Sprintf("%d scanned, %d skipped", s.Scanned, s.Skipped())
}

// Detail is the long form used by `asb scan` and `asb doctor`.
func (s Stats) Detail() string {
	return fmt.Sprintf("roots=%d missing=%d scanned=%d parsed=%d reused=%d pruned=%d duplicates=%d empty=%d unreadable=%d malformed_lines=%d aux=%d/%d",
		s.Roots, s.MissingRoots, s.Scanned, s.Parsed, s.Reused, s.Pruned, s.Duplicates, s.Empty, s.Unreadable,
		s.MalformedLines, s.AuxAttached, s.AuxRecords)
}

type Phase string

const (
	PhaseScan  Phase = "scan"
	PhaseParse Phase = "parse"
	PhaseAux   Phase = "aux"
	PhaseDone  Phase = "done"
)

type Progress struct {
	Phase  Phase
	Root   string
	Files  int // files found so far
	Parsed int
	Total  int // files to parse, known once scanning ends
}

type Options struct {
	// OnProgress may be called from pool workers; it must be safe for
	// concurrent use.
	OnProgress func(Progress)
	Logger     *slog.Logger
}

type Catalog struct {
	Sessions  []*parse.Session
	Stats     Stats
	AuxSource string // snapshot file the aux records came from

	byID   map[string]int
	byPath map[string]int
}

// Loader keeps the previous load so Reload only re-parses files whose
// size or modification time changed.
type Loader struct {
	cfg      *config.Config
	opts     Options
	log      *slog.Logger
	pool     *pool.Pool
	parser   *parse.Parser
	previous map[string]*parse.Session
}

func NewLoader(cfg *config.Config, opts Options) *Loader {
	log := opts.Logger
	if log == nil {
		log = logging.ForComponent(logging.CompCatalog)
	}
	kw, unknown := parse.DefaultKeywords().WithOverrides(cfg.Keywords)
	if len(unknown) > 0 {
		log.Warn("ignoring unknown keyword tables", "keys", unknown)
	}
	return &Loader{
		cfg:  cfg,
		opts: opts,
		log:  log,
		pool: pool.New(cfg.Workers),
		parser: parse.New(parse.Options{
			MaxLineBytes: cfg.MaxLineBytes,
			Keywords:     kw,
		}),
		previous: map[string]*parse.Session{},
	}
}

func (l *Loader) Close() {
	l.pool.Close()
}

// Load is a one-shot NewLoader + Load + Close.
func Load(ctx context.Context, cfg *config.Config, opts Options) (*Catalog, error) {
	l := NewLoader(cfg, opts)
	defer l.Close()
	return l.Load(ctx)
}

// Load scans, parses and merges. Missing roots are skipped unless every
// root is missing; a scan timeout or an unreadable root aborts the load.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	start := time.Now()
	stats := Stats{Roots: len(l.cfg.Roots)}

	files, err := l.scanRoots(ctx, &stats)
	if err != nil {
		return nil, err
	}
	stats.Scanned = len(files)

	sessions, err := l.parseFiles(ctx, files, &stats)
	if err != nil {
		return nil, err
	}

	cat := &Catalog{}
	if l.cfg.Aux.Enabled {
		l.progress(Progress{Phase: PhaseAux, Parsed: len(files), Total: len(files)})
		recs, src, err := auxmeta.ReadDir(l.cfg.Aux.ResurrectDir)
		switch {
		case errors.Is(err, errs.ErrNotFound):
			l.log.Debug("no terminal snapshots", "dir", l.cfg.Aux.ResurrectDir)
		case err != nil:
			l.log.Warn("reading terminal snapshots failed", "dir", l.cfg.Aux.ResurrectDir, "err", err)
		default:
			stats.AuxRecords = len(recs)
			stats.AuxAttached = auxmeta.MergeAll(sessions, recs, l.cfg.Aux.MinConfidence)
			cat.AuxSource = src
		}
	}

	sortSessions(sessions)
	cat.Sessions = sessions
	cat.reindex()

	stats.Elapsed = time.Since(start)
	cat.Stats = stats
	l.progress(Progress{Phase: PhaseDone, Parsed: len(files), Total: len(files)})
	l.log.Info("catalog loaded", "sessions", len(sessions), "summary", stats.String(),
		"elapsed", stats.Elapsed.Round(time.Millisecond))
	return cat, nil
}

func (l *Loader) scanRoots(ctx context.Context, stats *Stats) ([]scan.FileInfo, error) {
	var files []scan.FileInfo
	seen := map[string]bool{}

	for _, root := range l.cfg.Roots {
		res, err := scan.Scan(ctx, root, scan.Options{
			Extension:     l.cfg.Extension,
			MaxDepth:      l.cfg.MaxDepth,
			Timeout:       l.cfg.ScanTimeout.Duration,
			ProgressEvery: l.cfg.ProgressEvery,
			SkipDirs:      skipDirs,
			Pool:          l.pool,
			OnProgress: func(p scan.Progress) {
				l.progress(Progress{Phase: PhaseScan, Root: p.Root, Files: len(files) + p.Files})
			},
		})
		if errs.KindOf(err) == errs.KindNotFound {
			stats.MissingRoots++
			l.log.Warn("skipping missing root", "root", root)
			continue
		}
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, errs.Invariant(errs.OpLoad, root, "scan returned no result")
		}
		for _, f := range res.Files {
			if strings.Contains(filepath.Base(f.Path), "sessions-index") {
				continue
			}
			// Nested or repeated roots report the same file again.
			if seen[f.Path] {
				stats.Duplicates++
				l.log.Warn("skipping file", "err", errs.Invariant(errs.OpLoad, f.Path, "reported by more than one root"))
				continue
			}
			seen[f.Path] = true
			files = append(files, f)
		}
	}

	if stats.Roots > 0 && stats.MissingRoots == stats.Roots {
		return nil, &errs.Error{
			Kind: errs.KindNotFound,
			Op:   errs.OpLoad,
			Path: strings.Join(l.cfg.Roots, ", "),
			Err:  errors.New("no transcript root exists"),
		}
	}
	return files, nil
}

func (l *Loader) parseFiles(ctx context.Context, files []scan.FileInfo, stats *Stats) ([]*parse.Session, error) {
	var todo []string
	for _, f := range files {
		if prev, ok := l.previous[f.Path]; ok && prev.Size == f.Size && prev.ModTime.Equal(f.ModTime) {
			continue
		}
		todo = append(todo, f.Path)
	}

	var done atomic.Int64
	reused := int64(len(files) - len(todo))
	done.Store(reused)
	parsed, err := pool.Map(ctx, l.pool, todo, func(path string) *parse.Session {
		s := l.parser.ParseFile(path)
		l.progress(Progress{Phase: PhaseParse, Parsed: int(done.Add(1)), Total: len(files)})
		return s
	})
	if err != nil {
		return nil, err
	}

	byPath := make(map[string]*parse.Session, len(parsed))
	for _, s := range parsed {
		byPath[s.Path] = s
	}

	next := make(map[string]*parse.Session, len(files))
	var out []*parse.Session
	for _, f := range files {
		s, fresh := byPath[f.Path]
		if fresh {
			stats.Parsed++
		} else {
			s = l.previous[f.Path]
			stats.Reused++
		}
		next[f.Path] = s

		stats.MalformedLines += s.Skipped
		if s.ReadErr != nil {
			stats.Unreadable++
		}
		if len(s.Blocks) == 0 {
			stats.Empty++
			continue
		}
		out = append(out, s)
	}
	for path := range l.previous {
		if _, ok := next[path]; !ok {
			stats.Pruned++
		}
	}
	l.previous = next
	return out, nil
}

func (l *Loader) progress(p Progress) {
	if l.opts.OnProgress != nil {
		l.opts.OnProgress(p)
	}
}

// sortSessions orders newest first; equal creation times fall back to
// path so the order is stable across loads.
func sortSessions(sessions []*parse.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Path < b.Path
	})
}

func (c *Catalog) reindex() {
	c.byID = make(map[string]int, len(c.Sessions))
	c.byPath = make(map[string]int, len(c.Sessions))
	for i, s := range c.Sessions {
		if _, dup := c.byID[s.ID]; !dup {
			c.byID[s.ID] = i
		}
		c.byPath[s.Path] = i
	}
}

// Find resolves a session by id, unique id prefix, or file path.
func (c *Catalog) Find(ref string) (*parse.Session, int, error) {
	if i, ok := c.byID[ref]; ok {
		return c.Sessions[i], i, nil
	}
	if abs, err := filepath.Abs(ref); err == nil {
		if i, ok := c.byPath[abs]; ok {
			return c.Sessions[i], i, nil
		}
	}
	if i, ok := c.byPath[ref]; ok {
		return c.Sessions[i], i, nil
	}

	found := -1
	for i, s := range c.Sessions {
		if ref != "" && strings.HasPrefix(s.ID, ref) {
			if found >= 0 {
				return nil, -1, fmt.Errorf("session %q is ambiguous: matches %s and %s",
					ref, c.Sessions[found].ID, s.ID)
			}
			found = i
		}
	}
	if found < 0 {
		return nil, -1, &errs.Error{Kind: errs.KindNotFound, Op: "find", Path: ref, Err: errors.New("no such session")}
	}
	return c.Sessions[found], found, nil
}
