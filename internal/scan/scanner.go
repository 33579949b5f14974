// Package scan discovers transcript files under a root directory with a
// breadth-first walk that is bounded by depth and by a single deadline.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/Zuo-Peng/ai-session-browser/internal/errs"
	"github.com/Zuo-Peng/ai-session-browser/internal/logging"
	"github.com/Zuo-Peng/ai-session-browser/internal/pool"
)

type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
	Depth   int // depth of the directory holding the file; the root is 0
}

type Progress struct {
	Root  string
	Dirs  int
	Files int
}

type ProgressFunc func(Progress)

type Options struct {
	Extension     string // matched case-insensitively, including the dot
	MaxDepth      int
	Timeout       time.Duration // zero means no deadline beyond ctx
	ProgressEvery int
	OnProgress    ProgressFunc
	SkipDirs      []string // directory base names never descended into
	Pool          *pool.Pool
	Logger        *slog.Logger
}

type Result struct {
	Root         string
	Files        []FileInfo
	Dirs         int // distinct directories read
	Unreadable   int // subdirectories skipped after a read error
	DepthSkipped int // subdirectories beyond MaxDepth
	Revisits     int // directories skipped because their identity was already seen
	Elapsed      time.Duration
}

type queued struct {
	path  string
	depth int
}

type dirResult struct {
	id      fileID
	files   []FileInfo
	subdirs []string
	err     error
}

// walker owns the traversal state for one Scan call.
type walker struct {
	root     string
	opts     Options
	log      *slog.Logger
	queue    []queued
	visited  map[fileID]struct{}
	skip     map[string]struct{}
	res      *Result
	nextTick int
}

// Scan walks root breadth-first and returns every file whose extension
// matches opts.Extension. If the deadline passes the whole scan fails
// with a ScanTimeout error and no files are returned.
func Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	start := time.Now()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, errs.FromFS(errs.OpScan, root, err)
	}
	if !info.IsDir() {
		return nil, &errs.Error{Kind: errs.KindNotFound, Op: errs.OpScan, Path: root, Err: errors.New("not a directory")}
	}

	p := opts.Pool
	if p == nil {
		p = pool.New(1)
		defer p.Close()
	}

	w := &walker{
		root:    root,
		opts:    opts,
		log:     opts.Logger,
		queue:   []queued{{path: root}},
		visited: make(map[fileID]struct{}),
		skip:    make(map[string]struct{}, len(opts.SkipDirs)),
		res:     &Result{Root: root},
	}
	if w.log == nil {
		w.log = logging.ForComponent(logging.CompScan)
	}
	for _, d := range opts.SkipDirs {
		w.skip[d] = struct{}{}
	}
	w.nextTick = opts.ProgressEvery

	fail := func(err error) error {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errs.Timeout(errs.OpScan, root, time.Since(start), opts.Timeout)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("scan %s: %w", root, err)
	}

	for len(w.queue) > 0 {
		n := min(len(w.queue), p.Workers())
		batch := w.queue[:n:n]
		w.queue = w.queue[n:]

		results := make([]dirResult, n)
		if err := p.Batch(ctx, n, func(i int) {
			results[i] = readDir(batch[i].path, batch[i].depth, opts.Extension)
		}); err != nil {
			return nil, fail(err)
		}

		for i, r := range results {
			if err := w.absorb(batch[i], r); err != nil {
				return nil, err
			}
			// Checkpoint: give the scheduler a turn and honour the deadline
			// before touching the next directory.
			runtime.Gosched()
			if err := ctx.Err(); err != nil {
				return nil, fail(err)
			}
		}
	}

	w.res.Elapsed = time.Since(start)
	w.emit()
	w.log.Debug("scan done", "root", root, "dirs", w.res.Dirs, "files", len(w.res.Files),
		"elapsed", w.res.Elapsed.Round(time.Millisecond))
	return w.res, nil
}

func (w *walker) absorb(dir queued, r dirResult) error {
	if r.err != nil {
		if dir.path == w.root {
			return errs.FromFS(errs.OpScan, w.root, r.err)
		}
		w.res.Unreadable++
		w.log.Warn("skipping unreadable directory", "dir", dir.path, "err", r.err)
		return nil
	}

	if _, dup := w.visited[r.id]; dup {
		w.res.Revisits++
		w.log.Debug("directory already visited", "dir", dir.path)
		return nil
	}
	w.visited[r.id] = struct{}{}
	w.res.Dirs++

	for _, f := range r.files {
		w.res.Files = append(w.res.Files, f)
		if w.opts.ProgressEvery > 0 && len(w.res.Files) >= w.nextTick {
			w.nextTick += w.opts.ProgressEvery
			w.emit()
		}
	}

	for _, sub := range r.subdirs {
		if _, ok := w.skip[filepath.Base(sub)]; ok {
			continue
		}
		if dir.depth+1 > w.opts.MaxDepth {
			w.res.DepthSkipped++
			w.log.Warn("depth limit reached, not descending", "dir", sub, "max_depth", w.opts.MaxDepth)
			continue
		}
		w.queue = append(w.queue, queued{path: sub, depth: dir.depth + 1})
	}
	return nil
}

func (w *walker) emit() {
	if w.opts.OnProgress != nil {
		w.opts.OnProgress(Progress{Root: w.root, Dirs: w.res.Dirs, Files: len(w.res.Files)})
	}
}

// readDir runs on a pool worker and does all blocking I/O for one
// directory. Symlinks are resolved so linked directories are followed.
func readDir(path string, depth int, ext string) dirResult {
	id, err := dirID(path)
	if err != nil {
		return dirResult{err: err}
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return dirResult{err: err}
	}

	r := dirResult{id: id}
	for _, e := range entries {
		full := filepath.Join(path, e.Name())
		mode := e.Type()
		var info os.FileInfo
		if mode&os.ModeSymlink != 0 {
			info, err = os.Stat(full)
			if err != nil {
				continue // dangling link
			}
			mode = info.Mode().Type()
		}
		switch {
		case mode.IsDir():
			r.subdirs = append(r.subdirs, full)
		case mode.IsRegular():
			if !hasExt(e.Name(), ext) {
				continue
			}
			if info == nil {
				if info, err = e.Info(); err != nil {
					continue
				}
			}
			r.files = append(r.files, FileInfo{
				Path:    full,
				Size:    info.Size(),
				ModTime: info.ModTime(),
				Depth:   depth,
			})
		}
	}
	return r
}

func hasExt(name, ext string) bool {
	if ext == "" {
		return true
	}
	return len(name) > len(ext) && strings.EqualFold(name[len(name)-len(ext):], ext)
}
