// Package watch reports transcript files that changed on disk so the
// browser can reload its catalog.
package watch

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/Zuo-Peng/ai-session-browser/internal/logging"
)

type Options struct {
	Extension string
	MaxDepth  int
	SkipDirs  []string
	// Debounce is how long a path must be quiet before it is reported.
	Debounce time.Duration
	// MinInterval is the minimum gap between two onChange calls. Paths
	// that become ready sooner stay pending until the limiter allows.
	MinInterval time.Duration
	Logger      *slog.Logger
}

// Watcher batches fsnotify events into onChange calls.
type Watcher struct {
	opts     Options
	onChange func(paths []string)
	fsw      *fsnotify.Watcher
	limiter  *rate.Limiter
	log      *slog.Logger
	skip     map[string]struct{}

	mu      sync.Mutex
	pending map[string]time.Time
	roots   map[string]int // watched dir -> depth below its root

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	now      func() time.Time
}

func New(opts Options, onChange func(paths []string)) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watch: onChange is nil")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}
	w := &Watcher{
		opts:     opts,
		onChange: onChange,
		fsw:      fsw,
		limiter:  rate.NewLimiter(limit, 1),
		log:      opts.Logger,
		skip:     make(map[string]struct{}, len(opts.SkipDirs)),
		pending:  make(map[string]time.Time),
		roots:    make(map[string]int),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
	}
	if w.log == nil {
		w.log = logging.ForComponent(logging.CompWatch)
	}
	for _, d := range opts.SkipDirs {
		w.skip[d] = struct{}{}
	}
	return w, nil
}

// AddRoot watches root and its subdirectories down to MaxDepth. It
// returns how many directories were added and how many failed.
func (w *Watcher) AddRoot(root string) (watched, failed int, err error) {
	if _, err := os.Stat(root); err != nil {
		return 0, 0, err
	}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			failed++
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		depth := depthBelow(root, path)
		if path != root {
			if _, skip := w.skip[d.Name()]; skip {
				return filepath.SkipDir
			}
		}
		if w.add(path, depth) {
			watched++
		} else {
			failed++
		}
		if depth >= w.opts.MaxDepth {
			return filepath.SkipDir
		}
		return nil
	})
	return watched, failed, err
}

func (w *Watcher) add(dir string, depth int) bool {
	if err := w.fsw.Add(dir); err != nil {
		w.log.Debug("cannot watch directory", "dir", dir, "err", err)
		return false
	}
	w.mu.Lock()
	w.roots[dir] = depth
	w.mu.Unlock()
	return true
}

func depthBelow(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}

func (w *Watcher) Start() {
	if w.started.CompareAndSwap(false, true) {
		go w.loop()
	}
}

// Stop ends the event loop and releases the fsnotify handle. Pending
// paths are dropped.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		if w.started.Load() {
			<-w.done
		}
		w.fsw.Close()
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	tick := w.opts.Debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", "err", err)
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if ev.Op&fsnotify.Create != 0 && w.watchNewDir(ev.Name) {
		return
	}
	if !strings.EqualFold(filepath.Ext(ev.Name), w.opts.Extension) {
		return
	}
	w.mu.Lock()
	w.pending[ev.Name] = w.now()
	w.mu.Unlock()
}

// watchNewDir adds a freshly created directory that is still within
// MaxDepth. Files already inside it are marked pending.
func (w *Watcher) watchNewDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	if _, skip := w.skip[filepath.Base(path)]; skip {
		return true
	}
	w.mu.Lock()
	parent, ok := w.roots[filepath.Dir(path)]
	w.mu.Unlock()
	if !ok || parent+1 > w.opts.MaxDepth {
		return true
	}
	w.add(path, parent+1)

	entries, err := os.ReadDir(path)
	if err != nil {
		return true
	}
	now := w.now()
	w.mu.Lock()
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), w.opts.Extension) {
			w.pending[filepath.Join(path, e.Name())] = now
		}
	}
	w.mu.Unlock()
	return true
}

func (w *Watcher) flush() {
	w.mu.Lock()
	now := w.now()
	var ready []string
	for path, t := range w.pending {
		if now.Sub(t) >= w.opts.Debounce {
			ready = append(ready, path)
		}
	}
	if len(ready) == 0 || !w.limiter.AllowN(now, 1) {
		w.mu.Unlock()
		return
	}
	for _, path := range ready {
		delete(w.pending, path)
	}
	w.mu.Unlock()
	sort.Strings(ready)

	w.log.Debug("transcripts changed", "files", len(ready))
	w.onChange(ready)
}
