package watch

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) onChange(paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, paths)
}

func (r *recorder) all() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func newTestWatcher(t *testing.T, opts Options, rec *recorder) *Watcher {
	t.Helper()
	if opts.Extension == "" {
		opts.Extension = ".jsonl"
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = 3
	}
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := New(opts, rec.onChange)
	require.NoError(t, err)
	t.Cleanup(w.Stop)
	return w
}

func TestNewRejectsNilCallback(t *testing.T) {
	_, err := New(Options{}, nil)
	assert.Error(t, err)
}

func TestFlushWaitsForDebounce(t *testing.T) {
	rec := &recorder{}
	w := newTestWatcher(t, Options{Debounce: time.Second}, rec)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	w.handle(fsnotify.Event{Name: "/r/b.jsonl", Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: "/r/a.jsonl", Op: fsnotify.Create})
	w.handle(fsnotify.Event{Name: "/r/notes.txt", Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: "/r/c.jsonl", Op: fsnotify.Chmod})

	clock = clock.Add(500 * time.Millisecond)
	w.flush()
	assert.Empty(t, rec.all())

	clock = clock.Add(500 * time.Millisecond)
	w.flush()
	assert.Equal(t, [][]string{{"/r/a.jsonl", "/r/b.jsonl"}}, rec.all())

	w.flush()
	assert.Len(t, rec.all(), 1, "nothing left pending")
}

func TestFlushRateLimited(t *testing.T) {
	rec := &recorder{}
	w := newTestWatcher(t, Options{Debounce: time.Millisecond, MinInterval: time.Minute}, rec)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	w.handle(fsnotify.Event{Name: "/r/a.jsonl", Op: fsnotify.Write})
	clock = clock.Add(time.Second)
	w.flush()
	require.Len(t, rec.all(), 1)

	w.handle(fsnotify.Event{Name: "/r/b.jsonl", Op: fsnotify.Write})
	clock = clock.Add(time.Second)
	w.flush()
	assert.Len(t, rec.all(), 1, "second reload within the interval is held back")

	clock = clock.Add(time.Minute)
	w.flush()
	calls := rec.all()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"/r/b.jsonl"}, calls[1])
}

func TestAddRootRespectsDepthAndSkip(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"a/b/c/d", "a/subagents", "e"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
	rec := &recorder{}
	w := newTestWatcher(t, Options{MaxDepth: 2, SkipDirs: []string{"subagents"}}, rec)

	watched, failed, err := w.AddRoot(root)
	require.NoError(t, err)
	assert.Zero(t, failed)
	// root, a, a/b, e
	assert.Equal(t, 4, watched)

	_, _, err = w.AddRoot(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestDetectsNewTranscript(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	w := newTestWatcher(t, Options{Debounce: 20 * time.Millisecond}, rec)
	_, _, err := w.AddRoot(root)
	require.NoError(t, err)
	w.Start()

	sub := filepath.Join(root, "proj")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	path := filepath.Join(sub, "s.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	require.Eventually(t, func() bool {
		for _, call := range rec.all() {
			for _, p := range call {
				if p == path {
					return true
				}
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
}
