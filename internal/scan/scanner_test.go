package scan

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/ai-session-browser/internal/errs"
	"github.com/Zuo-Peng/ai-session-browser/internal/pool"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))
}

func relPaths(t *testing.T, root string, res *Result) []string {
	t.Helper()
	var out []string
	for _, f := range res.Files {
		rel, err := filepath.Rel(root, f.Path)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out
}

func testOpts(buf *bytes.Buffer) Options {
	return Options{
		Extension: ".jsonl",
		MaxDepth:  6,
		Timeout:   5 * time.Second,
		Logger:    slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
}

func TestScanMatchesExtensionCaseInsensitively(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jsonl"))
	touch(t, filepath.Join(root, "B.JSONL"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "proj", "c.JsonL"))

	var buf bytes.Buffer
	res, err := Scan(context.Background(), root, testOpts(&buf))
	require.NoError(t, err)
	assert.Equal(t, []string{"B.JSONL", "a.jsonl", "proj/c.JsonL"}, relPaths(t, root, res))
	assert.Equal(t, 2, res.Dirs)
}

func TestScanDepthLimit(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "l0.jsonl"))
	touch(t, filepath.Join(root, "d1", "l1.jsonl"))
	touch(t, filepath.Join(root, "d1", "d2", "l2.jsonl"))
	touch(t, filepath.Join(root, "d1", "d2", "d3", "l3.jsonl"))
	touch(t, filepath.Join(root, "d1", "d2", "d3", "d4", "l4.jsonl"))

	var buf bytes.Buffer
	opts := testOpts(&buf)
	opts.MaxDepth = 2
	res, err := Scan(context.Background(), root, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"d1/d2/l2.jsonl", "d1/l1.jsonl", "l0.jsonl"}, relPaths(t, root, res))
	assert.Equal(t, 1, res.DepthSkipped)
	assert.Contains(t, buf.String(), "depth limit reached")
	assert.Contains(t, buf.String(), filepath.Join(root, "d1", "d2", "d3"))
	for _, f := range res.Files {
		assert.LessOrEqual(t, f.Depth, 2)
	}
}

func TestScanZeroDepthReadsRootOnly(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "top.jsonl"))
	touch(t, filepath.Join(root, "sub", "deep.jsonl"))

	var buf bytes.Buffer
	opts := testOpts(&buf)
	opts.MaxDepth = 0
	res, err := Scan(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"top.jsonl"}, relPaths(t, root, res))
}

func TestScanSymlinkCycle(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a", "one.jsonl"))
	touch(t, filepath.Join(root, "a", "b", "two.jsonl"))
	// a/b/up -> a and a/loop -> root form two cycles.
	require.NoError(t, os.Symlink(filepath.Join(root, "a"), filepath.Join(root, "a", "b", "up")))
	require.NoError(t, os.Symlink(root, filepath.Join(root, "a", "loop")))

	var buf bytes.Buffer
	opts := testOpts(&buf)
	opts.MaxDepth = 50
	opts.Timeout = 2 * time.Second
	res, err := Scan(context.Background(), root, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"a/b/two.jsonl", "a/one.jsonl"}, relPaths(t, root, res))
	assert.Equal(t, 3, res.Dirs, "root, a and a/b are each read once")
	assert.Equal(t, 2, res.Revisits)
}

func TestScanFollowsSymlinkedDirectory(t *testing.T) {
	outside := t.TempDir()
	touch(t, filepath.Join(outside, "elsewhere.jsonl"))
	root := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linked")))

	var buf bytes.Buffer
	res, err := Scan(context.Background(), root, testOpts(&buf))
	require.NoError(t, err)
	assert.Equal(t, []string{"linked/elsewhere.jsonl"}, relPaths(t, root, res))
}

func TestScanSkipDirs(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "p", "main.jsonl"))
	touch(t, filepath.Join(root, "p", "subagents", "agent.jsonl"))

	var buf bytes.Buffer
	opts := testOpts(&buf)
	opts.SkipDirs = []string{"subagents"}
	res, err := Scan(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"p/main.jsonl"}, relPaths(t, root, res))
}

func TestScanMissingRoot(t *testing.T) {
	var buf bytes.Buffer
	_, err := Scan(context.Background(), filepath.Join(t.TempDir(), "nope"), testOpts(&buf))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestScanRootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.jsonl")
	touch(t, path)
	var buf bytes.Buffer
	_, err := Scan(context.Background(), path, testOpts(&buf))
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestScanUnreadableSubdirIsSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	touch(t, filepath.Join(root, "ok", "a.jsonl"))
	locked := filepath.Join(root, "locked")
	touch(t, filepath.Join(locked, "b.jsonl"))
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	var buf bytes.Buffer
	res, err := Scan(context.Background(), root, testOpts(&buf))
	require.NoError(t, err)
	assert.Equal(t, []string{"ok/a.jsonl"}, relPaths(t, root, res))
	assert.Equal(t, 1, res.Unreadable)
	assert.Contains(t, buf.String(), "skipping unreadable directory")
}

func TestScanUnreadableRootIsTerminal(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	require.NoError(t, os.Chmod(root, 0o000))
	t.Cleanup(func() { os.Chmod(root, 0o755) })

	var buf bytes.Buffer
	_, err := Scan(context.Background(), root, testOpts(&buf))
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)
}

func TestScanTimeoutReturnsNoPartialResult(t *testing.T) {
	root := t.TempDir()
	for i := range 20 {
		touch(t, filepath.Join(root, string(rune('a'+i)), "x.jsonl"))
	}

	var buf bytes.Buffer
	opts := testOpts(&buf)
	opts.Timeout = time.Nanosecond
	res, err := Scan(context.Background(), root, opts)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrScanTimeout)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, time.Nanosecond, e.Limit)
	assert.Positive(t, e.Elapsed)
	assert.Equal(t, root, e.Path)
}

func TestScanCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	_, err := Scan(ctx, t.TempDir(), testOpts(&buf))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanOnClosedPool(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jsonl"))

	p := pool.New(2)
	p.Close()

	var buf bytes.Buffer
	opts := testOpts(&buf)
	opts.Pool = p
	res, err := Scan(context.Background(), root, opts)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, pool.ErrClosed)
}

func TestScanProgressAndSharedPool(t *testing.T) {
	root := t.TempDir()
	for i := range 7 {
		touch(t, filepath.Join(root, "d", string(rune('a'+i))+".jsonl"))
	}

	p := pool.New(3)
	defer p.Close()

	var got []Progress
	var buf bytes.Buffer
	opts := testOpts(&buf)
	opts.Pool = p
	opts.ProgressEvery = 3
	opts.OnProgress = func(pr Progress) { got = append(got, pr) }

	res, err := Scan(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Len(t, res.Files, 7)
	require.Len(t, got, 3) // at 3, at 6, and the final count
	assert.Equal(t, 3, got[0].Files)
	assert.Equal(t, 6, got[1].Files)
	assert.Equal(t, Progress{Root: root, Dirs: 2, Files: 7}, got[2])
}

func TestConcurrentScansDoNotInterfere(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	touch(t, filepath.Join(a, "x", "1.jsonl"))
	touch(t, filepath.Join(b, "y", "2.jsonl"))
	touch(t, filepath.Join(b, "y", "3.jsonl"))

	type out struct {
		res *Result
		err error
	}
	ch := make(chan out, 2)
	for _, root := range []string{a, b} {
		go func() {
			var buf bytes.Buffer
			res, err := Scan(context.Background(), root, testOpts(&buf))
			ch <- out{res, err}
		}()
	}
	counts := map[string]int{}
	for range 2 {
		o := <-ch
		require.NoError(t, o.err)
		counts[o.res.Root] = len(o.res.Files)
	}
	assert.Equal(t, map[string]int{a: 1, b: 2}, counts)
}
