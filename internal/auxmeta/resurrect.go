// Package auxmeta reads pane records saved by tmux-resurrect and
// attaches the best matching one to each parsed session.
package auxmeta

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/Zuo-Peng/ai-session-browser/internal/errs"
)

const (
	lastLink     = "last"
	filePrefix   = "tmux_resurrect_"
	fileSuffix   = ".txt"
	stampLayout  = "20060102T150405"
	paneLineType = "pane"
)

// Record is one pane from a resurrect snapshot.
type Record struct {
	Session string
	Window  string
	Pane    string
	Dir     string
	Command string
	Active  bool
	SavedAt time.Time
}

// Latest returns the snapshot tmux-resurrect would restore: the target
// of the "last" link, or else the newest tmux_resurrect_*.txt.
func Latest(dir string) (string, error) {
	if _, err := os.Stat(dir); err != nil {
		return "", errs.FromFS("aux", dir, err)
	}
	if target, err := filepath.EvalSymlinks(filepath.Join(dir, lastLink)); err == nil {
		return target, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", &errs.Error{Kind: errs.KindNotFound, Op: "aux", Path: dir, Err: errors.New("no resurrect snapshots")}
	}
	// Stamps sort lexically in time order.
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// ReadDir loads the records from the latest snapshot in dir.
func ReadDir(dir string) ([]Record, string, error) {
	path, err := Latest(dir)
	if err != nil {
		return nil, "", err
	}
	recs, err := ReadFile(path)
	return recs, path, err
}

func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.FromFS("aux", path, err)
	}
	defer f.Close()

	savedAt, ok := stampOf(path)
	if !ok {
		if info, err := f.Stat(); err == nil {
			savedAt = info.ModTime()
		}
	}
	recs, err := Parse(f, savedAt)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return recs, nil
}

// Parse reads pane lines. Window, state and unknown lines are skipped.
func Parse(r io.Reader, savedAt time.Time) ([]Record, error) {
	var out []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if rec, ok := parsePane(sc.Text()); ok {
			rec.SavedAt = savedAt
			out = append(out, rec)
		}
	}
	return out, sc.Err()
}

// parsePane understands both layouts written by tmux-resurrect: with a
// pane title (11 fields) and the older one without (10 fields).
func parsePane(line string) (Record, bool) {
	f := strings.Split(line, "\t")
	if len(f) < 10 || f[0] != paneLineType {
		return Record{}, false
	}
	dirIdx, activeIdx, cmdIdx, fullIdx := 6, 7, 8, 9
	if len(f) >= 11 {
		dirIdx, activeIdx, cmdIdx, fullIdx = 7, 8, 9, 10
	}

	cmd := strings.TrimPrefix(f[fullIdx], ":")
	if cmd == "" {
		cmd = f[cmdIdx]
	}
	return Record{
		Session: f[1],
		Window:  f[2],
		Pane:    f[5],
		Dir:     unescapeDir(strings.TrimPrefix(f[dirIdx], ":")),
		Command: NormalizeCommand(cmd),
		Active:  f[activeIdx] == "1",
	}, true
}

// NormalizeCommand splits cmd the way a shell would and rejoins the
// words with single spaces.
func NormalizeCommand(cmd string) string {
	words, err := shlex.Split(cmd)
	if err != nil {
		words = strings.Fields(cmd)
	}
	return strings.Join(words, " ")
}

func unescapeDir(dir string) string {
	return strings.ReplaceAll(dir, `\ `, " ")
}

func stampOf(path string) (time.Time, bool) {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, filePrefix) || !strings.HasSuffix(base, fileSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(base, filePrefix), fileSuffix)
	t, err := time.ParseInLocation(stampLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
