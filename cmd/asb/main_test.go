package main

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/ai-session-browser/internal/errs"
)

func TestParseSince(t *testing.T) {
	got, err := parseSince("2026-03-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.Local), got)

	got, err = parseSince("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseSince("last week")
	assert.Error(t, err)
}

func TestTSVField(t *testing.T) {
	assert.Equal(t, "a b c d", tsvField("a\tb\nc\rd"))
}

func TestColorizeSnippet(t *testing.T) {
	assert.Equal(t, "x "+sColorBoldRed+"hit"+sColorReset, colorizeSnippet("x >>>hit<<<"))
	assert.Equal(t, "generic", colorizeSource("generic"))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 3, exitCode(fmt.Errorf("load: %w", errs.Timeout(errs.OpScan, "/r", time.Second, time.Second))))
	assert.Equal(t, 2, exitCode(errs.FromFS(errs.OpScan, "/r", fs.ErrPermission)))
	assert.Equal(t, 1, exitCode(errs.FromFS("open", "/r/a.jsonl", fs.ErrNotExist)))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}
