package errs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromFS(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want Kind
	}{
		{"missing", fs.ErrNotExist, KindNotFound},
		{"wrapped missing", &os.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist}, KindNotFound},
		{"permission", fs.ErrPermission, KindPermissionDenied},
		{"other", errors.New("disk on fire"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromFS("readdir", "/x", tt.in)
			assert.Equal(t, tt.want, KindOf(err))
			assert.ErrorIs(t, err, tt.in)
		})
	}
	assert.NoError(t, FromFS("stat", "/x", nil))
}

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("load: %w", Timeout("scan", "/root", 3*time.Second, 2*time.Second))
	assert.ErrorIs(t, err, ErrScanTimeout)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindScanTimeout, KindOf(err))
}

func TestErrorMessage(t *testing.T) {
	e := Timeout("scan", "/root", 2500*time.Millisecond, 2*time.Second)
	assert.Equal(t, "scan /root: scan timeout after 2.5s (limit 2s)", e.Error())

	m := Malformed("/a.jsonl", 7, errors.New("invalid json"))
	assert.Equal(t, "parse /a.jsonl:7: malformed record: invalid json", m.Error())

	inv := Invariant("scan", "/a/b", "directory identity seen twice")
	assert.ErrorIs(t, inv, ErrInvariantViolation)
}

func TestTerminal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", fmt.Errorf("load: %w", Timeout(OpScan, "/r", time.Second, time.Second)), true},
		{"missing root", FromFS(OpScan, "/r", fs.ErrNotExist), true},
		{"unreadable root", FromFS(OpScan, "/r", fs.ErrPermission), true},
		{"all roots missing", &Error{Kind: KindNotFound, Op: OpLoad, Path: "/a, /b"}, true},
		{"unreadable transcript", FromFS("open", "/r/a.jsonl", fs.ErrPermission), false},
		{"unknown session", &Error{Kind: KindNotFound, Op: "find", Path: "abc"}, false},
		{"malformed line", Malformed("/a.jsonl", 3, errors.New("bad")), false},
		{"untyped", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Terminal(tt.err))
		})
	}
}
