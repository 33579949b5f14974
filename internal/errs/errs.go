// Package errs defines the typed error surface shared by the scanner,
// parser and loader. Callers branch on Kind (or errors.Is against the
// sentinels) to render a message; nothing in here terminates the process.
package errs

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
)

type Kind int

// Ops whose NotFound or PermissionDenied errors concern a root directory.
const (
	OpScan = "scan"
	OpLoad = "load"
)

const (
	KindUnknown Kind = iota
	KindNotFound
	KindPermissionDenied
	KindMalformedRecord
	KindScanTimeout
	KindInvariantViolation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindPermissionDenied:
		return "permission denied"
	case KindMalformedRecord:
		return "malformed record"
	case KindScanTimeout:
		return "scan timeout"
	case KindInvariantViolation:
		return "invariant violation"
	default:
		return "unknown"
	}
}

// Error carries enough context for the presentation layer to explain
// what went wrong without inspecting the wrapped cause.
type Error struct {
	Kind    Kind
	Op      string
	Path    string
	Line    int           // MalformedRecord only
	Elapsed time.Duration // ScanTimeout only
	Limit   time.Duration // ScanTimeout only
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Kind == KindScanTimeout {
		fmt.Fprintf(&b, " after %s (limit %s)", e.Elapsed.Round(time.Millisecond), e.Limit)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind, so errors.Is(err, errs.ErrScanTimeout)
// works for any ScanTimeout regardless of path or timings.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Path == "" && t.Err == nil
}

var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrPermissionDenied   = &Error{Kind: KindPermissionDenied}
	ErrMalformedRecord    = &Error{Kind: KindMalformedRecord}
	ErrScanTimeout        = &Error{Kind: KindScanTimeout}
	ErrInvariantViolation = &Error{Kind: KindInvariantViolation}
)

// FromFS classifies a filesystem error. Errors that are neither
// missing-path nor permission problems are wrapped unchanged.
func FromFS(op, path string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &Error{Kind: KindNotFound, Op: op, Path: path, Err: err}
	case errors.Is(err, fs.ErrPermission):
		return &Error{Kind: KindPermissionDenied, Op: op, Path: path, Err: err}
	default:
		return fmt.Errorf("%s %s: %w", op, path, err)
	}
}

func Malformed(path string, line int, err error) *Error {
	return &Error{Kind: KindMalformedRecord, Op: "parse", Path: path, Line: line, Err: err}
}

func Timeout(op, path string, elapsed, limit time.Duration) *Error {
	return &Error{Kind: KindScanTimeout, Op: op, Path: path, Elapsed: elapsed, Limit: limit}
}

func Invariant(op, path, detail string) *Error {
	return &Error{Kind: KindInvariantViolation, Op: op, Path: path, Err: errors.New(detail)}
}

// KindOf returns the kind of the first typed error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Terminal reports whether err aborted a whole load: a scan timeout, or a
// root that is missing or unreadable. Per-file and per-line failures are
// counted by the caller and never reach here as terminal.
func Terminal(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindScanTimeout:
		return true
	case KindNotFound, KindPermissionDenied:
		return e.Op == OpScan || e.Op == OpLoad
	}
	return false
}
