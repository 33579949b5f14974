package parse

import (
	"bufio"
	"io"
)

const initialBufSize = 64 * 1024

// lineReader yields the lines of a JSONL stream with their 1-based
// numbers. Lines longer than maxLen are drained and reported as
// oversized instead of aborting the read.
type lineReader struct {
	r      *bufio.Reader
	maxLen int
	buf    []byte
	num    int
	err    error
}

type rawLine struct {
	num       int
	data      []byte
	oversized bool
}

func newLineReader(r io.Reader, maxLen int) *lineReader {
	return &lineReader{
		r:      bufio.NewReaderSize(r, initialBufSize),
		maxLen: maxLen,
		buf:    make([]byte, 0, initialBufSize),
	}
}

// next skips blank lines. It returns false at EOF or on a read error,
// which is then available from Err.
func (lr *lineReader) next() (rawLine, bool) {
	for {
		line, ok := lr.readLine()
		if !ok {
			return rawLine{}, false
		}
		if line.oversized || len(trimSpace(line.data)) > 0 {
			return line, true
		}
	}
}

func (lr *lineReader) readLine() (rawLine, bool) {
	lr.buf = lr.buf[:0]
	oversized := false
	started := false

	for {
		chunk, isPrefix, err := lr.r.ReadLine()
		if err != nil {
			if err != io.EOF {
				lr.err = err
			}
			if started {
				break
			}
			return rawLine{}, false
		}
		started = true
		if !oversized {
			lr.buf = append(lr.buf, chunk...)
			if len(lr.buf) > lr.maxLen {
				oversized = true
				lr.buf = lr.buf[:0]
			}
		}
		if !isPrefix {
			break
		}
	}

	lr.num++
	return rawLine{num: lr.num, data: lr.buf, oversized: oversized}, true
}

func (lr *lineReader) Err() error {
	return lr.err
}

func trimSpace(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t' || b[0] == '\r') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
