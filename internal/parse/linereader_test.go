package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineReader(t *testing.T) {
	input := "short\n\n" + strings.Repeat("x", 300) + "\n  \nafter\nlast-no-newline"
	lr := newLineReader(strings.NewReader(input), 100)

	type got struct {
		num       int
		text      string
		oversized bool
	}
	var lines []got
	for {
		l, ok := lr.next()
		if !ok {
			break
		}
		lines = append(lines, got{l.num, string(l.data), l.oversized})
	}
	assert.NoError(t, lr.Err())
	assert.Equal(t, []got{
		{1, "short", false},
		{3, "", true},
		{5, "after", false},
		{6, "last-no-newline", false},
	}, lines)
}

func TestLineReaderOversizedAcrossBufferChunks(t *testing.T) {
	big := strings.Repeat("y", initialBufSize*3)
	lr := newLineReader(strings.NewReader(big+"\nok\n"), initialBufSize)

	l, ok := lr.next()
	assert.True(t, ok)
	assert.True(t, l.oversized)
	l, ok = lr.next()
	assert.True(t, ok)
	assert.Equal(t, "ok", string(l.data))
	assert.Equal(t, 2, l.num)
}
