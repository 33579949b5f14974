package open

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/ai-session-browser/internal/errs"
	"github.com/Zuo-Peng/ai-session-browser/internal/parse"
)

func TestEditorCommand(t *testing.T) {
	tests := []struct {
		editor string
		want   []string
	}{
		{"nvim", []string{"nvim", "+12", "/s.jsonl"}},
		{"less", []string{"less", "+12", "/s.jsonl"}},
		{"code --wait", []string{"code", "--wait", "--goto", "/s.jsonl:12"}},
		{"hx", []string{"hx", "/s.jsonl:12"}},
		{"cat", []string{"cat", "/s.jsonl"}},
	}
	for _, tt := range tests {
		t.Run(tt.editor, func(t *testing.T) {
			cmd, err := editorCommand(tt.editor, "/s.jsonl", 12)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd.Args)
		})
	}
}

func TestEditorCommandRejectsEmpty(t *testing.T) {
	_, err := editorCommand("   ", "/s.jsonl", 1)
	assert.Error(t, err)
}

func TestSessionMissingFile(t *testing.T) {
	s := &parse.Session{Path: filepath.Join(t.TempDir(), "gone.jsonl")}
	err := Session(s, 0)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCommandUsesBlockLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))
	t.Setenv("EDITOR", "vim")

	s := &parse.Session{Path: path, Blocks: []parse.Block{{Line: 1}, {Line: 7}}}
	cmd, err := Command(s, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"vim", "+7", path}, cmd.Args)

	cmd, err = Command(s, 9)
	require.NoError(t, err)
	assert.Equal(t, []string{"vim", "+1", path}, cmd.Args)
}
