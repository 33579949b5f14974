package open

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/Zuo-Peng/ai-session-browser/internal/errs"
	"github.com/Zuo-Peng/ai-session-browser/internal/parse"
)

// Session opens the transcript file in $EDITOR (or less) positioned at
// the source line of block. A negative block opens at the top.
func Session(s *parse.Session, block int) error {
	cmd, err := Command(s, block)
	if err != nil {
		return err
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Command builds the editor invocation without running it, for callers
// that manage the terminal themselves.
func Command(s *parse.Session, block int) (*exec.Cmd, error) {
	if _, err := os.Stat(s.Path); err != nil {
		return nil, errs.FromFS("open", s.Path, err)
	}

	lineNum := 1
	if block >= 0 && block < len(s.Blocks) && s.Blocks[block].Line > 0 {
		lineNum = s.Blocks[block].Line
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "less"
	}
	return editorCommand(editor, s.Path, lineNum)
}

// editorCommand builds the invocation for the common editors. $EDITOR may
// carry its own flags, e.g. "code --wait".
func editorCommand(editor, filePath string, lineNum int) (*exec.Cmd, error) {
	words, err := shlex.Split(editor)
	if err != nil || len(words) == 0 {
		return nil, fmt.Errorf("bad $EDITOR %q", editor)
	}
	name, args := words[0], words[1:]

	switch {
	case strings.Contains(name, "vim") || strings.Contains(name, "vi") || strings.Contains(name, "nano") ||
		strings.Contains(name, "less") || strings.Contains(name, "emacs"):
		args = append(args, "+"+strconv.Itoa(lineNum), filePath)
	case strings.Contains(name, "code") || strings.Contains(name, "cursor"):
		args = append(args, "--goto", filePath+":"+strconv.Itoa(lineNum))
	case strings.Contains(name, "subl") || strings.Contains(name, "hx") || strings.Contains(name, "zed"):
		args = append(args, filePath+":"+strconv.Itoa(lineNum))
	default:
		args = append(args, filePath)
	}
	return exec.Command(name, args...), nil
}
