package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/Zuo-Peng/ai-session-browser/internal/parse"
)

// uuidRe matches a standard UUID (8-4-4-4-12 hex pattern).
var uuidRe = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

// extractUUID extracts a UUID from a string, returning the original if none found.
func extractUUID(s string) string {
	if m := uuidRe.FindString(s); m != "" {
		return m
	}
	return s
}

// resumeCommand is the shell line that reopens s in its agent.
func resumeCommand(s *parse.Session) string {
	var cmd string
	switch s.Source {
	case "claude":
		cmd = "claude --resume " + s.ID
	case "codex":
		// Rollout ids carry a timestamp prefix; codex wants the UUID only.
		cmd = "codex resume " + extractUUID(s.ID)
	default:
		cmd = s.ID
	}
	if s.Cwd != "" {
		cmd = "cd " + shellQuote(s.Cwd) + " && " + cmd
	}
	return cmd
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t'\"$`\\!*?;&|<>()[]{}#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// copyResumeCommand copies the resume command, printing it when no
// clipboard is available.
func copyResumeCommand(s *parse.Session) error {
	cmd := resumeCommand(s)
	if err := clipboard.WriteAll(cmd); err != nil {
		fmt.Println(cmd)
		return nil
	}
	fmt.Printf("Copied to clipboard: %s\n", cmd)
	return nil
}
