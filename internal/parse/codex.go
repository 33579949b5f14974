package parse

import (
	"strings"

	"github.com/tidwall/gjson"
)

var codexTypes = map[string]bool{
	"session_meta":  true,
	"response_item": true,
	"event_msg":     true,
	"turn_context":  true,
}

// Codex injects these as user messages; they are not typed by a person.
var codexContextPrefixes = []string{"<environment_context>", "<user_instructions>", "# AGENTS.md"}

// codex handles one Codex rollout record. Message text comes from
// response_item records; event_msg only contributes reasoning.
func (b *builder) codex(num int, typ string, rec gjson.Result) int {
	payload := rec.Get("payload")
	ts := parseTimestamp(rec.Get("timestamp"))

	switch typ {
	case "session_meta":
		b.noteMeta(payload.Get("cwd").String(), payload.Get("git.branch").String(), payload.Get("id").String())
		return 0

	case "turn_context":
		b.noteMeta(payload.Get("cwd").String(), "", "")
		return 0

	case "event_msg":
		if payload.Get("type").String() == "agent_reasoning" {
			return b.add(num, RoleAssistant, ts, payload.Get("text").String(), nil, true)
		}
		return 0

	case "response_item":
		switch payload.Get("type").String() {
		case "message":
			role, ok := roleOf(payload.Get("role").String())
			if !ok {
				role = RoleAssistant
			}
			text := contentOf(payload.Get("content")).text
			if role == RoleUser && isCodexContext(text) {
				return 0
			}
			return b.add(num, role, ts, text, nil, false)

		case "function_call", "custom_tool_call":
			name := payload.Get("name").String()
			if name == "" {
				name = "unknown"
			}
			text := "[Tool: " + name + "]"
			if args := strings.TrimSpace(payload.Get("arguments").String()); args != "" {
				text += "\n" + args
			}
			return b.add(num, RoleAssistant, ts, text, []string{name}, false)

		case "function_call_output", "custom_tool_call_output":
			out := payload.Get("output")
			text := out.String()
			if out.IsObject() {
				text = out.Get("output").String()
			}
			return b.add(num, RoleTool, ts, text, nil, false)
		}
	}
	return 0
}

func isCodexContext(text string) bool {
	t := strings.TrimSpace(text)
	for _, p := range codexContextPrefixes {
		if strings.HasPrefix(t, p) {
			return true
		}
	}
	return false
}
