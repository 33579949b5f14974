// Package parsetest builds JSONL transcript fixtures for tests in the
// parse, catalog and search packages.
package parsetest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ClaudeUserJSON returns a Claude user record with string content.
func ClaudeUserJSON(content, timestamp string, cwd ...string) string {
	m := map[string]any{
		"type":      "user",
		"timestamp": timestamp,
		"message":   map[string]any{"role": "user", "content": content},
	}
	if len(cwd) > 0 {
		m["cwd"] = cwd[0]
	}
	return mustMarshal(m)
}

// ClaudeAssistantJSON returns a Claude assistant record. content is
// either a string or a slice of content parts.
func ClaudeAssistantJSON(content any, timestamp string) string {
	return mustMarshal(map[string]any{
		"type":      "assistant",
		"timestamp": timestamp,
		"message":   map[string]any{"role": "assistant", "content": content},
	})
}

// ClaudeToolResultJSON returns a user record carrying only a tool result.
func ClaudeToolResultJSON(output, timestamp string) string {
	return mustMarshal(map[string]any{
		"type":      "user",
		"timestamp": timestamp,
		"message": map[string]any{
			"role": "user",
			"content": []map[string]any{
				{"type": "tool_result", "tool_use_id": "toolu_1", "content": output},
			},
		},
	})
}

func ClaudeSummaryJSON(summary string) string {
	return mustMarshal(map[string]any{"type": "summary", "summary": summary, "leafUuid": "x"})
}

func TextPart(text string) map[string]any {
	return map[string]any{"type": "text", "text": text}
}

func ThinkingPart(text string) map[string]any {
	return map[string]any{"type": "thinking", "thinking": text}
}

func ToolUsePart(name string, input map[string]any) map[string]any {
	return map[string]any{"type": "tool_use", "id": "toolu_1", "name": name, "input": input}
}

func CodexSessionMetaJSON(id, cwd, timestamp string) string {
	return mustMarshal(map[string]any{
		"type":      "session_meta",
		"timestamp": timestamp,
		"payload":   map[string]any{"id": id, "cwd": cwd, "originator": "codex_cli_rs"},
	})
}

func CodexMsgJSON(role, text, timestamp string) string {
	contentType := "output_text"
	if role == "user" {
		contentType = "input_text"
	}
	return mustMarshal(map[string]any{
		"type":      "response_item",
		"timestamp": timestamp,
		"payload": map[string]any{
			"type":    "message",
			"role":    role,
			"content": []map[string]string{{"type": contentType, "text": text}},
		},
	})
}

func CodexFunctionCallJSON(name, arguments, timestamp string) string {
	return mustMarshal(map[string]any{
		"type":      "response_item",
		"timestamp": timestamp,
		"payload": map[string]any{
			"type":      "function_call",
			"name":      name,
			"call_id":   "call_test",
			"arguments": arguments,
		},
	})
}

func CodexFunctionOutputJSON(output, timestamp string) string {
	return mustMarshal(map[string]any{
		"type":      "response_item",
		"timestamp": timestamp,
		"payload": map[string]any{
			"type":    "function_call_output",
			"call_id": "call_test",
			"output":  output,
		},
	})
}

// SessionBuilder assembles JSONL content line by line.
type SessionBuilder struct {
	lines []string
}

func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{}
}

func (b *SessionBuilder) User(timestamp, content string, cwd ...string) *SessionBuilder {
	b.lines = append(b.lines, ClaudeUserJSON(content, timestamp, cwd...))
	return b
}

func (b *SessionBuilder) Assistant(timestamp, text string) *SessionBuilder {
	b.lines = append(b.lines, ClaudeAssistantJSON([]map[string]any{TextPart(text)}, timestamp))
	return b
}

func (b *SessionBuilder) Raw(line string) *SessionBuilder {
	b.lines = append(b.lines, line)
	return b
}

func (b *SessionBuilder) String() string {
	return strings.Join(b.lines, "\n") + "\n"
}

// Write stores the content at dir/name, creating dir, and returns the path.
func (b *SessionBuilder) Write(t testing.TB, dir, name string) string {
	t.Helper()
	return WriteFile(t, filepath.Join(dir, name), b.String())
}

func WriteFile(t testing.TB, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func mustMarshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
