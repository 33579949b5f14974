package parse

import "github.com/tidwall/gjson"

var claudeTypes = map[string]bool{
	"user":                  true,
	"assistant":             true,
	"system":                true,
	"summary":               true,
	"file-history-snapshot": true,
	"progress":              true,
}

// claude handles one Claude Code record and returns the number of
// blocks it produced.
func (b *builder) claude(num int, typ string, rec gjson.Result) int {
	b.noteMeta(rec.Get("cwd").String(), rec.Get("gitBranch").String(), rec.Get("sessionId").String())
	ts := parseTimestamp(rec.Get("timestamp"))

	switch typ {
	case "summary":
		if s := rec.Get("summary").String(); s != "" {
			b.summary = s
		}
		return 0

	case "system":
		text := rec.Get("content").String()
		if text == "" {
			text = contentOf(rec.Get("message.content")).text
		}
		return b.add(num, RoleSystem, ts, text, nil, false)

	case "user", "assistant":
		if rec.Get("isMeta").Bool() {
			return 0
		}
		role := RoleUser
		if typ == "assistant" {
			role = RoleAssistant
		}
		c := contentOf(rec.Get("message.content"))
		if role == RoleUser && c.onlyToolResults {
			role = RoleTool
		}
		n := 0
		if c.thinking != "" {
			n += b.add(num, RoleAssistant, ts, c.thinking, nil, true)
		}
		n += b.add(num, role, ts, c.text, c.tools, false)
		return n
	}
	return 0
}
