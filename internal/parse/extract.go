package parse

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	fenceRe   = regexp.MustCompile("(?s)```([\\w+#.-]*)[^\\n]*\\n(.*?)```")
	urlRe     = regexp.MustCompile(`(?:https?|file)://[^\s<>"'` + "`" + `)\]]+`)
	atRe      = regexp.MustCompile(`(?:^|[\s(\[])@([\w][\w./-]*)`)
	pathRe    = regexp.MustCompile(`(?:^|[\s(\[` + "`" + `'"])((?:~|\.{1,2})?/?(?:[\w.-]+/)+[\w.-]+\.\w{1,8}|[\w-]+\.(?:go|rs|py|ts|tsx|js|jsx|md|toml|ya?ml|json|sh|c|h|cpp|java|rb|sql|proto))\b`)
	blankRuns = regexp.MustCompile(`\n{3,}`)
)

var langAliases = map[string]string{
	"rust": "rust", "rs": "rust",
	"python": "python", "py": "python",
	"javascript": "javascript", "js": "javascript", "jsx": "javascript",
	"typescript": "typescript", "ts": "typescript", "tsx": "typescript",
	"go": "go", "golang": "go",
	"java": "java", "c": "c", "cpp": "cpp", "c++": "cpp",
	"swift": "swift", "kotlin": "kotlin", "kt": "kotlin",
	"ruby": "ruby", "rb": "ruby", "php": "php", "dart": "dart",
	"shell": "shell", "bash": "shell", "sh": "shell", "zsh": "shell", "console": "shell",
	"sql": "sql", "html": "html", "css": "css",
	"markdown": "markdown", "md": "markdown",
	"json": "json", "yaml": "yaml", "yml": "yaml", "toml": "toml",
	"diff": "diff", "proto": "protobuf",
}

func extractCodeBlocks(text string) []CodeBlock {
	var out []CodeBlock
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		content := strings.TrimRight(m[2], "\n")
		if strings.TrimSpace(content) == "" {
			continue
		}
		lang := langAliases[strings.ToLower(m[1])]
		if lang == "" && m[1] == "" {
			lang = detectLanguage(content)
		}
		out = append(out, CodeBlock{
			Language: lang,
			Content:  content,
			Lines:    strings.Count(content, "\n") + 1,
		})
	}
	return out
}

// detectLanguage guesses from content when a fence carries no hint.
// Checks run from most to least distinctive.
func detectLanguage(code string) string {
	lower := strings.ToLower(code)
	has := func(subs ...string) bool {
		for _, s := range subs {
			if strings.Contains(code, s) {
				return true
			}
		}
		return false
	}
	switch {
	case has("package ", "func ") && has("fmt.", "import (", ":= ", "package "):
		return "go"
	case has("fn ", "impl ", "let mut ", "pub struct ", "use std::"):
		return "rust"
	case has("def ", "import ", "from ") && (has(":\n", "print(") || strings.Contains(lower, "self")):
		return "python"
	case has("interface ", "type ") && has(": string", ": number", ": boolean"):
		return "typescript"
	case has("function ", "const ", "=>", "console.log"):
		return "javascript"
	case has("public class ", "System.out.", "private static "):
		return "java"
	case strings.Contains(lower, "select ") && strings.Contains(lower, " from ") ||
		strings.Contains(lower, "create table") || strings.Contains(lower, "insert into"):
		return "sql"
	case strings.Contains(code, "</") && (strings.Contains(lower, "<html") || strings.Contains(lower, "<div")):
		return "html"
	case strings.HasPrefix(strings.TrimSpace(code), "$ ") || has("#!/bin/", "echo ", "sudo ", "export "):
		return "shell"
	case has("{") && has(";") && has("color:", "margin:", "padding:"):
		return "css"
	}
	return ""
}

func extractLinks(text string) []Link {
	var out []Link
	seen := map[string]bool{}
	for _, u := range urlRe.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?")
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, Link{URL: u, Kind: classifyLink(u)})
	}
	return out
}

func classifyLink(u string) LinkKind {
	lower := strings.ToLower(u)
	switch {
	case strings.HasPrefix(lower, "file://"),
		strings.Contains(lower, "://localhost"),
		strings.Contains(lower, "://127.0.0.1"):
		return LinkFile
	case strings.Contains(lower, "github.com"),
		strings.Contains(lower, "gitlab.com"),
		strings.Contains(lower, "bitbucket.org"):
		return LinkRepository
	case strings.Contains(lower, "://docs."),
		strings.Contains(lower, "/docs/"),
		strings.Contains(lower, "documentation"),
		strings.Contains(lower, "/api/"),
		strings.Contains(lower, "readthedocs"),
		strings.Contains(lower, "pkg.go.dev"):
		return LinkDocumentation
	}
	return LinkExternal
}

// extractMentions finds @-mentions and bare file paths. URLs are removed
// first so their path segments are not reported as files.
func extractMentions(text string) []Mention {
	stripped := urlRe.ReplaceAllString(text, " ")
	var out []Mention
	seen := map[Mention]bool{}
	add := func(m Mention) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}

	for _, m := range atRe.FindAllStringSubmatch(stripped, -1) {
		v := strings.TrimRight(m[1], ".,;:")
		if strings.ContainsAny(v, "/.") {
			add(Mention{Kind: MentionFile, Value: v})
		} else {
			add(Mention{Kind: MentionUser, Value: v})
		}
	}
	withoutAt := atRe.ReplaceAllString(stripped, " ")
	for _, m := range pathRe.FindAllStringSubmatch(withoutAt, -1) {
		add(Mention{Kind: MentionFile, Value: m[1]})
	}
	return out
}

// tokenize returns distinct lowercased words of two or more runes.
func tokenize(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	}) {
		if len([]rune(f)) < 2 || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func wordCount(text string) int {
	return len(strings.FieldsFunc(text, unicode.IsSpace))
}

// tidy trims surrounding space and collapses runs of blank lines.
func tidy(text string) string {
	return blankRuns.ReplaceAllString(strings.TrimSpace(text), "\n\n")
}
