package parse

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

type IntentKeywords struct {
	Intent   Intent
	Keywords []string
}

// KeywordTable drives every heuristic tag. Intents are tried in order and
// the first table with a hit wins.
type KeywordTable struct {
	Intents    []IntentKeywords
	Topics     map[string][]string
	Completion []string
	Problems   []string
	Solutions  []string
}

func DefaultKeywords() KeywordTable {
	return KeywordTable{
		Intents: []IntentKeywords{
			{IntentDebugging, []string{"debug", "stack trace", "traceback", "investigate", "figure out",
				"find the cause", "troubleshoot", "diagnose", "panic", "segfault"}},
			{IntentReview, []string{"review", "validate", "verify", "examine", "look over",
				"assess", "evaluate", "audit"}},
			{IntentPlanning, []string{"plan", "design", "architecture", "organize", "strategy",
				"approach", "roadmap", "workflow"}},
			{IntentLearning, []string{"learn", "understand", "explain", "teach", "show me",
				"what does this mean", "how does this work", "tutorial"}},
			{IntentDocumentation, []string{"document", "documentation", "readme", "docstring",
				"changelog", "write docs"}},
			{IntentImplementation, []string{"implement", "write", "create", "build", "develop",
				"add feature", "make changes", "modify", "refactor"}},
			{IntentQuestion, []string{"how do", "what is", "why does", "where can", "when should",
				"which way", "is it possible", "?"}},
			{IntentRequest, []string{"please", "can you", "could you", "i need", "i want",
				"let's", "make sure"}},
		},
		Topics: map[string][]string{
			"api":         {"api", "endpoint", "rest", "graphql", "grpc"},
			"async":       {"async", "await", "promise", "goroutine", "concurrency"},
			"auth":        {"authentication", "oauth", "login", "jwt"},
			"database":    {"database", "sql", "sqlite", "postgres", "mysql", "migration"},
			"deployment":  {"deploy", "deployment", "ci", "pipeline", "release"},
			"docker":      {"docker", "container", "dockerfile"},
			"frontend":    {"frontend", "react", "css", "html", "component"},
			"git":         {"git", "commit", "branch", "rebase", "merge"},
			"kubernetes":  {"kubernetes", "k8s", "helm"},
			"performance": {"performance", "optimize", "optimization", "latency", "benchmark"},
			"security":    {"security", "vulnerability", "secret", "encryption"},
			"testing":     {"test", "tests", "testing", "unit test", "coverage"},
		},
		Completion: []string{"done", "completed", "finished", "fixed", "implemented",
			"works now", "all tests pass", "successfully"},
		Problems: []string{"error", "issue", "problem", "bug", "fail", "failing", "broken",
			"doesn't work", "not working", "exception", "crash"},
		Solutions: []string{"you can", "try this", "solution", "fixed", "resolve", "resolved",
			"here's how", "the answer is", "use this"},
	}
}

// WithOverrides replaces tables by name. Intent names replace that
// intent's keywords; "topic.<name>" sets one topic; "completion",
// "problems" and "solutions" replace the indicator lists. Unknown keys
// are returned so callers can warn about them.
func (t KeywordTable) WithOverrides(m map[string][]string) (KeywordTable, []string) {
	out := KeywordTable{
		Intents:    append([]IntentKeywords(nil), t.Intents...),
		Topics:     make(map[string][]string, len(t.Topics)),
		Completion: t.Completion,
		Problems:   t.Problems,
		Solutions:  t.Solutions,
	}
	for k, v := range t.Topics {
		out.Topics[k] = v
	}

	var unknown []string
	for key, words := range m {
		words = lowerAll(words)
		switch {
		case key == "completion":
			out.Completion = words
		case key == "problems":
			out.Problems = words
		case key == "solutions":
			out.Solutions = words
		case strings.HasPrefix(key, "topic."):
			out.Topics[strings.TrimPrefix(key, "topic.")] = words
		default:
			found := false
			for i := range out.Intents {
				if string(out.Intents[i].Intent) == key {
					out.Intents[i].Keywords = words
					found = true
				}
			}
			if !found {
				unknown = append(unknown, key)
			}
		}
	}
	sort.Strings(unknown)
	return out, unknown
}

// Classify returns the first intent whose keywords appear in text, or
// IntentGeneral.
func Classify(text string, t KeywordTable) Intent {
	lower := strings.ToLower(text)
	for _, ik := range t.Intents {
		if containsAny(lower, ik.Keywords) {
			return ik.Intent
		}
	}
	return IntentGeneral
}

// TopicsOf returns the sorted names of every topic mentioned in text.
func TopicsOf(text string, t KeywordTable) []string {
	lower := strings.ToLower(text)
	var out []string
	for name, words := range t.Topics {
		if containsAny(lower, words) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if containsTerm(lower, kw) {
			return true
		}
	}
	return false
}

// containsTerm matches kw as a whole word when it starts or ends with a
// letter or digit, so "fix" does not match "prefix".
func containsTerm(lower, kw string) bool {
	if kw == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(kw)
	last, _ := utf8.DecodeLastRuneInString(kw)
	checkStart, checkEnd := isWordRune(first), isWordRune(last)

	for from := 0; from <= len(lower)-len(kw); {
		i := strings.Index(lower[from:], kw)
		if i < 0 {
			return false
		}
		i += from
		end := i + len(kw)
		ok := true
		if checkStart && i > 0 {
			r, _ := utf8.DecodeLastRuneInString(lower[:i])
			ok = !isWordRune(r)
		}
		if ok && checkEnd && end < len(lower) {
			r, _ := utf8.DecodeRuneInString(lower[end:])
			ok = !isWordRune(r)
		}
		if ok {
			return true
		}
		from = i + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
