package parse

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const maxTopics = 10

func computeStatistics(s *Session) Statistics {
	st := Statistics{
		Blocks:    len(s.Blocks),
		Malformed: s.Skipped,
		Languages: map[string]int{},
	}

	var pendingUser *Block
	var responseTotal int64
	var responses int
	var first, last *Block

	for i := range s.Blocks {
		b := &s.Blocks[i]
		switch b.Role {
		case RoleUser:
			st.UserBlocks++
			pendingUser = b
		case RoleAssistant:
			st.AssistantBlocks++
			if pendingUser != nil && !pendingUser.Timestamp.IsZero() && !b.Timestamp.IsZero() {
				if d := b.Timestamp.Sub(pendingUser.Timestamp); d >= 0 {
					responseTotal += int64(d)
					responses++
				}
			}
			pendingUser = nil
		case RoleTool:
			st.ToolBlocks++
		case RoleSystem:
			st.SystemBlocks++
		}

		st.Words += wordCount(b.Text)
		st.Chars += utf8.RuneCountInString(b.Text)
		st.CodeBlocks += len(b.CodeBlocks)
		st.Links += len(b.Links)
		st.Mentions += len(b.Mentions)
		st.ToolCalls += len(b.Tools)
		for _, cb := range b.CodeBlocks {
			if cb.Language != "" {
				st.Languages[cb.Language]++
			}
		}

		if !b.Timestamp.IsZero() {
			if first == nil {
				first = b
			}
			last = b
		}
	}

	if first != nil && last != nil {
		st.Duration = last.Timestamp.Sub(first.Timestamp)
	}
	if responses > 0 {
		st.AvgResponse = time.Duration(responseTotal / int64(responses))
	}
	return st
}

func computeInsights(s *Session, kw KeywordTable) Insights {
	in := Insights{Style: StyleExploratory}
	if len(s.Blocks) == 0 {
		return in
	}

	in.Phases = segmentPhases(s.Blocks)
	in.FocusShifts = len(in.Phases) - 1
	in.Topics = rankTopics(s.Blocks)

	var userBlocks, assistantBlocks, directive int
	pendingProblems := 0
	for _, b := range s.Blocks {
		if b.Thinking {
			continue
		}
		lower := strings.ToLower(b.Text)
		switch b.Role {
		case RoleUser:
			userBlocks++
			if b.Intent == IntentQuestion || strings.Contains(b.Text, "?") {
				in.Questions++
			}
			if b.Intent == IntentRequest || b.Intent == IntentImplementation {
				directive++
			}
			if containsAny(lower, kw.Problems) {
				in.ProblemsRaised++
				pendingProblems++
			}
		case RoleAssistant:
			assistantBlocks++
			if containsAny(lower, kw.Completion) {
				in.TasksCompleted++
			}
			if pendingProblems > 0 && containsAny(lower, kw.Solutions) {
				in.ProblemsSolved++
				pendingProblems--
			}
		}
	}

	if userBlocks > 0 && assistantBlocks > 0 {
		lo, hi := min(userBlocks, assistantBlocks), max(userBlocks, assistantBlocks)
		in.Collaboration = round1(10 * float64(lo) / float64(hi))
	}
	in.CodeQuality = codeQuality(s.Blocks, in.ProblemsRaised, in.ProblemsSolved)

	switch {
	case userBlocks > 0 && in.Questions*2 > userBlocks:
		in.Style = StyleInquisitive
	case userBlocks > 0 && directive*2 > userBlocks:
		in.Style = StyleDirective
	case in.Collaboration >= 7:
		in.Style = StyleCollaborative
	}
	return in
}

// segmentPhases groups consecutive blocks sharing an intent. General
// blocks extend the current phase, and a leading general phase takes
// the first specific intent that follows it.
func segmentPhases(blocks []Block) []Phase {
	var phases []Phase
	for i, b := range blocks {
		if len(phases) == 0 {
			phases = append(phases, Phase{Intent: b.Intent, Start: i, End: i})
			continue
		}
		cur := &phases[len(phases)-1]
		switch {
		case b.Intent == IntentGeneral || b.Intent == cur.Intent:
			cur.End = i
		case cur.Intent == IntentGeneral:
			cur.Intent = b.Intent
			cur.End = i
		default:
			phases = append(phases, Phase{Intent: b.Intent, Start: i, End: i})
		}
	}
	return phases
}

// rankTopics scores each topic as freq * (1 + ln mentions), where freq
// is the share of blocks tagged with it.
func rankTopics(blocks []Block) []TopicScore {
	counts := map[string]int{}
	for _, b := range blocks {
		for _, t := range b.Topics {
			counts[t]++
		}
	}
	out := make([]TopicScore, 0, len(counts))
	for topic, n := range counts {
		freq := float64(n) / float64(len(blocks))
		out = append(out, TopicScore{
			Topic:     topic,
			Mentions:  n,
			Frequency: freq,
			Relevance: freq * (1 + math.Log(float64(n))),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		return out[i].Topic < out[j].Topic
	})
	if len(out) > maxTopics {
		out = out[:maxTopics]
	}
	return out
}

// codeQuality is a 0..10 heuristic: labelled code blocks (4), problems
// followed by solutions (3), and code or talk about tests (3).
func codeQuality(blocks []Block, raised, solved int) float64 {
	var code, labelled int
	tests := false
	for _, b := range blocks {
		for _, cb := range b.CodeBlocks {
			code++
			if cb.Language != "" {
				labelled++
			}
			if strings.Contains(strings.ToLower(cb.Content), "test") {
				tests = true
			}
		}
		for _, t := range b.Topics {
			if t == "testing" {
				tests = true
			}
		}
	}
	if code == 0 {
		return 0
	}

	score := 4 * float64(labelled) / float64(code)
	if raised == 0 {
		score += 3
	} else {
		score += 3 * math.Min(1, float64(solved)/float64(raised))
	}
	if tests {
		score += 3
	}
	return round1(math.Min(10, score))
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
