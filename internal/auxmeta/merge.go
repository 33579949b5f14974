package auxmeta

import (
	"path/filepath"
	"strings"

	"github.com/Zuo-Peng/ai-session-browser/internal/parse"
)

// Confidence scores how likely a record made in recordDir belongs to a
// session started in sessionDir. Identical paths score 1; otherwise the
// score is shared leading segments over the longer path's segment count.
// ok is false when the paths share nothing.
func Confidence(recordDir, sessionDir string) (score float64, ok bool) {
	if recordDir == "" || sessionDir == "" {
		return 0, false
	}
	a, b := filepath.Clean(recordDir), filepath.Clean(sessionDir)
	if a == b {
		return 1, true
	}

	as, bs := segments(a), segments(b)
	shared := 0
	for shared < len(as) && shared < len(bs) && as[shared] == bs[shared] {
		shared++
	}
	if shared == 0 {
		return 0, false
	}
	return float64(shared) / float64(max(len(as), len(bs))), true
}

func segments(p string) []string {
	var out []string
	for _, s := range strings.Split(filepath.ToSlash(p), "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Best picks the highest-confidence record above minConfidence. Ties go
// to the most recently saved record, then to the earlier one in recs.
func Best(sessionDir string, recs []Record, minConfidence float64) (Record, float64, bool) {
	var best Record
	bestScore := -1.0
	for _, r := range recs {
		score, ok := Confidence(r.Dir, sessionDir)
		if !ok || score <= minConfidence {
			continue
		}
		if score > bestScore || (score == bestScore && r.SavedAt.After(best.SavedAt)) {
			best, bestScore = r, score
		}
	}
	if bestScore < 0 {
		return Record{}, 0, false
	}
	return best, bestScore, true
}

// Merge returns s with the best record attached. s itself is never
// modified: a copy carries the metadata, and s is returned unchanged
// when it already has metadata or nothing qualifies.
func Merge(s *parse.Session, recs []Record, minConfidence float64) *parse.Session {
	if s == nil || s.HasAux() {
		return s
	}
	rec, score, ok := Best(s.Cwd, recs, minConfidence)
	if !ok {
		return s
	}
	out := *s
	out.Aux = &parse.Aux{
		Name:       rec.Session,
		Command:    rec.Command,
		Dir:        rec.Dir,
		Confidence: score,
		SavedAt:    rec.SavedAt,
	}
	return &out
}

// MergeAll merges every session in place in the slice and reports how
// many gained metadata.
func MergeAll(sessions []*parse.Session, recs []Record, minConfidence float64) int {
	if len(recs) == 0 {
		return 0
	}
	attached := 0
	for i, s := range sessions {
		merged := Merge(s, recs, minConfidence)
		if merged != s {
			sessions[i] = merged
			attached++
		}
	}
	return attached
}
