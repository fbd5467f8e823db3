// Package transcript normalizes recognition output and picks n-best winners.
package transcript

import (
	"sort"
	"strings"
)

// Hypothesis is one n-best entry returned by a recognizer.
type Hypothesis struct {
	Text       string
	Confidence float64
}

// Normalize collapses whitespace runs and trims the ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Assemble joins result segments into one normalized line.
func Assemble(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	return Normalize(strings.Join(segments, " "))
}

// Best returns the highest-confidence hypothesis at or above threshold.
// Ties keep the earlier entry. Blank hypotheses never win.
func Best(hypotheses []Hypothesis, threshold float64) (Hypothesis, bool) {
	ranked := Rank(hypotheses, threshold)
	if len(ranked) == 0 {
		return Hypothesis{}, false
	}
	return ranked[0], true
}

// Rank filters hypotheses below threshold and orders the rest by
// descending confidence.
func Rank(hypotheses []Hypothesis, threshold float64) []Hypothesis {
	out := make([]Hypothesis, 0, len(hypotheses))
	for _, h := range hypotheses {
		text := Normalize(h.Text)
		if text == "" || h.Confidence < threshold {
			continue
		}
		out = append(out, Hypothesis{Text: text, Confidence: h.Confidence})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}
