// Package relate ranks translation keys by how likely they are to provide
// useful context for the key under evaluation. Candidates from several
// relationship types are scored with decay-based confidence formulas,
// merged, and rendered for inclusion in an AI-evaluation prompt.
package relate

import (
	"math"
	"strings"
)

// nearbyWindow is the maximum source-line distance at which two keys are
// still considered neighbours.
const nearbyWindow = 30

// NearbyConfidence scores keys by source-line distance d with e^(-d/15)
// decay. Outside [0, nearbyWindow] — including unknown positions (d < 0) —
// the relationship carries no signal.
func NearbyConfidence(d int) float64 {
	if d < 0 || d > nearbyWindow {
		return 0
	}
	return math.Exp(-float64(d) / 15)
}

// SameFileConfidence scores keys declared in the same file. A negative d
// means no positional info: the relationship is known structurally and gets
// full confidence. Otherwise the 0.6 floor decays toward it with e^(-d/50).
func SameFileConfidence(d int) float64 {
	if d < 0 {
		return 1.0
	}
	return 0.6 + 0.4*math.Exp(-float64(d)/50)
}

// SameComponentConfidence scores keys used by the same UI component, with a
// higher 0.8 floor and a faster e^(-d/20) decay than the same-file case.
func SameComponentConfidence(d int) float64 {
	if d < 0 {
		return 1.0
	}
	return 0.8 + 0.2*math.Exp(-float64(d)/20)
}

// KeyPatternConfidence compares two dotted key names structurally:
// 0.6 × (shared leading segments / max segment count) + 0.4 × Jaccard
// similarity of the segment sets. Empty inputs score 0.
func KeyPatternConfidence(a, b string) float64 {
	segsA := splitKey(a)
	segsB := splitKey(b)
	if len(segsA) == 0 || len(segsB) == 0 {
		return 0
	}

	lcp := 0
	for lcp < len(segsA) && lcp < len(segsB) && segsA[lcp] == segsB[lcp] {
		lcp++
	}
	total := len(segsA)
	if len(segsB) > total {
		total = len(segsB)
	}
	lcpRatio := float64(lcp) / float64(total)

	setA := make(map[string]struct{}, len(segsA))
	for _, s := range segsA {
		setA[s] = struct{}{}
	}
	setB := make(map[string]struct{}, len(segsB))
	for _, s := range segsB {
		setB[s] = struct{}{}
	}
	intersection := 0
	for s := range setA {
		if _, ok := setB[s]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	jaccard := float64(intersection) / float64(union)

	return 0.6*lcpRatio + 0.4*jaccard
}

func splitKey(key string) []string {
	var segs []string
	for _, s := range strings.Split(key, ".") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}
