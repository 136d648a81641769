// Package heuristic scores a translation pair with deterministic structural
// checks: placeholder parity, ICU message-format validity, length-ratio
// bounds, and punctuation/whitespace consistency. It performs no I/O and
// never calls a model, so it is the free first tier of evaluation.
package heuristic

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/valpere/qualitran/internal"
)

// Severity penalties subtracted from the 100-point base score.
const (
	penaltyCritical = 30
	penaltyMajor    = 15
	penaltyMinor    = 5
)

// Length-ratio bounds, applied only when the source is long enough for the
// ratio to be meaningful.
const (
	minRatioLen   = 10
	minorRatioLow  = 0.5
	minorRatioHigh = 2.0
	majorRatioLow  = 0.3
	majorRatioHigh = 3.0
)

// rePlaceholder matches simple {name} placeholder tokens. Nested ICU
// arguments are handled separately by the ICU validity check.
var rePlaceholder = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// terminalPunctuation is the set of sentence-final characters whose
// presence should agree between source and target.
const terminalPunctuation = ".!?:;…"

// Result is the outcome of the heuristic tier.
type Result struct {
	Issues []internal.QualityIssue
	Passed bool
	Score  float64
	// NeedsAIEvaluation is set when any critical or major issue exists,
	// independent of the numeric score.
	NeedsAIEvaluation bool
}

// Check runs every structural check on the pair and aggregates the result.
// The language codes are accepted for parity with the evaluation contract;
// the structural checks themselves are language-agnostic.
func Check(source, target, sourceLang, targetLang string) Result {
	var issues []internal.QualityIssue

	issues = append(issues, checkPlaceholders(source, target)...)
	issues = append(issues, checkICU(target)...)
	issues = append(issues, checkLengthRatio(source, target)...)
	issues = append(issues, checkPunctuation(source, target)...)

	return Score(issues)
}

// CheckFormatOnly validates only the ICU syntax of the target. It backs the
// format-only path used when a pair has no source text to compare against.
func CheckFormatOnly(target string) Result {
	return Score(checkICU(target))
}

// Score turns an issue list into the numeric result: 100 minus the
// severity-weighted penalties, clamped to [0, 100].
func Score(issues []internal.QualityIssue) Result {
	score := 100.0
	needsAI := false
	for _, issue := range issues {
		switch issue.Severity {
		case internal.SeverityCritical:
			score -= penaltyCritical
			needsAI = true
		case internal.SeverityMajor:
			score -= penaltyMajor
			needsAI = true
		case internal.SeverityMinor:
			score -= penaltyMinor
		}
	}
	if score < 0 {
		score = 0
	}

	return Result{
		Issues:            issues,
		Passed:            len(issues) == 0,
		Score:             score,
		NeedsAIEvaluation: needsAI,
	}
}

// checkPlaceholders verifies that every {var} token in the source reappears
// in the target, and flags tokens the target invented.
func checkPlaceholders(source, target string) []internal.QualityIssue {
	var issues []internal.QualityIssue

	sourceTokens := placeholderSet(source)
	targetTokens := placeholderSet(target)

	for token := range sourceTokens {
		if _, ok := targetTokens[token]; !ok {
			issues = append(issues, internal.QualityIssue{
				Type:     internal.IssueAccuracy,
				Severity: internal.SeverityCritical,
				Message:  fmt.Sprintf("placeholder {%s} from the source is missing in the translation", token),
			})
		}
	}
	for token := range targetTokens {
		if _, ok := sourceTokens[token]; !ok {
			issues = append(issues, internal.QualityIssue{
				Type:     internal.IssueAccuracy,
				Severity: internal.SeverityMajor,
				Message:  fmt.Sprintf("placeholder {%s} does not exist in the source", token),
			})
		}
	}

	return issues
}

func placeholderSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, m := range rePlaceholder.FindAllStringSubmatch(text, -1) {
		set[m[1]] = struct{}{}
	}
	return set
}

// checkICU validates the ICU message-format syntax of the target.
func checkICU(target string) []internal.QualityIssue {
	var issues []internal.QualityIssue
	for _, problem := range validateICU(target) {
		issues = append(issues, internal.QualityIssue{
			Type:     internal.IssueAccuracy,
			Severity: internal.SeverityCritical,
			Message:  problem,
		})
	}
	return issues
}

// checkLengthRatio flags translations that are implausibly short or long
// relative to the source. Short sources are exempt: a two-word label can
// legitimately triple in length.
func checkLengthRatio(source, target string) []internal.QualityIssue {
	srcLen := len([]rune(strings.TrimSpace(source)))
	tgtLen := len([]rune(strings.TrimSpace(target)))
	if srcLen < minRatioLen || tgtLen == 0 {
		return nil
	}

	ratio := float64(tgtLen) / float64(srcLen)
	switch {
	case ratio < majorRatioLow || ratio > majorRatioHigh:
		return []internal.QualityIssue{{
			Type:     internal.IssueFluency,
			Severity: internal.SeverityMajor,
			Message:  fmt.Sprintf("translation length ratio %.2f is far outside the expected range", ratio),
		}}
	case ratio < minorRatioLow || ratio > minorRatioHigh:
		return []internal.QualityIssue{{
			Type:     internal.IssueFluency,
			Severity: internal.SeverityMinor,
			Message:  fmt.Sprintf("translation length ratio %.2f is outside the expected range", ratio),
		}}
	}
	return nil
}

// checkPunctuation compares terminal punctuation and whitespace discipline
// between source and target.
func checkPunctuation(source, target string) []internal.QualityIssue {
	var issues []internal.QualityIssue

	if source == "" || target == "" {
		return nil
	}

	srcTerminal := endsWithTerminal(strings.TrimSpace(source))
	tgtTerminal := endsWithTerminal(strings.TrimSpace(target))
	if srcTerminal != tgtTerminal {
		issues = append(issues, internal.QualityIssue{
			Type:     internal.IssueFluency,
			Severity: internal.SeverityMinor,
			Message:  "terminal punctuation differs between source and translation",
		})
	}

	srcPadded := source != strings.TrimSpace(source)
	tgtPadded := target != strings.TrimSpace(target)
	if srcPadded != tgtPadded {
		issues = append(issues, internal.QualityIssue{
			Type:     internal.IssueFluency,
			Severity: internal.SeverityMinor,
			Message:  "leading or trailing whitespace differs between source and translation",
		})
	}

	if strings.Contains(target, "  ") && !strings.Contains(source, "  ") {
		issues = append(issues, internal.QualityIssue{
			Type:     internal.IssueFluency,
			Severity: internal.SeverityMinor,
			Message:  "translation contains doubled spaces absent from the source",
		})
	}

	return issues
}

func endsWithTerminal(text string) bool {
	runes := []rune(text)
	if len(runes) == 0 {
		return false
	}
	return strings.ContainsRune(terminalPunctuation, runes[len(runes)-1])
}
