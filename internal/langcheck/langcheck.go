// Package langcheck verifies that a translation is actually written in its
// target language. It supplements the structural heuristics: a fluent-looking
// string in the wrong language passes every brace and punctuation check.
package langcheck

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"

	"github.com/valpere/qualitran/internal"
)

// minLength is the minimum rune count required to attempt detection.
// Shorter texts produce unreliable results and are accepted unchecked.
const minLength = 20

// Checker detects the language of translated text. The underlying detector
// is expensive to build; construct once and reuse.
type Checker struct {
	detector lingua.LanguageDetector
}

func New() *Checker {
	return &Checker{
		detector: lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			Build(),
	}
}

// Check returns a major fluency issue when text is confidently detected as a
// language other than targetLang (an ISO 639-1 code). Short texts, empty
// codes, and ambiguous detections yield no issue.
func (c *Checker) Check(text, targetLang string) *internal.QualityIssue {
	if targetLang == "" {
		return nil
	}

	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < minLength {
		return nil
	}

	detected, ok := c.detector.DetectLanguageOf(trimmed)
	if !ok {
		// Ambiguous — cannot tell, let it pass.
		return nil
	}

	iso := detected.IsoCode639_1().String()
	if strings.EqualFold(iso, targetLang) {
		return nil
	}

	return &internal.QualityIssue{
		Type:     internal.IssueFluency,
		Severity: internal.SeverityMajor,
		Message:  "translation appears to be written in " + strings.ToLower(iso) + " instead of " + targetLang,
	}
}
