package relate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/valpere/qualitran/internal"
)

// maxExamples caps the natural-language rendering; more than a few worked
// examples stops helping the model and inflates token cost.
const maxExamples = 3

// Key describes one translation key as the engine sees it: its location in
// the source tree plus its known translations.
type Key struct {
	Name      string
	File      string
	Component string
	// Line is the key's position in its source file, or -1 when unknown.
	Line         int
	Translations map[string]string
	Approved     bool
}

// Select ranks candidates against subject and returns the top-N related
// keys that carry a translation in both requested languages. Per key, only
// the strongest relationship is kept.
func Select(subject Key, candidates []Key, sourceLang, targetLang string, topN int) []internal.RelatedKeyCandidate {
	best := make(map[string]internal.RelatedKeyCandidate)

	for _, cand := range candidates {
		if cand.Name == subject.Name {
			continue
		}

		d := lineDistance(subject, cand)

		consider := func(rel internal.RelationshipType, confidence float64) {
			if confidence <= 0 {
				return
			}
			if prev, ok := best[cand.Name]; ok && prev.Confidence >= confidence {
				return
			}
			best[cand.Name] = internal.RelatedKeyCandidate{
				KeyName:      cand.Name,
				Relationship: rel,
				Confidence:   confidence,
				Translations: cand.Translations,
				Approved:     cand.Approved,
			}
		}

		if subject.File != "" && subject.File == cand.File {
			consider(internal.RelSameFile, SameFileConfidence(d))
			consider(internal.RelNearby, NearbyConfidence(d))
		}
		if subject.Component != "" && subject.Component == cand.Component {
			consider(internal.RelSameComponent, SameComponentConfidence(d))
		}
		consider(internal.RelKeyPattern, KeyPatternConfidence(subject.Name, cand.Name))
	}

	merged := make([]internal.RelatedKeyCandidate, 0, len(best))
	for _, cand := range best {
		if !hasBothLanguages(cand, sourceLang, targetLang) {
			continue
		}
		merged = append(merged, cand)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Confidence != merged[j].Confidence {
			return merged[i].Confidence > merged[j].Confidence
		}
		return merged[i].KeyName < merged[j].KeyName
	})

	if topN >= 0 && len(merged) > topN {
		merged = merged[:topN]
	}
	return merged
}

// lineDistance returns the absolute line distance between two keys, or -1
// when either position is unknown.
func lineDistance(a, b Key) int {
	if a.Line < 0 || b.Line < 0 {
		return -1
	}
	d := a.Line - b.Line
	if d < 0 {
		d = -d
	}
	return d
}

func hasBothLanguages(cand internal.RelatedKeyCandidate, sourceLang, targetLang string) bool {
	return cand.Translations[sourceLang] != "" && cand.Translations[targetLang] != ""
}

// RenderExamples produces a short natural-language list of worked examples
// (at most maxExamples) for the evaluation prompt.
func RenderExamples(candidates []internal.RelatedKeyCandidate, sourceLang, targetLang string) string {
	if len(candidates) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Related translations from the same project:\n")
	for i, cand := range candidates {
		if i == maxExamples {
			break
		}
		sb.WriteString(fmt.Sprintf("  %d. %q is translated as %q (key %s)\n",
			i+1, cand.Translations[sourceLang], cand.Translations[targetLang], cand.KeyName))
	}
	return sb.String()
}

// RenderMarkup produces the structured context block listing every included
// candidate. Source and target text are escaped, and so are attribute
// values, so arbitrary translation content cannot break the markup.
func RenderMarkup(candidates []internal.RelatedKeyCandidate, sourceLang, targetLang string) string {
	if len(candidates) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("<relatedTranslations>\n")
	for _, cand := range candidates {
		sb.WriteString(fmt.Sprintf("  <translation key=\"%s\" relationship=\"%s\" confidence=\"%.2f\" approved=\"%t\">\n",
			escape(cand.KeyName), cand.Relationship, cand.Confidence, cand.Approved))
		sb.WriteString(fmt.Sprintf("    <source>%s</source>\n", escape(cand.Translations[sourceLang])))
		sb.WriteString(fmt.Sprintf("    <target>%s</target>\n", escape(cand.Translations[targetLang])))
		sb.WriteString("  </translation>\n")
	}
	sb.WriteString("</relatedTranslations>")
	return sb.String()
}

// escape replaces the five markup-significant characters. Ampersand goes
// first so already-escaped entities are not double-mangled.
var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

func escape(text string) string {
	return escaper.Replace(text)
}
