package provider

import (
	"fmt"
	"sort"
	"strings"
)

const systemPrompt = `You are a professional translation quality evaluator.
Score translations on three MQM dimensions, each 0-100:
  accuracy     - meaning preserved, nothing added or omitted
  fluency      - grammatical, natural phrasing in the target language
  terminology  - correct domain terms, consistent with the glossary
Respond ONLY with a JSON object. No explanations, no code fences.`

// reformatInstruction is appended for the single retry after a reply failed
// schema validation.
const reformatInstruction = `Your previous reply could not be parsed.
Respond again with ONLY the JSON object described above - no prose, no code fences, no reasoning.`

// buildEvaluationPrompt renders the user prompt for a single pair.
func buildEvaluationPrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Evaluate this translation from %s to %s.\n\n", req.SourceLang, req.TargetLang))
	sb.WriteString(fmt.Sprintf("Source:\n%q\n\n", req.SourceText))
	sb.WriteString(fmt.Sprintf("Translation:\n%q\n", req.TargetText))

	writeGlossary(&sb, req.Glossary)

	if req.Examples != "" {
		sb.WriteString("\n")
		sb.WriteString(req.Examples)
	}
	if req.Context != "" {
		sb.WriteString("\n")
		sb.WriteString(req.Context)
		sb.WriteString("\n")
	}

	sb.WriteString(`
Respond in JSON:
{
  "accuracy": <0-100>,
  "fluency": <0-100>,
  "terminology": <0-100>,
  "issues": [{"type": "accuracy|fluency|terminology", "severity": "critical|major|minor", "message": "..."}]
}
`)

	return sb.String()
}

// buildMultiPrompt renders the user prompt for one source scored against
// every enabled target language at once. The response is keyed by the exact
// language codes listed here.
func buildMultiPrompt(req MultiRequest) string {
	var sb strings.Builder

	langs := sortedLangs(req.Targets)

	sb.WriteString(fmt.Sprintf("Evaluate the translations of one %s source string into %d languages.\n\n",
		req.SourceLang, len(langs)))
	sb.WriteString(fmt.Sprintf("Source:\n%q\n\n", req.SourceText))

	sb.WriteString("Translations:\n")
	for _, lang := range langs {
		sb.WriteString(fmt.Sprintf("  [%s] %q\n", lang, req.Targets[lang]))
	}

	writeGlossary(&sb, req.Glossary)

	if req.Context != "" {
		sb.WriteString("\n")
		sb.WriteString(req.Context)
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf(`
Respond in JSON keyed by language code (%s):
{
  "<lang>": {
    "accuracy": <0-100>,
    "fluency": <0-100>,
    "terminology": <0-100>,
    "issues": [{"type": "accuracy|fluency|terminology", "severity": "critical|major|minor", "message": "..."}]
  }
}
Every listed language must be present.
`, strings.Join(langs, ", ")))

	return sb.String()
}

func writeGlossary(sb *strings.Builder, glossary map[string]string) {
	if len(glossary) == 0 {
		return
	}
	sb.WriteString("\nTERMINOLOGY (the translation must use these exact terms):\n")
	terms := make([]string, 0, len(glossary))
	for src := range glossary {
		terms = append(terms, src)
	}
	sort.Strings(terms)
	for _, src := range terms {
		sb.WriteString(fmt.Sprintf("  %s → %s\n", src, glossary[src]))
	}
}

func sortedLangs(targets map[string]string) []string {
	langs := make([]string, 0, len(targets))
	for lang := range targets {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
