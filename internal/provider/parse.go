package provider

import (
	"encoding/json"
	"fmt"

	"github.com/valpere/qualitran/internal"
	"github.com/valpere/qualitran/internal/postprocess"
)

// ExtractJSON returns the first balanced {…} span in a raw reply, after
// artifact cleanup. Models routinely wrap the object in prose or fences;
// the span scan respects string literals so braces inside messages do not
// truncate the payload.
func ExtractJSON(raw string) (string, error) {
	cleaned := postprocess.Clean(raw)

	start := -1
	for i, r := range cleaned {
		if r == '{' {
			start = i
			break
		}
	}
	if start < 0 {
		return "", &MalformedResponseError{Path: "$", Reason: "no JSON object found in reply"}
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(cleaned); i++ {
		c := cleaned[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return cleaned[start : i+1], nil
			}
		}
	}
	return "", &MalformedResponseError{Path: "$", Reason: "unterminated JSON object"}
}

// rawDimensions is the wire shape of one language's verdict. Pointers
// distinguish a missing field from a zero score.
type rawDimensions struct {
	Accuracy    *float64          `json:"accuracy"`
	Fluency     *float64          `json:"fluency"`
	Terminology *float64          `json:"terminology"`
	Issues      []json.RawMessage `json:"issues"`
}

// parseEvaluation validates a single-pair reply.
func parseEvaluation(raw string) (*Dimensions, error) {
	span, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var body rawDimensions
	if err := json.Unmarshal([]byte(span), &body); err != nil {
		return nil, &MalformedResponseError{Path: "$", Reason: err.Error()}
	}

	return validateDimensions(&body, "$")
}

// parseMultiEvaluation validates a reply keyed by target language. The
// expected shape is built per call from the requested language list, so any
// language set yields a precise validator.
func parseMultiEvaluation(raw string, langs []string) (map[string]Dimensions, error) {
	span, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var root map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &root); err != nil {
		return nil, &MalformedResponseError{Path: "$", Reason: err.Error()}
	}

	out := make(map[string]Dimensions, len(langs))
	for _, lang := range langs {
		entry, ok := root[lang]
		if !ok {
			return nil, &MalformedResponseError{Path: "$." + lang, Reason: "missing entry for requested language"}
		}
		var body rawDimensions
		if err := json.Unmarshal(entry, &body); err != nil {
			return nil, &MalformedResponseError{Path: "$." + lang, Reason: err.Error()}
		}
		dims, err := validateDimensions(&body, "$."+lang)
		if err != nil {
			return nil, err
		}
		out[lang] = *dims
	}
	return out, nil
}

// validateDimensions enforces the numeric contract and filters the issue
// list. Malformed issue entries are dropped individually — a single bad
// element must not discard an otherwise valid verdict.
func validateDimensions(body *rawDimensions, path string) (*Dimensions, error) {
	accuracy, err := requireScore(body.Accuracy, path+".accuracy")
	if err != nil {
		return nil, err
	}
	fluency, err := requireScore(body.Fluency, path+".fluency")
	if err != nil {
		return nil, err
	}
	terminology, err := requireScore(body.Terminology, path+".terminology")
	if err != nil {
		return nil, err
	}

	dims := &Dimensions{
		Accuracy:    accuracy,
		Fluency:     fluency,
		Terminology: terminology,
	}
	for _, entry := range body.Issues {
		if issue, ok := decodeIssue(entry); ok {
			dims.Issues = append(dims.Issues, issue)
		}
	}
	return dims, nil
}

func requireScore(value *float64, path string) (float64, error) {
	if value == nil {
		return 0, &MalformedResponseError{Path: path, Reason: "missing required numeric field"}
	}
	if *value < 0 || *value > 100 {
		return 0, &MalformedResponseError{Path: path, Reason: fmt.Sprintf("value %g outside [0,100]", *value)}
	}
	return *value, nil
}

func decodeIssue(entry json.RawMessage) (internal.QualityIssue, bool) {
	var issue internal.QualityIssue
	if err := json.Unmarshal(entry, &issue); err != nil {
		return internal.QualityIssue{}, false
	}
	if !validIssueType(issue.Type) || !validSeverity(issue.Severity) || issue.Message == "" {
		return internal.QualityIssue{}, false
	}
	return issue, true
}

func validIssueType(t internal.IssueType) bool {
	switch t {
	case internal.IssueAccuracy, internal.IssueFluency, internal.IssueTerminology:
		return true
	}
	return false
}

func validSeverity(s internal.Severity) bool {
	switch s {
	case internal.SeverityCritical, internal.SeverityMajor, internal.SeverityMinor:
		return true
	}
	return false
}
