package heuristic

import (
	"fmt"
	"strings"
	"unicode"
)

// validateICU checks ICU MessageFormat syntax: braces must balance, and
// every plural/select/selectordinal argument must carry an "other" clause.
// It returns one human-readable problem per defect found.
func validateICU(text string) []string {
	if problem := checkBraceBalance(text); problem != "" {
		return []string{problem}
	}

	var problems []string
	walkMessage([]rune(text), &problems)
	return problems
}

func checkBraceBalance(text string) string {
	depth := 0
	for _, r := range text {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return "unbalanced braces: unexpected '}'"
			}
		}
	}
	if depth > 0 {
		return fmt.Sprintf("unbalanced braces: %d unclosed '{'", depth)
	}
	return ""
}

// walkMessage visits every top-level {…} argument in a message fragment and
// validates complex arguments recursively. Braces are known to balance.
func walkMessage(runes []rune, problems *[]string) {
	for i := 0; i < len(runes); i++ {
		if runes[i] != '{' {
			continue
		}
		close := matchBrace(runes, i)
		validateArgument(runes[i+1:close], problems)
		i = close
	}
}

// matchBrace returns the index of the '}' closing the '{' at open.
func matchBrace(runes []rune, open int) int {
	depth := 0
	for i := open; i < len(runes); i++ {
		switch runes[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(runes) - 1
}

// validateArgument inspects the inside of one {…} span. Simple arguments
// ({name}, {n, number}) need no further checks; plural-style arguments must
// include an "other" clause and have their clause bodies walked in turn.
func validateArgument(inner []rune, problems *[]string) {
	parts := splitTopLevel(inner, 3)
	if len(parts) < 2 {
		return
	}

	name := strings.TrimSpace(string(parts[0]))
	argType := strings.TrimSpace(string(parts[1]))
	switch argType {
	case "plural", "select", "selectordinal":
	default:
		return
	}

	if len(parts) < 3 {
		*problems = append(*problems, fmt.Sprintf("%s argument %q has no clauses", argType, name))
		return
	}

	selectors, clauses := parseClauses(parts[2])
	if !contains(selectors, "other") {
		*problems = append(*problems, fmt.Sprintf("%s argument %q is missing an 'other' clause", argType, name))
	}
	for _, clause := range clauses {
		walkMessage(clause, problems)
	}
}

// splitTopLevel splits runes on commas outside any braces, into at most
// max parts (the final part keeps its commas — it is the clause body).
func splitTopLevel(runes []rune, max int) [][]rune {
	var parts [][]rune
	depth := 0
	start := 0
	for i, r := range runes {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 && len(parts) < max-1 {
				parts = append(parts, runes[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, runes[start:])
	return parts
}

// parseClauses reads "selector {body} selector {body} …" and returns the
// selector names alongside the clause bodies.
func parseClauses(runes []rune) (selectors []string, clauses [][]rune) {
	i := 0
	for i < len(runes) {
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		start := i
		for i < len(runes) && runes[i] != '{' && !unicode.IsSpace(runes[i]) {
			i++
		}
		selector := strings.TrimSpace(string(runes[start:i]))

		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		if i >= len(runes) || runes[i] != '{' {
			break
		}
		close := matchBrace(runes, i)
		if selector != "" {
			selectors = append(selectors, selector)
			clauses = append(clauses, runes[i+1:close])
		}
		i = close + 1
	}
	return selectors, clauses
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
