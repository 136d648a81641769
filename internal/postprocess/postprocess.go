// Package postprocess removes common LLM artifacts from raw evaluator
// replies before JSON extraction: reasoning blocks, Markdown code fences,
// and quote wrapping. Models wrap their verdicts in all three even when
// instructed to emit bare JSON.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes LLM artifacts from text in three phases and returns the
// trimmed result:
//  1. Thinking / reasoning block removal
//  2. Markdown code-fence unwrapping
//  3. Quote wrapping removal
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = unwrapCodeFence(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// --- Phase 1: thinking blocks ---

// thinkingBlockRe matches complete <thinking>…</thinking> style blocks.
// Each tag variant is listed explicitly because Go's RE2 engine does not
// support backreferences.
// Flags: i = case-insensitive, s = dot matches newline.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened thinking tag whose closing tag is
// missing (the model was cut off mid-thought).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// --- Phase 2: code fences ---

// fencedRe captures the body of a ```json … ``` (or bare ```) block.
var fencedRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// unwrapCodeFence replaces the reply with the body of its first fenced
// block. When prose surrounds the fence, only the fenced body survives —
// the fence is the strongest signal for where the payload lives.
func unwrapCodeFence(text string) string {
	if m := fencedRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// --- Phase 3: quote wrapping ---

// removeQuoteWrapping strips a matching pair of outer quotes when the entire
// text is wrapped in them (a common LLM artifact).  Supported pairs:
//
//	«…»  curly double quotes
//
// Plain ASCII quotes are left alone — a JSON payload may legitimately be a
// quoted string.
func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '«' && last == '»') ||
		(first == '“' && last == '”') { // " "
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}
