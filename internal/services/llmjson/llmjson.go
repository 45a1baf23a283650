// Package llmjson salvages structured output from LLM completions
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	// ErrNoJSON means the text held no object or array to decode.
	ErrNoJSON = errors.New("no JSON found in response")

	// ErrMalformed means a JSON candidate was found but could not be decoded,
	// even after repair.
	ErrMalformed = errors.New("malformed JSON in response")
)

// Common model preambles, anchored to the start of the text.
var (
	HereIsPreamble       = regexp.MustCompile(`(?i)^Here('s| is)\b.*?:\s*`)
	BasedOnPreamble      = regexp.MustCompile(`(?i)^Based on.*?:\s*`)
	ThisAnalysisPreamble = regexp.MustCompile(`(?i)^This analysis.*?:\s*`)
	InShortPreamble      = regexp.MustCompile(`(?i)^In short[:,]?\s*`)
	ExplanationPreamble  = regexp.MustCompile(`(?i)^Explanation:\s*`)
)

// DefaultPreambles is used when StripPreamble is called without patterns.
var DefaultPreambles = []*regexp.Regexp{HereIsPreamble, BasedOnPreamble, ThisAnalysisPreamble}

var (
	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	arrayPattern  = regexp.MustCompile(`(?s)\[.*\]`)

	ruleLine   = regexp.MustCompile(`(?m)^---\s*$`)
	boldText   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicText = regexp.MustCompile(`\*(.*?)\*`)
	inlineCode = regexp.MustCompile("`(.*?)`")
	headerMark = regexp.MustCompile(`(?m)^#{1,6}\s`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)
)

// StripPreamble trims the text and removes each matching preamble in turn.
func StripPreamble(text string, patterns ...*regexp.Regexp) string {
	if len(patterns) == 0 {
		patterns = DefaultPreambles
	}
	text = strings.TrimSpace(text)
	for _, p := range patterns {
		text = strings.TrimSpace(p.ReplaceAllString(text, ""))
	}
	return text
}

// StripCodeFence removes a surrounding ```json or ``` fence.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// ExtractObject returns the span from the first '{' to the last '}'.
func ExtractObject(text string) (string, bool) {
	m := objectPattern.FindString(text)
	return m, m != ""
}

// ExtractArray returns the span from the first '[' to the last ']'.
func ExtractArray(text string) (string, bool) {
	m := arrayPattern.FindString(text)
	return m, m != ""
}

// Decode extracts the JSON object from an LLM reply into v. When the
// candidate does not unmarshal it is passed through jsonrepair and retried
// once. Returns ErrNoJSON or ErrMalformed on failure.
func Decode(text string, v any) error {
	candidate, ok := ExtractObject(StripCodeFence(text))
	if !ok {
		return ErrNoJSON
	}
	return decodeCandidate(candidate, v)
}

// DecodeArray is Decode for a top-level JSON array.
func DecodeArray(text string, v any) error {
	candidate, ok := ExtractArray(StripCodeFence(text))
	if !ok {
		return ErrNoJSON
	}
	return decodeCandidate(candidate, v)
}

func decodeCandidate(candidate string, v any) error {
	err := json.Unmarshal([]byte(candidate), v)
	if err == nil {
		return nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(candidate)
	if repairErr != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// CleanMarkdown removes horizontal rules, emphasis, inline code and
// header markers, keeping the enclosed text.
func CleanMarkdown(text string) string {
	text = ruleLine.ReplaceAllString(text, "")
	text = boldText.ReplaceAllString(text, "$1")
	text = italicText.ReplaceAllString(text, "$1")
	text = inlineCode.ReplaceAllString(text, "$1")
	text = headerMark.ReplaceAllString(text, "")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Truncate cuts text to at most n runes.
func Truncate(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n])
}
