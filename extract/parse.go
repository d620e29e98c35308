package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// fencePattern matches the body of a markdown code block: ```json ... ```
	fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)\\s*```")
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// recordKeys are the wrapper keys a response may nest its records under.
var recordKeys = []string{"records", "items", "results", "data"}

// ErrNoJSON is returned when a response contains no JSON value at all.
var ErrNoJSON = errors.New("response contains no JSON")

// ParseResponse reads the model's raw response as a list of record values.
//
// It accepts a bare array, a single object, or an object holding the records
// under a "records" key, optionally wrapped in a code fence or surrounded by
// prose. An empty response, null, or an empty array yields no records.
// Items are returned as decoded; the caller checks that each is an object.
func ParseResponse(raw string) ([]any, error) {
	text := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(text); len(m) > 1 {
		text = strings.TrimSpace(m[1])
	}
	if text == "" || text == "null" {
		return nil, nil
	}

	spans := jsonSpans(text)
	if len(spans) == 0 {
		return nil, ErrNoJSON
	}
	var firstErr error
	for _, span := range spans {
		var v any
		if err := json.Unmarshal([]byte(cleanJSON(span)), &v); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("decode response: %w", err)
			}
			continue
		}
		return records(v)
	}
	return nil, firstErr
}

func records(v any) ([]any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return x, nil
	case map[string]any:
		for _, key := range recordKeys {
			switch items := x[key].(type) {
			case []any:
				return items, nil
			case nil:
				if _, ok := x[key]; ok {
					return nil, nil
				}
			}
		}
		return []any{x}, nil
	default:
		return nil, fmt.Errorf("response is a JSON %T, want an object or array", v)
	}
}

// jsonSpans returns the candidate JSON values in text: the span from the
// first opening brace to the last closing one, and likewise for brackets,
// ordered by where they start.
func jsonSpans(text string) []string {
	type span struct {
		start int
		text  string
	}
	var found []span
	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		open := strings.IndexByte(text, pair[0])
		end := strings.LastIndexByte(text, pair[1])
		if open >= 0 && end > open {
			found = append(found, span{open, text[open : end+1]})
		}
	}
	if len(found) == 2 && found[1].start < found[0].start {
		found[0], found[1] = found[1], found[0]
	}
	out := make([]string, len(found))
	for i, s := range found {
		out[i] = s.text
	}
	return out
}

// cleanJSON removes line comments and trailing commas, which models commonly
// produce.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingCommaPattern.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

// stripLineComment removes a // comment from a JSON line, respecting string
// values such as "https://a.edu".
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}
	inString, escaped := false, false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
