package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Precompiled cleanup patterns for model output.
var (
	codeFenceStartRegex = regexp.MustCompile(`(?s)^` + "`" + `{3}(?:json|javascript|js)?\s*\n?([\s\S]*?)\n?` + "`" + `{3}\s*$`)
	codeFenceAnyRegex   = regexp.MustCompile(`(?s)` + "`" + `{3}(?:json|javascript|js)?\s*\n?([\s\S]*?)\n?` + "`" + `{3}`)

	trailingCommaRegex     = regexp.MustCompile(`,(\s*[}\]])`)
	singleLineCommentRegex = regexp.MustCompile(`(?m)^\s*//.*$`)
	multiLineCommentRegex  = regexp.MustCompile(`(?s)/\*.*?\*/`)

	objectRegex = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
)

// MaxResponseSize bounds how much model output Parse will look at.
const MaxResponseSize = 1 << 20

// ParseResult is the outcome of parsing model output as JSON.
type ParseResult[T any] struct {
	Success bool
	Data    T
	Error   string
}

// Parse decodes a JSON object from model output, tolerating the usual
// formatting noise. Strategies, in order:
//  1. direct decode
//  2. strip markdown code fences
//  3. remove trailing commas and comments
//  4. extract the outermost {...} from surrounding prose
func Parse[T any](text, context string) ParseResult[T] {
	if len(text) > MaxResponseSize {
		return parseError[T](context, fmt.Sprintf("input exceeds size limit (%d > %d bytes)", len(text), MaxResponseSize))
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return parseError[T](context, "empty input")
	}

	if data, err := decode[T](trimmed); err == nil {
		return ParseResult[T]{Success: true, Data: data}
	}

	withoutFences := removeCodeFences(trimmed)
	if withoutFences != trimmed {
		if data, err := decode[T](withoutFences); err == nil {
			return ParseResult[T]{Success: true, Data: data}
		}
	}

	cleaned := cleanupJSON(withoutFences)
	if data, err := decode[T](cleaned); err == nil {
		return ParseResult[T]{Success: true, Data: data}
	}

	if extracted := objectRegex.FindString(cleaned); extracted != "" && extracted != cleaned {
		if data, err := decode[T](extracted); err == nil {
			return ParseResult[T]{Success: true, Data: data}
		}
	}

	return parseError[T](context, "all JSON parsing strategies failed")
}

func decode[T any](text string) (T, error) {
	var out T
	err := json.Unmarshal([]byte(text), &out)
	return out, err
}

func removeCodeFences(text string) string {
	cleaned := codeFenceStartRegex.ReplaceAllString(text, "$1")
	if cleaned == text {
		cleaned = codeFenceAnyRegex.ReplaceAllString(text, "$1")
	}
	if strings.HasPrefix(cleaned, "`") && strings.HasSuffix(cleaned, "`") {
		cleaned = strings.Trim(cleaned, "`")
	}
	return strings.TrimSpace(cleaned)
}

// cleanupJSON does not touch quotes: converting single quotes would break
// apostrophes inside valid strings.
func cleanupJSON(text string) string {
	cleaned := trailingCommaRegex.ReplaceAllString(text, "$1")
	cleaned = singleLineCommentRegex.ReplaceAllString(cleaned, "")
	cleaned = multiLineCommentRegex.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

func parseError[T any](context, message string) ParseResult[T] {
	if context != "" {
		message = context + ": " + message
	}
	return ParseResult[T]{Error: message}
}
