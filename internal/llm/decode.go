package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Outcome tags how a structured reply was obtained.
type Outcome string

// Decode outcomes.
const (
	OutcomeOK        Outcome = "ok"
	OutcomeRecovered Outcome = "recovered"
	OutcomeFailed    Outcome = "failed"
)

// Strategy extracts a JSON candidate from raw reply text.
type Strategy struct {
	Extract func(raw string) (string, bool)
	Name    string
}

// Decoded is the tagged result of decoding a reply.
type Decoded[T any] struct {
	Value    T
	Err      error
	Outcome  Outcome
	Strategy string
}

var errNoCandidate = errors.New("no strategy produced a decodable value")

var (
	jsonFencePattern = regexp.MustCompile("(?s)```json\\s*\\n?(.*?)```")
	anyFencePattern  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)```")
)

// Direct treats the whole reply as JSON.
var Direct = Strategy{Name: "direct", Extract: func(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	return s, s != ""
}}

// JSONFence takes the body of the first ```json block.
var JSONFence = Strategy{Name: "json_fence", Extract: func(raw string) (string, bool) {
	m := jsonFencePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}}

// AnyFence takes the body of the first fenced block of any language.
var AnyFence = Strategy{Name: "fence", Extract: func(raw string) (string, bool) {
	m := anyFencePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}}

// OuterObject takes the text from the first '{' to the last '}'.
var OuterObject = Strategy{Name: "outer_object", Extract: func(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}}

// EscapedControls takes the outer object and escapes raw newlines and tabs
// inside string literals, which models emit when a field holds a whole document.
var EscapedControls = Strategy{Name: "escaped_controls", Extract: func(raw string) (string, bool) {
	candidate, ok := OuterObject.Extract(raw)
	if !ok {
		return "", false
	}

	var b strings.Builder
	inString, escaped, changed := false, false, false
	for _, r := range candidate {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inString:
			escaped = true
		case r == '"':
			inString = !inString
		case inString && r == '\n':
			b.WriteString(`\n`)
			changed = true
			continue
		case inString && r == '\r':
			b.WriteString(`\r`)
			changed = true
			continue
		case inString && r == '\t':
			b.WriteString(`\t`)
			changed = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), changed
}}

// DefaultStrategies is the ordered pipeline used when none is given.
func DefaultStrategies() []Strategy {
	return []Strategy{Direct, JSONFence, AnyFence, OuterObject, EscapedControls}
}

// Decode parses raw into T. The first strategy that yields valid JSON wins:
// the first strategy in the list tags the result ok, later ones recovered.
// When none succeeds the fallback value is returned tagged failed.
func Decode[T any](raw string, fallback T, strategies ...Strategy) Decoded[T] {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}

	var lastErr error
	for i, s := range strategies {
		candidate, ok := s.Extract(raw)
		if !ok {
			continue
		}
		var value T
		if err := json.Unmarshal([]byte(candidate), &value); err != nil {
			lastErr = fmt.Errorf("%s: %w", s.Name, err)
			continue
		}
		outcome := OutcomeRecovered
		if i == 0 {
			outcome = OutcomeOK
		}
		return Decoded[T]{Value: value, Outcome: outcome, Strategy: s.Name}
	}

	if lastErr == nil {
		lastErr = errNoCandidate
	}
	return Decoded[T]{Value: fallback, Outcome: OutcomeFailed, Err: lastErr}
}

// CleanText strips a fenced wrapper from a free-text reply such as a
// generated document. Text without a wrapper is returned trimmed.
func CleanText(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if m := anyFencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(s)
}
