package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseError reports model output that could not be turned into the
// expected shape. Raw keeps the original text.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return "model output " + e.Reason
}

// validator is implemented by output shapes with required fields.
type validator interface {
	Validate() error
}

// Decode parses model output as T. Code fences and surrounding prose are
// stripped, malformed JSON gets one repair attempt, and T's Validate method
// runs when it has one. Any failure is a *ParseError.
func Decode[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return zero, &ParseError{Reason: "is empty", Raw: raw}
	}

	var out T
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(cleaned)
		if rerr != nil {
			return zero, &ParseError{Reason: fmt.Sprintf("is not valid JSON: %v", err), Raw: raw}
		}
		out = zero
		if err := json.Unmarshal([]byte(repaired), &out); err != nil {
			return zero, &ParseError{Reason: fmt.Sprintf("is not valid JSON: %v", err), Raw: raw}
		}
	}

	if v, ok := any(&out).(validator); ok {
		if err := v.Validate(); err != nil {
			return zero, &ParseError{Reason: err.Error(), Raw: raw}
		}
	}
	return out, nil
}

// extractJSON removes markdown fences and any text outside the outermost
// JSON object or array.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if s[0] == '{' || s[0] == '[' {
		return s
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return s[start:]
	}
	return s[start : end+1]
}
