package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// fencedArray matches the first ```...``` block containing a JSON array.
// Oracle responses frequently wrap their JSON in a fenced markdown block
// despite instructions to return it bare.
var fencedArray = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")

// DecodeRecords parses oracle output into v, which must be a pointer to a
// slice of record structs. It tries a strict parse first, then the first
// fenced JSON array in the text. Malformed output is reported as an error,
// never a panic; callers treat it like an oracle failure.
func DecodeRecords(text string, v any) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fmt.Errorf("empty oracle response")
	}

	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	if m := fencedArray.FindStringSubmatch(text); m != nil {
		if err := json.Unmarshal([]byte(m[1]), v); err == nil {
			return nil
		}
	}

	preview := trimmed
	if len(preview) > 200 {
		preview = preview[:200]
	}
	return fmt.Errorf("undecodable oracle response: %q", preview)
}
