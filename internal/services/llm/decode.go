package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DecodeJSON unmarshals a model answer into target. Models sometimes wrap the
// object in a markdown fence or a sentence of prose, so when the answer is
// not JSON as-is the first object or array inside it is decoded instead.
func DecodeJSON(content string, target any) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.New("empty payload")
	}
	err := json.Unmarshal([]byte(content), target)
	if err == nil {
		return nil
	}
	start := strings.IndexAny(unfence(content), "{[")
	if start < 0 {
		return fmt.Errorf("%w (payload snippet: %s)", err, snippet(content))
	}
	embedded := unfence(content)[start:]
	// Decoder stops at the end of the first value and ignores trailing prose.
	if derr := json.NewDecoder(strings.NewReader(embedded)).Decode(target); derr != nil {
		return fmt.Errorf("%w (payload snippet: %s)", derr, snippet(embedded))
	}
	return nil
}

func unfence(content string) string {
	body, ok := strings.CutPrefix(strings.TrimSpace(content), "```")
	if !ok {
		return content
	}
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// snippet collapses whitespace and caps s for error messages.
func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "<empty>"
	}
	if r := []rune(s); len(r) > 160 {
		return string(r[:160]) + "..."
	}
	return s
}
