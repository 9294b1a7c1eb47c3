package ai

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON means the model reply contained nothing decodable.
var ErrNoJSON = errors.New("no json object in model reply")

// DecodeJSON unmarshals a model reply into v. Models sometimes wrap the JSON
// in markdown fences or surround it with prose even when asked for raw JSON,
// so the payload is located before decoding.
func DecodeJSON(text string, v any) error {
	payload := ExtractJSON(text)
	if payload == "" {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(payload), v)
}

// ExtractJSON returns the first JSON object or array embedded in text, or ""
// when there is none.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "```") {
		s = stripFence(s)
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	open, closing := s[start], byte('}')
	if open == '[' {
		closing = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func stripFence(s string) string {
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
