// Package parse pulls a JSON object out of free text returned by a text-generation
// collaborator. The text may be fenced, prefixed with chatter, truncated mid-object or
// closed but malformed.
package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// MalformedResponseError means no candidate object could be isolated, or the isolated
// text is structurally unbalanced.
type MalformedResponseError struct {
	Reason string
	Text   string
}

func (e *MalformedResponseError) Error() string {
	return "malformed response: " + e.Reason
}

// JSONParseError means a balanced candidate object failed to decode, even after
// trailing-comma repair. Msg is the decoder's message.
type JSONParseError struct {
	Msg    string
	Offset int64
	Text   string
}

func (e *JSONParseError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("json parse error at offset %d: %s", e.Offset, e.Msg)
	}
	return "json parse error: " + e.Msg
}

// IsParseFailure reports whether err is either parse error type.
func IsParseFailure(err error) bool {
	var m *MalformedResponseError
	var j *JSONParseError
	return errors.As(err, &m) || errors.As(err, &j)
}

var (
	openingFence  = regexp.MustCompile("^```[a-zA-Z]*")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// StripFence trims whitespace, a leading code fence with its language tag and a trailing
// fence, then narrows to the span between the first '{' and the last '}' when both exist.
func StripFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimSpace(openingFence.ReplaceAllString(cleaned, ""))
		cleaned = strings.TrimSpace(strings.TrimRight(cleaned, "`"))
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start != -1 && end != -1 && end > start {
		return cleaned[start : end+1]
	}
	return cleaned
}

// Balanced is a structural probe, not a parser: it tracks string state (with escapes) and
// brace/bracket depth and reports whether everything closes outside a string. It lets the
// caller tell truncated output apart from closed-but-malformed output.
func Balanced(text string) bool {
	cleaned := StripFence(text)
	braces, brackets := 0, 0
	inString, escaped := false, false
	for _, ch := range cleaned {
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			braces++
		case '}':
			braces--
		case '[':
			brackets++
		case ']':
			brackets--
		}
	}
	return braces == 0 && brackets == 0 && !inString
}

// Extract isolates the object text, failing when no '{'..'}' span exists.
func Extract(text string) (string, error) {
	cleaned := StripFence(text)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end <= start {
		return "", &MalformedResponseError{Reason: "no JSON object found", Text: cleaned}
	}
	return cleaned[start : end+1], nil
}

// Strict extracts, probes and decodes the object. A decode failure is retried once with
// trailing commas removed before a closing brace or bracket.
func Strict(text string) (map[string]any, error) {
	cleaned := StripFence(text)
	if !Balanced(cleaned) {
		return nil, &MalformedResponseError{Reason: "unbalanced JSON", Text: cleaned}
	}
	extracted, err := Extract(cleaned)
	if err != nil {
		return nil, err
	}
	obj, err := decodeObject(extracted)
	if err == nil {
		return obj, nil
	}
	repaired := RemoveTrailingCommas(extracted)
	obj, err = decodeObject(repaired)
	if err == nil {
		return obj, nil
	}
	perr := &JSONParseError{Msg: err.Error(), Text: repaired}
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		perr.Offset = syn.Offset
	}
	return nil, perr
}

// RemoveTrailingCommas drops any comma that directly precedes '}' or ']'.
func RemoveTrailingCommas(text string) string {
	return trailingComma.ReplaceAllString(text, "$1")
}

func decodeObject(text string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("extra data after top-level object")
		}
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("top-level value is not an object")
	}
	return obj, nil
}
