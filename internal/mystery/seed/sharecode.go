package seed

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// ShareCodeVersion is written into every code. Decoding does not check it.
const ShareCodeVersion = 1

// ShareData is the reproducible part of a generation request.
type ShareData struct {
	Seed        int64  `json:"seed"`
	PlayerCount int    `json:"player_count"`
	CategoryID  string `json:"category_id"`
	Tone        string `json:"tone"`
	Duration    int    `json:"duration"`
}

// ShareCodeError reports a share code that cannot be decoded.
type ShareCodeError struct {
	Code   string
	Reason string
	Err    error
}

func (e *ShareCodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid share code: %s: %v", e.Reason, e.Err)
	}
	return "invalid share code: " + e.Reason
}

func (e *ShareCodeError) Unwrap() error { return e.Err }

// sharePayload has its fields in key-sorted order so that json.Marshal yields the
// canonical key-sorted, separator-compact form.
type sharePayload struct {
	CategoryID  string `json:"category_id"`
	Duration    int    `json:"duration"`
	PlayerCount int    `json:"player_count"`
	Seed        int64  `json:"seed"`
	Tone        string `json:"tone"`
	V           int    `json:"v"`
}

// EncodeShareCode renders d as URL-safe base64 without padding.
func EncodeShareCode(d ShareData) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(sharePayload{
		CategoryID:  d.CategoryID,
		Duration:    d.Duration,
		PlayerCount: d.PlayerCount,
		Seed:        d.Seed,
		Tone:        d.Tone,
		V:           ShareCodeVersion,
	}); err != nil {
		return "", err
	}
	raw := bytes.TrimRight(buf.Bytes(), "\n")
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeShareCode reverses EncodeShareCode. Every field except the version tag is required.
func DecodeShareCode(code string) (ShareData, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(code), "=")
	if trimmed == "" {
		return ShareData{}, &ShareCodeError{Code: code, Reason: "empty code"}
	}
	raw, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil {
		return ShareData{}, &ShareCodeError{Code: code, Reason: "malformed base64", Err: err}
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return shareCodeFailure(code, "malformed payload", err)
	}
	for _, k := range []string{"seed", "player_count", "category_id", "tone", "duration"} {
		if _, ok := payload[k]; !ok {
			return ShareData{}, &ShareCodeError{Code: code, Reason: "missing field " + k}
		}
	}
	var out ShareData
	if err := json.Unmarshal(raw, &out); err != nil {
		return shareCodeFailure(code, "malformed field", err)
	}
	return out, nil
}

func shareCodeFailure(code, reason string, err error) (ShareData, error) {
	return ShareData{}, &ShareCodeError{Code: code, Reason: reason, Err: err}
}
