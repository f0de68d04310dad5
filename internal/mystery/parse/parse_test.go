package parse

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBalanced_TruncatedVsMalformed(t *testing.T) {
	truncated := `{"title": "Jazz", "clues": [{"clue_id": "clue_01", "title": "Gl`
	if Balanced(truncated) {
		t.Fatalf("truncated sample classified as balanced")
	}
	missingComma := `{"title": "Jazz" "theme_summary": "smoky"}`
	if !Balanced(missingComma) {
		t.Fatalf("closed-but-malformed sample classified as unbalanced")
	}
}

func TestBalanced_IgnoresBracesInsideStrings(t *testing.T) {
	if !Balanced(`{"note": "a } stray { brace and \"quoted ]\" text"}`) {
		t.Fatalf("braces inside strings must not count")
	}
	if Balanced(`{"note": "unterminated}`) {
		t.Fatalf("open string must be unbalanced")
	}
}

func TestStrict_CleanObjectIsIdempotent(t *testing.T) {
	in := `{"a":1,"b":["x","y"],"c":{"d":true}}`
	got, err := Strict(in)
	if err != nil {
		t.Fatalf("Strict: %v", err)
	}
	want := map[string]any{
		"a": json.Number("1"),
		"b": []any{"x", "y"},
		"c": map[string]any{"d": true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if StripFence(in) != in {
		t.Fatalf("StripFence changed a clean object")
	}
}

func TestStrict_FencedWithChatter(t *testing.T) {
	in := "```json\nHere you go: {\"title\": \"Lodge\"} enjoy\n```"
	got, err := Strict(in)
	if err != nil {
		t.Fatalf("Strict: %v", err)
	}
	if got["title"] != "Lodge" {
		t.Fatalf("title=%v", got["title"])
	}
}

func TestStrict_TrailingCommaRepair(t *testing.T) {
	got, err := Strict(`{"list": [1, 2, ], "obj": {"k": "v",  }, }`)
	if err != nil {
		t.Fatalf("Strict: %v", err)
	}
	if len(got["list"].([]any)) != 2 {
		t.Fatalf("list=%v", got["list"])
	}
}

func TestStrict_Unbalanced(t *testing.T) {
	_, err := Strict(`{"title": "x", "clues": [`)
	var m *MalformedResponseError
	if !errors.As(err, &m) {
		t.Fatalf("want MalformedResponseError, got %T %v", err, err)
	}
	if !IsParseFailure(err) {
		t.Fatalf("IsParseFailure=false")
	}
}

func TestStrict_NoObject(t *testing.T) {
	_, err := Strict("I cannot help with that.")
	var m *MalformedResponseError
	if !errors.As(err, &m) {
		t.Fatalf("want MalformedResponseError, got %T %v", err, err)
	}
}

func TestStrict_BalancedButMalformed(t *testing.T) {
	_, err := Strict(`{"title": "Jazz" "theme_summary": "smoky"}`)
	var j *JSONParseError
	if !errors.As(err, &j) {
		t.Fatalf("want JSONParseError, got %T %v", err, err)
	}
	if j.Msg == "" || j.Text == "" {
		t.Fatalf("parse error lacks detail: %+v", j)
	}
	if !IsParseFailure(err) {
		t.Fatalf("IsParseFailure=false")
	}
}

func TestStrict_RejectsExtraTopLevelData(t *testing.T) {
	_, err := Strict(`{"a": 1} {"b": 2}`)
	var j *JSONParseError
	if !errors.As(err, &j) {
		t.Fatalf("want JSONParseError, got %T %v", err, err)
	}
}

func TestRemoveTrailingCommas(t *testing.T) {
	if got := RemoveTrailingCommas("[1,2,\n ]"); got != "[1,2]" {
		t.Fatalf("got %q", got)
	}
}
