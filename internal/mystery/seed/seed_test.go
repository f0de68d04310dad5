package seed

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize_KeepsExplicitSeed(t *testing.T) {
	v := int64(424242)
	if got := Normalize(&v); got != 424242 {
		t.Fatalf("got %d want 424242", got)
	}
}

func TestNormalize_FreshSeedInRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		got := Normalize(nil)
		if got < minFreshSeed || got > maxFreshSeed {
			t.Fatalf("fresh seed out of range: %d", got)
		}
	}
}

func TestSource_SameSeedSameSequence(t *testing.T) {
	a := NewSource(123)
	b := NewSource(123)
	for i := 0; i < 50; i++ {
		if x, y := a.IntN(1000), b.IntN(1000); x != y {
			t.Fatalf("draw %d diverged: %d vs %d", i, x, y)
		}
	}
	if diff := cmp.Diff(a.SampleIndices(20, 5), b.SampleIndices(20, 5)); diff != "" {
		t.Fatalf("sample diverged (-a +b):\n%s", diff)
	}
}

func TestSource_DifferentSeedsDiverge(t *testing.T) {
	a := NewSource(1)
	b := NewSource(2)
	same := true
	for i := 0; i < 10; i++ {
		if a.IntN(1<<30) != b.IntN(1<<30) {
			same = false
		}
	}
	if same {
		t.Fatalf("expected different sequences for different seeds")
	}
}

func TestSampleIndices_DistinctAndClamped(t *testing.T) {
	s := NewSource(7)
	got := s.SampleIndices(12, 5)
	if len(got) != 5 {
		t.Fatalf("len=%d want 5", len(got))
	}
	seen := map[int]bool{}
	for _, i := range got {
		if i < 0 || i >= 12 {
			t.Fatalf("index out of range: %d", i)
		}
		if seen[i] {
			t.Fatalf("duplicate index %d in %v", i, got)
		}
		seen[i] = true
	}
	if got := s.SampleIndices(3, 10); len(got) != 3 {
		t.Fatalf("expected clamp to 3, got %v", got)
	}
	if got := s.SampleIndices(3, 0); got != nil {
		t.Fatalf("expected nil for k=0, got %v", got)
	}
}

func TestShareCode_RoundTrip(t *testing.T) {
	in := ShareData{Seed: 424242, PlayerCount: 5, CategoryID: "jazz_club", Tone: "suspense", Duration: 60}
	code, err := EncodeShareCode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if strings.ContainsAny(code, "=+/") {
		t.Fatalf("code is not url-safe/unpadded: %q", code)
	}
	out, err := DecodeShareCode(code)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("round trip mismatch (-in +out):\n%s", diff)
	}
}

func TestShareCode_CanonicalPayload(t *testing.T) {
	code, err := EncodeShareCode(ShareData{Seed: 1, PlayerCount: 4, CategoryID: "x", Tone: "comedy", Duration: 45})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	want := `{"category_id":"x","duration":45,"player_count":4,"seed":1,"tone":"comedy","v":1}`
	if string(raw) != want {
		t.Fatalf("payload:\n got %s\nwant %s", raw, want)
	}
}

func TestDecodeShareCode_AcceptsPadding(t *testing.T) {
	code, _ := EncodeShareCode(ShareData{Seed: 99, PlayerCount: 6, CategoryID: "space_outpost", Tone: "serious", Duration: 90})
	padded := code + strings.Repeat("=", (4-len(code)%4)%4)
	if _, err := DecodeShareCode(padded); err != nil {
		t.Fatalf("decode padded: %v", err)
	}
}

func TestDecodeShareCode_Errors(t *testing.T) {
	missing := base64.RawURLEncoding.EncodeToString([]byte(`{"seed":1,"player_count":4}`))
	cases := map[string]string{
		"bad base64":    "!!!not-base64!!!",
		"not json":      base64.RawURLEncoding.EncodeToString([]byte("hello")),
		"missing field": missing,
		"empty":         "",
	}
	for name, code := range cases {
		_, err := DecodeShareCode(code)
		var sce *ShareCodeError
		if !errors.As(err, &sce) {
			t.Fatalf("%s: expected ShareCodeError, got %T (%v)", name, err, err)
		}
	}
}

func TestDecodeShareCode_IgnoresVersion(t *testing.T) {
	raw := `{"category_id":"x","duration":45,"player_count":4,"seed":1,"tone":"comedy","v":99}`
	if _, err := DecodeShareCode(base64.RawURLEncoding.EncodeToString([]byte(raw))); err != nil {
		t.Fatalf("future version should decode: %v", err)
	}
}
