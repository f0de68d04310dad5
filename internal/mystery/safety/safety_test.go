package safety

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFilter_DefaultKeywords(t *testing.T) {
	f := New()
	if got := f.Scan(`{"title": "A Poisoned Toast"}`); len(got) != 0 {
		t.Fatalf("clean text rejected: %v", got)
	}
	got := f.Scan(`{"backstory": "A GORE-soaked tale of a Hate Crime"}`)
	if diff := cmp.Diff([]string{"gore", "hate crime"}, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestFilter_ExtraKeywords(t *testing.T) {
	f := New(" Arson ", "", "gore")
	if got := f.Scan("an arson at the lodge"); len(got) != 1 || got[0] != "arson" {
		t.Fatalf("extra keyword not applied: %v", got)
	}
	if n := len(f.keywords); n != len(DefaultKeywords)+1 {
		t.Fatalf("keywords=%d", n)
	}
}
