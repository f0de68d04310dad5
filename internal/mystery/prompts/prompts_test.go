package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_HasAllTemplates(t *testing.T) {
	s := Default()
	for _, name := range []string{System, Generation, ValidationRepair} {
		body, err := s.Get(name)
		if err != nil {
			t.Fatalf("Get(%s): %v", name, err)
		}
		if strings.TrimSpace(body) == "" {
			t.Fatalf("%s is empty", name)
		}
	}
	gen, _ := s.Get(Generation)
	for _, ph := range []string{"{category_name}", "{category_description}", "{tone_tags}", "{suggested_props}", "{suggested_archetypes}", "{seed}", "{structure}"} {
		if !strings.Contains(gen, ph) {
			t.Fatalf("generation template lacks %s", ph)
		}
	}
	repair, _ := s.Get(ValidationRepair)
	for _, ph := range []string{"{issues}", "{structure}", "{candidate}"} {
		if !strings.Contains(repair, ph) {
			t.Fatalf("repair template lacks %s", ph)
		}
	}
}

func TestLoadDir_OverridesByBaseName(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "v2")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nested, System), []byte("be brief"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if got, _ := s.Get(System); got != "be brief" {
		t.Fatalf("system=%q", got)
	}
	if _, err := s.Get(Generation); err != nil {
		t.Fatalf("default generation template lost: %v", err)
	}
	if _, err := s.Get("notes.txt"); err == nil {
		t.Fatalf("non-markdown file loaded")
	}
}

func TestLoadDir_Missing(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFill(t *testing.T) {
	got := Fill("{a} and {b} but not {c}; {{literal}}", map[string]string{"a": "x", "b": "{a}"})
	want := "x and {a} but not {c}; {literal}"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
