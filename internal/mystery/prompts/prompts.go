// Package prompts supplies the named text templates sent to the text-generation
// collaborator. Defaults are embedded; a directory of overrides may replace any of them.
package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	System           = "system_prompt.md"
	Generation       = "game_generation_prompt.md"
	ValidationRepair = "validation_prompt.md"
)

//go:embed templates/*.md
var embedded embed.FS

// Set is an immutable collection of templates keyed by file name.
type Set struct {
	templates map[string]string
}

// Default returns the embedded templates.
func Default() *Set {
	s, err := load(embedded, "templates/*.md", nil)
	if err != nil {
		// The embedded tree is fixed at build time.
		panic(err)
	}
	return s
}

// LoadDir layers every *.md file under dir (recursively) over the embedded defaults.
// Files are keyed by base name, so prompts/v2/system_prompt.md overrides System. An empty
// dir returns Default().
func LoadDir(dir string) (*Set, error) {
	base := Default()
	if strings.TrimSpace(dir) == "" {
		return base, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("prompts dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("prompts dir: %s is not a directory", dir)
	}
	return load(os.DirFS(dir), "**/*.md", base)
}

func load(fsys fs.FS, pattern string, base *Set) (*Set, error) {
	out := &Set{templates: map[string]string{}}
	if base != nil {
		for k, v := range base.templates {
			out.templates[k] = v
		}
	}
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	for _, m := range matches {
		b, err := fs.ReadFile(fsys, m)
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", m, err)
		}
		out.templates[path.Base(m)] = string(b)
	}
	return out, nil
}

// Get returns the named template.
func (s *Set) Get(name string) (string, error) {
	t, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("prompt template %q not found", name)
	}
	return t, nil
}

// Fill substitutes {name} placeholders with values. Doubled braces are literal braces;
// placeholders without a value are left as written.
func Fill(template string, values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := []string{"{{", "{", "}}", "}"}
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", values[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
