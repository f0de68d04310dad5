package merge

import (
	"regexp"
	"strings"

	"github.com/danshapiro/murderparty/internal/mystery/model"
)

var (
	listSeparators = regexp.MustCompile(`\r?\n|;|•`)
	lineBreaks     = regexp.MustCompile(`\r\n|\r|\n`)
)

const bulletCutset = " \t-•"

// TextList coerces traits/secrets-style content into a list of strings. A single string
// is split on line breaks, semicolons and bullets with leading/trailing bullet, dash and
// space tokens trimmed from each piece. Lists keep one entry per non-empty item.
func TextList(v model.Value) []string {
	switch v.Kind() {
	case model.KindNull:
		return []string{}
	case model.KindList:
		out := make([]string, 0, v.Len())
		for _, item := range v.List() {
			if s := strings.TrimSpace(itemText(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case model.KindString:
		out := []string{}
		for _, part := range listSeparators.Split(v.RawString(), -1) {
			if s := strings.Trim(part, bulletCutset); s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			if s := strings.TrimSpace(v.RawString()); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nonEmpty(strings.TrimSpace(itemText(v)))
	}
}

// IntroLines is TextList except that a single string splits on line breaks only, since
// monologue lines legitimately contain semicolons.
func IntroLines(v model.Value) []string {
	if v.Kind() != model.KindString {
		return TextList(v)
	}
	out := []string{}
	for _, line := range lineBreaks.Split(v.RawString(), -1) {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// PropsList accepts a scalar, a {name, description} mapping, or a list of either and
// always yields a flat list of non-empty strings.
func PropsList(v model.Value) []string {
	switch v.Kind() {
	case model.KindNull:
		return []string{}
	case model.KindObject:
		return nonEmpty(propEntry(v))
	case model.KindList:
		out := make([]string, 0, v.Len())
		for _, item := range v.List() {
			if s := propEntry(item); strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nonEmpty(v.Text())
	}
}

func propEntry(v model.Value) string {
	if !v.IsObject() {
		return v.Text()
	}
	name := fieldText(v, "name")
	description := fieldText(v, "description")
	switch {
	case name != "" && description != "":
		return name + ": " + description
	case name != "":
		return name
	case description != "":
		return description
	}
	return objectText(v)
}

// Normalize is the final cleanup over a merged package: list fields are trimmed, empty
// entries dropped and nil lists replaced with empty ones.
func Normalize(p *model.Package) {
	p.StorylineOverview = cleanList(p.StorylineOverview)
	p.PropsList = cleanList(p.PropsList)
	for i := range p.CharacterPackets {
		c := &p.CharacterPackets[i]
		c.Traits = cleanList(c.Traits)
		c.Secrets = cleanList(c.Secrets)
		c.IntroMonologue = cleanList(c.IntroMonologue)
		if c.Relationships == nil {
			c.Relationships = []model.Relationship{}
		}
		if c.ClueIDs == nil {
			c.ClueIDs = []string{}
		}
	}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func nonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return []string{s}
}

func fieldText(obj model.Value, key string) string {
	v, ok := obj.Get(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.Text())
}

// objectText renders a mapping as "k: v, k: v" in key order.
func objectText(obj model.Value) string {
	keys := obj.Keys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, _ := obj.Get(k)
		parts = append(parts, k+": "+v.Text())
	}
	return strings.Join(parts, ", ")
}

func itemText(v model.Value) string {
	if v.IsObject() {
		return objectText(v)
	}
	return v.Text()
}
