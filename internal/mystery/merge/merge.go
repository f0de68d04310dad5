// Package merge folds untrusted candidate content into an authoritative package.
//
// Every field the merger knows about is listed in a directive table below, either as a
// copyable narrative field or as a structural one. Structural fields (ids, clue
// assignment, relationship targets, clue type and misleading flags, the murderer, the
// victim's name and the meta block) are never taken from a candidate. Keys absent from the
// tables are dropped.
package merge

import (
	"strings"

	"github.com/danshapiro/murderparty/internal/mystery/model"
)

type rule[T any] struct {
	structural bool
	apply      func(*T, model.Value)
}

type table[T any] map[string]rule[T]

func (t table[T]) apply(dst *T, obj model.Value) {
	for _, key := range obj.Keys() {
		r, ok := t[key]
		if !ok || r.structural || r.apply == nil {
			continue
		}
		v, _ := obj.Get(key)
		r.apply(dst, v)
	}
}

func structural[T any]() rule[T] { return rule[T]{structural: true} }

func text[T any](field func(*T) *string) rule[T] {
	return rule[T]{apply: func(dst *T, v model.Value) {
		if s, ok := coerceText(v); ok {
			*field(dst) = s
		}
	}}
}

func list[T any](field func(*T) *[]string, coerce func(model.Value) []string) rule[T] {
	return rule[T]{apply: func(dst *T, v model.Value) {
		*field(dst) = coerce(v)
	}}
}

func nested[T, U any](field func(*T) *U, rules table[U]) rule[T] {
	return rule[T]{apply: func(dst *T, v model.Value) {
		if v.IsObject() {
			rules.apply(field(dst), v)
		}
	}}
}

func byID[T, U any](field func(*T) *[]U, idKey string, id func(*U) string, rules table[U]) rule[T] {
	return rule[T]{apply: func(dst *T, v model.Value) {
		if !v.IsList() {
			return
		}
		items := *field(dst)
		index := make(map[string]int, len(items))
		for i := range items {
			index[id(&items[i])] = i
		}
		for _, cand := range v.List() {
			key, ok := cand.Get(idKey)
			if !ok {
				continue
			}
			if i, known := index[key.Text()]; known {
				rules.apply(&items[i], cand)
			}
		}
	}}
}

var victimRules = table[model.Victim]{
	"name":              structural[model.Victim](),
	"role":              text(func(v *model.Victim) *string { return &v.Role }),
	"why_they_mattered": text(func(v *model.Victim) *string { return &v.WhyTheyMattered }),
}

var solutionRules = table[model.Solution]{
	"murderer_id":        structural[model.Solution](),
	"motive":             text(func(s *model.Solution) *string { return &s.Motive }),
	"method":             text(func(s *model.Solution) *string { return &s.Method }),
	"opportunity":        text(func(s *model.Solution) *string { return &s.Opportunity }),
	"reveal_explanation": text(func(s *model.Solution) *string { return &s.RevealExplanation }),
}

var timelineRules = table[model.TimelineEvent]{
	"event_id":    structural[model.TimelineEvent](),
	"time":        text(func(e *model.TimelineEvent) *string { return &e.Time }),
	"description": text(func(e *model.TimelineEvent) *string { return &e.Description }),
}

var clueRules = table[model.Clue]{
	"clue_id":       structural[model.Clue](),
	"type":          structural[model.Clue](),
	"is_misleading": structural[model.Clue](),
	"title":         text(func(c *model.Clue) *string { return &c.Title }),
	"description":   text(func(c *model.Clue) *string { return &c.Description }),
}

var roundRules = table[model.Round]{
	"round_id":    structural[model.Round](),
	"title":       text(func(r *model.Round) *string { return &r.Title }),
	"description": text(func(r *model.Round) *string { return &r.Description }),
	"minutes": {apply: func(r *model.Round, v model.Value) {
		if n, ok := v.Int(); ok && n >= 0 {
			r.Minutes = n
		}
	}},
}

var characterRules = table[model.Character]{
	"character_id":         structural[model.Character](),
	"name":                 structural[model.Character](),
	"clue_ids":             structural[model.Character](),
	"role_title":           text(func(c *model.Character) *string { return &c.RoleTitle }),
	"backstory":            text(func(c *model.Character) *string { return &c.Backstory }),
	"connection_to_victim": text(func(c *model.Character) *string { return &c.ConnectionToVictim }),
	"public_goal":          text(func(c *model.Character) *string { return &c.PublicGoal }),
	"secret_goal":          text(func(c *model.Character) *string { return &c.SecretGoal }),
	"alibi":                text(func(c *model.Character) *string { return &c.Alibi }),
	"prop_suggestion":      text(func(c *model.Character) *string { return &c.PropSuggestion }),
	"traits":               list(func(c *model.Character) *[]string { return &c.Traits }, TextList),
	"secrets":              list(func(c *model.Character) *[]string { return &c.Secrets }, TextList),
	"intro_monologue":      list(func(c *model.Character) *[]string { return &c.IntroMonologue }, IntroLines),
	"relationships": {apply: func(c *model.Character, v model.Value) {
		c.Relationships = mergeRelationships(c.Relationships, v)
	}},
}

var packageRules = table[model.Package]{
	"title":              text(func(p *model.Package) *string { return &p.Title }),
	"theme_summary":      text(func(p *model.Package) *string { return &p.ThemeSummary }),
	"storyline_overview": list(func(p *model.Package) *[]string { return &p.StorylineOverview }, TextList),
	"props_list":         list(func(p *model.Package) *[]string { return &p.PropsList }, PropsList),
	"victim":             nested(func(p *model.Package) *model.Victim { return &p.Victim }, victimRules),
	"solution":           nested(func(p *model.Package) *model.Solution { return &p.Solution }, solutionRules),
	"meta":               structural[model.Package](),
	"timeline": byID(func(p *model.Package) *[]model.TimelineEvent { return &p.Timeline },
		"event_id", func(e *model.TimelineEvent) string { return e.EventID }, timelineRules),
	"clues": byID(func(p *model.Package) *[]model.Clue { return &p.Clues },
		"clue_id", func(c *model.Clue) string { return c.ClueID }, clueRules),
	"character_packets": byID(func(p *model.Package) *[]model.Character { return &p.CharacterPackets },
		"character_id", func(c *model.Character) string { return c.CharacterID }, characterRules),
	"how_to_play": byID(func(p *model.Package) *[]model.Round { return &p.HowToPlay },
		"round_id", func(r *model.Round) string { return r.RoundID }, roundRules),
}

// Merge returns a copy of base with the narrative fields of candidate folded in. base is
// not modified. The result is not normalized; call Normalize before validating.
func Merge(base *model.Package, candidate map[string]any) *model.Package {
	out := base.Clone()
	packageRules.apply(out, model.FromAny(candidate))
	return out
}

// Copyable reports whether the candidate may supply key for the given item kind
// ("package", "victim", "solution", "timeline", "clue", "character", "round").
func Copyable(kind, key string) bool {
	switch kind {
	case "package":
		return copyable(packageRules, key)
	case "victim":
		return copyable(victimRules, key)
	case "solution":
		return copyable(solutionRules, key)
	case "timeline":
		return copyable(timelineRules, key)
	case "clue":
		return copyable(clueRules, key)
	case "character":
		return copyable(characterRules, key)
	case "round":
		return copyable(roundRules, key)
	}
	return false
}

func copyable[T any](t table[T], key string) bool {
	r, ok := t[key]
	return ok && !r.structural
}

// mergeRelationships keeps base's targets and order, taking a label from the candidate
// only where the candidate names the same target.
func mergeRelationships(base []model.Relationship, v model.Value) []model.Relationship {
	labels := map[string]model.Value{}
	for _, item := range v.List() {
		target, ok := item.Get("character_id")
		if !ok {
			continue
		}
		if label, ok := item.Get("relationship"); ok {
			labels[target.Text()] = label
		}
	}
	out := make([]model.Relationship, len(base))
	for i, rel := range base {
		out[i] = rel
		if label, ok := labels[rel.CharacterID]; ok {
			if s, ok := coerceText(label); ok {
				out[i].Relationship = s
			}
		}
	}
	return out
}

// coerceText accepts scalars and lists of scalars; objects and null are rejected.
func coerceText(v model.Value) (string, bool) {
	switch {
	case v.IsScalar():
		return v.Text(), true
	case v.IsList():
		parts := make([]string, 0, v.Len())
		for _, item := range v.List() {
			if s := strings.TrimSpace(itemText(item)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n"), true
	default:
		return "", false
	}
}
