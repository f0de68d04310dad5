package merge

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danshapiro/murderparty/internal/mystery/catalog"
	"github.com/danshapiro/murderparty/internal/mystery/model"
	"github.com/danshapiro/murderparty/internal/mystery/seed"
	"github.com/danshapiro/murderparty/internal/mystery/structure"
)

func skeleton(t *testing.T, players int) *model.Package {
	t.Helper()
	cat, _ := catalog.Lookup("museum_heist")
	return structure.Build(structure.Spec{PlayerCount: players, Category: cat, Tone: "suspense", Duration: 60, Seed: 11}, seed.NewSource(11))
}

func candidate(t *testing.T, raw string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return out
}

func ids(p *model.Package) []string {
	var out []string
	for _, c := range p.CharacterPackets {
		out = append(out, c.CharacterID)
	}
	for _, c := range p.Clues {
		out = append(out, c.ClueID)
	}
	for _, e := range p.Timeline {
		out = append(out, e.EventID)
	}
	for _, r := range p.HowToPlay {
		out = append(out, r.RoundID)
	}
	return out
}

func TestMerge_NeverAddsOrRemovesIDs(t *testing.T) {
	base := skeleton(t, 5)
	cand := candidate(t, `{
		"character_packets": [
			{"character_id": "char_99", "role_title": "Intruder"},
			{"character_id": "char_01", "role_title": "Curator", "clue_ids": ["clue_77"]}
		],
		"clues": [{"clue_id": "clue_500", "title": "Fake"}, {"clue_id": "clue_01", "type": "soft", "is_misleading": true, "title": "Glove"}],
		"timeline": [],
		"how_to_play": "not a list"
	}`)
	merged := Merge(base, cand)
	if diff := cmp.Diff(ids(base), ids(merged)); diff != "" {
		t.Fatalf("ids changed (-base +merged):\n%s", diff)
	}
	if structure.Digest(base) != structure.Digest(merged) {
		t.Fatalf("structure changed by merge")
	}
	if merged.CharacterPackets[0].RoleTitle != "Curator" {
		t.Fatalf("narrative field not copied: %q", merged.CharacterPackets[0].RoleTitle)
	}
	if merged.Clues[0].Title != "Glove" {
		t.Fatalf("clue title not copied")
	}
	if base.CharacterPackets[0].RoleTitle != "" {
		t.Fatalf("base mutated")
	}
}

func TestMerge_StructuralFieldsIgnored(t *testing.T) {
	base := skeleton(t, 4)
	cand := candidate(t, `{
		"victim": {"name": "Someone Else", "role": "Patron"},
		"solution": {"murderer_id": "char_99", "motive": "Greed"},
		"meta": {"seed": 1, "share_code": "x"},
		"unknown_key": {"a": 1}
	}`)
	merged := Merge(base, cand)
	if merged.Victim.Name != base.Victim.Name || merged.Victim.Role != "Patron" {
		t.Fatalf("victim=%+v", merged.Victim)
	}
	if merged.Solution.MurdererID != base.Solution.MurdererID || merged.Solution.Motive != "Greed" {
		t.Fatalf("solution=%+v", merged.Solution)
	}
	if merged.Meta != base.Meta {
		t.Fatalf("meta changed: %+v", merged.Meta)
	}
}

func TestMerge_OmittedSecretsLeftUntouched(t *testing.T) {
	base := skeleton(t, 4)
	cand := candidate(t, `{"character_packets": [{"character_id": "char_02", "alibi": "In the atrium"}]}`)
	merged := Merge(base, cand)
	c := merged.CharacterPackets[1]
	if c.Alibi != "In the atrium" {
		t.Fatalf("alibi=%q", c.Alibi)
	}
	if c.Secrets == nil || len(c.Secrets) != 0 {
		t.Fatalf("secrets=%#v", c.Secrets)
	}
}

func TestMerge_RelationshipsKeyedByTarget(t *testing.T) {
	base := skeleton(t, 4)
	first := base.CharacterPackets[0]
	target := first.Relationships[1].CharacterID
	cand := map[string]any{
		"character_packets": []any{map[string]any{
			"character_id": first.CharacterID,
			"relationships": []any{
				map[string]any{"character_id": target, "relationship": "rival"},
				map[string]any{"character_id": "char_42", "relationship": "ghost"},
			},
		}},
	}
	merged := Merge(base, cand)
	got := merged.CharacterPackets[0].Relationships
	want := []model.Relationship{
		{CharacterID: first.Relationships[0].CharacterID},
		{CharacterID: target, Relationship: "rival"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("relationships (-want +got):\n%s", diff)
	}
}

func TestMerge_TextCoercion(t *testing.T) {
	base := skeleton(t, 4)
	cand := candidate(t, `{
		"title": ["Part one", "Part two"],
		"theme_summary": {"nested": true},
		"how_to_play": [{"round_id": "round_01", "minutes": "20", "title": 3}]
	}`)
	merged := Merge(base, cand)
	if merged.Title != "Part one\nPart two" {
		t.Fatalf("title=%q", merged.Title)
	}
	if merged.ThemeSummary != "" {
		t.Fatalf("object must not become text: %q", merged.ThemeSummary)
	}
	if merged.HowToPlay[0].Minutes != 20 || merged.HowToPlay[0].Title != "3" {
		t.Fatalf("round=%+v", merged.HowToPlay[0])
	}
}

func TestMerge_RoundMinutesRejectsUnusableNumbers(t *testing.T) {
	base := Merge(skeleton(t, 4), candidate(t, `{"how_to_play": [
		{"round_id": "round_01", "minutes": 15}, {"round_id": "round_02", "minutes": 15},
		{"round_id": "round_03", "minutes": 15}, {"round_id": "round_04", "minutes": 15}
	]}`))
	merged := Merge(base, candidate(t, `{"how_to_play": [
		{"round_id": "round_01", "minutes": 1e300},
		{"round_id": "round_02", "minutes": -5},
		{"round_id": "round_03", "minutes": "soon"},
		{"round_id": "round_04", "minutes": 12.9}
	]}`))
	var got []int
	for _, r := range merged.HowToPlay {
		got = append(got, r.Minutes)
	}
	if diff := cmp.Diff([]int{15, 15, 15, 12}, got); diff != "" {
		t.Fatalf("minutes (-want +got):\n%s", diff)
	}
}

func TestMerge_RepeatedMergeKeepsEarlierContent(t *testing.T) {
	base := skeleton(t, 4)
	first := Merge(base, candidate(t, `{"title": "Gallery Night", "character_packets": [{"character_id": "char_01", "backstory": "Painter"}]}`))
	second := Merge(first, candidate(t, `{"character_packets": [{"character_id": "char_01", "alibi": "Studio"}]}`))
	c := second.CharacterPackets[0]
	if second.Title != "Gallery Night" || c.Backstory != "Painter" || c.Alibi != "Studio" {
		t.Fatalf("content lost across merges: title=%q %+v", second.Title, c)
	}
}

func TestCopyable(t *testing.T) {
	cases := []struct {
		kind, key string
		want      bool
	}{
		{"character", "backstory", true},
		{"character", "clue_ids", false},
		{"character", "character_id", false},
		{"clue", "type", false},
		{"clue", "is_misleading", false},
		{"clue", "description", true},
		{"solution", "murderer_id", false},
		{"victim", "name", false},
		{"package", "meta", false},
		{"package", "props_list", true},
		{"package", "nonsense", false},
		{"round", "minutes", true},
	}
	for _, tc := range cases {
		if got := Copyable(tc.kind, tc.key); got != tc.want {
			t.Fatalf("Copyable(%q, %q)=%v want %v", tc.kind, tc.key, got, tc.want)
		}
	}
}
