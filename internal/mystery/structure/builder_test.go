package structure

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danshapiro/murderparty/internal/mystery/catalog"
	"github.com/danshapiro/murderparty/internal/mystery/model"
	"github.com/danshapiro/murderparty/internal/mystery/seed"
)

func buildFor(t *testing.T, players int, s int64) *model.Package {
	t.Helper()
	cat, _ := catalog.Lookup("jazz_club")
	return Build(Spec{PlayerCount: players, Category: cat, Tone: "suspense", Duration: 60, Seed: s}, seed.NewSource(s))
}

type topology struct {
	CharacterIDs []string
	ClueIDs      []string
	Assignment   map[string][]string
	Edges        map[string][]string
	Murderer     string
}

func topologyOf(p *model.Package) topology {
	tp := topology{Assignment: map[string][]string{}, Edges: map[string][]string{}, Murderer: p.Solution.MurdererID}
	for _, c := range p.CharacterPackets {
		tp.CharacterIDs = append(tp.CharacterIDs, c.CharacterID)
		tp.Assignment[c.CharacterID] = c.ClueIDs
		for _, r := range c.Relationships {
			tp.Edges[c.CharacterID] = append(tp.Edges[c.CharacterID], r.CharacterID)
		}
	}
	for _, c := range p.Clues {
		tp.ClueIDs = append(tp.ClueIDs, c.ClueID)
	}
	return tp
}

func TestBuild_SameSeedSameTopology(t *testing.T) {
	for _, players := range []int{4, 5, 9, 20} {
		a := buildFor(t, players, 424242)
		b := buildFor(t, players, 424242)
		if diff := cmp.Diff(topologyOf(a), topologyOf(b)); diff != "" {
			t.Fatalf("players=%d topology differs (-a +b):\n%s", players, diff)
		}
		if diff := cmp.Diff(a, b); diff != "" {
			t.Fatalf("players=%d skeleton differs (-a +b):\n%s", players, diff)
		}
		if Digest(a) != Digest(b) {
			t.Fatalf("players=%d digest differs", players)
		}
	}
}

func TestBuild_DifferentSeedsUsuallyDiffer(t *testing.T) {
	if Digest(buildFor(t, 8, 1)) == Digest(buildFor(t, 8, 2)) {
		t.Fatalf("expected different structure for different seeds")
	}
}

func TestBuild_Counts(t *testing.T) {
	cases := []struct {
		players, clues, hard, misleading int
	}{
		{players: 4, clues: 12, hard: 3, misleading: 4},
		{players: 6, clues: 12, hard: 3, misleading: 4},
		{players: 7, clues: 14, hard: 4, misleading: 4},
		{players: 20, clues: 40, hard: 10, misleading: 12},
	}
	for _, tc := range cases {
		p := buildFor(t, tc.players, 77)
		if len(p.CharacterPackets) != tc.players {
			t.Fatalf("players=%d: packets=%d", tc.players, len(p.CharacterPackets))
		}
		if len(p.Clues) != tc.clues {
			t.Fatalf("players=%d: clues=%d want %d", tc.players, len(p.Clues), tc.clues)
		}
		hard, misleading := 0, 0
		for _, c := range p.Clues {
			if c.Type == model.ClueHard {
				hard++
			}
			if c.IsMisleading {
				misleading++
			}
		}
		if hard != tc.hard || misleading != tc.misleading {
			t.Fatalf("players=%d: hard=%d misleading=%d want %d/%d", tc.players, hard, misleading, tc.hard, tc.misleading)
		}
		if len(p.Timeline) != MinTimeline || len(p.HowToPlay) != RoundCount {
			t.Fatalf("players=%d: timeline=%d rounds=%d", tc.players, len(p.Timeline), len(p.HowToPlay))
		}
	}
}

func TestBuild_ClueAssignmentWithinBounds(t *testing.T) {
	p := buildFor(t, 9, 31337)
	known := map[string]bool{}
	for _, c := range p.Clues {
		known[c.ClueID] = true
	}
	for _, c := range p.CharacterPackets {
		if len(c.ClueIDs) < MinClueHolding || len(c.ClueIDs) > MaxClueHolding {
			t.Fatalf("%s holds %d clues", c.CharacterID, len(c.ClueIDs))
		}
		for _, id := range c.ClueIDs {
			if !known[id] {
				t.Fatalf("%s holds unknown clue %s", c.CharacterID, id)
			}
		}
	}
}

func TestBuild_RelationshipTopology(t *testing.T) {
	p := buildFor(t, 4, 5)
	for i, c := range p.CharacterPackets {
		if len(c.Relationships) != 2 {
			t.Fatalf("n=4 should never add a third edge, %s has %d", c.CharacterID, len(c.Relationships))
		}
		want := []string{p.CharacterPackets[(i+1)%4].CharacterID, p.CharacterPackets[(i+2)%4].CharacterID}
		got := []string{c.Relationships[0].CharacterID, c.Relationships[1].CharacterID}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("%s edges (-want +got):\n%s", c.CharacterID, diff)
		}
		if c.Relationships[0].Relationship != "" {
			t.Fatalf("labels must start empty")
		}
	}

	big := buildFor(t, 12, 5)
	for i, c := range big.CharacterPackets {
		if n := len(c.Relationships); n < 2 || n > 3 {
			t.Fatalf("%s has %d edges", c.CharacterID, n)
		}
		if n := len(c.Relationships); n == 3 && c.Relationships[2].CharacterID != big.CharacterPackets[(i+3)%12].CharacterID {
			t.Fatalf("%s third edge targets %s", c.CharacterID, c.Relationships[2].CharacterID)
		}
	}
}

func TestBuild_MurdererAndVictim(t *testing.T) {
	p := buildFor(t, 6, 99)
	found := false
	for _, c := range p.CharacterPackets {
		if c.CharacterID == p.Solution.MurdererID {
			found = true
		}
	}
	if !found {
		t.Fatalf("murderer %s is not a character", p.Solution.MurdererID)
	}
	if p.Victim.Name == "" {
		t.Fatalf("victim name not drawn")
	}
}

func TestBuild_UsesSuppliedNamesPositionally(t *testing.T) {
	names := []string{"Ada", "Brook", "Cyd", "Dee"}
	cat, _ := catalog.Lookup("mountain_lodge")
	p := Build(Spec{PlayerCount: 4, PlayerNames: names, Category: cat, Seed: 3}, seed.NewSource(3))
	for i, c := range p.CharacterPackets {
		if c.Name != names[i] {
			t.Fatalf("packet %d name=%q want %q", i, c.Name, names[i])
		}
	}
}

func TestBuild_GeneratedNamesAreUnique(t *testing.T) {
	p := buildFor(t, 20, 8)
	seen := map[string]bool{}
	for _, c := range p.CharacterPackets {
		if c.Name == "" {
			continue
		}
		if seen[c.Name] {
			t.Fatalf("duplicate name %q", c.Name)
		}
		seen[c.Name] = true
	}
}

func TestBuild_NarrativeFieldsStartEmpty(t *testing.T) {
	p := buildFor(t, 5, 1)
	if p.Title != "" || p.Solution.Motive != "" || p.Meta.ShareCode != "" {
		t.Fatalf("skeleton carries prose: %+v", p)
	}
	for _, c := range p.CharacterPackets {
		if c.Secrets == nil || c.Traits == nil || c.IntroMonologue == nil {
			t.Fatalf("list fields must be empty, not nil")
		}
	}
}

func TestFillMock_LeavesSkeletonUntouched(t *testing.T) {
	p := buildFor(t, 5, 1)
	before := p.Clone()
	cat, _ := catalog.Lookup("jazz_club")
	filled := FillMock(p, cat)
	if diff := cmp.Diff(before, p); diff != "" {
		t.Fatalf("skeleton mutated (-before +after):\n%s", diff)
	}
	if filled.Title == "" || filled.CharacterPackets[0].Relationships[0].Relationship == "" {
		t.Fatalf("mock content missing")
	}
	if Digest(filled) != Digest(p) {
		t.Fatalf("mock fill changed structure")
	}
}
