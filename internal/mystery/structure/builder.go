// Package structure builds the authoritative skeleton of a game package. Every id, the
// clue topology, the relationship graph and the murderer are fixed here; collaborator
// content may only fill in prose afterwards.
package structure

import (
	"fmt"
	"math"

	"github.com/danshapiro/murderparty/internal/mystery/model"
	"github.com/danshapiro/murderparty/internal/mystery/seed"
)

const (
	MinClues       = 12
	MinHardClues   = 3
	MinTimeline    = 8
	RoundCount     = 4
	MinClueHolding = 2
	MaxClueHolding = 3

	hardShare       = 0.25
	misleadingShare = 0.3
)

// Spec is a validated request with defaults already applied.
type Spec struct {
	PlayerCount int
	PlayerNames []string
	Category    model.Category
	Tone        string
	Duration    int
	Seed        int64
}

// Build consumes draws from src in a fixed order: hard subset, misleading subset, clue
// shuffle, top-up samples, relationship extras, murderer, victim, then names. Changing
// that order changes every skeleton produced for a given seed.
func Build(spec Spec, src *seed.Source) *model.Package {
	n := spec.PlayerCount
	characterIDs := sequentialIDs("char", n)
	clueCount := max(MinClues, n*2)
	clueIDs := sequentialIDs("clue", clueCount)

	hard := indexSet(src.SampleIndices(clueCount, max(MinHardClues, roundInt(hardShare*float64(clueCount)))))
	misleading := indexSet(src.SampleIndices(clueCount, max(1, roundInt(misleadingShare*float64(clueCount)))))

	clues := make([]model.Clue, 0, clueCount)
	for i, id := range clueIDs {
		typ := model.ClueSoft
		if hard[i] {
			typ = model.ClueHard
		}
		clues = append(clues, model.Clue{ClueID: id, Type: typ, IsMisleading: misleading[i]})
	}

	assignments := assignClues(characterIDs, clueIDs, src)
	relationships := buildRelationships(characterIDs, src)

	murdererID := seed.Choice(src, characterIDs)
	victimName := seed.Choice(src, firstNames) + " " + seed.Choice(src, lastNames)

	names := spec.PlayerNames
	if len(names) == 0 {
		names = generateNames(n, src)
	}

	packets := make([]model.Character, 0, n)
	for i, id := range characterIDs {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		packets = append(packets, model.Character{
			CharacterID:    id,
			Name:           name,
			Relationships:  relationships[id],
			Traits:         []string{},
			Secrets:        []string{},
			ClueIDs:        assignments[id],
			IntroMonologue: []string{},
		})
	}

	timeline := make([]model.TimelineEvent, 0, MinTimeline)
	for _, id := range sequentialIDs("event", MinTimeline) {
		timeline = append(timeline, model.TimelineEvent{EventID: id})
	}
	rounds := make([]model.Round, 0, RoundCount)
	for _, id := range sequentialIDs("round", RoundCount) {
		rounds = append(rounds, model.Round{RoundID: id})
	}

	return &model.Package{
		StorylineOverview: []string{},
		Victim:            model.Victim{Name: victimName},
		Solution:          model.Solution{MurdererID: murdererID},
		Timeline:          timeline,
		Clues:             clues,
		CharacterPackets:  packets,
		HowToPlay:         rounds,
		PropsList:         []string{},
		Meta: model.Meta{
			Seed:        spec.Seed,
			PlayerCount: n,
			CategoryID:  spec.Category.ID,
			Tone:        spec.Tone,
			Duration:    spec.Duration,
		},
	}
}

// assignClues deals a shuffled copy of the clue ids round-robin, then tops up any
// character below the minimum from the full pool and truncates any above the maximum.
func assignClues(characterIDs, clueIDs []string, src *seed.Source) map[string][]string {
	shuffled := append([]string(nil), clueIDs...)
	seed.Shuffle(src, shuffled)

	out := make(map[string][]string, len(characterIDs))
	for _, id := range characterIDs {
		out[id] = []string{}
	}
	for i, clueID := range shuffled {
		owner := characterIDs[i%len(characterIDs)]
		out[owner] = append(out[owner], clueID)
	}
	for _, id := range characterIDs {
		if held := len(out[id]); held < MinClueHolding {
			out[id] = append(out[id], seed.Sample(src, shuffled, MinClueHolding-held)...)
		}
		if len(out[id]) > MaxClueHolding {
			out[id] = out[id][:MaxClueHolding]
		}
	}
	return out
}

// buildRelationships links i to i+1 and i+2 (mod n), plus i+3 on a coin flip when n > 4.
func buildRelationships(characterIDs []string, src *seed.Source) map[string][]model.Relationship {
	n := len(characterIDs)
	out := make(map[string][]model.Relationship, n)
	for i, id := range characterIDs {
		targets := []string{characterIDs[(i+1)%n], characterIDs[(i+2)%n]}
		if n > 4 && src.Float64() > 0.5 {
			targets = append(targets, characterIDs[(i+3)%n])
		}
		rels := make([]model.Relationship, 0, len(targets))
		for _, t := range targets {
			rels = append(rels, model.Relationship{CharacterID: t})
		}
		out[id] = rels
	}
	return out
}

func sequentialIDs(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s_%02d", prefix, i+1)
	}
	return out
}

func indexSet(idx []int) map[int]bool {
	out := make(map[int]bool, len(idx))
	for _, i := range idx {
		out[i] = true
	}
	return out
}

func roundInt(f float64) int { return int(math.Round(f)) }
