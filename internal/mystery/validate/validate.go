// Package validate re-checks the cross-referential invariants of a merged package.
package validate

import (
	"fmt"
	"strings"

	"github.com/danshapiro/murderparty/internal/mystery/model"
)

const (
	minTimeline      = 8
	minClues         = 12
	minHardClues     = 3
	minRelationships = 2
)

// graphView is the slice of a package the checks need. Both typed packages and
// free-form documents are reduced to it.
type graphView struct {
	murdererID string
	timeline   int
	clues      []clueView
	packets    []packetView
}

type clueView struct {
	id   string
	hard bool
}

type packetView struct {
	id            string
	named         bool
	relationships int
	targets       []string
	connected     bool
	clueIDs       []string
}

// Package returns an ordered list of human-readable issues; an empty list means p passes.
// Membership is checked against exp, which is captured when the skeleton is built.
func Package(p *model.Package, exp model.Expected) []string {
	v := graphView{
		murdererID: p.Solution.MurdererID,
		timeline:   len(p.Timeline),
	}
	for _, c := range p.Clues {
		v.clues = append(v.clues, clueView{id: c.ClueID, hard: c.Type == model.ClueHard})
	}
	for _, c := range p.CharacterPackets {
		pv := packetView{
			id:            c.CharacterID,
			named:         strings.TrimSpace(c.Name) != "",
			relationships: len(c.Relationships),
			connected:     c.ConnectionToVictim != "",
			clueIDs:       c.ClueIDs,
		}
		for _, r := range c.Relationships {
			pv.targets = append(pv.targets, r.CharacterID)
		}
		v.packets = append(v.packets, pv)
	}
	return check(v, exp)
}

func check(v graphView, exp model.Expected) []string {
	var issues []string

	if len(v.packets) != exp.PlayerCount {
		issues = append(issues, "player_count does not match character_packets length.")
	}
	characters := setOf(exp.CharacterIDs)
	if !characters[v.murdererID] {
		issues = append(issues, "murderer_id is not one of the characters.")
	}
	if v.timeline < minTimeline {
		issues = append(issues, fmt.Sprintf("timeline has fewer than %d events.", minTimeline))
	}
	if len(v.clues) < minClues {
		issues = append(issues, fmt.Sprintf("clues has fewer than %d items.", minClues))
	}
	present := make(map[string]bool, len(v.clues))
	hard := 0
	for _, c := range v.clues {
		present[c.id] = true
		if c.hard {
			hard++
		}
	}
	for _, id := range exp.ClueIDs {
		if !present[id] {
			issues = append(issues, "clue ids missing from clues list.")
			break
		}
	}
	if hard < minHardClues {
		issues = append(issues, fmt.Sprintf("hard evidence clues fewer than %d.", minHardClues))
	}

	graph := make(map[string][]string, len(exp.CharacterIDs))
	for _, id := range exp.CharacterIDs {
		graph[id] = nil
	}
	for _, p := range v.packets {
		if !p.named {
			issues = append(issues, fmt.Sprintf("character %s missing name.", p.id))
		}
		if p.relationships < minRelationships {
			issues = append(issues, fmt.Sprintf("character %s has too few relationships.", p.id))
		}
		if !p.connected {
			issues = append(issues, fmt.Sprintf("character %s missing connection_to_victim.", p.id))
		}
		if _, ok := graph[p.id]; !ok {
			continue
		}
		for _, target := range p.targets {
			if _, ok := graph[target]; ok {
				graph[p.id] = append(graph[p.id], target)
			}
		}
	}
	if !reachable(graph, exp.CharacterIDs) {
		issues = append(issues, "relationship graph is not connected.")
	}

	clues := setOf(exp.ClueIDs)
	for _, p := range v.packets {
		if len(p.clueIDs) == 0 {
			issues = append(issues, fmt.Sprintf("character %s missing clue_ids.", p.id))
			continue
		}
		for _, id := range p.clueIDs {
			if !clues[id] {
				issues = append(issues, "character packet references unknown clue_id.")
				break
			}
		}
	}
	return issues
}

// reachable walks forward edges only, starting from the first expected character. It is
// not an undirected connectivity check: a node with no inbound path from the start fails
// even if it has outbound edges into the visited set.
func reachable(graph map[string][]string, order []string) bool {
	if len(graph) == 0 {
		return false
	}
	visited := make(map[string]bool, len(graph))
	stack := []string{order[0]}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[node] {
			continue
		}
		visited[node] = true
		for _, next := range graph[node] {
			if !visited[next] {
				stack = append(stack, next)
			}
		}
	}
	return len(visited) == len(graph)
}

func setOf(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
