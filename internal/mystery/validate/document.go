package validate

import (
	"strings"

	"github.com/danshapiro/murderparty/internal/mystery/model"
)

// Document validates a free-form decoded JSON document, such as a package a user pastes
// back in. Required sections are checked for presence first, the invariant checks then
// run with expected id sets taken from the document itself, and schema issues come last.
func Document(doc map[string]any) []string {
	root := model.FromAny(doc)
	var issues []string

	for _, key := range []string{"character_packets", "solution", "timeline", "clues"} {
		v, ok := root.Get(key)
		switch {
		case !ok:
			issues = append(issues, key+" missing.")
		case key == "solution":
		case !v.IsList() || v.Len() == 0:
			issues = append(issues, key+" empty or invalid.")
		}
	}

	view, exp := documentView(root)
	issues = append(issues, check(view, exp)...)
	schemaIssues, err := Schema(doc)
	if err != nil {
		return append(issues, "schema: "+err.Error())
	}
	return append(issues, schemaIssues...)
}

func documentView(root model.Value) (graphView, model.Expected) {
	var v graphView
	var exp model.Expected

	if solution, ok := root.Get("solution"); ok {
		if id, ok := solution.Get("murderer_id"); ok {
			v.murdererID = id.Text()
		}
	}
	if timeline, ok := root.Get("timeline"); ok {
		v.timeline = timeline.Len()
	}
	if clues, ok := root.Get("clues"); ok {
		for _, c := range clues.List() {
			id := member(c, "clue_id")
			kind := member(c, "type")
			v.clues = append(v.clues, clueView{id: id, hard: kind == string(model.ClueHard)})
			exp.ClueIDs = append(exp.ClueIDs, id)
		}
	}
	if packets, ok := root.Get("character_packets"); ok {
		for _, p := range packets.List() {
			pv := packetView{id: member(p, "character_id"), named: strings.TrimSpace(member(p, "name")) != ""}
			if rels, ok := p.Get("relationships"); ok {
				pv.relationships = rels.Len()
				for _, r := range rels.List() {
					if target, ok := r.Get("character_id"); ok {
						pv.targets = append(pv.targets, target.Text())
					}
				}
			}
			if conn, ok := p.Get("connection_to_victim"); ok {
				pv.connected = truthy(conn)
			}
			if ids, ok := p.Get("clue_ids"); ok {
				for _, id := range ids.List() {
					pv.clueIDs = append(pv.clueIDs, id.Text())
				}
			}
			v.packets = append(v.packets, pv)
			exp.CharacterIDs = append(exp.CharacterIDs, pv.id)
		}
	}
	exp.PlayerCount = len(v.packets)
	return v, exp
}

func member(obj model.Value, key string) string {
	v, ok := obj.Get(key)
	if !ok {
		return ""
	}
	return v.Text()
}

func truthy(v model.Value) bool {
	switch v.Kind() {
	case model.KindString:
		return v.RawString() != ""
	case model.KindNumber:
		n, ok := v.Int()
		return !ok || n != 0
	case model.KindBool:
		return v.Text() == "true"
	case model.KindList:
		return v.Len() > 0
	case model.KindObject:
		return len(v.Keys()) > 0
	default:
		return false
	}
}
