// Package catalog holds the fixed, ordered list of party categories.
package catalog

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/danshapiro/murderparty/internal/mystery/model"
	"github.com/danshapiro/murderparty/internal/mystery/seed"
)

// RandomID asks Resolve to draw a category with the seeded source.
const RandomID = "random"

// maxTypoDistance bounds how far an unknown id may be from a catalog id and still match it.
const maxTypoDistance = 2

var builtin = []model.Category{
	{
		ID:                  "gilded_gala",
		Name:                "Gilded Age Gala",
		Description:         "A lavish charity ball in a gilded mansion with old-money rivalries.",
		ToneTags:            []string{"opulent", "dramatic", "high-society"},
		SuggestedProps:      []string{"champagne flutes", "vintage invitations", "pocket watches"},
		SuggestedArchetypes: []string{"heir", "socialite", "butler", "journalist"},
	},
	{
		ID:                  "space_outpost",
		Name:                "Deep Space Outpost",
		Description:         "A remote research station orbiting a dying star.",
		ToneTags:            []string{"sci-fi", "claustrophobic", "suspense"},
		SuggestedProps:      []string{"mission patches", "flashlights", "oxygen gauges"},
		SuggestedArchetypes: []string{"pilot", "scientist", "engineer", "medic"},
	},
	{
		ID:                  "coastal_carnival",
		Name:                "Coastal Carnival",
		Description:         "A seaside carnival with odd attractions and rival families.",
		ToneTags:            []string{"whimsical", "mysterious", "nostalgic"},
		SuggestedProps:      []string{"ticket stubs", "carnival masks", "prize ribbons"},
		SuggestedArchetypes: []string{"ringmaster", "fortune teller", "vendor", "detective"},
	},
	{
		ID:                  "mountain_lodge",
		Name:                "Snowed-In Mountain Lodge",
		Description:         "A blizzard traps guests at a rustic lodge with a secret past.",
		ToneTags:            []string{"cozy", "tense", "isolated"},
		SuggestedProps:      []string{"scarves", "fireplace poker", "map of trails"},
		SuggestedArchetypes: []string{"ranger", "celebrity", "chef", "writer"},
	},
	{
		ID:                  "museum_heist",
		Name:                "Museum After Hours",
		Description:         "A private exhibit unveiling turns deadly in a grand museum.",
		ToneTags:            []string{"artful", "sleek", "intrigue"},
		SuggestedProps:      []string{"gallery badges", "gloves", "catalog pages"},
		SuggestedArchetypes: []string{"curator", "collector", "security", "restorer"},
	},
	{
		ID:                  "jazz_club",
		Name:                "Midnight Jazz Club",
		Description:         "A smoky jazz lounge where deals and melodies collide.",
		ToneTags:            []string{"noir", "stylish", "moody"},
		SuggestedProps:      []string{"sheet music", "matchbooks", "fedora"},
		SuggestedArchetypes: []string{"musician", "club owner", "patron", "agent"},
	},
	{
		ID:                  "fairytale_forest",
		Name:                "Fairytale Forest Summit",
		Description:         "Storybook figures negotiate a treaty in an enchanted glade.",
		ToneTags:            []string{"fantastical", "bright", "mischievous"},
		SuggestedProps:      []string{"crystal jars", "ribbons", "storybook pages"},
		SuggestedArchetypes: []string{"prince", "witch", "ranger", "sprite"},
	},
	{
		ID:                  "tech_retreat",
		Name:                "Tech Founder Retreat",
		Description:         "A startup retreat in a smart villa with hidden rivalries.",
		ToneTags:            []string{"modern", "competitive", "satirical"},
		SuggestedProps:      []string{"lanyards", "prototype gadgets", "whiteboard notes"},
		SuggestedArchetypes: []string{"founder", "investor", "designer", "hacker"},
	},
	{
		ID:                  "harbor_festival",
		Name:                "Harbor Festival",
		Description:         "A coastal town celebrates its maritime heritage.",
		ToneTags:            []string{"community", "warm", "stormy"},
		SuggestedProps:      []string{"rope knots", "ship logs", "festival pins"},
		SuggestedArchetypes: []string{"captain", "mayor", "dockworker", "tourist"},
	},
	{
		ID:                  "opera_premiere",
		Name:                "Grand Opera Premiere",
		Description:         "A famous premiere brings glamor, rivalries, and secrets.",
		ToneTags:            []string{"dramatic", "elegant", "high-stakes"},
		SuggestedProps:      []string{"playbills", "opera gloves", "tickets"},
		SuggestedArchetypes: []string{"diva", "conductor", "patron", "stagehand"},
	},
	{
		ID:                  "haunted_estate",
		Name:                "Haunted Estate",
		Description:         "A restored estate opens for a spooky fundraiser.",
		ToneTags:            []string{"spooky", "campy", "mystery"},
		SuggestedProps:      []string{"candles", "antique keys", "old photos"},
		SuggestedArchetypes: []string{"historian", "medium", "caretaker", "guest"},
	},
	{
		ID:                  "desert_rally",
		Name:                "Desert Rally",
		Description:         "A desert endurance rally with sponsors and rival teams.",
		ToneTags:            []string{"adventurous", "dusty", "competitive"},
		SuggestedProps:      []string{"race bibs", "goggles", "maps"},
		SuggestedArchetypes: []string{"driver", "navigator", "mechanic", "journalist"},
	},
}

// All returns a copy of the catalog in its fixed order.
func All() []model.Category {
	out := make([]model.Category, len(builtin))
	copy(out, builtin)
	return out
}

// Lookup finds a category by exact id.
func Lookup(id string) (model.Category, bool) {
	for _, c := range builtin {
		if c.ID == id {
			return c, true
		}
	}
	return model.Category{}, false
}

// Resolve maps a requested id onto a category. "random" consumes one draw from src, so it
// must be called before the skeleton is built. Unknown ids fall back to the closest id
// within a small edit distance, then to the first category.
func Resolve(categories []model.Category, id string, src *seed.Source) model.Category {
	if len(categories) == 0 {
		return model.Category{}
	}
	id = strings.TrimSpace(id)
	if id == RandomID {
		return seed.Choice(src, categories)
	}
	for _, c := range categories {
		if c.ID == id {
			return c
		}
	}
	best, bestDist := -1, maxTypoDistance+1
	lower := strings.ToLower(id)
	for i, c := range categories {
		if d := levenshtein.ComputeDistance(lower, c.ID); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 {
		return categories[best]
	}
	return categories[0]
}
