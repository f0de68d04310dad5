package structure

import "github.com/danshapiro/murderparty/internal/mystery/seed"

// maxNameAttempts caps unique-name generation. With a colliding pool the result may hold
// fewer names than requested; callers leave the remaining names empty.
const maxNameAttempts = 200

var firstNames = []string{
	"Avery", "Blake", "Cameron", "Dakota", "Elliot", "Finley", "Harper",
	"Jordan", "Kai", "Logan", "Morgan", "Parker", "Quinn", "Reese", "Rowan",
	"Sawyer", "Skyler", "Taylor", "Zion", "Emerson",
}

var lastNames = []string{
	"Hale", "Rowe", "Sterling", "Brooks", "Winslow", "Voss", "Kincaid",
	"Langford", "Maddox", "Sinclair", "Nolan", "Everett", "Pryce", "Monroe",
	"Blair", "Bennett", "Calloway", "Sutter", "Quincy", "Alden",
}

func generateNames(count int, src *seed.Source) []string {
	names := make([]string, 0, count)
	seen := make(map[string]bool, count)
	for attempts := 0; len(names) < count && attempts < maxNameAttempts; attempts++ {
		name := seed.Choice(src, firstNames) + " " + seed.Choice(src, lastNames)
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
