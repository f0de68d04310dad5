package structure

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/danshapiro/murderparty/internal/mystery/model"
)

// Digest hashes the structural fields of p: character ids, clue assignment, relationship
// targets, clue type and misleading flags, and the murderer id. Prose is excluded, so a
// skeleton and every package enriched from it share a digest.
func Digest(p *model.Package) string {
	var b strings.Builder
	for _, c := range p.CharacterPackets {
		b.WriteString("c:")
		b.WriteString(c.CharacterID)
		b.WriteString("|clues:")
		b.WriteString(strings.Join(c.ClueIDs, ","))
		b.WriteString("|rels:")
		for _, r := range c.Relationships {
			b.WriteString(r.CharacterID)
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	for _, c := range p.Clues {
		b.WriteString("k:")
		b.WriteString(c.ClueID)
		b.WriteByte('|')
		b.WriteString(string(c.Type))
		b.WriteByte('|')
		b.WriteString(strconv.FormatBool(c.IsMisleading))
		b.WriteByte('\n')
	}
	b.WriteString("m:")
	b.WriteString(p.Solution.MurdererID)
	sum := blake3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
