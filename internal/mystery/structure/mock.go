package structure

import (
	"fmt"
	"strings"

	"github.com/danshapiro/murderparty/internal/mystery/model"
)

// FillMock returns a copy of skeleton with deterministic placeholder prose in every
// narrative field. It is used instead of the text-generation collaborator in mock mode.
func FillMock(skeleton *model.Package, category model.Category) *model.Package {
	p := skeleton.Clone()
	tone := "mysterious"
	if len(category.ToneTags) > 0 {
		tone = category.ToneTags[0]
	}
	p.Title = fmt.Sprintf("%s: A Night of Secrets", category.Name)
	p.ThemeSummary = fmt.Sprintf("A %s mystery set in %s", tone, strings.ToLower(category.Description))
	p.StorylineOverview = []string{
		"Guests arrive to a gathering that promises celebration.",
		"A sudden discovery shifts the mood and exposes hidden conflicts.",
		"As tension rises, alliances form and secrets surface.",
	}
	p.Victim.Role = "Beloved organizer"
	p.Victim.WhyTheyMattered = "They controlled access to a key legacy."
	p.Solution.Motive = "A long-simmering betrayal over inheritance."
	p.Solution.Method = "Poisoned toast at a private moment."
	p.Solution.Opportunity = "The murderer had access to the victim's drink."
	p.Solution.RevealExplanation = "Clue patterns and alibis converge on the culprit."

	for i := range p.Timeline {
		p.Timeline[i].Time = "20:00"
		p.Timeline[i].Description = "A notable event shifts the night."
	}
	for i := range p.Clues {
		p.Clues[i].Title = "Suspicious detail"
		p.Clues[i].Description = "A detail that hints at motive or method."
	}
	for i := range p.CharacterPackets {
		c := &p.CharacterPackets[i]
		c.RoleTitle = "Guest with secrets"
		c.Backstory = "A brief history tied to the gathering."
		for j := range c.Relationships {
			c.Relationships[j].Relationship = "old friend"
		}
		c.ConnectionToVictim = "Owed the victim a favor."
		c.Traits = []string{"calm", "observant"}
		c.PublicGoal = "Keep the event running smoothly."
		c.SecretGoal = "Recover a missing document."
		c.Secrets = []string{"Once threatened the victim.", "Hiding a financial loss."}
		c.Alibi = "Was speaking with staff during the incident."
		c.IntroMonologue = []string{
			"I didn't expect this night to turn dark.",
			"We all have reasons to be here.",
		}
		c.PropSuggestion = "A distinctive accessory"
	}
	for i := range p.HowToPlay {
		p.HowToPlay[i].Title = "Investigation Round"
		p.HowToPlay[i].Description = "Players share clues and challenge alibis."
		p.HowToPlay[i].Minutes = 15
	}
	p.PropsList = []string{"Name cards", "Evidence cards", "Clue envelopes", "Timeline board"}
	return p
}
