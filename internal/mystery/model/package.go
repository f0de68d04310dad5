package model

// ClueType distinguishes evidence that can convict from evidence that only suggests.
type ClueType string

const (
	ClueHard ClueType = "hard"
	ClueSoft ClueType = "soft"
)

// Package is the aggregate root returned to callers. JSON field names are part of the
// wire contract with the browser client and the prompt templates.
type Package struct {
	Title             string          `json:"title"`
	ThemeSummary      string          `json:"theme_summary"`
	StorylineOverview []string        `json:"storyline_overview"`
	Victim            Victim          `json:"victim"`
	Solution          Solution        `json:"solution"`
	Timeline          []TimelineEvent `json:"timeline"`
	Clues             []Clue          `json:"clues"`
	CharacterPackets  []Character     `json:"character_packets"`
	HowToPlay         []Round         `json:"how_to_play"`
	PropsList         []string        `json:"props_list"`
	Meta              Meta            `json:"meta"`
}

type Victim struct {
	Name            string `json:"name"`
	Role            string `json:"role"`
	WhyTheyMattered string `json:"why_they_mattered"`
}

type Solution struct {
	MurdererID        string `json:"murderer_id"`
	Motive            string `json:"motive"`
	Method            string `json:"method"`
	Opportunity       string `json:"opportunity"`
	RevealExplanation string `json:"reveal_explanation"`
}

type TimelineEvent struct {
	EventID     string `json:"event_id"`
	Time        string `json:"time"`
	Description string `json:"description"`
}

type Clue struct {
	ClueID       string   `json:"clue_id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Type         ClueType `json:"type"`
	IsMisleading bool     `json:"is_misleading"`
}

// Relationship is a directed edge from the owning character to CharacterID.
type Relationship struct {
	CharacterID  string `json:"character_id"`
	Relationship string `json:"relationship"`
}

type Character struct {
	CharacterID        string         `json:"character_id"`
	Name               string         `json:"name"`
	RoleTitle          string         `json:"role_title"`
	Backstory          string         `json:"backstory"`
	Relationships      []Relationship `json:"relationships"`
	ConnectionToVictim string         `json:"connection_to_victim"`
	Traits             []string       `json:"traits"`
	PublicGoal         string         `json:"public_goal"`
	SecretGoal         string         `json:"secret_goal"`
	Secrets            []string       `json:"secrets"`
	Alibi              string         `json:"alibi"`
	ClueIDs            []string       `json:"clue_ids"`
	IntroMonologue     []string       `json:"intro_monologue"`
	PropSuggestion     string         `json:"prop_suggestion"`
}

type Round struct {
	RoundID     string `json:"round_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Minutes     int    `json:"minutes"`
}

type Meta struct {
	Seed        int64  `json:"seed"`
	ShareCode   string `json:"share_code"`
	PlayerCount int    `json:"player_count"`
	CategoryID  string `json:"category_id"`
	Tone        string `json:"tone"`
	Duration    int    `json:"duration"`
	Model       string `json:"model"`
}

// Category is a read-only entry of the category catalog.
type Category struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	ToneTags            []string `json:"tone_tags"`
	SuggestedProps      []string `json:"suggested_props"`
	SuggestedArchetypes []string `json:"suggested_archetypes"`
}

// Expected captures the id sets fixed at build time. Validation is always performed
// against these rather than against whatever ids the merged document claims.
type Expected struct {
	PlayerCount  int
	CharacterIDs []string
	ClueIDs      []string
}

// ExpectedFrom derives the expected id sets from a package as it currently stands.
func ExpectedFrom(p *Package) Expected {
	exp := Expected{PlayerCount: len(p.CharacterPackets)}
	for _, c := range p.CharacterPackets {
		exp.CharacterIDs = append(exp.CharacterIDs, c.CharacterID)
	}
	for _, c := range p.Clues {
		exp.ClueIDs = append(exp.ClueIDs, c.ClueID)
	}
	return exp
}

// Clone returns a deep copy so that enrichment passes never alias the skeleton.
func (p *Package) Clone() *Package {
	if p == nil {
		return nil
	}
	out := *p
	out.StorylineOverview = cloneSlice(p.StorylineOverview)
	out.Timeline = cloneSlice(p.Timeline)
	out.Clues = cloneSlice(p.Clues)
	out.HowToPlay = cloneSlice(p.HowToPlay)
	out.PropsList = cloneSlice(p.PropsList)
	out.CharacterPackets = cloneSlice(p.CharacterPackets)
	for i := range out.CharacterPackets {
		c := &out.CharacterPackets[i]
		c.Relationships = cloneSlice(c.Relationships)
		c.Traits = cloneSlice(c.Traits)
		c.Secrets = cloneSlice(c.Secrets)
		c.ClueIDs = cloneSlice(c.ClueIDs)
		c.IntroMonologue = cloneSlice(c.IntroMonologue)
	}
	return &out
}

// cloneSlice keeps the nil/empty distinction so that JSON output stays `[]`.
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}
