package models

import "time"

// TitleSet holds the three title variants the external catalog reports.
type TitleSet struct {
	Romaji  string `json:"romaji,omitempty"`
	English string `json:"english,omitempty"`
	Native  string `json:"native,omitempty"`
}

// FuzzyDate is a partially-known calendar date. Components are kept as
// strings so that an absent component compares equal to an absent external
// value instead of producing a false diff against zero.
type FuzzyDate struct {
	Year  string `json:"year,omitempty"`
	Month string `json:"month,omitempty"`
	Day   string `json:"day,omitempty"`
}

func (d FuzzyDate) Equal(o FuzzyDate) bool {
	return d.Year == o.Year && d.Month == o.Month && d.Day == o.Day
}

// NextAiring is the recurring-event state for a releasing anime: the epoch
// timestamp of the next episode and that episode's number. Episode numbers
// only ever increase; see the airing recompute rules.
type NextAiring struct {
	AiringAt int64 `json:"airing_at"`
	Episode  int   `json:"episode"`

	// TimeUntil is filled in at read time for API responses; it is never
	// persisted or compared.
	TimeUntil int64 `json:"time_until_airing,omitempty"`
}

// Media is the stored document for one anime or manga entry.
//
// Episodes/Duration are anime-only, Chapters/Volumes manga-only; the unused
// pair stays zero. Relations and Characters are embedded lists maintained by
// the relation graph manager, never written directly by handlers.
type Media struct {
	ID              string          `json:"id"`
	Kind            MediaKind       `json:"kind"`
	SourceID        int             `json:"source_id"` // external catalog id, unique per kind
	Title           TitleSet        `json:"title"`
	Format          string          `json:"format,omitempty"`
	Status          string          `json:"status,omitempty"`
	SourceOf        string          `json:"source_of,omitempty"` // source of adaptation
	Country         string          `json:"country,omitempty"`
	StartDate       FuzzyDate       `json:"start_date,omitempty"`
	EndDate         FuzzyDate       `json:"end_date,omitempty"`
	Episodes        int             `json:"episodes,omitempty"`
	Duration        int             `json:"duration,omitempty"` // minutes per episode
	Chapters        int             `json:"chapters,omitempty"`
	Volumes         int             `json:"volumes,omitempty"`
	Genres          []string        `json:"genres,omitempty"`
	Description     string          `json:"description,omitempty"`
	CoverImage      string          `json:"cover_image,omitempty"`
	Relations       []RelationEdge  `json:"relations,omitempty"`
	Characters      []CharacterLink `json:"characters,omitempty"`
	NextAiring      *NextAiring     `json:"next_airing,omitempty"` // anime only
	LastActivityAt  time.Time       `json:"last_activity_at"`
	CreatedAt       time.Time       `json:"created_at"`
}

// FindRelation returns the edge from m to targetID, if any.
func (m *Media) FindRelation(targetID string) *RelationEdge {
	for i := range m.Relations {
		if m.Relations[i].TargetID == targetID {
			return &m.Relations[i]
		}
	}
	return nil
}

// FindCharacter returns the link to the given character, if any.
func (m *Media) FindCharacter(characterID string) *CharacterLink {
	for i := range m.Characters {
		if m.Characters[i].EntityID == characterID {
			return &m.Characters[i]
		}
	}
	return nil
}
