package models

import "time"

// Character is the stored document for one character entry. Appearances is
// the back-reference side of the media documents' character links.
type Character struct {
	ID             string          `json:"id"`
	SourceID       int             `json:"source_id,omitempty"`
	FirstName      string          `json:"first_name,omitempty"`
	LastName       string          `json:"last_name,omitempty"`
	NativeName     string          `json:"native_name,omitempty"`
	Biography      string          `json:"biography,omitempty"`
	Gender         string          `json:"gender,omitempty"`
	Age            string          `json:"age,omitempty"`
	Image          string          `json:"image,omitempty"`
	Appearances    []CharacterLink `json:"appearances,omitempty"`
	LastActivityAt time.Time       `json:"last_activity_at"`
	CreatedAt      time.Time       `json:"created_at"`
}

// FindAppearance returns the link back to the given media entity, if any.
func (c *Character) FindAppearance(mediaID string) *CharacterLink {
	for i := range c.Appearances {
		if c.Appearances[i].EntityID == mediaID {
			return &c.Appearances[i]
		}
	}
	return nil
}
