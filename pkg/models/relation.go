package models

// MediaKind discriminates the two media document variants.
type MediaKind string

const (
	KindAnime MediaKind = "ANIME"
	KindManga MediaKind = "MANGA"
)

func (k MediaKind) Valid() bool {
	return k == KindAnime || k == KindManga
}

// RelationType is the closed vocabulary for typed edges between media entities.
type RelationType string

const (
	RelSource      RelationType = "SOURCE"
	RelAdaptation  RelationType = "ADAPTATION"
	RelPrequel     RelationType = "PREQUEL"
	RelSequel      RelationType = "SEQUEL"
	RelSideStory   RelationType = "SIDE_STORY"
	RelCharacter   RelationType = "CHARACTER"
	RelSummary     RelationType = "SUMMARY"
	RelAlternative RelationType = "ALTERNATIVE"
	RelSpinOff     RelationType = "SPIN_OFF"
	RelOther       RelationType = "OTHER"
	RelCompilation RelationType = "COMPILATION"
	RelContains    RelationType = "CONTAINS"
	RelParent      RelationType = "PARENT"
	RelChild       RelationType = "CHILD"
)

// RelationTypes lists every valid relation type, used for input validation.
var RelationTypes = []RelationType{
	RelSource, RelAdaptation, RelPrequel, RelSequel, RelSideStory,
	RelCharacter, RelSummary, RelAlternative, RelSpinOff, RelOther,
	RelCompilation, RelContains, RelParent, RelChild,
}

func (t RelationType) Valid() bool {
	for _, v := range RelationTypes {
		if t == v {
			return true
		}
	}
	return false
}

// RelationEdge is a directed, typed link from one media entity to another.
// Edges live embedded in the owning entity's document; the matching reverse
// edge (when the type has one) lives in the target's document.
type RelationEdge struct {
	TargetID   string       `json:"target_id"`
	TargetKind MediaKind    `json:"target_kind"`
	Type       RelationType `json:"type"`
}

// CharacterRole is the closed vocabulary for character appearances.
type CharacterRole string

const (
	RoleMain       CharacterRole = "MAIN"
	RoleSupporting CharacterRole = "SUPPORTING"
	RoleBackground CharacterRole = "BACKGROUND"
)

func (r CharacterRole) Valid() bool {
	return r == RoleMain || r == RoleSupporting || r == RoleBackground
}

// CharacterLink connects a media entity and a character. On the media side
// EntityID is the character id; on the character side it is the media id and
// Kind records which collection it points into.
type CharacterLink struct {
	EntityID string        `json:"entity_id"`
	Kind     MediaKind     `json:"kind,omitempty"`
	Role     CharacterRole `json:"role"`
}
