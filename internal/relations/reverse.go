// Package relations owns the bidirectional relation graph between media
// entities and the media↔character links. All edge writes in the system go
// through Manager so the reverse-edge branching lives in exactly one place.
package relations

import "animehub/pkg/models"

// reverseTable maps each relation type to the type the target entity must
// hold back. Types absent from the table create one-sided edges only.
var reverseTable = map[models.RelationType]models.RelationType{
	models.RelSource:      models.RelAdaptation,
	models.RelAdaptation:  models.RelSource,
	models.RelPrequel:     models.RelSequel,
	models.RelSequel:      models.RelPrequel,
	models.RelParent:      models.RelChild,
	models.RelChild:       models.RelParent,
	models.RelContains:    models.RelCompilation,
	models.RelCompilation: models.RelContains,
	models.RelAlternative: models.RelAlternative, // self-symmetric
}

// Reverse resolves the reverse relation type. ok is false for the one-sided
// types (SideStory, Character, Summary, SpinOff, Other).
func Reverse(t models.RelationType) (models.RelationType, bool) {
	rev, ok := reverseTable[t]
	return rev, ok
}
