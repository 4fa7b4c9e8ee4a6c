package relations

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"animehub/pkg/models"
)

func TestReversePairs(t *testing.T) {
	pairs := map[models.RelationType]models.RelationType{
		models.RelSource:      models.RelAdaptation,
		models.RelAdaptation:  models.RelSource,
		models.RelPrequel:     models.RelSequel,
		models.RelSequel:      models.RelPrequel,
		models.RelParent:      models.RelChild,
		models.RelChild:       models.RelParent,
		models.RelContains:    models.RelCompilation,
		models.RelCompilation: models.RelContains,
	}
	for forward, want := range pairs {
		got, ok := Reverse(forward)
		assert.True(t, ok, "reverse of %s should be defined", forward)
		assert.Equal(t, want, got)
	}
}

func TestReverseSelfSymmetric(t *testing.T) {
	got, ok := Reverse(models.RelAlternative)
	assert.True(t, ok)
	assert.Equal(t, models.RelAlternative, got)
}

func TestReverseOneSided(t *testing.T) {
	for _, typ := range []models.RelationType{
		models.RelSideStory, models.RelCharacter, models.RelSummary,
		models.RelSpinOff, models.RelOther,
	} {
		_, ok := Reverse(typ)
		assert.False(t, ok, "%s should have no reverse", typ)
	}
}

func TestReverseInvolution(t *testing.T) {
	// applying the table twice must land back on the original type
	for forward := range reverseTable {
		rev, _ := Reverse(forward)
		back, ok := Reverse(rev)
		assert.True(t, ok)
		assert.Equal(t, forward, back)
	}
}
