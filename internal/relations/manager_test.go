package relations

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animehub/pkg/apperr"
	"animehub/pkg/models"
)

// fakeStore keeps entities in maps and hands out copies, the way the real
// repo materializes a fresh document per read.
type fakeStore struct {
	media map[string]*models.Media
	chars map[string]*models.Character

	failRelationsFor   string // SetRelations for this id returns an error
	failAppearancesFor string

	relationWrites int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		media: make(map[string]*models.Media),
		chars: make(map[string]*models.Character),
	}
}

func (f *fakeStore) addMedia(id string, kind models.MediaKind) {
	f.media[id] = &models.Media{ID: id, Kind: kind}
}

func (f *fakeStore) GetMedia(_ context.Context, kind models.MediaKind, id string) (*models.Media, error) {
	m, ok := f.media[id]
	if !ok || m.Kind != kind {
		return nil, nil
	}
	cp := *m
	cp.Relations = append([]models.RelationEdge(nil), m.Relations...)
	cp.Characters = append([]models.CharacterLink(nil), m.Characters...)
	return &cp, nil
}

func (f *fakeStore) SetRelations(_ context.Context, id string, edges []models.RelationEdge) error {
	if id == f.failRelationsFor {
		return errors.New("disk full")
	}
	f.relationWrites++
	f.media[id].Relations = edges
	return nil
}

func (f *fakeStore) GetCharacter(_ context.Context, id string) (*models.Character, error) {
	c, ok := f.chars[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Appearances = append([]models.CharacterLink(nil), c.Appearances...)
	return &cp, nil
}

func (f *fakeStore) SetMediaCharacters(_ context.Context, id string, links []models.CharacterLink) error {
	f.media[id].Characters = links
	return nil
}

func (f *fakeStore) SetAppearances(_ context.Context, id string, links []models.CharacterLink) error {
	if id == f.failAppearancesFor {
		return errors.New("disk full")
	}
	f.chars[id].Appearances = links
	return nil
}

func (f *fakeStore) ListAllMedia(_ context.Context, kind models.MediaKind) ([]models.Media, error) {
	var out []models.Media
	for _, m := range f.media {
		if m.Kind == kind {
			cp := *m
			cp.Relations = append([]models.RelationEdge(nil), m.Relations...)
			out = append(out, cp)
		}
	}
	return out, nil
}

func TestAddEdgeWritesReverse(t *testing.T) {
	store := newFakeStore()
	store.addMedia("a1", models.KindAnime)
	store.addMedia("m1", models.KindManga)
	mgr := NewManager(store, nil)

	fwd, rev, err := mgr.AddOrUpdateEdge(context.Background(), "a1", models.KindAnime, models.RelationEdge{
		TargetID: "m1", TargetKind: models.KindManga, Type: models.RelAdaptation,
	})
	require.NoError(t, err)
	require.NotNil(t, rev)
	assert.Equal(t, models.RelAdaptation, fwd.Type)
	assert.Equal(t, models.RelSource, rev.Type)

	// target must now hold the reverse edge back to the source
	require.Len(t, store.media["m1"].Relations, 1)
	back := store.media["m1"].Relations[0]
	assert.Equal(t, "a1", back.TargetID)
	assert.Equal(t, models.KindAnime, back.TargetKind)
	assert.Equal(t, models.RelSource, back.Type)
}

func TestAddEdgeIdempotent(t *testing.T) {
	store := newFakeStore()
	store.addMedia("a1", models.KindAnime)
	store.addMedia("a2", models.KindAnime)
	mgr := NewManager(store, nil)

	edge := models.RelationEdge{TargetID: "a2", TargetKind: models.KindAnime, Type: models.RelSequel}
	_, _, err := mgr.AddOrUpdateEdge(context.Background(), "a1", models.KindAnime, edge)
	require.NoError(t, err)
	_, _, err = mgr.AddOrUpdateEdge(context.Background(), "a1", models.KindAnime, edge)
	require.NoError(t, err)

	assert.Len(t, store.media["a1"].Relations, 1)
	assert.Len(t, store.media["a2"].Relations, 1)
}

func TestAddEdgeOverwritesType(t *testing.T) {
	store := newFakeStore()
	store.addMedia("a1", models.KindAnime)
	store.addMedia("a2", models.KindAnime)
	mgr := NewManager(store, nil)

	ctx := context.Background()
	_, _, err := mgr.AddOrUpdateEdge(ctx, "a1", models.KindAnime, models.RelationEdge{
		TargetID: "a2", TargetKind: models.KindAnime, Type: models.RelSequel,
	})
	require.NoError(t, err)

	fwd, rev, err := mgr.AddOrUpdateEdge(ctx, "a1", models.KindAnime, models.RelationEdge{
		TargetID: "a2", TargetKind: models.KindAnime, Type: models.RelAlternative,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RelAlternative, fwd.Type)
	assert.Equal(t, models.RelAlternative, rev.Type)
	assert.Len(t, store.media["a1"].Relations, 1)
	assert.Len(t, store.media["a2"].Relations, 1)
}

func TestAddEdgeOneSidedLeavesTargetUntouched(t *testing.T) {
	store := newFakeStore()
	store.addMedia("a1", models.KindAnime)
	store.addMedia("a2", models.KindAnime)
	mgr := NewManager(store, nil)

	fwd, rev, err := mgr.AddOrUpdateEdge(context.Background(), "a1", models.KindAnime, models.RelationEdge{
		TargetID: "a2", TargetKind: models.KindAnime, Type: models.RelSideStory,
	})
	require.NoError(t, err)
	assert.NotNil(t, fwd)
	assert.Nil(t, rev)
	assert.Empty(t, store.media["a2"].Relations)
}

func TestAddEdgeValidation(t *testing.T) {
	store := newFakeStore()
	store.addMedia("a1", models.KindAnime)
	mgr := NewManager(store, nil)

	_, _, err := mgr.AddOrUpdateEdge(context.Background(), "a1", models.KindAnime, models.RelationEdge{
		TargetID: "a2", TargetKind: models.KindAnime, Type: "FRIENDSHIP",
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	// rejected before any write
	assert.Zero(t, store.relationWrites)
}

func TestAddEdgeTargetNotFound(t *testing.T) {
	store := newFakeStore()
	store.addMedia("a1", models.KindAnime)
	mgr := NewManager(store, nil)

	_, _, err := mgr.AddOrUpdateEdge(context.Background(), "a1", models.KindAnime, models.RelationEdge{
		TargetID: "ghost", TargetKind: models.KindAnime, Type: models.RelSequel,
	})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Zero(t, store.relationWrites)
}

func TestAddEdgeReverseFailureKeepsForward(t *testing.T) {
	store := newFakeStore()
	store.addMedia("a1", models.KindAnime)
	store.addMedia("a2", models.KindAnime)
	store.failRelationsFor = "a2"
	mgr := NewManager(store, nil)

	_, _, err := mgr.AddOrUpdateEdge(context.Background(), "a1", models.KindAnime, models.RelationEdge{
		TargetID: "a2", TargetKind: models.KindAnime, Type: models.RelPrequel,
	})
	assert.Equal(t, apperr.KindStore, apperr.KindOf(err))
	// forward edge persisted, reverse missing: the documented half-applied state
	assert.Len(t, store.media["a1"].Relations, 1)
	assert.Empty(t, store.media["a2"].Relations)

	// re-running the operation heals the half-applied edge
	store.failRelationsFor = ""
	_, rev, err := mgr.AddOrUpdateEdge(context.Background(), "a1", models.KindAnime, models.RelationEdge{
		TargetID: "a2", TargetKind: models.KindAnime, Type: models.RelPrequel,
	})
	require.NoError(t, err)
	require.NotNil(t, rev)
	assert.Len(t, store.media["a1"].Relations, 1)
	assert.Len(t, store.media["a2"].Relations, 1)
	assert.Equal(t, models.RelSequel, store.media["a2"].Relations[0].Type)
}

func TestAddCharacterLinkBothSides(t *testing.T) {
	store := newFakeStore()
	store.addMedia("a1", models.KindAnime)
	store.chars["c1"] = &models.Character{ID: "c1"}
	mgr := NewManager(store, nil)

	link, err := mgr.AddCharacterLink(context.Background(), "a1", models.KindAnime, "c1", models.RoleMain)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMain, link.Role)

	require.Len(t, store.media["a1"].Characters, 1)
	require.Len(t, store.chars["c1"].Appearances, 1)
	assert.Equal(t, "a1", store.chars["c1"].Appearances[0].EntityID)
	assert.Equal(t, models.KindAnime, store.chars["c1"].Appearances[0].Kind)
}

func TestAddCharacterLinkDuplicateNoOp(t *testing.T) {
	store := newFakeStore()
	store.addMedia("a1", models.KindAnime)
	store.chars["c1"] = &models.Character{ID: "c1"}
	mgr := NewManager(store, nil)

	ctx := context.Background()
	_, err := mgr.AddCharacterLink(ctx, "a1", models.KindAnime, "c1", models.RoleMain)
	require.NoError(t, err)
	_, err = mgr.AddCharacterLink(ctx, "a1", models.KindAnime, "c1", models.RoleMain)
	require.NoError(t, err)

	assert.Len(t, store.media["a1"].Characters, 1)
	assert.Len(t, store.chars["c1"].Appearances, 1)
}

func TestAddCharacterLinkHealsHalfAppliedLink(t *testing.T) {
	store := newFakeStore()
	store.addMedia("a1", models.KindAnime)
	store.chars["c1"] = &models.Character{ID: "c1"}
	store.failAppearancesFor = "c1"
	mgr := NewManager(store, nil)

	ctx := context.Background()
	_, err := mgr.AddCharacterLink(ctx, "a1", models.KindAnime, "c1", models.RoleSupporting)
	assert.Equal(t, apperr.KindStore, apperr.KindOf(err))
	assert.Len(t, store.media["a1"].Characters, 1)
	assert.Empty(t, store.chars["c1"].Appearances)

	store.failAppearancesFor = ""
	_, err = mgr.AddCharacterLink(ctx, "a1", models.KindAnime, "c1", models.RoleSupporting)
	require.NoError(t, err)
	assert.Len(t, store.media["a1"].Characters, 1)
	assert.Len(t, store.chars["c1"].Appearances, 1)
}

func TestRepairRestoresMissingReverse(t *testing.T) {
	store := newFakeStore()
	store.addMedia("a1", models.KindAnime)
	store.addMedia("a2", models.KindAnime)
	store.addMedia("a3", models.KindAnime)
	// forward edges written, reverses lost
	store.media["a1"].Relations = []models.RelationEdge{
		{TargetID: "a2", TargetKind: models.KindAnime, Type: models.RelPrequel},
		{TargetID: "a3", TargetKind: models.KindAnime, Type: models.RelSideStory}, // one-sided, no repair
	}
	mgr := NewManager(store, nil)

	n, err := mgr.Repair(context.Background(), models.KindAnime)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.media["a2"].Relations, 1)
	assert.Equal(t, models.RelSequel, store.media["a2"].Relations[0].Type)
	assert.Empty(t, store.media["a3"].Relations)

	// second pass finds nothing to do
	n, err = mgr.Repair(context.Background(), models.KindAnime)
	require.NoError(t, err)
	assert.Zero(t, n)
}
