package relations

import (
	"context"

	"go.uber.org/zap"

	"animehub/pkg/apperr"
	"animehub/pkg/models"
)

// Store is the slice of the document store the relation graph needs. Each
// Set* call is one atomic single-row write; there is no transaction across
// two entities.
type Store interface {
	GetMedia(ctx context.Context, kind models.MediaKind, id string) (*models.Media, error)
	SetRelations(ctx context.Context, id string, edges []models.RelationEdge) error
	GetCharacter(ctx context.Context, id string) (*models.Character, error)
	SetMediaCharacters(ctx context.Context, id string, links []models.CharacterLink) error
	SetAppearances(ctx context.Context, id string, links []models.CharacterLink) error
	ListAllMedia(ctx context.Context, kind models.MediaKind) ([]models.Media, error)
}

type Manager struct {
	store Store
	log   *zap.Logger
	locks *keyedLock
}

func NewManager(store Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, log: log, locks: newKeyedLock()}
}

// AddOrUpdateEdge records an edge from the source entity to edge.TargetID and,
// when the relation type has a reverse, the matching edge on the target.
//
// Both writes are idempotent upserts keyed on (owner, target), so re-running
// the same call after a crash between the two writes heals a half-applied
// edge instead of duplicating it. The returned reverse edge is nil for
// one-sided relation types.
func (m *Manager) AddOrUpdateEdge(ctx context.Context, sourceID string, sourceKind models.MediaKind, edge models.RelationEdge) (*models.RelationEdge, *models.RelationEdge, error) {
	if !edge.Type.Valid() {
		return nil, nil, apperr.Validation("unknown relation type %q", edge.Type)
	}
	if !sourceKind.Valid() || !edge.TargetKind.Valid() {
		return nil, nil, apperr.Validation("unknown media kind")
	}
	if sourceID == edge.TargetID {
		return nil, nil, apperr.Validation("relation cannot point at its own entity")
	}

	unlock := m.locks.lock(sourceID, edge.TargetID)
	defer unlock()

	src, err := m.store.GetMedia(ctx, sourceKind, sourceID)
	if err != nil {
		return nil, nil, apperr.Store("load source entity", err)
	}
	if src == nil {
		return nil, nil, apperr.NotFound("%s %s not found", sourceKind, sourceID)
	}

	tgt, err := m.store.GetMedia(ctx, edge.TargetKind, edge.TargetID)
	if err != nil {
		return nil, nil, apperr.Store("load target entity", err)
	}
	if tgt == nil {
		return nil, nil, apperr.NotFound("%s %s not found", edge.TargetKind, edge.TargetID)
	}

	forward := upsertEdge(src, edge)
	if err := m.store.SetRelations(ctx, sourceID, src.Relations); err != nil {
		return nil, nil, apperr.Store("write forward edge", err)
	}

	revType, ok := Reverse(edge.Type)
	if !ok {
		return &forward, nil, nil
	}

	reverse := upsertEdge(tgt, models.RelationEdge{
		TargetID:   sourceID,
		TargetKind: sourceKind,
		Type:       revType,
	})
	if err := m.store.SetRelations(ctx, edge.TargetID, tgt.Relations); err != nil {
		// Forward edge is already persisted and stays; the graph is now
		// one-sided until this operation is retried or the repair pass runs.
		m.log.Error("reverse edge write failed, graph half-applied",
			zap.String("source_id", sourceID),
			zap.String("target_id", edge.TargetID),
			zap.String("type", string(edge.Type)),
			zap.Error(err))
		return &forward, nil, apperr.Store("write reverse edge", err)
	}

	return &forward, &reverse, nil
}

// upsertEdge updates the type of an existing edge to the same target or
// appends a new one, and returns the resulting edge.
func upsertEdge(owner *models.Media, edge models.RelationEdge) models.RelationEdge {
	if existing := owner.FindRelation(edge.TargetID); existing != nil {
		existing.Type = edge.Type
		existing.TargetKind = edge.TargetKind
		return *existing
	}
	owner.Relations = append(owner.Relations, edge)
	return edge
}

// AddCharacterLink connects a character to a media entity with the given
// role. The duplicate guard is symmetric: each side is checked and written
// independently, so a second call (or a retry after a one-sided failure)
// only fills in whichever side is missing.
func (m *Manager) AddCharacterLink(ctx context.Context, mediaID string, kind models.MediaKind, characterID string, role models.CharacterRole) (*models.CharacterLink, error) {
	if !kind.Valid() {
		return nil, apperr.Validation("unknown media kind %q", kind)
	}
	if !role.Valid() {
		return nil, apperr.Validation("unknown character role %q", role)
	}

	unlock := m.locks.lock(mediaID, characterID)
	defer unlock()

	med, err := m.store.GetMedia(ctx, kind, mediaID)
	if err != nil {
		return nil, apperr.Store("load media entity", err)
	}
	if med == nil {
		return nil, apperr.NotFound("%s %s not found", kind, mediaID)
	}

	ch, err := m.store.GetCharacter(ctx, characterID)
	if err != nil {
		return nil, apperr.Store("load character", err)
	}
	if ch == nil {
		return nil, apperr.NotFound("character %s not found", characterID)
	}

	link := models.CharacterLink{EntityID: characterID, Role: role}
	if med.FindCharacter(characterID) == nil {
		med.Characters = append(med.Characters, link)
		if err := m.store.SetMediaCharacters(ctx, mediaID, med.Characters); err != nil {
			return nil, apperr.Store("write media character link", err)
		}
	}

	if ch.FindAppearance(mediaID) == nil {
		ch.Appearances = append(ch.Appearances, models.CharacterLink{
			EntityID: mediaID,
			Kind:     kind,
			Role:     role,
		})
		if err := m.store.SetAppearances(ctx, characterID, ch.Appearances); err != nil {
			m.log.Error("character-side link write failed, link half-applied",
				zap.String("media_id", mediaID),
				zap.String("character_id", characterID),
				zap.Error(err))
			return nil, apperr.Store("write character appearance", err)
		}
	}

	return &link, nil
}
