package relations

import (
	"context"

	"go.uber.org/zap"

	"animehub/pkg/models"
)

// Repair re-derives missing reverse edges for every entity of one kind. A
// crash between the forward and reverse writes of AddOrUpdateEdge leaves the
// graph one-sided; forward edges are treated as the source of truth and any
// absent reverse is re-added. Existing reverse edges are left alone even if
// their type disagrees, since the forward side of the other entity owns that
// edge. Returns the number of reverse edges written.
func (m *Manager) Repair(ctx context.Context, kind models.MediaKind) (int, error) {
	entities, err := m.store.ListAllMedia(ctx, kind)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for i := range entities {
		src := &entities[i]
		for _, edge := range src.Relations {
			revType, ok := Reverse(edge.Type)
			if !ok {
				continue
			}

			n, err := m.repairOne(ctx, src, edge, revType)
			if err != nil {
				m.log.Warn("repair: reverse edge write failed",
					zap.String("source_id", src.ID),
					zap.String("target_id", edge.TargetID),
					zap.Error(err))
				continue
			}
			repaired += n
		}
	}
	return repaired, nil
}

func (m *Manager) repairOne(ctx context.Context, src *models.Media, edge models.RelationEdge, revType models.RelationType) (int, error) {
	unlock := m.locks.lock(src.ID, edge.TargetID)
	defer unlock()

	tgt, err := m.store.GetMedia(ctx, edge.TargetKind, edge.TargetID)
	if err != nil {
		return 0, err
	}
	if tgt == nil {
		// dangling forward edge; deletion is out of scope, leave it
		m.log.Warn("repair: forward edge points at missing entity",
			zap.String("source_id", src.ID),
			zap.String("target_id", edge.TargetID))
		return 0, nil
	}
	if tgt.FindRelation(src.ID) != nil {
		return 0, nil
	}

	tgt.Relations = append(tgt.Relations, models.RelationEdge{
		TargetID:   src.ID,
		TargetKind: src.Kind,
		Type:       revType,
	})
	if err := m.store.SetRelations(ctx, tgt.ID, tgt.Relations); err != nil {
		return 0, err
	}
	return 1, nil
}
