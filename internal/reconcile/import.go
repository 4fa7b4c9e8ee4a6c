package reconcile

import (
	"time"

	"github.com/google/uuid"

	"animehub/internal/catalog"
	"animehub/pkg/models"
)

// FromCanonical builds a fresh media document from a canonical record,
// normalized into the internal taxonomy. Titles are set here, at import
// time; later reconciliation passes leave them alone.
func FromCanonical(kind models.MediaKind, rec *catalog.CanonicalRecord) *models.Media {
	v := normalizeRecord(rec)
	now := time.Now().UTC()

	m := &models.Media{
		ID:             uuid.NewString(),
		Kind:           kind,
		SourceID:       rec.ID,
		Title:          v.title,
		Format:         v.format,
		Status:         v.status,
		SourceOf:       v.sourceOf,
		Country:        v.country,
		StartDate:      v.start,
		EndDate:        v.end,
		Episodes:       v.episodes,
		Duration:       v.duration,
		Chapters:       v.chapters,
		Volumes:        v.volumes,
		Genres:         v.genres,
		Description:    v.description,
		CoverImage:     v.cover,
		LastActivityAt: now,
		CreatedAt:      now,
	}
	if kind == models.KindAnime {
		m.NextAiring = v.airing
	}
	return m
}
