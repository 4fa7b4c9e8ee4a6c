package events

import (
	"time"

	"animehub/internal/schedule"
	"animehub/pkg/models"
)

// SweepEvent wraps a sweep summary for fanout to connected clients.
type SweepEvent struct {
	Type    string           `json:"type"` // "sweep.completed"
	Summary schedule.Summary `json:"summary"`
	At      time.Time        `json:"at"`
}

// RelationEvent announces an edge write, including the reverse side when one
// was created.
type RelationEvent struct {
	Type     string               `json:"type"` // "relation.updated"
	SourceID string               `json:"source_id"`
	Edge     models.RelationEdge  `json:"edge"`
	Reverse  *models.RelationEdge `json:"reverse,omitempty"`
	At       time.Time            `json:"at"`
}
