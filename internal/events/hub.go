// Package events fans sweep summaries and relation-change events out to
// websocket subscribers. The hub is the injected observer for the sweep
// scheduler; background work never reports to a synchronous caller.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"animehub/internal/schedule"
	"animehub/pkg/models"
)

type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

type Stats struct {
	Clients int `json:"clients"`
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *Hub) Add(ws *websocket.Conn) {
	h.mu.Lock()
	h.clients[ws] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{Clients: len(h.clients)}
}

// SweepCompleted implements schedule.Observer.
func (h *Hub) SweepCompleted(s schedule.Summary) {
	h.BroadcastJSON(SweepEvent{Type: "sweep.completed", Summary: s, At: time.Now()})
}

// RelationUpdated announces an edge write to subscribers.
func (h *Hub) RelationUpdated(sourceID string, edge models.RelationEdge, reverse *models.RelationEdge) {
	h.BroadcastJSON(RelationEvent{
		Type:     "relation.updated",
		SourceID: sourceID,
		Edge:     edge,
		Reverse:  reverse,
		At:       time.Now(),
	})
}

func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.clients {
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.clients, ws)
		}
	}
}
