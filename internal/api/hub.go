package api

import (
	"encoding/json"
	"image"
	"sync"

	"github.com/bryanchriswhite/ActionShot/internal/logger"
	"github.com/bryanchriswhite/ActionShot/internal/pipeline"
	"github.com/bryanchriswhite/ActionShot/internal/selector"
)

// Event is the wire form of a pipeline notification.
type Event struct {
	Type      string `json:"type"`
	Status    string `json:"status"`
	Processed int    `json:"processed,omitempty"`
	Remaining int    `json:"remaining,omitempty"`
}

// Hub receives pipeline notifications and fans them out to websocket
// subscribers. It also keeps the most recent composite for retrieval.
// Slow subscribers skip events rather than block the dispatcher.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
	latest  *image.NRGBA
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[chan []byte]struct{}),
	}
}

// FrameProcessed implements pipeline.Observer.
func (h *Hub) FrameProcessed(status pipeline.FrameStatus, processed, remaining int) {
	h.broadcast(Event{
		Type:      "frame_processed",
		Status:    string(status),
		Processed: processed,
		Remaining: remaining,
	})
}

// CompositionFinished implements pipeline.Observer.
func (h *Hub) CompositionFinished(status selector.Status, img *image.NRGBA) {
	if img != nil {
		h.mu.Lock()
		h.latest = img
		h.mu.Unlock()
	}
	h.broadcast(Event{
		Type:   "composition_finished",
		Status: string(status),
	})
}

// Latest returns the most recent composite, or nil.
func (h *Hub) Latest() *image.NRGBA {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Subscribe registers a new event channel. The caller must Unsubscribe it.
func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 8)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	logger.WithComponent("api").Debug().Int("subscribers", count).Msg("Event subscriber added")
	return ch
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Unsubscribe removes an event channel.
func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

func (h *Hub) broadcast(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		logger.WithComponent("api").Error().Err(err).Msg("Failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- payload:
		default:
			// Client is slow, skip this event
		}
	}
}
