package api

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"crisiswatch/domain/core"
)

// EventType defines the SSE event types emitted while a run progresses
type EventType string

const (
	EventStageStarted  EventType = "stage_started"
	EventStageFinished EventType = "stage_finished"
	EventRunFinished   EventType = "run_finished"
)

// Event is one server-sent progress event
type Event struct {
	EventType EventType   `json:"event_type"`
	RunID     string      `json:"run_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// ToSSEFormat converts the event to the wire format
func (e *Event) ToSSEFormat() string {
	jsonData, err := json.Marshal(e)
	if err != nil {
		// Fallback to basic format
		return fmt.Sprintf("event: %s\ndata: %s\n\n", e.EventType, "error marshalling event")
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", e.EventType, string(jsonData))
}

// StageEvent is the payload for stage progress events
type StageEvent struct {
	Stage string `json:"stage"`
	Error string `json:"error,omitempty"`
}

// RunFinishedEvent is the payload for run completion
type RunFinishedEvent struct {
	State      string `json:"state"`
	AlertLevel string `json:"alert_level,omitempty"`
}

// Hub fans progress events out to SSE subscribers. It implements
// RunObserver so the orchestrator can feed it directly.
type Hub struct {
	mu   sync.Mutex
	subs map[chan *Event]struct{}
}

// NewHub creates an empty event hub
func NewHub() *Hub {
	return &Hub{subs: make(map[chan *Event]struct{})}
}

// Subscribe registers a new listener. The returned channel is buffered;
// a slow consumer drops events rather than blocking the pipeline.
func (h *Hub) Subscribe() chan *Event {
	ch := make(chan *Event, 32)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel
func (h *Hub) Unsubscribe(ch chan *Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish delivers an event to every subscriber
func (h *Hub) Publish(event *Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// StageStarted implements RunObserver
func (h *Hub) StageStarted(runID core.RunID, stage string) {
	h.Publish(&Event{
		EventType: EventStageStarted,
		RunID:     runID.String(),
		Timestamp: time.Now(),
		Data:      StageEvent{Stage: stage},
	})
}

// StageFinished implements RunObserver
func (h *Hub) StageFinished(runID core.RunID, stage string, err error) {
	payload := StageEvent{Stage: stage}
	if err != nil {
		payload.Error = err.Error()
	}
	h.Publish(&Event{
		EventType: EventStageFinished,
		RunID:     runID.String(),
		Timestamp: time.Now(),
		Data:      payload,
	})
}
