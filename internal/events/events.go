package events

import (
	"encoding/json"
	"sync"
	"time"

	"taskminder/internal/models"
)

const (
	EventTaskAdded    = "task_added"
	EventTaskToggled  = "task_toggled"
	EventTaskRemoved  = "task_removed"
	EventTasksCleared = "tasks_cleared"
	EventTaskDue      = "task_due"
)

// TaskEventPayload is the task snapshot handed to event consumers.
type TaskEventPayload struct {
	Name     string     `json:"name"`
	Interval string     `json:"interval,omitempty"`
	Enabled  bool       `json:"enabled"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	RunID    string     `json:"run_id,omitempty"`
}

// NewTaskPayload snapshots a task; runID may be empty.
func NewTaskPayload(task models.Task, runID string) TaskEventPayload {
	return TaskEventPayload{
		Name:     task.Name,
		Interval: task.Interval.String(),
		Enabled:  task.Enabled,
		LastRun:  task.Clone().LastRun,
		RunID:    runID,
	}
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into a task snapshot.
func (e *Event) Decode() (TaskEventPayload, error) {
	var p TaskEventPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; a failing handler does not stop the rest.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
