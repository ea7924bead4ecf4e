package domain

import (
	"context"

	"taskminder/internal/models"
)

// TaskStore persists the task list. Save merges by name; an empty input
// clears the store. Remove drops the named tasks.
type TaskStore interface {
	Load(ctx context.Context) ([]models.Task, error)
	Save(ctx context.Context, tasks []models.Task) error
	Remove(ctx context.Context, names ...string) error
}

// Notifier delivers a reminder for a due task.
type Notifier interface {
	Notify(ctx context.Context, task models.Task) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
