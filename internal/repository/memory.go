package repository

import (
	"context"
	"sync"

	"taskminder/internal/models"
	"taskminder/internal/storage"
)

// MemoryTaskStore keeps tasks in process memory with the same merge rules as
// the file store. Nothing survives a restart.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks []models.Task
}

func NewMemoryTaskStore(initial ...models.Task) *MemoryTaskStore {
	return &MemoryTaskStore{tasks: storage.Merge(nil, initial)}
}

func (r *MemoryTaskStore) Load(ctx context.Context) ([]models.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := models.CloneTasks(r.tasks)
	if out == nil {
		out = []models.Task{}
	}
	return out, nil
}

func (r *MemoryTaskStore) Save(ctx context.Context, tasks []models.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(tasks) == 0 {
		r.tasks = nil
		return nil
	}
	r.tasks = storage.Merge(r.tasks, tasks)
	return nil
}

func (r *MemoryTaskStore) Remove(ctx context.Context, names ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks, _ = storage.RemoveNames(r.tasks, names)
	return nil
}
