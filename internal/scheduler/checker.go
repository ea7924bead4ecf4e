package scheduler

import (
	"context"
	"fmt"
	"time"

	"taskminder/internal/domain"
	"taskminder/internal/events"
	"taskminder/internal/metrics"
	"taskminder/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Checker periodically marks due tasks as run and sends their reminders.
type Checker struct {
	store     domain.TaskStore
	publisher domain.EventPublisher
	notifier  domain.Notifier
	logger    *zerolog.Logger
	interval  time.Duration
	now       func() time.Time
}

// NewChecker wires a checker. publisher and notifier may be nil.
func NewChecker(
	store domain.TaskStore,
	publisher domain.EventPublisher,
	notifier domain.Notifier,
	interval time.Duration,
	logger *zerolog.Logger,
) *Checker {
	if interval <= 0 {
		interval = models.DefaultCheckInterval
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Checker{
		store:     store,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger,
		interval:  interval,
		now:       time.Now,
	}
}

// Due returns the tasks that should run at now, in stored order.
func Due(tasks []models.Task, now time.Time) []models.Task {
	var due []models.Task
	for _, task := range tasks {
		if task.ShouldRun(now) {
			due = append(due, task.Clone())
		}
	}
	return due
}

// RunOnce performs one check cycle at now. Only the due tasks are written
// back, so edits made to other tasks since the load are kept.
func (c *Checker) RunOnce(ctx context.Context, now time.Time) ([]models.Task, error) {
	runID := uuid.NewString()
	logger := c.logger.With().Str("run_id", runID).Logger()

	tasks, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	due := Due(tasks, now)
	if len(due) == 0 {
		logger.Debug().Int("tasks", len(tasks)).Msg("No tasks due")
		return nil, nil
	}

	for i := range due {
		due[i].MarkComplete(now)
	}
	if err := c.store.Save(ctx, due); err != nil {
		return nil, fmt.Errorf("save due tasks: %w", err)
	}
	metrics.AddDue(len(due))
	logger.Info().Int("due", len(due)).Int("tasks", len(tasks)).Msg("Tasks due")

	for _, task := range due {
		if c.publisher != nil {
			if err := c.publisher.PublishJSON(events.EventTaskDue, events.NewTaskPayload(task, runID)); err != nil {
				logger.Warn().Err(err).Str("task", task.Name).Msg("Failed to publish task_due")
			}
		}
		if c.notifier != nil {
			if err := c.notifier.Notify(ctx, task); err != nil {
				logger.Error().Err(err).Str("task", task.Name).Msg("reminder: notify error")
			}
		}
	}
	return due, nil
}

// Start runs a cycle immediately and then on every tick until ctx is done.
// Failed cycles are logged and the loop keeps going.
func (c *Checker) Start(ctx context.Context) {
	c.logger.Info().Dur("interval", c.interval).Msg("Task checker started")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Task checker stopped")
			return
		case <-ticker.C:
			c.cycle(ctx)
		}
	}
}

func (c *Checker) cycle(ctx context.Context) {
	if _, err := c.RunOnce(ctx, c.now()); err != nil && ctx.Err() == nil {
		c.logger.Error().Err(err).Msg("Task check failed")
	}
}
