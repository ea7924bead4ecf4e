package cli

import (
	"fmt"
	"io"

	"taskminder/internal/config"
	"taskminder/internal/database"
	"taskminder/internal/domain"
	"taskminder/internal/events"
	"taskminder/internal/logging"
	"taskminder/internal/models"
	"taskminder/internal/repository"
	"taskminder/internal/storage"

	"github.com/rs/zerolog"
)

// app holds everything a command needs: config, logger, store and event bus.
type app struct {
	cfg       *config.Config
	logger    *zerolog.Logger
	store     domain.TaskStore
	storePath string
	bus       *events.EventBus
	closers   []io.Closer
}

type appOpener func() (*app, error)

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, bus: events.NewEventBus()}
	if logCloser != nil {
		a.closers = append(a.closers, logCloser)
	}

	if err := a.openStore(); err != nil {
		a.Close()
		return nil, err
	}
	a.subscribeTaskEvents()
	return a, nil
}

func (a *app) openStore() error {
	storeLogger := logging.Component(a.logger, "store")
	resolver := storage.NewResolver(storage.DefaultIdentity(), a.cfg.Storage.Dir, a.cfg.Storage.FileName)

	switch a.cfg.Storage.Backend {
	case config.BackendSQLite:
		path := a.cfg.Storage.SQLitePath
		if path == "" {
			p, err := resolver.PathFor(models.SQLiteFileName)
			if err != nil {
				return err
			}
			path = p
		}
		db, err := database.NewDB(path, storeLogger)
		if err != nil {
			return err
		}
		a.store, a.storePath = db, path
		a.closers = append(a.closers, db)

	case config.BackendMemory:
		a.store = repository.NewMemoryTaskStore()

	default:
		opts := storage.Options{
			MaxReadAttempts: a.cfg.Storage.MaxReadAttempts,
			BaseBackoff:     a.cfg.Storage.BaseBackoff,
			StaleTempAge:    a.cfg.Storage.StaleTempAge,
		}
		store := storage.NewFileStore(resolver, opts, storeLogger)
		path, err := store.Path()
		if err != nil {
			return err
		}
		a.store, a.storePath = store, path
	}

	a.logger.Debug().Str("backend", a.cfg.Storage.Backend).Str("path", a.storePath).Msg("Task store opened")
	return nil
}

func (a *app) subscribeTaskEvents() {
	eventLogger := logging.Component(a.logger, "events")
	handler := func(event *events.Event) error {
		payload, err := event.Decode()
		if err != nil {
			eventLogger.Warn().Err(err).Str("type", event.Type).Msg("Undecodable task event")
			return err
		}
		eventLogger.Debug().Str("type", event.Type).Str("task", payload.Name).Bool("enabled", payload.Enabled).Msg("Task event")
		return nil
	}

	for _, eventType := range []string{
		events.EventTaskAdded,
		events.EventTaskToggled,
		events.EventTaskRemoved,
		events.EventTasksCleared,
		events.EventTaskDue,
	} {
		a.bus.Subscribe(eventType, handler)
	}
}

func (a *app) publish(eventType string, task models.Task) {
	if err := a.bus.PublishJSON(eventType, events.NewTaskPayload(task, "")); err != nil {
		a.logger.Warn().Err(err).Str("type", eventType).Msg("Failed to publish event")
	}
}

// Close releases the store and the log file in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
	a.closers = nil
}

func findTask(tasks []models.Task, name string) (models.Task, bool) {
	for _, task := range tasks {
		if task.Name == name {
			return task, true
		}
	}
	return models.Task{}, false
}

func describe(task models.Task) string {
	state := "disabled"
	if task.Enabled {
		state = "enabled"
	}
	lastRun := "never"
	if task.LastRun != nil {
		lastRun = task.LastRun.Local().Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("%s (%s, %s, last run: %s)", task.Name, task.Interval, state, lastRun)
}
