package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"taskminder/internal/metrics"
	"taskminder/internal/models"
	"taskminder/internal/worker"

	"github.com/rs/zerolog"
)

const backendName = "file"

// Options tunes the merge-write engine.
type Options struct {
	MaxReadAttempts int
	BaseBackoff     time.Duration
	StaleTempAge    time.Duration
}

// DefaultOptions: 3 attempts, 20ms/40ms backoff, every stray temp swept.
func DefaultOptions() Options {
	return Options{
		MaxReadAttempts: models.DefaultMaxReadAttempts,
		BaseBackoff:     models.DefaultBaseBackoff,
		StaleTempAge:    models.DefaultStaleTempAge,
	}
}

// FileStore keeps tasks in one JSON file shared by any number of writers.
// Writers in other processes are not locked out; within this process every
// read-merge-write on a path runs under that path's mutex.
type FileStore struct {
	resolver *Resolver
	opts     Options
	logger   *zerolog.Logger
	now      func() time.Time
	read     func(path string) ([]byte, error)
}

var pathLocks sync.Map

func lockPath(path string) func() {
	v, _ := pathLocks.LoadOrStore(path, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func NewFileStore(resolver *Resolver, opts Options, logger *zerolog.Logger) *FileStore {
	if opts.MaxReadAttempts < 1 {
		opts.MaxReadAttempts = models.DefaultMaxReadAttempts
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = models.DefaultBaseBackoff
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FileStore{
		resolver: resolver,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		read:     os.ReadFile,
	}
}

// Path returns the resolved task file location.
func (s *FileStore) Path() (string, error) {
	return s.resolver.Path()
}

// Load returns the stored tasks; a missing file is an empty list.
func (s *FileStore) Load(ctx context.Context) ([]models.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolver.Path()
	if err != nil {
		return nil, err
	}
	return s.loadPath(path)
}

func (s *FileStore) loadPath(path string) ([]models.Task, error) {
	data, err := s.read(path)
	if errors.Is(err, fs.ErrNotExist) {
		metrics.IncLoad("missing")
		return []models.Task{}, nil
	}
	if err != nil {
		metrics.IncLoad("failed")
		return nil, newError("load", path, ErrReadFailure, err)
	}

	tasks, mode, err := Decode(data)
	if err != nil {
		metrics.IncLoad("failed")
		return nil, newError("load", path, ErrMalformedDocument, err)
	}
	metrics.IncLoad(string(mode))
	if mode == ModeTolerant {
		s.logger.Debug().Str("path", path).Int("tasks", len(tasks)).Msg("Strict decode failed, used tolerant decode")
	}
	return tasks, nil
}

// Save merges tasks into the stored list by name and publishes the result
// atomically. An empty tasks slice deletes the file ("clear all").
func (s *FileStore) Save(ctx context.Context, tasks []models.Task) (err error) {
	defer func() { metrics.IncSave(backendName, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolver.Path()
	if err != nil {
		return err
	}

	unlock := lockPath(path)
	defer unlock()

	if len(tasks) == 0 {
		return s.clear(path)
	}

	current, err := s.readCurrent(ctx, path)
	if err != nil {
		return err
	}

	return s.write(path, Merge(current, tasks))
}

// Remove deletes the named tasks through the same read-merge-write path.
// Unknown names are ignored; removing the last task leaves an empty array.
func (s *FileStore) Remove(ctx context.Context, names ...string) (err error) {
	if len(names) == 0 {
		return nil
	}
	defer func() { metrics.IncSave(backendName, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolver.Path()
	if err != nil {
		return err
	}

	unlock := lockPath(path)
	defer unlock()

	current, err := s.readCurrent(ctx, path)
	if err != nil {
		return err
	}

	kept, removed := RemoveNames(current, names)
	if removed == 0 {
		return nil
	}
	return s.write(path, kept)
}

func (s *FileStore) readCurrent(ctx context.Context, path string) ([]models.Task, error) {
	policy := worker.RetryPolicy{
		MaxRetries:    s.opts.MaxReadAttempts,
		InitialDelay:  2 * s.opts.BaseBackoff,
		BackoffFactor: 2,
	}

	var current []models.Task
	err := policy.Do(ctx, func(int) error {
		tasks, err := s.loadPath(path)
		if err != nil {
			return err
		}
		current = tasks
		return nil
	}, func(attempt int, err error) {
		metrics.IncReadRetry()
		s.logger.Warn().Err(err).Str("path", path).Int("attempt", attempt).
			Dur("backoff", policy.NextDelay(attempt)).Msg("Reading current tasks failed, retrying")
	})

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, newError("save", path, ErrPersistentReadFailure, err)
	}
	return current, nil
}

func (s *FileStore) write(path string, tasks []models.Task) error {
	data, err := Encode(tasks)
	if err != nil {
		return newError("save", path, ErrWriteFailure, err)
	}
	if err := WriteAtomic(path, data, 0o644); err != nil {
		return newError("save", path, ErrWriteFailure, err)
	}

	removed, err := SweepTemps(path, s.opts.StaleTempAge, s.now())
	metrics.AddSwept(removed)
	if err != nil {
		s.logger.Debug().Err(err).Str("path", path).Msg("Temp sweep skipped")
	} else if removed > 0 {
		s.logger.Debug().Int("removed", removed).Str("path", path).Msg("Removed stray temp files")
	}

	s.logger.Debug().Int("tasks", len(tasks)).Str("path", path).Msg("Tasks saved")
	return nil
}

func (s *FileStore) clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return newError("clear", path, ErrWriteFailure, err)
	}
	s.logger.Info().Str("path", path).Msg("All tasks cleared")
	return nil
}
