package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskminder/internal/events"
	"taskminder/internal/models"
	"taskminder/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTaskStore struct {
	mock.Mock
}

func (m *MockTaskStore) Load(ctx context.Context) ([]models.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Task), args.Error(1)
}

func (m *MockTaskStore) Save(ctx context.Context, tasks []models.Task) error {
	args := m.Called(ctx, tasks)
	return args.Error(0)
}

func (m *MockTaskStore) Remove(ctx context.Context, names ...string) error {
	args := m.Called(ctx, names)
	return args.Error(0)
}

type recordingNotifier struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, task models.Task) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.names = append(n.names, task.Name)
	return n.err
}

func (n *recordingNotifier) seen() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.names...)
}

func at(now time.Time, ago time.Duration) *time.Time {
	ts := now.Add(-ago)
	return &ts
}

func fixture(now time.Time) []models.Task {
	return []models.Task{
		{Name: "daily-due", Interval: models.IntervalDaily, LastRun: at(now, 48*time.Hour), Enabled: true},
		{Name: "daily-recent", Interval: models.IntervalDaily, LastRun: at(now, 23*time.Hour), Enabled: true},
		{Name: "disabled", Interval: models.IntervalHourly, Enabled: false},
		{Name: "never-run", Interval: models.IntervalWeekly, Enabled: true},
		{Name: "future", Interval: models.IntervalHourly, LastRun: at(now, -time.Hour), Enabled: true},
	}
}

func TestDue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	due := Due(fixture(now), now)
	require.Len(t, due, 2)
	assert.Equal(t, "daily-due", due[0].Name)
	assert.Equal(t, "never-run", due[1].Name)

	assert.Empty(t, Due(nil, now))
}

func TestChecker_RunOnce(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	logger := zerolog.Nop()
	ctx := context.Background()

	t.Run("MarksAndSavesDueOnly", func(t *testing.T) {
		store := new(MockTaskStore)
		notifier := &recordingNotifier{}
		bus := events.NewEventBus()
		var published []events.TaskEventPayload
		bus.Subscribe(events.EventTaskDue, func(event *events.Event) error {
			p, err := event.Decode()
			published = append(published, p)
			return err
		})

		store.On("Load", ctx).Return(fixture(now), nil).Once()
		store.On("Save", ctx, mock.MatchedBy(func(tasks []models.Task) bool {
			if len(tasks) != 2 {
				return false
			}
			for _, task := range tasks {
				if task.LastRun == nil || !task.LastRun.Equal(now) {
					return false
				}
			}
			return tasks[0].Name == "daily-due" && tasks[1].Name == "never-run"
		})).Return(nil).Once()

		c := NewChecker(store, bus, notifier, time.Minute, &logger)
		due, err := c.RunOnce(ctx, now)
		require.NoError(t, err)
		assert.Len(t, due, 2)
		assert.Equal(t, []string{"daily-due", "never-run"}, notifier.seen())

		require.Len(t, published, 2)
		assert.NotEmpty(t, published[0].RunID)
		assert.Equal(t, published[0].RunID, published[1].RunID)
		store.AssertExpectations(t)
	})

	t.Run("NothingDue", func(t *testing.T) {
		store := new(MockTaskStore)
		store.On("Load", ctx).Return([]models.Task{{Name: "off", Interval: models.IntervalDaily}}, nil).Once()

		c := NewChecker(store, nil, nil, time.Minute, &logger)
		due, err := c.RunOnce(ctx, now)
		require.NoError(t, err)
		assert.Empty(t, due)
		store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("LoadError", func(t *testing.T) {
		store := new(MockTaskStore)
		store.On("Load", ctx).Return(nil, errors.New("disk gone")).Once()

		c := NewChecker(store, nil, nil, time.Minute, &logger)
		_, err := c.RunOnce(ctx, now)
		assert.ErrorContains(t, err, "disk gone")
	})

	t.Run("SaveErrorSkipsNotify", func(t *testing.T) {
		store := new(MockTaskStore)
		notifier := &recordingNotifier{}
		store.On("Load", ctx).Return(fixture(now), nil).Once()
		store.On("Save", ctx, mock.Anything).Return(errors.New("read-only")).Once()

		c := NewChecker(store, nil, notifier, time.Minute, &logger)
		_, err := c.RunOnce(ctx, now)
		assert.Error(t, err)
		assert.Empty(t, notifier.seen())
	})

	t.Run("NotifyErrorDoesNotFail", func(t *testing.T) {
		store := new(MockTaskStore)
		notifier := &recordingNotifier{err: errors.New("closed")}
		store.On("Load", ctx).Return(fixture(now), nil).Once()
		store.On("Save", ctx, mock.Anything).Return(nil).Once()

		c := NewChecker(store, nil, notifier, time.Minute, &logger)
		due, err := c.RunOnce(ctx, now)
		require.NoError(t, err)
		assert.Len(t, due, 2)
		assert.Len(t, notifier.seen(), 2)
	})
}

func TestChecker_KeepsOtherTasks(t *testing.T) {
	now := time.Now()
	ctx := context.Background()
	store := repository.NewMemoryTaskStore(fixture(now)...)

	c := NewChecker(store, nil, nil, time.Minute, nil)
	_, err := c.RunOnce(ctx, now)
	require.NoError(t, err)

	tasks, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 5)
	for _, task := range tasks {
		assert.False(t, task.ShouldRun(now), task.Name)
	}
	assert.True(t, tasks[1].LastRun.Equal(now.Add(-23*time.Hour)))

	// A second cycle at the same instant finds nothing.
	due, err := c.RunOnce(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestChecker_Start(t *testing.T) {
	store := repository.NewMemoryTaskStore(models.Task{Name: "water", Interval: models.IntervalHourly, Enabled: true})
	notifier := &recordingNotifier{}
	c := NewChecker(store, nil, notifier, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(notifier.seen()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("checker did not stop")
	}
	// Hourly task is not due again within the test window.
	assert.Equal(t, []string{"water"}, notifier.seen())
}

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf, 0, 0)

	ctx := context.Background()
	require.NoError(t, n.Notify(ctx, models.Task{Name: "Water plants", Interval: models.IntervalDaily}))
	require.NoError(t, n.Notify(ctx, models.Task{Name: "Stretch", Interval: models.IntervalHourly}))

	assert.Equal(t, "Reminder: Water plants (Daily)\nReminder: Stretch (Hourly)\n", buf.String())
}

func TestWriterNotifier_CanceledWait(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf, 0.001, 1)
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, models.Task{Name: "first", Interval: models.IntervalDaily}))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, n.Notify(canceled, models.Task{Name: "second", Interval: models.IntervalDaily}))
	assert.Equal(t, "Reminder: first (Daily)\n", buf.String())
}
