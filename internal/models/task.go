package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Interval is how often a task should run.
type Interval string

const (
	IntervalHourly Interval = "Hourly"
	IntervalDaily  Interval = "Daily"
	IntervalWeekly Interval = "Weekly"
)

// Period returns the minimum time between two runs. Unknown values behave as Daily.
func (i Interval) Period() time.Duration {
	switch i {
	case IntervalHourly:
		return time.Hour
	case IntervalWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func (i Interval) Valid() bool {
	switch i {
	case IntervalHourly, IntervalDaily, IntervalWeekly:
		return true
	default:
		return false
	}
}

func (i Interval) String() string {
	return string(i)
}

// UnmarshalJSON accepts only the canonical spellings.
func (i *Interval) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v := Interval(s)
	if !v.Valid() {
		return fmt.Errorf("unknown interval %q", s)
	}
	*i = v
	return nil
}

// ParseInterval matches hourly/weekly case-insensitively; anything else,
// including padded spellings, is Daily.
func ParseInterval(s string) Interval {
	switch strings.ToLower(s) {
	case "hourly":
		return IntervalHourly
	case "weekly":
		return IntervalWeekly
	default:
		return IntervalDaily
	}
}

// Task is a named reminder. Name is the merge key in every store.
type Task struct {
	Name     string     `json:"name"`
	Interval Interval   `json:"interval"`
	LastRun  *time.Time `json:"last_run"`
	Enabled  bool       `json:"enabled"`
}

// NewTask returns a disabled task that has never run.
func NewTask(name string, interval Interval) Task {
	return Task{
		Name:     name,
		Interval: interval,
	}
}

// ShouldRun reports whether the task is due at now. A last run in the future
// is never due.
func (t Task) ShouldRun(now time.Time) bool {
	if !t.Enabled {
		return false
	}
	if t.LastRun == nil {
		return true
	}
	return now.Sub(*t.LastRun) >= t.Interval.Period()
}

// MarkComplete records a run at now.
func (t *Task) MarkComplete(now time.Time) {
	ts := now
	t.LastRun = &ts
}

// Equal compares all persisted fields; timestamps are compared as instants.
func (t Task) Equal(other Task) bool {
	if t.Name != other.Name || t.Interval != other.Interval || t.Enabled != other.Enabled {
		return false
	}
	if t.LastRun == nil || other.LastRun == nil {
		return t.LastRun == nil && other.LastRun == nil
	}
	return t.LastRun.Equal(*other.LastRun)
}

// Clone copies the task including its timestamp.
func (t Task) Clone() Task {
	if t.LastRun != nil {
		ts := *t.LastRun
		t.LastRun = &ts
	}
	return t
}

// CloneTasks deep-copies a slice of tasks.
func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
