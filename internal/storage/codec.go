package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskminder/internal/models"
)

// DecodeMode tells which path produced a decoded list.
type DecodeMode string

const (
	ModeStrict   DecodeMode = "strict"
	ModeTolerant DecodeMode = "tolerant"
)

// requiredKeys are matched byte for byte in the strict pass; encoding/json
// would match struct tags case-insensitively.
var requiredKeys = []string{"name", "interval", "enabled"}

var errMissingField = errors.New("missing required field")

// Encode renders tasks in the canonical pretty-printed array form.
func Encode(tasks []models.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []models.Task{}
	}
	return json.MarshalIndent(tasks, "", "  ")
}

// Decode parses a task document, strictly first and then field by field.
// Only a document that is not a JSON array fails.
func Decode(data []byte) ([]models.Task, DecodeMode, error) {
	if tasks, err := decodeStrict(data); err == nil {
		return tasks, ModeStrict, nil
	}

	tasks, err := decodeTolerant(data)
	if err != nil {
		return nil, ModeTolerant, err
	}
	return tasks, ModeTolerant, nil
}

func decodeStrict(data []byte) ([]models.Task, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("document is null")
	}

	out := make([]models.Task, 0, len(raw))
	for i, obj := range raw {
		if obj == nil {
			return nil, fmt.Errorf("element %d: not an object", i)
		}
		for _, key := range requiredKeys {
			if v, ok := obj[key]; !ok || isNull(v) {
				return nil, fmt.Errorf("element %d: %s: %w", i, key, errMissingField)
			}
		}

		var task models.Task
		if err := json.Unmarshal(obj["name"], &task.Name); err != nil {
			return nil, fmt.Errorf("element %d: name: %w", i, err)
		}
		if err := json.Unmarshal(obj["interval"], &task.Interval); err != nil {
			return nil, fmt.Errorf("element %d: interval: %w", i, err)
		}
		if err := json.Unmarshal(obj["enabled"], &task.Enabled); err != nil {
			return nil, fmt.Errorf("element %d: enabled: %w", i, err)
		}
		if v, ok := obj["last_run"]; ok && !isNull(v) {
			var ts time.Time
			if err := json.Unmarshal(v, &ts); err != nil {
				return nil, fmt.Errorf("element %d: last_run: %w", i, err)
			}
			local := ts.Local()
			task.LastRun = &local
		}
		out = append(out, task)
	}
	return out, nil
}

func isNull(v json.RawMessage) bool {
	return string(bytes.TrimSpace(v)) == "null"
}

// fieldDefaults is the projection table for the tolerant pass. Every rule
// leaves the zero default in place when the value is missing or mistyped.
var fieldDefaults = []struct {
	key   string
	apply func(task *models.Task, value any)
}{
	{"name", func(task *models.Task, value any) {
		if s, ok := value.(string); ok {
			task.Name = s
		}
	}},
	{"interval", func(task *models.Task, value any) {
		if s, ok := value.(string); ok {
			task.Interval = models.ParseInterval(s)
		}
	}},
	{"enabled", func(task *models.Task, value any) {
		if b, ok := value.(bool); ok {
			task.Enabled = b
		}
	}},
	{"last_run", func(task *models.Task, value any) {
		s, ok := value.(string)
		if !ok {
			return
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			local := ts.Local()
			task.LastRun = &local
		}
	}},
}

func decodeTolerant(data []byte) ([]models.Task, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing tasks JSON: %w", err)
	}

	items, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array of tasks, got %s", jsonKind(doc))
	}

	out := make([]models.Task, 0, len(items))
	for _, item := range items {
		task := models.Task{Interval: models.IntervalDaily}
		if obj, ok := item.(map[string]any); ok {
			for _, field := range fieldDefaults {
				if value, present := obj[field.key]; present {
					field.apply(&task, value)
				}
			}
		}
		out = append(out, task)
	}
	return out, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
