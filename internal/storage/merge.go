package storage

import "taskminder/internal/models"

// Merge overlays incoming onto current by name. A known name is replaced in
// place, a new name is appended in incoming order, and duplicate names
// collapse into the first position holding the last value.
func Merge(current, incoming []models.Task) []models.Task {
	merged := make([]models.Task, 0, len(current)+len(incoming))
	index := make(map[string]int, len(current)+len(incoming))

	put := func(task models.Task) {
		if pos, ok := index[task.Name]; ok {
			merged[pos] = task.Clone()
			return
		}
		index[task.Name] = len(merged)
		merged = append(merged, task.Clone())
	}

	for _, task := range current {
		put(task)
	}
	for _, task := range incoming {
		put(task)
	}
	return merged
}

// RemoveNames drops every task whose name is listed and reports how many
// records were removed.
func RemoveNames(current []models.Task, names []string) ([]models.Task, int) {
	drop := make(map[string]struct{}, len(names))
	for _, name := range names {
		drop[name] = struct{}{}
	}

	kept := make([]models.Task, 0, len(current))
	for _, task := range current {
		if _, ok := drop[task.Name]; ok {
			continue
		}
		kept = append(kept, task.Clone())
	}
	return kept, len(current) - len(kept)
}
