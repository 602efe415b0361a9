package models

import (
	"errors"
	"sort"
	"strings"
)

// KeyPrefix is prepended to a task label to form its storage key.
const KeyPrefix = "/"

// Task represents a single to-do item. The label doubles as its identity.
type Task struct {
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

// Validate checks that the task has a usable label.
func (t *Task) Validate() error {
	return ValidateLabel(t.Label)
}

// Key returns the storage key for the task.
func (t *Task) Key() string {
	return KeyFor(t.Label)
}

// ValidateLabel reports whether label can be stored as a task.
// Labels are compared exactly; any non-empty text, whitespace included, is a
// valid label.
func ValidateLabel(label string) error {
	if label == "" {
		return errors.New("label is required")
	}
	return nil
}

// KeyFor returns the storage key for a label.
func KeyFor(label string) string {
	return KeyPrefix + label
}

// LabelFromKey strips the storage prefix from key.
// The second return value is false if key is not a task key.
func LabelFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, KeyPrefix) || len(key) == len(KeyPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, KeyPrefix), true
}

// TaskMap maps task labels to their completion flag.
type TaskMap map[string]bool

// Has reports whether a task with exactly this label exists.
func (m TaskMap) Has(label string) bool {
	_, ok := m[label]
	return ok
}

// Clone returns an independent copy of the map. A nil map clones to an empty one.
func (m TaskMap) Clone() TaskMap {
	out := make(TaskMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Labels returns the labels in sorted order for stable rendering.
func (m TaskMap) Labels() []string {
	labels := make([]string, 0, len(m))
	for k := range m {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}

// Tasks returns the map as a slice ordered by label.
func (m TaskMap) Tasks() []Task {
	tasks := make([]Task, 0, len(m))
	for _, label := range m.Labels() {
		tasks = append(tasks, Task{Label: label, Done: m[label]})
	}
	return tasks
}

// Equal reports whether both maps hold the same labels with the same flags.
func (m TaskMap) Equal(other TaskMap) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		ov, ok := other[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}
