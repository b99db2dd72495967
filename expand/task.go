package expand

import (
	"fmt"
	"slices"
)

// Task identifies one class of expandable control. It is immutable once
// built and handed to a single Expander run.
type Task struct {
	Label             string // human-readable, e.g. "discussion"
	ControlSelector   string // controls to activate
	ContainerSelector string // region whose mutation counts as new content
	BatchSize         int    // controls activated concurrently per round
}

// Validate reports whether the task can be run.
func (t Task) Validate() error {
	if t.ControlSelector == "" {
		return fmt.Errorf("expand: task %q: empty control selector", t.Label)
	}
	if t.ContainerSelector == "" {
		return fmt.Errorf("expand: task %q: empty container selector", t.Label)
	}
	if t.BatchSize < 1 {
		return fmt.Errorf("expand: task %q: batch size %d, want >= 1", t.Label, t.BatchSize)
	}
	return nil
}

// Partition splits items into consecutive batches of size, the last one
// possibly shorter. Concatenating the batches yields items unchanged.
// size must be >= 1.
func Partition[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	return slices.Collect(slices.Chunk(items, size))
}
