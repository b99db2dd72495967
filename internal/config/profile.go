package config

import (
	"time"

	"github.com/hazyhaar/expandall/expand"
)

// Profile names.
const (
	ProfileNormal = "normal"
	ProfileDebug  = "debug"
)

// Task kinds. The kind picks the profile batch size.
const (
	KindDiscussion = "discussion"
	KindComment    = "comment"
)

// Profile is a fixed set of tunables, read-only for the lifetime of a run.
type Profile struct {
	DiscussionBatchSize int           `yaml:"discussion_batch_size"`
	CommentBatchSize    int           `yaml:"comment_batch_size"`
	RetryTimeout        time.Duration `yaml:"retry_timeout"`
	MutationTimeout     time.Duration `yaml:"mutation_timeout"`
	ScrollStep          int           `yaml:"scroll_step"` // pixels
	ScrollDelay         time.Duration `yaml:"scroll_delay"`
	MaxScrollAttempts   int           `yaml:"max_scroll_attempts"`
}

// NormalProfile is the production profile.
func NormalProfile() Profile {
	return Profile{
		DiscussionBatchSize: 30,
		CommentBatchSize:    50,
		RetryTimeout:        10 * time.Second,
		MutationTimeout:     8 * time.Second,
		ScrollStep:          1000,
		ScrollDelay:         500 * time.Millisecond,
		MaxScrollAttempts:   200,
	}
}

// DebugProfile uses small batches and slow scrolling so a headful run can
// be followed by eye.
func DebugProfile() Profile {
	return Profile{
		DiscussionBatchSize: 5,
		CommentBatchSize:    10,
		RetryTimeout:        30 * time.Second,
		MutationTimeout:     2500 * time.Millisecond,
		ScrollStep:          400,
		ScrollDelay:         1500 * time.Millisecond,
		MaxScrollAttempts:   20,
	}
}

// merge fills the zero fields of p from base.
func (p Profile) merge(base Profile) Profile {
	if p.DiscussionBatchSize <= 0 {
		p.DiscussionBatchSize = base.DiscussionBatchSize
	}
	if p.CommentBatchSize <= 0 {
		p.CommentBatchSize = base.CommentBatchSize
	}
	if p.RetryTimeout <= 0 {
		p.RetryTimeout = base.RetryTimeout
	}
	if p.MutationTimeout <= 0 {
		p.MutationTimeout = base.MutationTimeout
	}
	if p.ScrollStep <= 0 {
		p.ScrollStep = base.ScrollStep
	}
	if p.ScrollDelay <= 0 {
		p.ScrollDelay = base.ScrollDelay
	}
	if p.MaxScrollAttempts <= 0 {
		p.MaxScrollAttempts = base.MaxScrollAttempts
	}
	return p
}

// BatchSize returns the batch size for a task kind.
func (p Profile) BatchSize(kind string) int {
	if kind == KindDiscussion {
		return p.DiscussionBatchSize
	}
	return p.CommentBatchSize
}

// ExpandConfig returns the engine timings of the profile.
func (p Profile) ExpandConfig() expand.Config {
	return expand.Config{
		MutationTimeout: p.MutationTimeout,
		RetryTimeout:    p.RetryTimeout,
	}
}

// Tasks builds the engine tasks from the configured task list, in order.
func (c *Config) Tasks() []expand.Task {
	prof := c.Active()
	out := make([]expand.Task, 0, len(c.Page.Tasks))
	for _, t := range c.Page.Tasks {
		size := t.BatchSize
		if size <= 0 {
			size = prof.BatchSize(t.Kind)
		}
		out = append(out, expand.Task{
			Label:             t.Label,
			ControlSelector:   t.Control,
			ContainerSelector: t.Container,
			BatchSize:         size,
		})
	}
	return out
}
