// Package expand implements the batched expansion engine: it re-queries the
// page for expandable controls, activates them batch by batch while waiting
// for the new content each one produces, and stops once a fresh query finds
// nothing left to expand.
//
// The engine is best-effort. Activation failures are contained per batch,
// logged and followed by a fixed back-off; they never stop a run.
package expand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/expandall/dom"
	"github.com/hazyhaar/expandall/observe"
)

// DefaultRetryTimeout applies when Config.RetryTimeout is not positive.
const DefaultRetryTimeout = 10 * time.Second

// Config carries the timing tunables of one Expander.
type Config struct {
	// MutationTimeout bounds each wait for new content. Default: 8s.
	MutationTimeout time.Duration
	// RetryTimeout is the pause after a failed batch. Default: 10s.
	RetryTimeout time.Duration
	Logger       *slog.Logger
}

func (c *Config) defaults() {
	if c.MutationTimeout <= 0 {
		c.MutationTimeout = observe.DefaultTimeout
	}
	if c.RetryTimeout <= 0 {
		c.RetryTimeout = DefaultRetryTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Expander runs expansion tasks against one page.
type Expander struct {
	page   dom.Page
	obs    *observe.Observer
	retry  time.Duration
	logger *slog.Logger
}

// New creates an Expander for page.
func New(page dom.Page, cfg Config) *Expander {
	cfg.defaults()
	return &Expander{
		page:   page,
		obs:    observe.New(page, cfg.MutationTimeout, cfg.Logger),
		retry:  cfg.RetryTimeout,
		logger: cfg.Logger,
	}
}

// Report summarises one Run.
type Report struct {
	Task          string                  `json:"task"`
	Passes        int                     `json:"passes"` // queries performed
	Batches       int                     `json:"batches"`
	BatchSizes    []int                   `json:"batch_sizes"`
	Activations   int                     `json:"activations"`
	FailedBatches int                     `json:"failed_batches"`
	QueryFailures int                     `json:"query_failures"`
	Outcomes      map[observe.Outcome]int `json:"outcomes"`
	Duration      time.Duration           `json:"duration"`
	Interrupted   bool                    `json:"interrupted,omitempty"`
}

// Run expands every control matching task until a fresh query finds none.
// It only returns early if ctx is cancelled. An invalid task is logged and
// yields an empty report.
func (e *Expander) Run(ctx context.Context, task Task) Report {
	start := time.Now()
	rep := Report{Task: task.Label, Outcomes: make(map[observe.Outcome]int)}
	log := e.logger.With("task", task.Label)

	if err := task.Validate(); err != nil {
		log.Error("expand: invalid task", "error", err)
		return rep
	}

	for pass := 1; ; pass++ {
		if ctx.Err() != nil {
			rep.Interrupted = true
			break
		}

		rep.Passes++
		controls, err := e.page.QueryAll(ctx, task.ControlSelector)
		if err != nil {
			if ctx.Err() != nil {
				rep.Interrupted = true
				break
			}
			rep.QueryFailures++
			log.Error("expand: query failed, retrying", "pass", pass, "error", err, "backoff", e.retry)
			if !sleep(ctx, e.retry) {
				rep.Interrupted = true
				break
			}
			continue
		}

		if len(controls) == 0 {
			log.Info("expand: nothing left to expand", "passes", rep.Passes)
			break
		}

		log.Info("expand: pass", "pass", pass, "found", len(controls))
		if !e.runPass(ctx, task, controls, &rep) {
			rep.Interrupted = true
			break
		}
	}

	rep.Duration = time.Since(start)
	log.Info("expand: task complete",
		"passes", rep.Passes,
		"batches", rep.Batches,
		"activations", rep.Activations,
		"failed_batches", rep.FailedBatches,
		"duration", rep.Duration,
		"interrupted", rep.Interrupted)
	return rep
}

// runPass processes every batch of one query result in order. It returns
// false if ctx was cancelled.
func (e *Expander) runPass(ctx context.Context, task Task, controls []dom.Element, rep *Report) bool {
	batches := Partition(controls, task.BatchSize)
	offset := 0

	for i, batch := range batches {
		e.logger.Info("expand: processing batch",
			"task", task.Label, "batch", i+1, "of", len(batches), "size", len(batch))

		res := e.runBatch(ctx, task, batch, offset, len(controls))
		offset += len(batch)

		rep.Batches++
		rep.BatchSizes = append(rep.BatchSizes, len(batch))
		rep.Activations += res.Activated
		for _, r := range res.Observed {
			rep.Outcomes[r.Outcome]++
		}

		switch res.Outcome {
		case BatchSettled:
		case BatchFailed:
			rep.FailedBatches++
			e.logger.Error("expand: batch failed, backing off",
				"task", task.Label, "batch", i+1, "error", res.Err, "backoff", e.retry)
			if !sleep(ctx, e.retry) {
				return false
			}
		}

		if ctx.Err() != nil {
			return false
		}
	}
	return true
}

// BatchOutcome is the result kind of one batch round.
type BatchOutcome int

const (
	BatchSettled BatchOutcome = iota + 1 // every activation fired and its wait resolved
	BatchFailed                          // at least one activation raised
)

type batchResult struct {
	Outcome   BatchOutcome
	Err       error
	Activated int
	Observed  []observe.Result
}

// runBatch clicks every control of batch in query order, each paired with
// its own observation started just before the click, then waits for the
// observations. A failed click fails the batch: outstanding observations
// are cancelled and the joined errors returned.
func (e *Expander) runBatch(ctx context.Context, task Task, batch []dom.Element, offset, total int) batchResult {
	pending := make([]*observe.Pending, 0, len(batch))
	var errs []error

	for i, el := range batch {
		n := offset + i + 1
		e.logger.Debug("expand: activating",
			"task", task.Label, "item", fmt.Sprintf("%d/%d", n, total), "text", el.Label(ctx))

		p := e.obs.Start(ctx, task.ContainerSelector)
		if err := el.Activate(ctx); err != nil {
			p.Cancel()
			p.Wait()
			errs = append(errs, fmt.Errorf("activate %d/%d: %w", n, total, err))
			continue
		}
		pending = append(pending, p)
	}

	res := batchResult{Outcome: BatchSettled, Activated: len(pending)}
	if len(errs) > 0 {
		for _, p := range pending {
			p.Cancel()
		}
		for _, p := range pending {
			p.Wait()
		}
		res.Outcome = BatchFailed
		res.Err = errors.Join(errs...)
		return res
	}

	res.Observed = make([]observe.Result, 0, len(pending))
	for _, p := range pending {
		res.Observed = append(res.Observed, p.Wait())
	}
	return res
}

// sleep pauses for d. It returns false if ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
