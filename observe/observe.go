// Package observe waits for new content to appear in a container after a
// control has been activated.
//
// An observation is a single-shot future (Pending) with a timeout attached.
// It never fails: a missing container resolves immediately and an absent
// signal resolves as TimedOut, so callers always proceed.
package observe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hazyhaar/expandall/dom"
)

// Outcome is the result kind of one observation.
type Outcome int

const (
	Mutated          Outcome = iota + 1 // nodes were added under the container
	TimedOut                            // nothing observed within the timeout
	ContainerMissing                    // no container to observe, resolved at once
)

func (o Outcome) String() string {
	switch o {
	case Mutated:
		return "mutated"
	case TimedOut:
		return "timed_out"
	case ContainerMissing:
		return "container_missing"
	}
	return "unknown"
}

// MarshalText renders the outcome by name in JSON reports and map keys.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result is the resolved value of an observation.
type Result struct {
	Outcome  Outcome
	Selector string
	Elapsed  time.Duration
	// Err carries the reason for a ContainerMissing caused by a driver
	// failure, or the context error of a cancelled observation.
	Err error
}

// DefaultTimeout applies when New is given a non-positive timeout.
const DefaultTimeout = 8 * time.Second

// Observer creates observations against one page.
type Observer struct {
	page    dom.Page
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an Observer. timeout bounds every observation.
func New(page dom.Page, timeout time.Duration, logger *slog.Logger) *Observer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{page: page, timeout: timeout, logger: logger}
}

// Timeout returns the per-observation timeout.
func (o *Observer) Timeout() time.Duration { return o.timeout }

// AwaitNewContent blocks until new nodes appear under the first element
// matching selector, the timeout elapses, or the container is missing.
func (o *Observer) AwaitNewContent(ctx context.Context, selector string) Result {
	return o.Start(ctx, selector).Wait()
}

// Start subscribes to the container and returns the pending observation.
// The subscription is live when Start returns.
func (o *Observer) Start(ctx context.Context, selector string) *Pending {
	start := time.Now()

	w, err := o.page.WatchChildList(ctx, selector)
	if err != nil {
		res := Result{Outcome: ContainerMissing, Selector: selector, Elapsed: time.Since(start)}
		if errors.Is(err, dom.ErrNoMatch) {
			o.logger.Warn("observe: container not found, skipping", "selector", selector)
		} else {
			res.Err = err
			o.logger.Warn("observe: watch failed, skipping", "selector", selector, "error", err)
		}
		return resolved(res)
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pending{done: make(chan struct{}), cancel: cancel}

	go func() {
		defer close(p.done)
		defer cancel()
		defer w.Close()

		timer := time.NewTimer(o.timeout)
		defer timer.Stop()

		res := Result{Selector: selector}
		select {
		case <-w.Added():
			res.Outcome = Mutated
			o.logger.Debug("observe: new content detected", "selector", selector)
		case <-timer.C:
			res.Outcome = TimedOut
			o.logger.Warn("observe: timeout expired without new content",
				"selector", selector, "timeout", o.timeout)
		case <-ctx.Done():
			res.Outcome = TimedOut
			res.Err = ctx.Err()
		}
		res.Elapsed = time.Since(start)
		p.res = res
	}()

	return p
}

// Pending is a single-shot observation in flight.
type Pending struct {
	done   chan struct{}
	res    Result
	cancel context.CancelFunc
}

func resolved(res Result) *Pending {
	p := &Pending{done: make(chan struct{}), res: res, cancel: func() {}}
	close(p.done)
	return p
}

// Done is closed once the observation has resolved and its watch is closed.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the observation resolves and returns its result.
func (p *Pending) Wait() Result {
	<-p.done
	return p.res
}

// Cancel abandons the observation. It resolves as TimedOut with Err set.
// No-op once resolved.
func (p *Pending) Cancel() { p.cancel() }
