package pagectl

import (
	"context"
	"log/slog"
	"time"
)

// Scrollable scrolls a page by dy pixels and reports whether the viewport
// is at the bottom of the document.
type Scrollable interface {
	ScrollBy(ctx context.Context, dy int) (atBottom bool, err error)
}

// ScrollConfig holds the scroll tunables of the active profile.
type ScrollConfig struct {
	Step        int           // pixels per step. Default: 1000
	Delay       time.Duration // pause after each step. Default: 500ms
	MaxAttempts int           // hard cap on steps. Default: 200
	Logger      *slog.Logger
}

func (c *ScrollConfig) defaults() {
	if c.Step <= 0 {
		c.Step = 1000
	}
	if c.Delay <= 0 {
		c.Delay = 500 * time.Millisecond
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 200
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ScrollResult is the outcome of ScrollToBottom.
type ScrollResult struct {
	Attempts      int           `json:"attempts"`
	ReachedBottom bool          `json:"reached_bottom"`
	Duration      time.Duration `json:"duration"`
	Error         string        `json:"error,omitempty"`
}

// Scroller steps down a page until the bottom holds still.
type Scroller struct {
	cfg ScrollConfig
}

// NewScroller creates a Scroller.
func NewScroller(cfg ScrollConfig) *Scroller {
	cfg.defaults()
	return &Scroller{cfg: cfg}
}

// ScrollToBottom scrolls step by step, pausing Delay after each step so
// lazy content can load. The bottom counts as reached only when two
// consecutive steps report it: content appended during the pause pushes the
// bottom further down. Stops after MaxAttempts steps, on error, or when ctx
// ends.
func (s *Scroller) ScrollToBottom(ctx context.Context, page Scrollable) ScrollResult {
	start := time.Now()
	log := s.cfg.Logger
	var res ScrollResult
	seenBottom := false

	for res.Attempts < s.cfg.MaxAttempts {
		res.Attempts++
		atBottom, err := page.ScrollBy(ctx, s.cfg.Step)
		if err != nil {
			res.Error = err.Error()
			log.Warn("pagectl: scroll failed", "attempt", res.Attempts, "error", err)
			break
		}
		if atBottom && seenBottom {
			res.ReachedBottom = true
			break
		}
		seenBottom = atBottom

		t := time.NewTimer(s.cfg.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			res.Error = ctx.Err().Error()
			res.Duration = time.Since(start)
			return res
		case <-t.C:
		}
	}

	res.Duration = time.Since(start)
	if res.ReachedBottom {
		log.Info("pagectl: page fully scrolled", "attempts", res.Attempts, "duration", res.Duration)
	} else if res.Error == "" {
		log.Warn("pagectl: scroll limit reached", "attempts", res.Attempts)
	}
	return res
}
