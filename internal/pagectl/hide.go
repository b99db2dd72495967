// Package pagectl holds the page chores around an expansion run: hiding
// unrelated UI chrome before it starts and scrolling to the bottom after it
// ends so lazy-loaded content materialises.
package pagectl

import (
	"context"
	"log/slog"
)

// Hider hides the first element matching a selector.
type Hider interface {
	Hide(ctx context.Context, selector string) (bool, error)
}

// HideChrome hides every selector it can and returns how many elements were
// hidden. Missing elements and failures are logged, never fatal.
func HideChrome(ctx context.Context, h Hider, selectors []string, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	hidden := 0
	for _, sel := range selectors {
		ok, err := h.Hide(ctx, sel)
		switch {
		case err != nil:
			logger.Warn("pagectl: hide failed", "selector", sel, "error", err)
		case !ok:
			logger.Debug("pagectl: nothing to hide", "selector", sel)
		default:
			hidden++
		}
	}
	logger.Info("pagectl: chrome hidden", "hidden", hidden, "selectors", len(selectors))
	return hidden
}
