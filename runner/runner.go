// Package runner is the expandall orchestrator: it opens the page in Chrome,
// hides unrelated UI chrome, runs every expansion task in order, scrolls to
// the bottom and exports the result.
//
// Only setup failures (browser launch, navigation) are returned. Everything
// that happens on the page is best-effort and reported, never fatal.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hazyhaar/expandall/dom"
	"github.com/hazyhaar/expandall/expand"
	"github.com/hazyhaar/expandall/internal/browser"
	"github.com/hazyhaar/expandall/internal/config"
	"github.com/hazyhaar/expandall/internal/export"
	"github.com/hazyhaar/expandall/internal/idgen"
	"github.com/hazyhaar/expandall/internal/pagectl"
	"github.com/hazyhaar/expandall/internal/report"
)

// Page is everything the runner does to a live page.
type Page interface {
	dom.Page
	pagectl.Hider
	pagectl.Scrollable
}

// SnapshotFunc returns the serialised DOM of the page.
type SnapshotFunc func(ctx context.Context) ([]byte, error)

// Runner runs one configuration against one page. Create one per run.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	out      *report.Writer
	runID    string
	exporter *export.Exporter
}

// Option configures a Runner.
type Option func(*options)

type options struct {
	newID idgen.Generator
}

// WithIDGenerator sets the run ID generator. Default: idgen.Default (UUIDv7).
func WithIDGenerator(gen idgen.Generator) Option {
	return func(o *options) { o.newID = gen }
}

// New creates a Runner. Reports go to w (nil = stdout).
func New(cfg *config.Config, logger *slog.Logger, w io.Writer, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{newID: idgen.Default}
	for _, opt := range opts {
		opt(&o)
	}
	runID := o.newID()
	return &Runner{
		cfg:      cfg,
		logger:   logger.With("run_id", runID),
		out:      report.New(w, runID),
		runID:    runID,
		exporter: export.New(),
	}
}

// RunID returns the UUIDv7 identifying this run in logs and reports.
func (r *Runner) RunID() string { return r.runID }

// Run launches the browser, opens the configured page and expands it.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.cfg.Validate(); err != nil {
		return err
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        r.cfg.Browser.Remote,
		Mode:             browser.ParseMode(r.cfg.Browser.Stealth),
		XvfbDisplay:      r.cfg.Browser.XvfbDisplay,
		ResourceBlocking: r.cfg.Browser.ResourceBlocking,
		Logger:           r.logger,
	})
	defer mgr.Close()

	if _, err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("runner: start browser: %w", err)
	}

	tab, err := browser.OpenTab(ctx, mgr, r.cfg.Page.URL, browser.TabOptions{
		NavigationTimeout: r.cfg.Browser.NavigationTimeout,
	})
	if err != nil {
		return fmt.Errorf("runner: open tab: %w", err)
	}
	defer tab.Close()

	doc, err := browser.NewDocument(ctx, tab, r.logger)
	if err != nil {
		return fmt.Errorf("runner: attach document: %w", err)
	}
	defer doc.Close()

	r.Expand(ctx, doc, tab.GetFullDOM)
	return nil
}

// Expand runs the page pipeline against an already opened page and returns
// the run summary, which is also reported.
func (r *Runner) Expand(ctx context.Context, page Page, snapshot SnapshotFunc) report.Run {
	start := time.Now()
	prof := r.cfg.Active()
	profName := config.ProfileNormal
	if r.cfg.Debug {
		profName = config.ProfileDebug
	}
	sum := report.Run{URL: r.cfg.Page.URL, Profile: profName}

	r.logger.Info("runner: expanding page", "url", r.cfg.Page.URL, "profile", profName)

	sum.Hidden = pagectl.HideChrome(ctx, page, r.cfg.Page.Hide, r.logger)

	ecfg := prof.ExpandConfig()
	ecfg.Logger = r.logger
	exp := expand.New(page, ecfg)

	for _, task := range r.cfg.Tasks() {
		rep := exp.Run(ctx, task)
		sum.Tasks++
		sum.Activations += rep.Activations
		r.emit(report.TypeTask, rep)
		if rep.Interrupted {
			sum.Interrupted = true
			break
		}
	}

	if !sum.Interrupted && r.cfg.ScrollEnabled() {
		s := pagectl.NewScroller(pagectl.ScrollConfig{
			Step:        prof.ScrollStep,
			Delay:       prof.ScrollDelay,
			MaxAttempts: prof.MaxScrollAttempts,
			Logger:      r.logger,
		})
		r.emit(report.TypeScroll, s.ScrollToBottom(ctx, page))
	}

	if !sum.Interrupted && r.cfg.Export.Dir != "" && snapshot != nil {
		r.exportPage(ctx, snapshot)
	}

	sum.Interrupted = sum.Interrupted || ctx.Err() != nil
	sum.Duration = time.Since(start)
	r.emit(report.TypeRun, sum)
	r.logger.Info("runner: done",
		"tasks", sum.Tasks, "activations", sum.Activations,
		"duration", sum.Duration, "interrupted", sum.Interrupted)
	return sum
}

func (r *Runner) exportPage(ctx context.Context, snapshot SnapshotFunc) {
	raw, err := snapshot(ctx)
	if err != nil {
		r.logger.Error("runner: snapshot failed", "error", err)
		return
	}

	doc, err := r.exporter.Export(raw, export.Options{
		PageURL: r.cfg.Page.URL,
		Region:  r.cfg.Export.Region,
	})
	if err != nil {
		r.logger.Error("runner: export failed", "error", err)
		return
	}
	if r.cfg.Export.Region != "" && doc.Regions == 0 {
		r.logger.Warn("runner: export region not found, exporting body", "region", r.cfg.Export.Region)
	}

	files, err := doc.WriteFiles(r.cfg.Export.Dir, r.cfg.Export.Name, r.cfg.MarkdownEnabled())
	if err != nil {
		r.logger.Error("runner: write export failed", "error", err)
	}
	r.emit(report.TypeExport, report.Export{
		Files:   files,
		Hash:    doc.Hash,
		Regions: doc.Regions,
		Title:   doc.Title,
	})
	r.logger.Info("runner: page exported", "files", len(files), "size", len(raw))
}

func (r *Runner) emit(typ string, data any) {
	if err := r.out.Write(typ, data); err != nil {
		r.logger.Error("runner: write report failed", "type", typ, "error", err)
	}
}
