// Command expandall opens a discussion page and expands every collapsed
// thread and "load more" control until nothing is left to expand.
//
// Usage:
//
//	expandall -url https://kozi.example/post/1            # default Kozi tasks
//	expandall -config expandall.yaml                      # tasks from YAML
//	expandall -url https://... -out ./dump -debug -headful
//
// Progress is written to stdout as JSON lines, logs go to stderr.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/hazyhaar/expandall/internal/config"
	"github.com/hazyhaar/expandall/runner"
)

func main() {
	configPath := flag.String("config", "", "path to expandall.yaml config file")
	pageURL := flag.String("url", "", "page to expand (overrides page.url)")
	debug := flag.Bool("debug", envBool("EXPANDALL_DEBUG"), "use the debug profile (env EXPANDALL_DEBUG)")
	outDir := flag.String("out", "", "export directory (overrides export.dir)")
	region := flag.String("region", "", "selector of the exported region (overrides export.region)")
	remote := flag.String("remote", "", "DevTools URL of a running Chrome (overrides browser.remote)")
	headful := flag.Bool("headful", false, "run Chrome headful under Xvfb")
	noScroll := flag.Bool("no-scroll", false, "skip the final auto-scroll")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	// Per-item activation logs are debug records.
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := loadConfig(*configPath, *pageURL)
	if err != nil {
		logger.Error("expandall: fatal", "error", err)
		os.Exit(1)
	}
	if *debug {
		cfg.Debug = true
	}
	if *outDir != "" {
		cfg.Export.Dir = *outDir
	}
	if *region != "" {
		cfg.Export.Region = *region
	}
	if *remote != "" {
		cfg.Browser.Remote = *remote
	}
	if *headful {
		cfg.Browser.Stealth = "headful"
	}
	if *noScroll {
		off := false
		cfg.Page.Scroll = &off
	}

	if cfg.Page.URL == "" {
		fmt.Fprintln(os.Stderr, "usage: expandall -url <url> | -config <file>")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := runner.New(cfg, logger, os.Stdout)
	if err := r.Run(ctx); err != nil {
		logger.Error("expandall: fatal", "error", err, "run_id", r.RunID())
		stop()
		os.Exit(1)
	}
}

func loadConfig(path, url string) (*config.Config, error) {
	if path == "" {
		return config.Default(url), nil
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if url != "" {
		cfg.Page.URL = url
	}
	return cfg, nil
}

func envBool(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}
