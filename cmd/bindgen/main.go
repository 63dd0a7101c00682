package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"bindgen/internal/config"
	"bindgen/internal/generate"
	"bindgen/internal/report"
	"bindgen/internal/watcher"
)

var (
	configDir   = flag.String("config", "./config", "Path to the configuration directory")
	buildFolder = flag.String("build-folder", "./build", "Output folder; generated sources go to <build-folder>/src")
	reportDB    = flag.String("report-db", "", "Optional sqlite database recording per-run statistics")
	watch       = flag.Bool("watch", false, "Regenerate when headers or configuration change")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	version     = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("bindgen v%s\n", VERSION)
		os.Exit(0)
	}

	// Generated sources go to stdout-adjacent files, diagnostics to
	// stderr so the tool composes in build scripts.
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if info, err := os.Stat(*configDir); err != nil || !info.IsDir() {
		slog.Error("configuration directory not found", "path", *configDir)
		os.Exit(1)
	}
	// The build folder must exist; only the src subdirectory is created
	// on demand.
	if info, err := os.Stat(*buildFolder); err != nil || !info.IsDir() {
		slog.Error("build folder not found", "path", *buildFolder)
		os.Exit(1)
	}

	cfg, subs, err := config.Load(*configDir)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	var store *report.Store
	if *reportDB != "" {
		store, err = report.Open(*reportDB)
		if err != nil {
			slog.Error("failed to open report database", "error", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	run := func() bool {
		rep := report.New()
		gen := generate.New(cfg, subs, *buildFolder, rep)
		if err := gen.Run(context.Background()); err != nil {
			slog.Error("generation failed", "error", err)
			return false
		}
		fmt.Fprint(os.Stderr, rep.Summary())
		if store != nil {
			rec := report.RunRecord{ID: uuid.NewString(), Timestamp: time.Now().UTC(), Stats: rep.Stats()}
			if err := store.SaveRun(rec); err != nil {
				slog.Warn("failed to record run", "error", err)
			}
		}
		return true
	}

	ok := run()
	if !*watch {
		if !ok {
			os.Exit(1)
		}
		return
	}

	// Watch mode keeps running after a failed regeneration; the next
	// save gets another chance.
	w, err := watcher.New(300*time.Millisecond, []string{filepath.Base(*buildFolder)}, func(changed []string) {
		slog.Info("change detected, regenerating", "files", len(changed))
		if newCfg, newSubs, err := config.Load(*configDir); err != nil {
			slog.Error("failed to reload configuration", "error", err)
		} else {
			cfg, subs = newCfg, newSubs
		}
		run()
	})
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}
	defer w.Close()

	if err := w.Watch(watchPaths(subs, *configDir)); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}

	select {}
}

// watchPaths collects the configuration directory and every submodule's
// header directory, deduplicated.
func watchPaths(subs []*config.Submodule, configDir string) []string {
	seen := map[string]struct{}{configDir: {}}
	paths := []string{configDir}
	for _, sub := range subs {
		if sub.HeaderDir == "" {
			continue
		}
		if _, ok := seen[sub.HeaderDir]; ok {
			continue
		}
		seen[sub.HeaderDir] = struct{}{}
		paths = append(paths, sub.HeaderDir)
	}
	return paths
}
