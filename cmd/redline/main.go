// Package main is the entry point for the redline note editor.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/redline/internal/app"
	"github.com/dshills/redline/internal/checker"
	"github.com/dshills/redline/internal/config"
	"github.com/dshills/redline/internal/filter"
	"github.com/dshills/redline/internal/notestore"
	"github.com/dshills/redline/internal/ui"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if opts.notesDir != "" {
		cfg.Notes.Dir = opts.notesDir
	}

	store, err := notestore.NewDirStore(cfg.Notes.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	client, err := newChecker(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	filters, err := filter.LoadDir(cfg.Filters.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer filters.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()

	// The view does not exist yet when the session is built, so the
	// handlers close over a pointer that is bound just below.
	var view *ui.UI
	session := app.NewSession(store,
		app.WithChecker(client),
		app.WithFindingFilter(filters.Filter),
		app.WithStatusHandler(func(msg string) {
			if view != nil {
				view.SetStatus(msg)
				view.Notify()
			}
		}),
		app.WithSetChangedHandler(func() {
			if view != nil {
				view.Notify()
			}
		}),
	)
	defer session.Close()

	view, err = ui.New(session, ui.ThemeByName(cfg.UI.Theme))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	watcher, err := view.WatchStore(store.Dir())
	if err == nil {
		defer watcher.Close()
	}

	for _, loadErr := range filters.Errs() {
		view.SetStatus(loadErr.Error())
	}

	if err := view.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// newChecker builds the configured checker backend.
func newChecker(cfg *config.Config) (checker.Client, error) {
	switch cfg.Checker.Provider {
	case config.ProviderLLM:
		var opts []checker.LLMOption
		if cfg.Checker.Model != "" {
			opts = append(opts, checker.WithModel(cfg.Checker.Model))
		}
		return checker.NewLLM(cfg.Checker.APIKey, opts...), nil
	default:
		opts := []checker.LanguageToolOption{
			checker.WithTimeout(cfg.Checker.Timeout()),
		}
		if cfg.Checker.APIKey != "" {
			opts = append(opts, checker.WithAPIKey(cfg.Checker.Username, cfg.Checker.APIKey))
		}
		return checker.NewLanguageTool(cfg.Checker.Endpoint, cfg.Checker.Language, opts...)
	}
}

type options struct {
	configPath string
	notesDir   string
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.configPath, "config", config.DefaultPath(), "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", config.DefaultPath(), "Path to configuration file (shorthand)")
	flag.StringVar(&opts.notesDir, "notes", "", "Notes directory (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Redline - note editor with inline grammar checking\n\n")
		fmt.Fprintf(os.Stderr, "Usage: redline [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nKeys:\n")
		fmt.Fprintf(os.Stderr, "  F5       check the current note\n")
		fmt.Fprintf(os.Stderr, "  Tab      cycle through findings\n")
		fmt.Fprintf(os.Stderr, "  Enter    apply the selected correction\n")
		fmt.Fprintf(os.Stderr, "  Ctrl-S   save   Ctrl-O  note list   Ctrl-N  new note   Ctrl-Q  quit\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("redline %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		os.Exit(0)
	}

	return opts
}
