package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/socialchef/recipebox/internal/config"
	"github.com/socialchef/recipebox/internal/logger"
	"github.com/socialchef/recipebox/internal/pipeline"
	"github.com/socialchef/recipebox/internal/services/recipe"
	"github.com/socialchef/recipebox/internal/services/storage"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	dbPath     string
	owner      string
	noAI       bool
	verbose    bool

	cfg      *config.Config
	store    storage.Store
	pipeline *pipeline.Pipeline
}

// newRootCmd builds the command tree. The returned func closes the recipe
// store and must run after Execute, whether or not the command failed.
func newRootCmd() (*cobra.Command, func() error) {
	a := &app{}

	root := &cobra.Command{
		Use:   "recipebox",
		Short: "recipebox: turn recipe pages, videos and photo text into Markdown",
		Long: `recipebox extracts recipes from web pages, YouTube captions and OCR text,
normalizes them to metric Markdown and keeps them in a local SQLite store.

Usage:
  recipebox scrape <url>
  recipebox ocr <file>
  recipebox batch <file> --concurrency 4
  recipebox list | show <name> | delete <name>`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "Optional YAML config file")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite recipe store (default: SQLITE_PATH or recipes.db)")
	root.PersistentFlags().StringVar(&a.owner, "owner", "local", "Owner the recipes are stored under")
	root.PersistentFlags().BoolVar(&a.noAI, "no-ai", false, "Skip the AI backend and use the deterministic formatter")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log pipeline progress to stderr")

	root.AddCommand(
		newScrapeCmd(a),
		newOCRCmd(a),
		newBatchCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newDeleteCmd(a),
	)
	return root, a.close
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func (a *app) setup(logOut io.Writer) error {
	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	level := "warn"
	if a.verbose {
		level = "debug"
	}
	slog.SetDefault(logger.NewWithWriter(logOut, "development", level))

	if a.dbPath == "" {
		a.dbPath = cfg.Storage.SQLitePath
	}
	store, err := storage.NewSQLiteStore(a.dbPath)
	if err != nil {
		return fmt.Errorf("open recipe store: %w", err)
	}
	a.store = store

	if a.noAI {
		a.pipeline = pipeline.FromConfigWithProvider(cfg, nil, recipe.NoopProvider{})
	} else {
		a.pipeline = pipeline.FromConfig(cfg, nil)
	}
	return nil
}

// save stores a successful result and optionally writes it to dir.
func (a *app) save(ctx context.Context, result pipeline.Result, dir string) error {
	err := a.store.Save(ctx, storage.Recipe{
		RecipeMeta: storage.RecipeMeta{
			Name:      result.Filename,
			Owner:     a.owner,
			Title:     result.Title,
			SourceURL: result.SourceURL,
		},
		Content: result.Markdown,
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", result.Filename, err)
	}

	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, result.Filename), []byte(result.Markdown+"\n"), 0o644)
}

func main() {
	root, closeStore := newRootCmd()
	err := root.Execute()
	if cerr := closeStore(); cerr != nil {
		fmt.Fprintln(os.Stderr, cerr)
		err = cerr
	}
	if err != nil {
		os.Exit(1)
	}
}
