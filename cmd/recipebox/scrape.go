package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/socialchef/recipebox/internal/pipeline"
	"github.com/socialchef/recipebox/internal/utils"
)

type runFlags struct {
	noSave    bool
	outputDir string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noSave, "no-save", false, "Print the recipe without storing it")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "Also write the Markdown file into this directory")
}

func newScrapeCmd(a *app) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Extract a recipe from a web page or YouTube video",
		Long: `Scrape fetches the URL, extracts the recipe and prints the Markdown.

Examples:
  recipebox scrape https://www.example.com/pancakes
  recipebox scrape youtu.be/dQw4w9WgXcQ --no-ai
  recipebox scrape example.com/soup --output-dir ./recipes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOne(cmd, args[0], pipeline.KindURL, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func newOCRCmd(a *app) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "ocr <file>",
		Short: "Extract a recipe from OCR text of a recipe photo (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			return a.runOne(cmd, string(text), pipeline.KindPhoto, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) runOne(cmd *cobra.Command, input string, kind pipeline.Kind, flags runFlags) error {
	result, err := a.pipeline.ScrapeAndNormalize(cmd.Context(), input, kind)
	if err != nil {
		return err
	}
	if result.Status == pipeline.StatusFailed {
		return result.Err()
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Markdown)

	if flags.noSave {
		return nil
	}
	if err := a.save(cmd.Context(), result, flags.outputDir); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Saved: %s\n", result.Filename)
	return nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		flags       runFlags
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Scrape every URL listed in a file, one per line",
		Long: `Batch scrapes each URL in the file (blank lines and # comments are
skipped) with bounded concurrency and stores every recipe it finds.

Examples:
  recipebox batch urls.txt --concurrency 4
  recipebox batch urls.txt --no-ai --output-dir ./recipes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			return a.runBatch(cmd, parseURLList(string(data)), concurrency, flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "Maximum recipes extracted at once")
	return cmd
}

func parseURLList(text string) []string {
	var urls []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls
}

func (a *app) runBatch(cmd *cobra.Command, urls []string, concurrency int, flags runFlags) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Processing %d URLs with concurrency %d\n", len(urls), concurrency)

	names := newNameSet()
	results, errs := utils.ForEach(cmd.Context(), urls, concurrency, func(ctx context.Context, u string) (pipeline.Result, error) {
		result, err := a.pipeline.ScrapeAndNormalize(ctx, u, pipeline.KindURL)
		if err != nil {
			return result, err
		}
		if result.Status == pipeline.StatusFailed {
			return result, result.Err()
		}
		result.Filename = names.claim(result.Filename)
		if flags.noSave {
			return result, nil
		}
		return result, a.save(ctx, result, flags.outputDir)
	})

	var failed int
	for i, u := range urls {
		if errs[i] != nil {
			failed++
			fmt.Fprintf(out, "  ✗ %s: %v\n", u, errs[i])
			continue
		}
		fmt.Fprintf(out, "  ✓ %s → %s (%s)\n", u, results[i].Filename, results[i].Title)
	}

	fmt.Fprintf(out, "%d/%d recipes extracted\n", len(urls)-failed, len(urls))
	if failed > 0 {
		return fmt.Errorf("%d of %d URLs failed", failed, len(urls))
	}
	return nil
}

// nameSet hands out distinct filenames within one batch. Two pages from the
// same site finishing in the same second would otherwise share a name.
type nameSet struct {
	mu   sync.Mutex
	used map[string]bool
}

func newNameSet() *nameSet {
	return &nameSet{used: make(map[string]bool)}
}

func (s *nameSet) claim(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := strings.TrimSuffix(name, ".md")
	candidate := name
	for n := 2; s.used[candidate]; n++ {
		candidate = fmt.Sprintf("%s_%d.md", base, n)
	}
	s.used[candidate] = true
	return candidate
}
