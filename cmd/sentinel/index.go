package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"sentinel/internal/engine"
	"sentinel/internal/indexer"
	"sentinel/internal/watcher"
)

var (
	indexForce    bool
	indexFormat   string
	indexProgress bool
	indexWatch    bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the project into the symbol store",
	Long: `Discover the project's source files and parse them into the symbol store.

Files are parsed concurrently in fixed-size batches and merged into the store
after each batch. Files whose content hash is unchanged since the last run are
skipped unless --force is given. Files deleted since the last run are removed.
Interrupting the command stops it after the current batch.

With --watch the command keeps running after the first pass and re-indexes
whenever source files change, until interrupted.

Examples:
  sentinel index
  sentinel index --force
  sentinel index --progress --format=human
  sentinel index --watch`,
	Args: cobra.NoArgs,
	Run:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "Re-parse files even if unchanged")
	indexCmd.Flags().StringVar(&indexFormat, "format", "json", "Output format (json, human)")
	indexCmd.Flags().BoolVar(&indexProgress, "progress", false, "Print batch progress to stderr")
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "Keep re-indexing as files change")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) {
	ctx, cancel := newContext()
	defer cancel()
	env := mustGetEnv(ctx)
	defer env.Close()

	opts := engine.IndexOptions{Force: indexForce}
	var wg sync.WaitGroup
	var progress chan indexer.Progress
	if indexProgress {
		progress = make(chan indexer.Progress, env.engine.Config().Indexing.ProgressBuffer)
		opts.Progress = progress
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range progress {
				fmt.Fprintf(os.Stderr, "[%s] %d/%d files (batch %d/%d, %d failed)\n",
					p.Stage, p.Processed, p.Total, p.Batch, p.Batches, p.Failed)
			}
		}()
	}

	res, err := env.engine.Index(ctx, opts)
	if progress != nil {
		close(progress)
		wg.Wait()
	}
	if res == nil {
		fail("Error indexing project", err)
	}
	if err != nil {
		env.logger.Warn("Indexing interrupted", "error", err.Error(), "indexed", res.Indexed)
	}

	printOutput(convertIndexResponse(res), indexFormat)
	env.logger.Info("Indexing completed",
		"runId", res.RunID,
		"indexed", res.Indexed,
		"skipped", res.Skipped,
		"failed", len(res.Errors),
		"duration", res.Duration.Milliseconds())
	if err != nil {
		os.Exit(130)
	}
	if indexWatch {
		watchProject(ctx, env)
	}
}

// watchProject re-indexes on every change batch until interrupted.
func watchProject(ctx context.Context, env *cliEnv) {
	fmt.Fprintln(os.Stderr, "Watching for changes (Ctrl+C to stop)...")
	err := env.engine.Watch(ctx, func(res *indexer.Result, events []watcher.Event, err error) {
		if res == nil {
			fmt.Fprintf(os.Stderr, "Re-index failed: %v\n", err)
			return
		}
		fmt.Fprintf(os.Stderr, "%d changes: %d indexed, %d removed, %d failed (%dms)\n",
			len(events), res.Indexed, res.Removed, len(res.Errors), res.Duration.Milliseconds())
	})
	if err != nil {
		fail("Error watching project", err)
	}
}

// IndexResponseCLI is the result of an index run
type IndexResponseCLI struct {
	RunID         string              `json:"runId"`
	ProjectID     string              `json:"projectId"`
	Files         int                 `json:"files"`
	Indexed       int                 `json:"indexed"`
	Skipped       int                 `json:"skipped"`
	Removed       int                 `json:"removed"`
	Symbols       int                 `json:"symbols"`
	Relationships int                 `json:"relationships"`
	Errors        []indexer.FileError `json:"errors,omitempty"`
	Canceled      bool                `json:"canceled,omitempty"`
	DurationMs    int64               `json:"durationMs"`
}

func convertIndexResponse(res *indexer.Result) *IndexResponseCLI {
	return &IndexResponseCLI{
		RunID:         res.RunID,
		ProjectID:     res.ProjectID,
		Files:         res.FilesTotal,
		Indexed:       res.Indexed,
		Skipped:       res.Skipped,
		Removed:       res.Removed,
		Symbols:       res.Symbols,
		Relationships: res.Relationships,
		Errors:        res.Errors,
		Canceled:      res.Canceled,
		DurationMs:    res.Duration.Round(time.Millisecond).Milliseconds(),
	}
}
