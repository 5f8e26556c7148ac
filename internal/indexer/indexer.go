package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sentinel/internal/config"
	"sentinel/internal/errors"
	"sentinel/internal/model"
	"sentinel/internal/storage"
)

const defaultBatchSize = 10

// Indexer runs project indexing jobs.
type Indexer struct {
	cfg     config.IndexingConfig
	parser  Parser
	store   Store
	learner Learner
	logger  *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLearner feeds every merged batch to l.
func WithLearner(l Learner) Option {
	return func(ix *Indexer) { ix.learner = l }
}

// New creates an indexer.
func New(cfg config.IndexingConfig, parser Parser, store Store, logger *slog.Logger, opts ...Option) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	ix := &Indexer{cfg: cfg, parser: parser, store: store, logger: logger}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Request describes one indexing job.
type Request struct {
	ProjectID string
	Root      string

	// Force re-parses files whose content hash is unchanged.
	Force bool

	// Progress receives events if non-nil. Sends block when the channel is
	// full; Run never closes it.
	Progress chan<- Progress
}

// Run indexes every file under req.Root. Files of a batch are parsed
// concurrently and merged into the store after the whole batch completes.
// Per-file failures are collected in the result and never abort the run.
// Cancellation is honored between batches; a file already being parsed is
// always finished. A canceled run returns its partial result together with
// the context error.
func (ix *Indexer) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString(), ProjectID: req.ProjectID}
	logger := ix.logger.With("run", res.RunID, "project", req.ProjectID)

	filter := NewFilter(req.Root, ix.cfg)
	files, err := Discover(req.Root, filter)
	if err != nil {
		return nil, errors.New(errors.FileFailed, "failed to walk project", err).WithPath(req.Root)
	}
	stored, err := ix.store.FileHashes(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	res.FilesTotal = len(files)

	batches := (len(files) + ix.cfg.BatchSize - 1) / ix.cfg.BatchSize
	logger.Info("Indexing started", "root", req.Root, "files", len(files), "batches", batches)
	ix.emit(ctx, req.Progress, Progress{RunID: res.RunID, Stage: StageDiscovered, Batches: batches, Total: len(files)})

	// Work already started is never interrupted.
	work := context.WithoutCancel(ctx)
	processed, done := 0, 0
	for b := 0; b < batches; b++ {
		if ctx.Err() != nil {
			res.Canceled = true
			break
		}
		lo := b * ix.cfg.BatchSize
		hi := min(lo+ix.cfg.BatchSize, len(files))
		outcomes := ix.processBatch(work, files[lo:hi], stored, req.Force)
		ix.merge(work, req.ProjectID, outcomes, res)
		processed, done = hi, b+1

		logger.Info("Batch merged", "batch", b+1, "of", batches, "files", hi-lo, "failed", len(res.Errors))
		ix.emit(ctx, req.Progress, Progress{
			RunID: res.RunID, Stage: StageBatch, Batch: b + 1, Batches: batches,
			Processed: processed, Total: len(files), Failed: len(res.Errors),
		})
	}

	if !res.Canceled {
		res.Removed = ix.removeDeleted(work, req.ProjectID, files, stored, filter, res)
	}

	res.Duration = time.Since(start)
	run := storage.IndexRun{
		ID:            res.RunID,
		ProjectID:     req.ProjectID,
		StartedAt:     start,
		FinishedAt:    start.Add(res.Duration),
		FilesTotal:    res.FilesTotal,
		FilesIndexed:  res.Indexed,
		FilesSkipped:  res.Skipped,
		FilesFailed:   len(res.Errors),
		Symbols:       res.Symbols,
		Relationships: res.Relationships,
		Canceled:      res.Canceled,
	}
	if err := ix.store.RecordIndexRun(work, run); err != nil {
		logger.Warn("Failed to record index run", "error", err)
	}

	logger.Info("Indexing finished", "indexed", res.Indexed, "skipped", res.Skipped,
		"removed", res.Removed, "failed", len(res.Errors), "canceled", res.Canceled, "duration", res.Duration)
	ix.emit(ctx, req.Progress, Progress{
		RunID: res.RunID, Stage: StageDone, Batch: done, Batches: batches,
		Processed: processed, Total: len(files), Failed: len(res.Errors),
	})

	if res.Canceled {
		return res, ctx.Err()
	}
	return res, nil
}

// emit blocks until the event is accepted or ctx is done.
func (ix *Indexer) emit(ctx context.Context, ch chan<- Progress, p Progress) {
	if ch == nil {
		return
	}
	select {
	case ch <- p:
	case <-ctx.Done():
	}
}

func (ix *Indexer) processBatch(ctx context.Context, batch []SourceFile, stored map[string]string, force bool) []fileOutcome {
	outcomes := make([]fileOutcome, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range batch {
		i, f := i, f
		g.Go(func() error {
			outcomes[i] = ix.processFile(gctx, f, stored[f.Path], force)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// processFile reads, fingerprints and parses one file. A panic in a parser
// is turned into that file's error.
func (ix *Indexer) processFile(ctx context.Context, f SourceFile, prevHash string, force bool) (out fileOutcome) {
	out.file = f
	defer func() {
		if r := recover(); r != nil {
			out.err = errors.New(errors.InternalError, fmt.Sprintf("parser panic: %v", r), nil).WithPath(f.Path)
		}
	}()

	content, err := os.ReadFile(f.AbsPath)
	if err != nil {
		out.err = errors.New(errors.FileFailed, "failed to read file", err).WithPath(f.Path)
		return out
	}
	out.hash = ContentHash(content)
	switch {
	case prevHash == "":
		out.change = ChangeAdded
	case prevHash == out.hash && !force:
		out.change = ChangeUnchanged
		return out
	default:
		out.change = ChangeModified
	}

	out.module, out.err = ix.parser.ParseSource(ctx, f.Path, content)
	return out
}

// merge writes a finished batch to the store in file order.
func (ix *Indexer) merge(ctx context.Context, projectID string, outcomes []fileOutcome, res *Result) {
	var learned []model.Symbol
	for _, o := range outcomes {
		if o.err != nil {
			ix.fail(res, o.file.Path, o.err)
			continue
		}
		if o.change == ChangeUnchanged {
			res.Skipped++
			continue
		}
		m := o.module
		symbols := m.Symbols()
		record := storage.FileRecord{
			Path:       o.file.Path,
			Language:   m.Language,
			Hash:       o.hash,
			ParserUsed: m.ParserUsed,
			Confidence: m.Confidence.Overall,
			LineCount:  m.LineCount,
		}
		if err := ix.store.ReplaceFile(ctx, projectID, record, symbols, m.Relationships); err != nil {
			ix.fail(res, o.file.Path, err)
			continue
		}
		ix.logger.Debug("File indexed", "file", o.file.Path, "change", string(o.change),
			"parser", string(m.ParserUsed), "symbols", len(symbols))
		res.Indexed++
		res.Symbols += len(symbols)
		res.Relationships += len(m.Relationships)
		learned = append(learned, symbols...)
	}
	if ix.learner != nil && len(learned) > 0 {
		ix.learner.Learn(learned)
	}
}

func (ix *Indexer) fail(res *Result, path string, err error) {
	code, ok := errors.CodeOf(err)
	if !ok {
		code = errors.FileFailed
	}
	ix.logger.Warn("File failed", "file", path, "code", string(code), "error", err)
	res.Errors = append(res.Errors, FileError{Path: path, Code: code, Message: err.Error()})
}

// removeDeleted drops stored files that discovery no longer finds. Files of
// languages outside the filter are left alone.
func (ix *Indexer) removeDeleted(ctx context.Context, projectID string, files []SourceFile, stored map[string]string, filter *Filter, res *Result) int {
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f.Path] = true
	}
	removed := 0
	for path := range stored {
		if present[path] {
			continue
		}
		if _, ok := filter.Language(path); !ok {
			continue
		}
		if err := ix.store.RemoveFile(ctx, projectID, path); err != nil {
			ix.fail(res, path, err)
			continue
		}
		ix.logger.Debug("File removed", "file", path, "change", string(ChangeDeleted))
		removed++
	}
	return removed
}
