// Package engine wires the parser, store and analyzers of one project
// together and answers the on-demand analysis requests made against it.
package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"sentinel/internal/complexity"
	"sentinel/internal/confidence"
	"sentinel/internal/config"
	"sentinel/internal/controlflow"
	"sentinel/internal/crosslang"
	"sentinel/internal/errors"
	"sentinel/internal/graph"
	"sentinel/internal/indexer"
	"sentinel/internal/model"
	"sentinel/internal/paths"
	"sentinel/internal/patterns"
	"sentinel/internal/project"
	"sentinel/internal/slogutil"
	"sentinel/internal/storage"
	"sentinel/internal/symbols"
)

// Engine is the analysis facade for one project root.
type Engine struct {
	root    string
	cfg     *config.Config
	logger  *slog.Logger
	project *project.Identity
	db      *storage.DB

	scorer     *confidence.Scorer
	resolver   *symbols.TypeResolver
	parser     *symbols.Parser
	patterns   *patterns.Engine
	flow       *controlflow.Analyzer
	cross      *crosslang.Analyzer
	complexity *complexity.Analyzer
	indexer    *indexer.Indexer
	weights    graph.EdgeWeights
}

// New opens the project at root: it loads or creates the project identity,
// opens the symbol store and builds every analyzer from cfg. A nil cfg
// means the defaults.
func New(ctx context.Context, root string, cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to resolve project root", err).WithPath(root)
	}

	ident, err := project.LoadOrCreate(abs)
	if err != nil {
		return nil, err
	}

	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = paths.DatabaseFile(abs)
	} else if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(abs, dbPath)
	}
	db, err := storage.Open(dbPath, slogutil.Component(logger, "storage"))
	if err != nil {
		return nil, err
	}
	if err := db.UpsertProject(ctx, storage.Project{
		ID:        ident.ID,
		Name:      ident.Name,
		Root:      ident.Root,
		CreatedAt: ident.CreatedAt,
	}); err != nil {
		db.Close()
		return nil, err
	}

	e := &Engine{
		root:       abs,
		cfg:        cfg,
		logger:     logger,
		project:    ident,
		db:         db,
		scorer:     confidence.NewScorer(confidence.WeightsFromConfig(cfg.Confidence)),
		complexity: complexity.NewAnalyzer(),
		weights:    graph.DefaultEdgeWeights(),
	}
	if err := e.init(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("Engine ready",
		"root", abs,
		"projectId", ident.ID,
		"store", dbPath,
		"declarations", e.resolver.Len())
	return e, nil
}

func (e *Engine) init(ctx context.Context) error {
	resolver, err := symbols.NewTypeResolver(ctx, e.db.Declarations(e.project.ID), slogutil.Component(e.logger, "resolver"))
	if err != nil {
		return err
	}
	e.resolver = resolver
	e.parser = symbols.NewParser(e.cfg.Parsing, slogutil.Component(e.logger, "parser"),
		symbols.WithResolver(resolver),
		symbols.WithProjectID(e.project.ID),
		symbols.WithScorer(e.scorer))

	patternsCfg := e.cfg.Patterns
	if patternsCfg.CatalogPath == "" && fileExists(paths.PatternCatalogFile(e.root)) {
		patternsCfg.CatalogPath = paths.PatternCatalogFile(e.root)
	}
	e.patterns, err = patterns.NewEngine(patternsCfg, slogutil.Component(e.logger, "patterns"))
	if err != nil {
		return err
	}

	crossCfg := e.cfg.CrossLanguage
	if crossCfg.SpawnCatalogPath == "" && fileExists(paths.SpawnCatalogFile(e.root)) {
		crossCfg.SpawnCatalogPath = paths.SpawnCatalogFile(e.root)
	}
	e.cross, err = crosslang.NewAnalyzer(crossCfg, slogutil.Component(e.logger, "crosslang"))
	if err != nil {
		return err
	}

	e.flow = controlflow.NewAnalyzer(e.cfg.ControlFlow, slogutil.Component(e.logger, "controlflow"))
	e.indexer = indexer.New(e.cfg.Indexing, e.parser, e.db, slogutil.Component(e.logger, "indexer"),
		indexer.WithLearner(e.resolver))
	return nil
}

// Close releases the symbol store.
func (e *Engine) Close() error {
	return e.db.Close()
}

// Root returns the absolute project root.
func (e *Engine) Root() string { return e.root }

// Project returns the project identity.
func (e *Engine) Project() *project.Identity { return e.project }

// Store returns the symbol store.
func (e *Engine) Store() *storage.DB { return e.db }

// Config returns the configuration in use.
func (e *Engine) Config() *config.Config { return e.cfg }

// ParseFile parses one file without touching the store. Relative paths are
// resolved against the project root.
func (e *Engine) ParseFile(ctx context.Context, path string) (*model.ModuleInfo, error) {
	abs, rel := e.resolvePath(path)
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.New(errors.FileFailed, "failed to read file", err).WithPath(rel)
	}
	return e.parser.ParseSource(ctx, rel, content)
}

// IndexOptions controls one indexing run.
type IndexOptions struct {
	Force    bool
	Progress chan<- indexer.Progress
}

// Index indexes the project into the store. Cancellation takes effect
// between batches; the partial result is returned with the context error.
func (e *Engine) Index(ctx context.Context, opts IndexOptions) (*indexer.Result, error) {
	return e.indexer.Run(ctx, indexer.Request{
		ProjectID: e.project.ID,
		Root:      e.root,
		Force:     opts.Force,
		Progress:  opts.Progress,
	})
}

// Snapshot loads the stored symbols and relationships of the project,
// restricted to lang unless it is empty.
func (e *Engine) Snapshot(ctx context.Context, lang model.Language) (*model.Snapshot, error) {
	return e.db.Snapshot(ctx, e.project.ID, lang)
}

// Complexity reports per-function complexity of one file using the grammar
// parser. It fails when the binary was built without grammar support.
func (e *Engine) Complexity(ctx context.Context, path string) (*complexity.FileComplexity, error) {
	if !complexity.IsAvailable() {
		return nil, errors.New(errors.ParserFailure, "complexity analysis requires a cgo build with tree-sitter", nil)
	}
	abs, rel := e.resolvePath(path)
	fc, err := e.complexity.AnalyzeFile(ctx, abs)
	if err != nil {
		return nil, errors.New(errors.FileFailed, "complexity analysis failed", err).WithPath(rel)
	}
	fc.Path = rel
	return fc, nil
}

// RecentRuns returns up to limit index runs of the project, newest first.
func (e *Engine) RecentRuns(ctx context.Context, limit int) ([]storage.IndexRun, error) {
	return e.db.RecentIndexRuns(ctx, e.project.ID, limit)
}

// Prune drops index runs older than retention and rebuilds the name search
// index. It returns how many runs were dropped.
func (e *Engine) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := e.db.CleanupIndexRuns(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if err := e.db.RebuildSearchIndex(ctx); err != nil {
		return n, err
	}
	e.logger.Info("Pruned store", "runsDropped", n, "retention", retention.String())
	return n, nil
}

func (e *Engine) resolvePath(path string) (abs, rel string) {
	abs = path
	if !filepath.IsAbs(abs) {
		abs = paths.JoinRoot(e.root, path)
	}
	rel, err := paths.CanonicalizePath(abs, e.root)
	if err != nil {
		rel = paths.NormalizePath(path)
	}
	return abs, rel
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
