package engine

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"sentinel/internal/controlflow"
	"sentinel/internal/crosslang"
	"sentinel/internal/errors"
	"sentinel/internal/graph"
	"sentinel/internal/model"
	"sentinel/internal/paths"
	"sentinel/internal/patterns"
	"sentinel/internal/storage"
)

// suggestionLimit caps the "did you mean" candidates of a failed lookup.
const suggestionLimit = 5

// DetectPatterns scores the pattern catalog against the stored snapshot.
// With an empty lang every language is analyzed separately and the results
// are merged by descending confidence.
func (e *Engine) DetectPatterns(ctx context.Context, lang model.Language) ([]patterns.DetectedPattern, error) {
	snap, err := e.Snapshot(ctx, lang)
	if err != nil {
		return nil, err
	}
	langs := []model.Language{lang}
	if lang == "" {
		langs = snap.Languages()
	}

	var out []patterns.DetectedPattern
	for _, l := range langs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if l == model.LangUnknown {
			continue
		}
		syms, rels := snap.ForLanguage(l)
		out = append(out, e.patterns.Detect(syms, rels, l)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out, nil
}

// AnalyzeControlFlow runs the control-flow analysis on one stored function,
// given by symbol id or qualified name. The body is read from the current
// file content.
func (e *Engine) AnalyzeControlFlow(ctx context.Context, target string) (*controlflow.Analysis, error) {
	snap, err := e.Snapshot(ctx, "")
	if err != nil {
		return nil, err
	}
	sym, ok := findCallable(snap, target)
	if !ok {
		return nil, e.notFound(ctx, target)
	}

	abs := paths.JoinRoot(e.root, sym.FilePath)
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.New(errors.FileFailed, "failed to read function source", err).WithPath(sym.FilePath)
	}
	body := functionBody(strings.Split(string(content), "\n"), sym)
	if body == "" {
		return nil, errors.Newf(errors.SymbolNotFound, "%s no longer exists at %s:%d", sym.QualifiedName, sym.FilePath, sym.Line)
	}
	return e.flow.AnalyzeSource(sym.QualifiedName, sym.Line, body, sym.Language), nil
}

// AnalyzeFunctionAt analyzes the function whose signature is on line of
// path, reading the current file content without consulting the store.
func (e *Engine) AnalyzeFunctionAt(ctx context.Context, path string, line int) (*controlflow.Analysis, error) {
	abs, rel := e.resolvePath(path)
	lang, ok := model.LanguageFromPath(rel)
	if !ok {
		return nil, errors.Newf(errors.UnsupportedLanguage, "no adapter for %s", rel).WithPath(rel)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.New(errors.FileFailed, "failed to read file", err).WithPath(rel)
	}
	body := functionBody(strings.Split(string(content), "\n"), model.Symbol{Line: line, Language: lang})
	if body == "" {
		return nil, errors.Newf(errors.SymbolNotFound, "%s has no line %d", rel, line).WithPath(rel)
	}
	return e.flow.AnalyzeSource(fmt.Sprintf("%s:%d", rel, line), line, body, lang), nil
}

// CallGraph returns the callers and callees of target up to depth levels.
// A miss carries close symbol names in its details.
func (e *Engine) CallGraph(ctx context.Context, target string, depth int) (*graph.CallGraph, error) {
	snap, err := e.Snapshot(ctx, "")
	if err != nil {
		return nil, err
	}
	cg, err := graph.NewIndex(snap, e.weights).CallGraphFor(ctx, target, depth)
	if errors.IsCode(err, errors.SymbolNotFound) {
		return nil, e.notFound(ctx, target)
	}
	return cg, err
}

// AnalyzeSpawns detects process spawns in every indexed file and builds the
// process tree and spawn chains over them.
func (e *Engine) AnalyzeSpawns(ctx context.Context) (*crosslang.SpawnAnalysisResult, error) {
	files, err := e.sourceFiles(ctx)
	if err != nil {
		return nil, err
	}
	return e.cross.AnalyzeSpawns(files), nil
}

// AnalyzeCrossLanguage detects spawn, FFI and API edges across the indexed
// files and reports how the project's languages are coupled.
func (e *Engine) AnalyzeCrossLanguage(ctx context.Context) (*crosslang.Report, error) {
	files, err := e.sourceFiles(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := e.Snapshot(ctx, "")
	if err != nil {
		return nil, err
	}
	edges := e.cross.DetectEdges(files)
	return e.cross.Analyze(snap.Symbols(), edges), nil
}

// sourceFiles loads every indexed file with its current content and stored
// symbols. Files that can no longer be read are skipped.
func (e *Engine) sourceFiles(ctx context.Context) ([]crosslang.SourceFile, error) {
	records, err := e.db.Files(ctx, e.project.ID)
	if err != nil {
		return nil, err
	}
	snap, err := e.Snapshot(ctx, "")
	if err != nil {
		return nil, err
	}
	byFile := make(map[string][]model.Symbol)
	for _, s := range snap.Symbols() {
		byFile[s.FilePath] = append(byFile[s.FilePath], s)
	}

	files := make([]crosslang.SourceFile, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := os.ReadFile(paths.JoinRoot(e.root, rec.Path))
		if err != nil {
			e.logger.Warn("Skipping unreadable file", "path", rec.Path, "error", err.Error())
			continue
		}
		files = append(files, crosslang.SourceFile{
			Path:     rec.Path,
			Language: rec.Language,
			Content:  content,
			Symbols:  byFile[rec.Path],
		})
	}
	return files, nil
}

// notFound builds a SYMBOL_NOT_FOUND error listing stored names close to
// target, most similar first.
func (e *Engine) notFound(ctx context.Context, target string) error {
	err := errors.Newf(errors.SymbolNotFound, "symbol %q not found", target)
	query := target
	if i := strings.LastIndexAny(query, ".:"); i >= 0 && i < len(query)-1 {
		query = query[i+1:]
	}
	results, searchErr := e.db.Search(ctx, e.project.ID, query, suggestionLimit*4)
	if searchErr != nil || len(results) == 0 {
		return err
	}

	type candidate struct {
		name  string
		score float32
	}
	seen := make(map[string]bool)
	var candidates []candidate
	for _, r := range results {
		if seen[r.QualifiedName] {
			continue
		}
		seen[r.QualifiedName] = true
		score, simErr := edlib.StringsSimilarity(target, r.QualifiedName, edlib.Levenshtein)
		if simErr != nil {
			continue
		}
		candidates = append(candidates, candidate{r.QualifiedName, score})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > suggestionLimit {
		candidates = candidates[:suggestionLimit]
	}
	suggestions := make([]string, 0, len(candidates))
	for _, c := range candidates {
		suggestions = append(suggestions, c.name)
	}
	return err.WithDetails(map[string]any{"suggestions": suggestions})
}

// findCallable resolves target to a function-like symbol, preferring
// definitions.
func findCallable(snap *model.Snapshot, target string) (model.Symbol, bool) {
	if s, ok := snap.ByID(target); ok && s.Kind.IsCallable() {
		return s, true
	}
	var fallback *model.Symbol
	for _, s := range snap.ByName(target) {
		if !s.Kind.IsCallable() || s.HasTag("virtual") {
			continue
		}
		if s.IsDefinition {
			return s, true
		}
		if fallback == nil {
			s := s
			fallback = &s
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return model.Symbol{}, false
}

// functionBody cuts the source of sym out of the file lines. A stored end
// line is used when present; otherwise the body ends where its braces
// balance or, for indentation languages, at the first line indented no
// deeper than the signature.
func functionBody(lines []string, sym model.Symbol) string {
	start := sym.Line - 1
	if start < 0 || start >= len(lines) {
		return ""
	}
	end := sym.EndLine - 1
	if end < start || end >= len(lines) {
		end = bodyEnd(lines, start, sym.Language)
	}
	return strings.Join(lines[start:end+1], "\n")
}

func bodyEnd(lines []string, start int, lang model.Language) int {
	if lang.UsesBraces() {
		depth, opened := 0, false
		for i := start; i < len(lines); i++ {
			open := strings.Count(lines[i], "{")
			depth += open - strings.Count(lines[i], "}")
			if open > 0 {
				opened = true
			}
			if opened && depth <= 0 {
				return i
			}
		}
		return len(lines) - 1
	}

	base := indentOf(lines[start])
	last := start
	for i := start + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		if indentOf(lines[i]) <= base {
			break
		}
		last = i
	}
	return last
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

// Stats summarizes the stored index of the project.
func (e *Engine) Stats(ctx context.Context) (*storage.StoreStats, error) {
	return e.db.Stats(ctx, e.project.ID)
}

// PatternDefinitions returns the loaded pattern catalog.
func (e *Engine) PatternDefinitions() []patterns.Definition {
	return e.patterns.Definitions()
}

// Search looks up stored symbols by name.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]storage.SearchResult, error) {
	return e.db.Search(ctx, e.project.ID, query, limit)
}

// FindDuplicates reports pairs of stored definitions of one language whose
// similarity is at least threshold. With an empty lang every language is
// compared separately.
func (e *Engine) FindDuplicates(ctx context.Context, lang model.Language, threshold float64) ([]patterns.Duplicate, error) {
	snap, err := e.Snapshot(ctx, lang)
	if err != nil {
		return nil, err
	}
	langs := []model.Language{lang}
	if lang == "" {
		langs = snap.Languages()
	}

	cmp := patterns.NewComparer(patterns.DefaultSimilarityWeights())
	var out []patterns.Duplicate
	for _, l := range langs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		syms, _ := snap.ForLanguage(l)
		out = append(out, cmp.FindDuplicates(syms, threshold)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity.Overall > out[j].Similarity.Overall
	})
	e.logger.Debug("Compared symbols", "languages", len(langs), "duplicates", len(out), "threshold", threshold)
	return out, nil
}
