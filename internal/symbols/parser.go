package symbols

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"sentinel/internal/complexity"
	"sentinel/internal/confidence"
	"sentinel/internal/config"
	"sentinel/internal/errors"
	"sentinel/internal/model"
)

// Parser turns file content into a ModuleInfo by walking the fallback
// ladder: grammar, heuristic, chunked heuristic, streaming.
type Parser struct {
	cfg       config.ParsingConfig
	logger    *slog.Logger
	scorer    *confidence.Scorer
	resolver  *TypeResolver
	grammar   *grammarAdapter
	projectID string
}

// Option configures a Parser.
type Option func(*Parser)

// WithResolver enables type resolution against a declaration index.
func WithResolver(r *TypeResolver) Option {
	return func(p *Parser) { p.resolver = r }
}

// WithProjectID scopes symbol ids to a project.
func WithProjectID(id string) Option {
	return func(p *Parser) { p.projectID = id }
}

// WithScorer replaces the default confidence scorer.
func WithScorer(s *confidence.Scorer) Option {
	return func(p *Parser) { p.scorer = s }
}

// NewParser creates a parser.
func NewParser(cfg config.ParsingConfig, logger *slog.Logger, opts ...Option) *Parser {
	p := &Parser{
		cfg:    cfg,
		logger: logger,
		scorer: confidence.NewScorer(confidence.DefaultWeights()),
	}
	if cfg.UseGrammar {
		p.grammar = newGrammarAdapter()
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile reads and parses a file.
func (p *Parser) ParseFile(ctx context.Context, path string) (*model.ModuleInfo, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.FileFailed, "failed to read file", err).WithPath(path)
	}
	return p.ParseSource(ctx, path, content)
}

// ValidateContent rejects content no parser can handle: empty files and
// files containing NUL bytes.
func ValidateContent(path string, content []byte) error {
	if len(bytes.TrimSpace(content)) == 0 {
		return errors.New(errors.UnparsableContent, "file is empty", nil).WithPath(path)
	}
	if i := bytes.IndexByte(content, 0); i >= 0 {
		return errors.New(errors.UnparsableContent, "file contains NUL bytes", nil).
			WithPath(path).WithDetails(map[string]interface{}{"offset": i})
	}
	return nil
}

// ParseSource parses content already in memory. Only unparsable content and
// unsupported languages are errors; parser failures fall through the ladder
// and surface as lower confidence.
func (p *Parser) ParseSource(ctx context.Context, path string, content []byte) (*model.ModuleInfo, error) {
	if err := ValidateContent(path, content); err != nil {
		return nil, err
	}
	lang, ok := model.LanguageFromPath(path)
	if !ok {
		return nil, errors.New(errors.UnsupportedLanguage, "no adapter for file", nil).WithPath(path)
	}

	var notes []string
	if p.needsStreaming(content) {
		res, lines, err := newHeuristicAnalyzer(lang, path).stream(bytes.NewReader(content), p.cfg.MaxLineLength)
		if err != nil {
			return nil, err
		}
		p.logger.Debug("Parsed file with streaming parser", "file", path, "size", len(content))
		return p.assemble(ctx, path, lang, content, res, model.RungStreaming, lines, notes), nil
	}

	if p.grammar != nil && p.grammar.supports(lang) && len(content) <= p.cfg.ChunkThreshold {
		res, err := p.grammar.extract(ctx, path, content, lang)
		if err == nil {
			return p.assemble(ctx, path, lang, content, res, model.RungGrammar, countLines(content), notes), nil
		}
		p.logger.Debug("Grammar parse failed, falling back", "file", path, "error", err.Error())
		notes = append(notes, "grammar parser failed: "+err.Error())
	}

	if len(content) <= p.cfg.ChunkThreshold {
		res, err := p.parseDirect(path, lang, content)
		if err == nil {
			return p.assemble(ctx, path, lang, content, res, model.RungHeuristic, countLines(content), notes), nil
		}
		p.logger.Debug("Direct parse failed, retrying in chunks", "file", path, "error", err.Error())
		notes = append(notes, "direct parse failed: "+err.Error())
	}

	res, err := p.parseChunked(path, lang, content)
	if err == nil {
		return p.assemble(ctx, path, lang, content, res, model.RungChunked, countLines(content), notes), nil
	}
	p.logger.Debug("Chunked parse failed, streaming", "file", path, "error", err.Error())
	notes = append(notes, "chunked parse failed: "+err.Error())

	res, lines, err := newHeuristicAnalyzer(lang, path).stream(bytes.NewReader(content), p.cfg.MaxLineLength)
	if err != nil {
		return nil, err
	}
	return p.assemble(ctx, path, lang, content, res, model.RungStreaming, lines, notes), nil
}

func (p *Parser) needsStreaming(content []byte) bool {
	if p.cfg.StreamingThreshold > 0 && len(content) > p.cfg.StreamingThreshold {
		return true
	}
	if p.cfg.MaxLineLength <= 0 {
		return false
	}
	for len(content) > 0 {
		i := bytes.IndexByte(content, '\n')
		if i < 0 {
			return len(content) > p.cfg.MaxLineLength
		}
		if i > p.cfg.MaxLineLength {
			return true
		}
		content = content[i+1:]
	}
	return false
}

// parseDirect scans the whole file in one pass. A panic in the scanner is
// reported as a parser failure so the ladder can continue.
func (p *Parser) parseDirect(path string, lang model.Language, content []byte) (res *scanResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = errors.New(errors.ParserFailure, fmt.Sprintf("heuristic scanner panicked: %v", r), nil).WithPath(path)
		}
	}()
	return newHeuristicAnalyzer(lang, path).scan(content, 1, NewParseContext(), 0, p.cfg.BufferSize(len(content)))
}

// parseChunked scans content chunk by chunk, threading the parse context.
// Each overlap chunk starts from the context captured at its first line
// while scanning the main chunk it follows.
func (p *Parser) parseChunked(path string, lang model.Language, content []byte) (res *scanResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = errors.New(errors.ParserFailure, fmt.Sprintf("chunked scanner panicked: %v", r), nil).WithPath(path)
		}
	}()

	chunks := SplitChunks(content, ChunkOptions{
		Threshold: p.cfg.ChunkThreshold,
		Overlap:   p.cfg.OverlapSize,
		Lookahead: p.cfg.SnapLookahead,
	})
	a := newHeuristicAnalyzer(lang, path)
	maxLine := p.cfg.BufferSize(p.cfg.ChunkThreshold + p.cfg.SnapLookahead)

	ctx := NewParseContext()
	var checkpoint *ParseContext
	var parts []chunkResult
	var closures []closure
	for i, c := range chunks {
		next := 0
		if i+1 < len(chunks) && chunks[i+1].Overlap {
			next = chunks[i+1].StartLine
		}

		if c.Overlap {
			start := ctx
			if checkpoint != nil {
				start = *checkpoint
			}
			r, err := a.scan(content[c.Start:c.End], c.StartLine, start, 0, maxLine)
			if err != nil {
				return nil, err
			}
			part := r.chunkResult
			part.overlap = true
			parts = append(parts, part)
			continue
		}

		r, err := a.scan(content[c.Start:c.End], c.StartLine, ctx, next, maxLine)
		if err != nil {
			return nil, err
		}
		parts = append(parts, r.chunkResult)
		closures = append(closures, r.closures...)
		checkpoint = r.checkpoint
		ctx = r.ctx
	}

	merged := mergeResults(parts, p.cfg.DedupLineTolerance)
	p.logger.Debug("Parsed file in chunks", "file", path, "chunks", len(chunks), "symbols", len(merged.symbols))
	return &scanResult{chunkResult: merged, closures: closures, ctx: ctx}, nil
}

// assemble turns a scan result into a ModuleInfo: end lines, ids, tags,
// complexity, confidence and type resolution.
func (p *Parser) assemble(ctx context.Context, path string, lang model.Language, content []byte, res *scanResult, rung model.ParserRung, lineCount int, notes []string) *model.ModuleInfo {
	symbols := res.symbols
	assignEndLines(symbols, res.closures, res.ctx, lineCount)

	var lines []string
	if rung != model.RungStreaming {
		lines = strings.Split(string(content), "\n")
	}

	ids := make(map[string]bool, len(symbols))
	byQualified := make(map[string]string, len(symbols))
	byName := make(map[string][]string)
	local := make(map[string]bool)
	totalComplexity := 0
	advanced := 0
	semantic := false

	for i := range symbols {
		sym := &symbols[i]
		id := model.SymbolID(p.projectID, lang, sym.QualifiedName, sym.Kind)
		if ids[id] {
			id = model.SymbolID(p.projectID, lang, sym.QualifiedName+"#"+strconv.Itoa(sym.Line)+sym.Signature, sym.Kind)
		}
		ids[id] = true
		sym.ID = id
		if _, ok := byQualified[sym.QualifiedName]; !ok {
			byQualified[sym.QualifiedName] = id
		}
		byName[sym.Name] = append(byName[sym.Name], id)
		local[sym.Name] = true

		ApplyTags(sym)
		if sym.Kind.IsCallable() && lines != nil && sym.EndLine >= sym.Line && sym.Line > 0 {
			end := minInt(sym.EndLine, len(lines))
			m := complexity.Compute(strings.Join(lines[sym.Line-1:end], "\n"), complexity.Shape{Language: lang})
			sym.Complexity = m.Cyclomatic
			totalComplexity += m.Cyclomatic
		}
		if sym.Features.IsAdvanced() {
			advanced++
		}
		if len(sym.SemanticTags) > 0 {
			semantic = true
		}
		sym.Confidence = confidence.SymbolConfidence(*sym, rung)
	}

	var unresolved []string
	for _, name := range res.ctx.Unresolved() {
		if !local[lastSegment(name)] {
			unresolved = append(unresolved, name)
		}
	}
	resolved := 0
	if p.resolver != nil {
		for _, r := range p.resolver.Resolve(ctx, unresolved) {
			if r.Found {
				resolved++
				continue
			}
			notes = append(notes, string(errors.ResolutionMiss)+": "+r.Name)
		}
		p.resolver.Learn(symbols)
	}

	rels := res.relationships
	for i := range rels {
		rels[i].FromID = lookupID(rels[i].FromName, byQualified, byName)
		rels[i].ToID = lookupID(rels[i].ToName, byQualified, byName)
	}

	info := &model.ModuleInfo{
		FilePath:      path,
		Language:      lang,
		ModuleName:    res.moduleName,
		Namespaces:    res.namespaces,
		Imports:       nonNil(res.imports),
		Exports:       exportsOf(res.exports, symbols),
		Relationships: rels,
		ParserUsed:    rung,
		Unresolved:    unresolved,
		Notes:         notes,
		LineCount:     lineCount,
	}
	if info.Relationships == nil {
		info.Relationships = []model.Relationship{}
	}
	for _, sym := range symbols {
		switch {
		case sym.Kind.IsCallable():
			info.Methods = append(info.Methods, sym)
		case sym.Kind == model.KindInterface:
			info.Interfaces = append(info.Interfaces, sym)
		case sym.Kind == model.KindField || sym.Kind == model.KindVariable:
			info.Variables = append(info.Variables, sym)
		default:
			info.Classes = append(info.Classes, sym)
		}
	}
	if rung != model.RungStreaming {
		info.Patterns = patternHints(symbols)
	}

	info.Confidence = p.scorer.Score(symbols, confidence.Factors{
		FileSize:         len(content),
		Complexity:       totalComplexity,
		ParseErrors:      res.parseErrors,
		AdvancedFeatures: advanced,
		UnresolvedTypes:  len(unresolved) - resolved,
		ResolvedTypes:    resolved,
		Relationships:    len(rels),
		HasSemanticData:  semantic,
		Rung:             rung,
	})

	p.logger.Debug("Parsed file",
		"file", path,
		"parser", string(rung),
		"symbols", len(symbols),
		"relationships", len(rels),
		"confidence", info.Confidence.Overall,
	)
	return info
}

// assignEndLines fills EndLine from the scope closures recorded during the
// scan. Scopes still open at the end of the file end on its last line.
func assignEndLines(symbols []model.Symbol, closures []closure, final ParseContext, lastLine int) {
	byName := make(map[string][]closure)
	for _, c := range closures {
		byName[c.qualified] = append(byName[c.qualified], c)
	}
	for _, list := range byName {
		sort.Slice(list, func(i, j int) bool { return list[i].line < list[j].line })
	}
	open := make(map[string]bool)
	for _, f := range []*frame{final.functions, final.classes, final.namespaces} {
		for cur := f; cur != nil; cur = cur.parent {
			open[cur.qualified] = true
		}
	}

	for i := range symbols {
		sym := &symbols[i]
		if sym.EndLine > 0 {
			continue
		}
		kind := frameForKind(sym.Kind)
		sym.EndLine = sym.Line
		found := false
		for _, c := range byName[sym.QualifiedName] {
			if c.kind == kind && c.line >= sym.Line {
				sym.EndLine = c.line
				found = true
				break
			}
		}
		if !found && open[sym.QualifiedName] && sym.IsDefinition {
			sym.EndLine = lastLine
		}
	}
}

func frameForKind(k model.SymbolKind) frameKind {
	switch {
	case k.IsCallable():
		return frameFunction
	case k == model.KindNamespace || k == model.KindModule:
		return frameNamespace
	}
	return frameClass
}

func lookupID(name string, byQualified map[string]string, byName map[string][]string) string {
	if id, ok := byQualified[name]; ok {
		return id
	}
	if ids := byName[name]; len(ids) == 1 {
		return ids[0]
	}
	return ""
}

// exportsOf prefers explicit export statements and otherwise lists the
// exported top-level symbols.
func exportsOf(explicit []string, symbols []model.Symbol) []string {
	if len(explicit) > 0 {
		return explicit
	}
	out := []string{}
	for _, s := range symbols {
		if !s.IsExported || s.Kind == model.KindNamespace || s.Kind == model.KindField {
			continue
		}
		if s.ParentScope != "" && s.ParentScope != s.Namespace {
			continue
		}
		out = append(out, s.Name)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func countLines(content []byte) int {
	n := bytes.Count(content, []byte{'\n'})
	if len(content) > 0 && content[len(content)-1] != '\n' {
		n++
	}
	return n
}
