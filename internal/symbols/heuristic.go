package symbols

import (
	"bufio"
	"bytes"
	"strings"

	"sentinel/internal/errors"
	"sentinel/internal/model"
)

// closure records the line on which a scope ended.
type closure struct {
	qualified string
	kind      frameKind
	line      int
}

// scanResult is the output of scanning a byte range.
type scanResult struct {
	chunkResult
	closures   []closure
	ctx        ParseContext
	checkpoint *ParseContext
	moduleName string
}

// heuristicAnalyzer extracts symbols by walking a file line by line while
// tracking brace depth (or indentation), namespaces, classes and functions.
type heuristicAnalyzer struct {
	lang  model.Language
	path  string
	sep   string
	rules *languageRules
}

func newHeuristicAnalyzer(lang model.Language, path string) *heuristicAnalyzer {
	return &heuristicAnalyzer{
		lang:  lang,
		path:  path,
		sep:   model.ScopeSeparator(lang),
		rules: rulesFor(lang),
	}
}

// scan parses content starting at startLine with the given context. When
// checkpointLine > 0 the context in effect at the start of that line is
// returned as well. maxLine bounds a single line; longer lines fail the scan.
func (a *heuristicAnalyzer) scan(content []byte, startLine int, ctx ParseContext, checkpointLine int, maxLine int) (*scanResult, error) {
	st := &scanState{
		analyzer: a,
		access:   make(map[string]string),
		res:      &scanResult{},
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	initial := 64 * 1024
	if maxLine < initial {
		initial = maxLine
	}
	scanner.Buffer(make([]byte, 0, initial), maxLine)

	lineNo := startLine
	for scanner.Scan() {
		if checkpointLine > 0 && lineNo == checkpointLine {
			cp := ctx
			st.res.checkpoint = &cp
		}
		ctx = st.processLine(ctx, scanner.Text(), lineNo)
		lineNo++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(errors.ParserFailure, "line scan failed", err).WithPath(a.path)
	}

	ctx = st.flushSignature(ctx)
	st.res.ctx = ctx
	return st.res, nil
}

// scanState is per-scan scratch state that does not need to survive a chunk
// boundary.
type scanState struct {
	analyzer         *heuristicAnalyzer
	res              *scanResult
	access           map[string]string
	pendingTemplate  string
	pendingDecorator []string
	sigBuffer        []string
	sigStartLine     int
	sigStartRaw      string
	sigStartCtx      ParseContext
	inImportBlock    bool
	lastCodeLine     int
	typeKinds        map[string]model.SymbolKind
	seenKeys         map[string]bool
}

func (st *scanState) processLine(ctx ParseContext, raw string, lineNo int) ParseContext {
	a := st.analyzer
	clean, next := sanitizeLine(a.lang, ctx, raw)
	ctx = next

	// Signatures spanning several lines are joined until parentheses balance.
	if len(st.sigBuffer) > 0 {
		st.sigBuffer = append(st.sigBuffer, strings.TrimSpace(clean))
		joined := strings.Join(st.sigBuffer, " ")
		if balanced(joined) || len(st.sigBuffer) >= 12 {
			st.sigBuffer = nil
			start := st.sigStartCtx.WithBlockComment(ctx.inBlockComment)
			return st.processStatement(start, joined, st.rawFor(joined), st.sigStartLine, lineNo)
		}
		return ctx
	}

	trimmed := strings.TrimSpace(clean)
	if trimmed == "" {
		return ctx
	}
	if a.rules.declarationScope(ctx) && opensSignature(trimmed) {
		st.sigBuffer = []string{trimmed}
		st.sigStartLine = lineNo
		st.sigStartRaw = raw
		st.sigStartCtx = ctx
		return ctx
	}
	return st.processStatement(ctx, clean, raw, lineNo, lineNo)
}

// flushSignature processes an unterminated multi-line signature at end of input.
func (st *scanState) flushSignature(ctx ParseContext) ParseContext {
	if len(st.sigBuffer) == 0 {
		return ctx
	}
	joined := strings.Join(st.sigBuffer, " ")
	st.sigBuffer = nil
	st.res.parseErrors++
	return st.processStatement(st.sigStartCtx, joined, st.rawFor(joined), st.sigStartLine, st.sigStartLine)
}

// rawFor keeps the first line's indentation for a joined signature.
func (st *scanState) rawFor(joined string) string {
	return st.sigStartRaw[:indentBytes(st.sigStartRaw)] + joined
}

// processStatement handles one logical statement starting on line and ending
// on endLine.
func (st *scanState) processStatement(ctx ParseContext, clean, raw string, line, endLine int) ParseContext {
	a := st.analyzer
	if !a.lang.UsesBraces() {
		return st.processIndented(ctx, clean, raw, line, endLine)
	}

	depthBefore := ctx.Depth()
	opens := strings.Count(clean, "{")
	closes := strings.Count(clean, "}")

	// A line that starts by closing scopes closes them before any declaration.
	leading := leadingCloses(clean)
	if leading > 0 {
		depthBefore -= leading
		if depthBefore < 0 {
			depthBefore = 0
		}
		closes -= leading
		ctx = st.popTo(ctx.WithDepth(depthBefore), depthBefore, line)
	}

	declared := false
	ctx, declared = a.rules.declare(st, ctx, clean, raw, line, depthBefore, opens > 0)

	if !declared && ctx.pending != nil && opens > 0 {
		ctx = st.openPending(ctx, depthBefore+1)
	}

	if fn := ctx.CurrentFunction(); ctx.InFunctionBody() {
		body := clean
		if declared {
			if i := strings.Index(clean, "{"); i >= 0 {
				body = clean[i+1:]
			} else {
				body = ""
			}
		}
		st.scanBody(ctx, fn, body, raw, line)
	}

	depth := depthBefore + opens - closes
	if depth < 0 {
		st.res.parseErrors++
		depth = 0
	}
	ctx = st.popTo(ctx.WithDepth(depth), depth, endLine)

	if ctx.pending != nil && !declared && strings.HasSuffix(strings.TrimSpace(clean), ";") {
		ctx = ctx.ClearPending()
	}
	st.lastCodeLine = endLine
	return ctx
}

func (st *scanState) processIndented(ctx ParseContext, clean, raw string, line, endLine int) ParseContext {
	a := st.analyzer
	indent := indentWidth(raw)
	if ctx.inBlockComment && strings.TrimSpace(clean) == "" {
		return ctx
	}

	ctx = st.popIndented(ctx, indent)
	ctx = ctx.WithDepth(indent)

	var declared bool
	ctx, declared = a.rules.declare(st, ctx, clean, raw, line, indent, false)

	if fn := ctx.CurrentFunction(); ctx.InFunctionBody() {
		body := clean
		if declared {
			if i := strings.LastIndex(clean, ":"); i >= 0 {
				body = clean[i+1:]
			} else {
				body = ""
			}
		}
		st.scanBody(ctx, fn, body, raw, line)
	}
	st.lastCodeLine = endLine
	return ctx
}

// popTo closes scopes deeper than depth and records their end line.
func (st *scanState) popTo(ctx ParseContext, depth, line int) ParseContext {
	before := ctx
	ctx = ctx.PopDeeperThan(depth)
	st.recordClosures(before, ctx, line)
	return ctx
}

func (st *scanState) popIndented(ctx ParseContext, indent int) ParseContext {
	before := ctx
	ctx = ctx.PopAtOrDeeper(indent)
	end := st.lastCodeLine
	st.recordClosures(before, ctx, end)
	return ctx
}

func (st *scanState) recordClosures(before, after ParseContext, line int) {
	for _, pair := range [][2]*frame{
		{before.functions, after.functions},
		{before.classes, after.classes},
		{before.namespaces, after.namespaces},
	} {
		for f := pair[0]; f != nil && f != pair[1]; f = f.parent {
			st.res.closures = append(st.res.closures, closure{qualified: f.qualified, kind: f.kind, line: line})
		}
	}
}

func (st *scanState) openPending(ctx ParseContext, depth int) ParseContext {
	p := ctx.pending
	ctx = ctx.ClearPending()
	switch p.kind {
	case frameNamespace:
		return ctx.PushNamespace(p.name, p.qualified, depth)
	case frameClass:
		return ctx.PushClass(p.name, p.qualified, depth)
	default:
		return ctx.PushFunction(p.name, p.qualified, depth)
	}
}

// open pushes a frame for a declaration that owns a body. For brace
// languages the body opens on this line when hasBrace is set; otherwise the
// declaration waits for its brace.
func (st *scanState) open(ctx ParseContext, kind frameKind, name, qualified string, depth int, hasBrace bool) ParseContext {
	if !st.analyzer.lang.UsesBraces() {
		switch kind {
		case frameNamespace:
			return ctx.PushNamespace(name, qualified, depth)
		case frameClass:
			return ctx.PushClass(name, qualified, depth)
		default:
			return ctx.PushFunction(name, qualified, depth)
		}
	}
	if !hasBrace {
		return ctx.WithPending(kind, name, qualified)
	}
	ctx = ctx.ClearPending()
	switch kind {
	case frameNamespace:
		return ctx.PushNamespace(name, qualified, depth+1)
	case frameClass:
		return ctx.PushClass(name, qualified, depth+1)
	default:
		return ctx.PushFunction(name, qualified, depth+1)
	}
}

func (st *scanState) addSymbol(sym model.Symbol) {
	a := st.analyzer
	sym.Language = a.lang
	sym.FilePath = a.path
	if sym.QualifiedName == "" {
		sym.QualifiedName = sym.Name
	}
	if st.pendingTemplate != "" {
		sym.Features.Set(model.FeatureTemplate, st.pendingTemplate)
		sym.AddTag("template")
		st.pendingTemplate = ""
	}
	if len(st.pendingDecorator) > 0 {
		sym.Features.Set(model.FeatureDecorator, strings.Join(st.pendingDecorator, ","))
		for _, d := range st.pendingDecorator {
			sym.AddTag("decorated:" + d)
		}
		st.pendingDecorator = nil
	}
	st.res.symbols = append(st.res.symbols, sym)
}

func (st *scanState) addRelationship(from, to string, typ model.RelationshipType, conf float64, line int, snippet string) {
	if from == "" || to == "" {
		return
	}
	snippet = strings.TrimSpace(snippet)
	if len(snippet) > 160 {
		snippet = snippet[:160]
	}
	st.res.relationships = append(st.res.relationships, model.Relationship{
		FromName:   from,
		ToName:     to,
		Type:       typ,
		Confidence: conf,
		FilePath:   st.analyzer.path,
		Context:    &model.SourceContext{Line: line, Snippet: snippet},
	})
}

// scanBody extracts calls and field accesses from function body text.
func (st *scanState) scanBody(ctx ParseContext, fn, body, raw string, line int) {
	if strings.TrimSpace(body) == "" {
		return
	}
	a := st.analyzer
	for _, m := range reCall.FindAllStringSubmatch(body, -1) {
		callee := m[1]
		last := lastSegment(callee)
		if isKeyword(last) {
			continue
		}
		st.addRelationship(fn, last, model.RelCalls, 0.7, line, raw)
	}

	cls := ctx.CurrentClass()
	if cls == "" {
		return
	}
	for _, m := range reFieldAccess.FindAllStringSubmatchIndex(body, -1) {
		field := body[m[2]:m[3]]
		rest := body[m[1]:]
		target := model.QualifiedJoin(a.sep, cls, field)
		switch {
		case reAssignAfter.MatchString(rest):
			st.addRelationship(fn, target, model.RelWritesField, 0.75, line, raw)
		case strings.HasPrefix(strings.TrimSpace(rest), "("):
			// method call, already recorded as a call
		default:
			st.addRelationship(fn, target, model.RelReadsField, 0.7, line, raw)
		}
	}
}

// recordTypeRefs notes type identifiers used by a declaration.
func (st *scanState) recordTypeRefs(ctx ParseContext, from string, text string, line int) ParseContext {
	for _, t := range typeIdentifiers(text) {
		if isBuiltinType(st.analyzer.lang, t) {
			continue
		}
		st.addRelationship(from, t, model.RelUses, 0.6, line, text)
		ctx = ctx.AddUnresolved(t)
	}
	return ctx
}

// sanitizeLine strips comments and string contents so braces and keywords
// inside them are ignored. Block comment state is carried in the context.
func sanitizeLine(lang model.Language, ctx ParseContext, line string) (string, ParseContext) {
	var b strings.Builder
	b.Grow(len(line))
	in := ctx.inBlockComment
	hashComments := lang == model.LangPython || lang == model.LangShell

	for i := 0; i < len(line); i++ {
		c := line[i]
		if in {
			if hashComments {
				if strings.HasPrefix(line[i:], `"""`) || strings.HasPrefix(line[i:], `'''`) {
					in = false
					i += 2
				}
				continue
			}
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				in = false
				i++
			}
			continue
		}

		switch {
		case hashComments && c == '#':
			return b.String(), ctx.WithBlockComment(in)
		case hashComments && (strings.HasPrefix(line[i:], `"""`) || strings.HasPrefix(line[i:], `'''`)):
			quote := line[i : i+3]
			if j := strings.Index(line[i+3:], quote); j >= 0 {
				b.WriteString(`""`)
				i += 3 + j + 2
				continue
			}
			in = true
			i += 2
		case !hashComments && c == '/' && i+1 < len(line) && line[i+1] == '/':
			return b.String(), ctx.WithBlockComment(in)
		case !hashComments && c == '/' && i+1 < len(line) && line[i+1] == '*':
			in = true
			i++
		case c == '"' || c == '`' || (c == '\'' && !(lang == model.LangRust && !isRustCharLiteral(line, i))):
			j := skipString(line, i)
			b.WriteByte(c)
			b.WriteByte(c)
			i = j
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), ctx.WithBlockComment(in)
}

// skipString returns the index of the closing quote of the literal at i.
func skipString(line string, i int) int {
	quote := line[i]
	for j := i + 1; j < len(line); j++ {
		switch line[j] {
		case '\\':
			j++
		case quote:
			return j
		}
	}
	return len(line) - 1
}

func isRustCharLiteral(line string, i int) bool {
	if i+2 < len(line) && line[i+2] == '\'' {
		return true
	}
	return i+3 < len(line) && line[i+1] == '\\' && line[i+3] == '\''
}

func leadingCloses(line string) int {
	n := 0
	for _, c := range strings.TrimSpace(line) {
		switch c {
		case '}':
			n++
		case ' ', '\t', ';', ')', ',':
		default:
			return n
		}
	}
	return n
}

func indentWidth(line string) int {
	w := 0
	for _, c := range line {
		switch c {
		case ' ':
			w++
		case '\t':
			w += 4
		default:
			return w
		}
	}
	return w
}

func indentBytes(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func balanced(s string) bool {
	return strings.Count(s, "(") <= strings.Count(s, ")")
}

// opensSignature reports whether a line starts a declaration whose parameter
// list continues on the next line.
func opensSignature(line string) bool {
	if balanced(line) {
		return false
	}
	if strings.HasSuffix(line, ";") || strings.Contains(line, "{") {
		return false
	}
	if eq := strings.Index(line, "="); eq >= 0 && eq < strings.Index(line, "(") {
		return false
	}
	return reSignatureStart.MatchString(line)
}

func lastSegment(name string) string {
	for _, sep := range []string{"::", "->", "."} {
		if i := strings.LastIndex(name, sep); i >= 0 {
			name = name[i+len(sep):]
		}
	}
	return strings.TrimSpace(name)
}
