//go:build cgo

package symbols

import (
	"context"
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"sentinel/internal/complexity"
	"sentinel/internal/errors"
	"sentinel/internal/model"
)

// grammarAdapter extracts symbols from a tree-sitter syntax tree. It is the
// first rung of the ladder for every language with a bundled grammar. Tree-sitter
// parsers are not safe for concurrent use, so each extraction borrows one
// from the pool.
type grammarAdapter struct {
	parsers sync.Pool
}

func newGrammarAdapter() *grammarAdapter {
	g := &grammarAdapter{}
	g.parsers.New = func() any { return complexity.NewParser() }
	return g
}

func (g *grammarAdapter) supports(lang model.Language) bool {
	return complexity.Supported(lang)
}

// extract fails when the grammar cannot produce an error-free tree; the
// caller then falls back to the heuristic rungs.
func (g *grammarAdapter) extract(ctx context.Context, path string, source []byte, lang model.Language) (*scanResult, error) {
	parser := g.parsers.Get().(*complexity.Parser)
	defer g.parsers.Put(parser)
	root, err := parser.Parse(ctx, source, lang)
	if err != nil {
		return nil, errors.New(errors.ParserFailure, "grammar parse failed", err).WithPath(path)
	}
	if root.HasError() {
		return nil, errors.New(errors.ParserFailure, "syntax tree contains errors", nil).WithPath(path)
	}

	w := &treeWalker{
		lang:   lang,
		source: source,
		st: &scanState{
			analyzer: newHeuristicAnalyzer(lang, path),
			access:   make(map[string]string),
			res:      &scanResult{},
		},
		ctx: NewParseContext(),
	}
	w.walk(root)
	w.st.res.ctx = w.ctx
	return w.st.res, nil
}

// treeItem is one pending node of the walk with the scopes enclosing it.
type treeItem struct {
	node      *sitter.Node
	namespace string
	scope     string
	fn        string
	inClass   bool
}

type treeWalker struct {
	lang   model.Language
	source []byte
	st     *scanState
	ctx    ParseContext
}

var typeNodeKinds = map[string]model.SymbolKind{
	"class_declaration":          model.KindClass,
	"class_definition":           model.KindClass,
	"class_specifier":            model.KindClass,
	"abstract_class_declaration": model.KindClass,
	"object_declaration":         model.KindClass,
	"record_declaration":         model.KindClass,
	"struct_specifier":           model.KindStruct,
	"union_specifier":            model.KindStruct,
	"struct_item":                model.KindStruct,
	"interface_declaration":      model.KindInterface,
	"trait_item":                 model.KindInterface,
	"enum_declaration":           model.KindEnum,
	"enum_specifier":             model.KindEnum,
	"enum_item":                  model.KindEnum,
	"type_alias_declaration":     model.KindTypedef,
	"type_item":                  model.KindTypedef,
	"alias_declaration":          model.KindTypedef,
}

var functionNodes = map[string]bool{
	"function_declaration":           true,
	"generator_function_declaration": true,
	"method_declaration":             true,
	"method_definition":              true,
	"constructor_declaration":        true,
	"function_definition":            true,
	"function_item":                  true,
	"function_signature_item":        true,
}

var callNodes = map[string]bool{
	"call_expression":   true,
	"call":              true,
	"method_invocation": true,
}

var namespaceNodes = map[string]bool{
	"namespace_definition": true,
	"mod_item":             true,
}

var reQuoted = regexp.MustCompile(`["<']([^"'>]+)["'>]`)

func (w *treeWalker) walk(root *sitter.Node) {
	base := w.packageName(root)
	if base != "" {
		w.ctx = w.ctx.PushNamespace(base, base, 0)
		w.st.res.moduleName = base
		w.st.res.namespaces = append(w.st.res.namespaces, base)
		w.st.addSymbol(model.Symbol{Name: base, QualifiedName: base, Kind: model.KindNamespace, Line: 1, Column: 1, IsDefinition: true, IsExported: true})
	}

	stack := []treeItem{{node: root, namespace: base, scope: base}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		child := w.visit(it)
		for i := int(it.node.ChildCount()) - 1; i >= 0; i-- {
			if c := it.node.Child(i); c != nil {
				next := child
				next.node = c
				stack = append(stack, next)
			}
		}
	}
}

// visit records whatever the node declares and returns the scopes its
// children see.
func (w *treeWalker) visit(it treeItem) treeItem {
	n := it.node
	t := n.Type()
	sep := w.st.analyzer.sep

	switch {
	case namespaceNodes[t]:
		name := w.fieldText(n, "name")
		if name == "" || n.ChildByFieldName("body") == nil {
			return it
		}
		qualified := model.QualifiedJoin(sep, it.namespace, name)
		w.st.addSymbol(w.symbol(n, model.KindNamespace, name, qualified, it.namespace, it.namespace))
		w.st.res.namespaces = append(w.st.res.namespaces, qualified)
		it.namespace, it.scope = qualified, qualified
		return it

	case t == "decorator" || t == "attribute_item":
		text := strings.TrimSpace(strings.TrimLeft(n.Content(w.source), "@#[!"))
		text = strings.TrimRight(text, "]")
		if i := strings.Index(text, "("); i >= 0 {
			text = text[:i]
		}
		w.st.pendingDecorator = append(w.st.pendingDecorator, text)
		return it

	case t == "import_spec" || t == "import_statement" || t == "import_from_statement" ||
		t == "use_declaration" || t == "preproc_include" || t == "import_header" ||
		(t == "import_declaration" && w.lang != model.LangGo):
		w.addImport(n)
		return it

	case callNodes[t]:
		if it.fn != "" {
			if callee := w.callee(n); callee != "" && !isKeyword(callee) {
				w.st.addRelationship(it.fn, callee, model.RelCalls, 0.85, w.line(n), w.firstLine(n))
			}
		}
		return it

	case t == "impl_item":
		target := lastSegment(stripGenerics(w.fieldText(n, "type")))
		if target == "" {
			return it
		}
		qualified := model.QualifiedJoin(sep, it.namespace, target)
		if trait := stripGenerics(w.fieldText(n, "trait")); trait != "" {
			w.st.addRelationship(qualified, trait, model.RelImplements, 0.95, w.line(n), w.firstLine(n))
			w.ctx = w.ctx.AddUnresolved(trait)
		}
		it.scope, it.inClass, it.fn = qualified, true, ""
		return it

	case t == "type_spec" && w.lang == model.LangGo:
		return w.visitGoType(it)
	}

	if kind, ok := typeNodeKinds[t]; ok {
		return w.visitType(it, kind)
	}
	if functionNodes[t] || w.isArrowDeclarator(n) {
		return w.visitFunction(it)
	}
	if it.inClass && it.fn == "" {
		switch {
		case t == "access_specifier":
			w.st.access[it.scope] = strings.TrimSuffix(n.Content(w.source), ":")
		case t == "field_declaration" && isPrototype(n):
			return w.visitFunction(it)
		default:
			w.visitField(it)
		}
	}
	return it
}

func isPrototype(n *sitter.Node) bool {
	d := n.ChildByFieldName("declarator")
	return d != nil && d.Type() == "function_declarator"
}

func (w *treeWalker) visitType(it treeItem, kind model.SymbolKind) treeItem {
	n := it.node
	t := n.Type()
	if (t == "struct_specifier" || t == "class_specifier" || t == "union_specifier" || t == "enum_specifier") &&
		n.ChildByFieldName("body") == nil {
		return it
	}
	name := w.typeName(n)
	if name == "" {
		return it
	}
	if t == "class_declaration" && w.lang == model.LangKotlin && strings.Contains(w.header(n), "interface ") {
		kind = model.KindInterface
	}
	parent := it.scope
	if it.fn != "" {
		parent = it.fn
	}
	qualified := model.QualifiedJoin(w.st.analyzer.sep, parent, name)
	sym := w.symbol(n, kind, name, qualified, it.namespace, parent)
	w.annotate(n, &sym)
	w.st.addSymbol(sym)
	w.st.kinds()[qualified] = kind
	if w.lang == model.LangCpp {
		w.st.access[qualified] = "public"
		if kind == model.KindClass {
			w.st.access[qualified] = "private"
		}
	}

	for _, b := range basesFromHeader(w.lang, w.header(n)) {
		w.st.addRelationship(qualified, b.name, b.rel, 0.9, sym.Line, sym.Signature)
		if !isBuiltinType(w.lang, b.name) {
			w.ctx = w.ctx.AddUnresolved(b.name)
		}
	}
	if kind == model.KindTypedef {
		w.ctx = w.st.recordTypeRefs(w.ctx, qualified, strings.TrimPrefix(sym.Signature, "type "+name), sym.Line)
	}

	it.scope, it.inClass, it.fn = qualified, kind != model.KindTypedef, ""
	return it
}

func (w *treeWalker) visitGoType(it treeItem) treeItem {
	n := it.node
	name := w.fieldText(n, "name")
	if name == "" {
		return it
	}
	kind := model.KindTypedef
	if typ := n.ChildByFieldName("type"); typ != nil {
		switch typ.Type() {
		case "struct_type":
			kind = model.KindStruct
		case "interface_type":
			kind = model.KindInterface
		}
	}
	qualified := model.QualifiedJoin(".", it.namespace, name)
	sym := w.symbol(n, kind, name, qualified, it.namespace, it.namespace)
	sym.Signature = "type " + w.header(n)
	sym.IsExported = isUpper(name)
	if n.ChildByFieldName("type_parameters") != nil {
		sym.Features.Set(model.FeatureGeneric, "")
	}
	w.st.addSymbol(sym)
	w.st.kinds()[qualified] = kind
	if kind == model.KindTypedef {
		w.ctx = w.st.recordTypeRefs(w.ctx, qualified, w.fieldText(n, "type"), sym.Line)
	}
	it.scope, it.inClass, it.fn = qualified, kind != model.KindTypedef, ""
	return it
}

func (w *treeWalker) visitFunction(it treeItem) treeItem {
	n := it.node
	name, owner := w.functionName(n)
	if name == "" {
		return it
	}
	sep := w.st.analyzer.sep

	kind := model.KindFunction
	parent := it.namespace
	switch {
	case owner != "":
		parent = model.QualifiedJoin(sep, it.namespace, owner)
		kind = model.KindMethod
	case it.fn != "":
		parent = it.fn
	case it.inClass:
		parent = it.scope
		kind = model.KindMethod
	}
	if kind == model.KindMethod {
		switch {
		case name == lastSegment(parent), name == "constructor", name == "__init__",
			n.Type() == "constructor_declaration",
			name == "new" && w.lang == model.LangRust:
			kind = model.KindConstructor
		}
	}

	qualified := model.QualifiedJoin(sep, parent, name)
	sym := w.symbol(n, kind, name, qualified, it.namespace, parent)
	sym.IsDefinition = n.Type() != "function_signature_item" && !isPrototype(n) &&
		!strings.HasSuffix(strings.TrimSpace(n.Content(w.source)), ";")
	if rt := w.fieldText(n, "return_type"); rt != "" {
		sym.ReturnType = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(rt, "->"), ":"))
	} else if rt := w.fieldText(n, "result"); rt != "" {
		sym.ReturnType = rt
	} else if rt := w.fieldText(n, "type"); rt != "" && (w.lang == model.LangJava || w.lang == model.LangC || w.lang == model.LangCpp) {
		sym.ReturnType = rt
	}
	if n.ChildByFieldName("type_parameters") != nil {
		sym.Features.Set(model.FeatureGeneric, "")
	}
	w.annotate(n, &sym)
	w.st.addSymbol(sym)

	w.ctx = w.st.recordTypeRefs(w.ctx, qualified, w.fieldText(n, "parameters")+" "+sym.ReturnType, sym.Line)

	it.fn, it.inClass = qualified, false
	return it
}

func (w *treeWalker) visitField(it treeItem) {
	n := it.node
	var name, typ string
	switch n.Type() {
	case "field_declaration":
		if d := n.ChildByFieldName("declarator"); d != nil {
			name = innermostName(d, w.source)
		} else {
			name = w.fieldText(n, "name")
		}
		typ = w.fieldText(n, "type")
	case "public_field_definition", "field_definition":
		name = w.fieldText(n, "name")
		if name == "" {
			name = w.fieldText(n, "property")
		}
		typ = strings.TrimPrefix(w.fieldText(n, "type"), ":")
	default:
		return
	}
	if name == "" {
		return
	}
	qualified := model.QualifiedJoin(w.st.analyzer.sep, it.scope, name)
	sym := w.symbol(n, model.KindField, name, qualified, it.namespace, it.scope)
	sym.ReturnType = strings.TrimSpace(typ)
	w.annotate(n, &sym)
	w.st.addSymbol(sym)
	w.ctx = w.st.recordTypeRefs(w.ctx, it.scope, typ, sym.Line)
}

func (w *treeWalker) symbol(n *sitter.Node, kind model.SymbolKind, name, qualified, namespace, parent string) model.Symbol {
	sig := w.header(n)
	sym := model.Symbol{
		Name:          name,
		QualifiedName: qualified,
		Kind:          kind,
		Line:          w.line(n),
		Column:        int(n.StartPoint().Column) + 1,
		EndLine:       int(n.EndPoint().Row) + 1,
		EndColumn:     int(n.EndPoint().Column) + 1,
		Signature:     sig,
		Namespace:     namespace,
		ParentScope:   parent,
		IsDefinition:  true,
		IsExported:    true,
	}
	sym.Visibility = w.st.defaultVisibility(w.ctx, parent, name)
	switch w.lang {
	case model.LangGo:
		sym.IsExported = isUpper(name)
	case model.LangPython:
		sym.IsExported = !strings.HasPrefix(name, "_")
	case model.LangRust:
		sym.IsExported = strings.HasPrefix(sig, "pub")
		if sym.IsExported {
			sym.Visibility = "public"
		}
	case model.LangJavaScript, model.LangTypeScript, model.LangTSX:
		sym.IsExported = exportedJS(n)
	}
	applyModifiers(&sym, modifierWords(sig))
	if strings.Contains(sig, "async ") || strings.HasPrefix(sig, "async") {
		sym.IsAsync = true
		sym.Features.Set(model.FeatureAsync, "")
	}
	if strings.Contains(sig, "'") && w.lang == model.LangRust {
		sym.Features.Set(model.FeatureLifetime, "")
	}
	return sym
}

// annotate turns Java and Kotlin annotations into decorators.
func (w *treeWalker) annotate(n *sitter.Node, sym *model.Symbol) {
	mods := childOfType(n, "modifiers")
	if mods == nil {
		return
	}
	var names []string
	for i := 0; i < int(mods.ChildCount()); i++ {
		c := mods.Child(i)
		if c == nil {
			continue
		}
		switch c.Type() {
		case "marker_annotation", "annotation":
			text := strings.TrimPrefix(c.Content(w.source), "@")
			if j := strings.Index(text, "("); j >= 0 {
				text = text[:j]
			}
			names = append(names, text)
		}
	}
	if len(names) == 0 {
		return
	}
	sym.Features.Set(model.FeatureDecorator, strings.Join(names, ","))
	for _, d := range names {
		sym.AddTag("decorated:" + d)
	}
}

// modifierWords returns the words of a signature that precede its name and
// parameter list, plus trailing C++ specifiers.
func modifierWords(sig string) string {
	head := sig
	if i := strings.Index(head, "("); i >= 0 {
		head = head[:i]
		tail := sig[i:]
		for _, w := range []string{"override", "final"} {
			if strings.Contains(tail, ") "+w) || strings.Contains(tail, " "+w) {
				head += " " + w
			}
		}
		if strings.Contains(tail, "= 0") {
			head += " pure"
		}
	}
	if strings.HasPrefix(head, "template") {
		if j := strings.Index(head, ">"); j >= 0 {
			head = "template " + head[j+1:]
		}
	}
	return head
}

func (w *treeWalker) functionName(n *sitter.Node) (name, owner string) {
	switch w.lang {
	case model.LangGo:
		name = w.fieldText(n, "name")
		if recv := n.ChildByFieldName("receiver"); recv != nil {
			if ids := complexity.FindNodes(recv, []string{"type_identifier"}); len(ids) > 0 {
				owner = ids[0].Content(w.source)
			}
		}
		return name, owner
	case model.LangKotlin:
		if id := childOfType(n, "simple_identifier"); id != nil {
			name = id.Content(w.source)
		}
		return name, ""
	case model.LangC, model.LangCpp:
		full := innermostName(n.ChildByFieldName("declarator"), w.source)
		if i := strings.LastIndex(full, "::"); i >= 0 {
			return full[i+2:], full[:i]
		}
		return full, ""
	}
	return w.fieldText(n, "name"), ""
}

// innermostName follows declarator fields down to the declared identifier.
func innermostName(d *sitter.Node, source []byte) string {
	for d != nil {
		if d.Type() == "variable_declarator" {
			if name := d.ChildByFieldName("name"); name != nil {
				return name.Content(source)
			}
		}
		switch d.Type() {
		case "identifier", "field_identifier", "qualified_identifier", "destructor_name",
			"operator_name", "type_identifier":
			return d.Content(source)
		}
		d = d.ChildByFieldName("declarator")
	}
	return ""
}

func (w *treeWalker) isArrowDeclarator(n *sitter.Node) bool {
	if n.Type() != "variable_declarator" {
		return false
	}
	v := n.ChildByFieldName("value")
	if v == nil {
		return false
	}
	switch v.Type() {
	case "arrow_function", "function", "function_expression":
		return true
	}
	return false
}

func (w *treeWalker) typeName(n *sitter.Node) string {
	if name := w.fieldText(n, "name"); name != "" {
		return name
	}
	for _, typ := range []string{"type_identifier", "simple_identifier", "identifier"} {
		if c := childOfType(n, typ); c != nil {
			return c.Content(w.source)
		}
	}
	return ""
}

func (w *treeWalker) callee(n *sitter.Node) string {
	var target *sitter.Node
	switch n.Type() {
	case "method_invocation":
		target = n.ChildByFieldName("name")
	default:
		target = n.ChildByFieldName("function")
		if target == nil && n.ChildCount() > 0 {
			target = n.Child(0)
		}
	}
	if target == nil {
		return ""
	}
	text := target.Content(w.source)
	if i := strings.Index(text, "<"); i > 0 {
		text = text[:i]
	}
	if strings.ContainsAny(text, "()[]{} \n") {
		return ""
	}
	return lastSegment(text)
}

func (w *treeWalker) addImport(n *sitter.Node) {
	text := n.Content(w.source)
	var path string
	if m := reQuoted.FindStringSubmatch(text); m != nil {
		path = m[1]
	} else {
		fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(text), ";"))
		if len(fields) < 2 {
			return
		}
		path = fields[1]
		if fields[0] == "import" && fields[1] == "static" && len(fields) > 2 {
			path = fields[2]
		}
	}
	w.st.addImport(path, w.line(n), w.firstLine(n))
}

// packageName returns the file-level package for Go, Java and Kotlin.
func (w *treeWalker) packageName(root *sitter.Node) string {
	for i := 0; i < int(root.ChildCount()); i++ {
		c := root.Child(i)
		if c == nil {
			continue
		}
		switch c.Type() {
		case "package_clause", "package_declaration", "package_header":
			text := strings.TrimSpace(c.Content(w.source))
			text = strings.TrimPrefix(text, "package")
			return strings.TrimSpace(strings.TrimSuffix(text, ";"))
		}
	}
	return ""
}

func (w *treeWalker) fieldText(n *sitter.Node, field string) string {
	c := n.ChildByFieldName(field)
	if c == nil {
		return ""
	}
	return c.Content(w.source)
}

func (w *treeWalker) line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func (w *treeWalker) firstLine(n *sitter.Node) string {
	text := n.Content(w.source)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return text
}

// header is the declaration text up to its body.
func (w *treeWalker) header(n *sitter.Node) string {
	text := n.Content(w.source)
	if body := n.ChildByFieldName("body"); body != nil {
		text = string(w.source[n.StartByte():body.StartByte()])
	}
	return signatureText(strings.Join(strings.Fields(text), " "))
}

// exportedJS reports whether a declaration sits under an export statement,
// directly or through its lexical declaration.
func exportedJS(n *sitter.Node) bool {
	for p, hops := n.Parent(), 0; p != nil && hops < 2; p, hops = p.Parent(), hops+1 {
		if p.Type() == "export_statement" {
			return true
		}
	}
	return false
}

// basesFromHeader reads supertypes from a type declaration header.
func basesFromHeader(lang model.Language, header string) []base {
	fields := strings.Fields(header)
	for len(fields) > 0 && strings.HasPrefix(fields[0], "@") {
		fields = fields[1:]
	}
	h := strings.Join(fields, " ")

	var bases []base
	switch lang {
	case model.LangPython:
		if m := rePyClass.FindStringSubmatch(h + ":"); m != nil {
			for _, b := range splitList(m[2]) {
				if strings.Contains(b, "=") || b == "object" {
					continue
				}
				bases = append(bases, base{name: b, rel: model.RelInherits})
			}
		}
	case model.LangC, model.LangCpp:
		if m := reCppClass.FindStringSubmatch(h); m != nil && m[4] != "" {
			for _, b := range strings.Split(m[4], ",") {
				b = strings.TrimSpace(b)
				for _, kw := range []string{"public ", "private ", "protected ", "virtual "} {
					b = strings.TrimPrefix(b, kw)
				}
				bases = append(bases, base{name: strings.TrimSpace(stripGenerics(b)), rel: model.RelInherits})
			}
		}
	case model.LangJavaScript, model.LangTypeScript, model.LangTSX:
		if m := reJSClass.FindStringSubmatch(h); m != nil {
			if m[3] != "" {
				bases = append(bases, base{name: m[3], rel: model.RelInherits})
			}
			for _, i := range splitList(m[4]) {
				bases = append(bases, base{name: i, rel: model.RelImplements})
			}
		} else if m := reTSInterface.FindStringSubmatch(h); m != nil {
			for _, i := range splitList(m[3]) {
				bases = append(bases, base{name: i, rel: model.RelInherits})
			}
		}
	case model.LangJava, model.LangKotlin:
		if m := reJVMClass.FindStringSubmatch(h); m != nil {
			for _, b := range splitList(m[4]) {
				bases = append(bases, base{name: b, rel: model.RelInherits})
			}
			for _, b := range splitList(m[5]) {
				bases = append(bases, base{name: b, rel: model.RelImplements})
			}
			for _, b := range splitList(m[6]) {
				rel := model.RelImplements
				if strings.Contains(b, "(") || m[2] == "interface" {
					rel = model.RelInherits
				}
				bases = append(bases, base{name: strings.TrimSpace(strings.Split(b, "(")[0]), rel: rel})
			}
		}
	}
	return bases
}

func childOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil && c.Type() == typ {
			return c
		}
	}
	return nil
}

// IsAvailable reports whether the grammar rung is compiled in.
func IsAvailable() bool {
	return complexity.IsAvailable()
}
