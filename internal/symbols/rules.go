package symbols

import (
	"regexp"
	"strings"
	"unicode"

	"sentinel/internal/model"
)

type family int

const (
	familyC family = iota
	familyGo
	familyJS
	familyPython
	familyRust
	familyJVM
	familyShell
)

// languageRules recognizes declarations for one language family.
type languageRules struct {
	lang   model.Language
	family family
}

func rulesFor(lang model.Language) *languageRules {
	f := familyC
	switch lang {
	case model.LangGo:
		f = familyGo
	case model.LangJavaScript, model.LangTypeScript, model.LangTSX:
		f = familyJS
	case model.LangPython:
		f = familyPython
	case model.LangRust:
		f = familyRust
	case model.LangJava, model.LangKotlin, model.LangCSharp:
		f = familyJVM
	case model.LangShell:
		f = familyShell
	}
	return &languageRules{lang: lang, family: f}
}

// declarationScope reports whether declarations may start at this point.
func (r *languageRules) declarationScope(ctx ParseContext) bool {
	return !ctx.InFunctionBody()
}

// declare recognizes a declaration on the statement. The boolean is true
// when the statement was consumed as a declaration or directive.
func (r *languageRules) declare(st *scanState, ctx ParseContext, clean, raw string, line, depth int, hasBrace bool) (ParseContext, bool) {
	t := strings.TrimSpace(clean)
	if t == "" {
		return ctx, false
	}
	switch r.family {
	case familyGo:
		return r.declareGo(st, ctx, t, raw, line, depth, hasBrace)
	case familyJS:
		return r.declareJS(st, ctx, t, raw, line, depth, hasBrace)
	case familyPython:
		return r.declarePython(st, ctx, t, raw, line, depth)
	case familyRust:
		return r.declareRust(st, ctx, t, raw, line, depth, hasBrace)
	case familyJVM:
		return r.declareJVM(st, ctx, t, raw, line, depth, hasBrace)
	case familyShell:
		return r.declareShell(st, ctx, t, raw, line, depth, hasBrace)
	default:
		return r.declareC(st, ctx, t, raw, line, depth, hasBrace)
	}
}

var (
	reInclude      = regexp.MustCompile(`^#\s*(?:include|import)\s*[<"]([^>"]+)[>"]`)
	reCppModule    = regexp.MustCompile(`^(export\s+)?module\s+([\w\.:]+)\s*;`)
	reCppImport    = regexp.MustCompile(`^(?:export\s+)?import\s+([<"]?[\w\./:]+[>"]?)\s*;`)
	reAccessLabel  = regexp.MustCompile(`^(public|private|protected)\s*:`)
	reTemplateLine = regexp.MustCompile(`^template\s*<(.*)>\s*$`)
	reNamespace    = regexp.MustCompile(`^(?:inline\s+)?namespace\s+([A-Za-z_][\w:\.]*)\s*(\{|;)?`)
	reCppEnum      = regexp.MustCompile(`^enum\s+(?:class\s+|struct\s+)?([A-Za-z_]\w*)(?:\s*:\s*[\w:]+)?\s*(\{.*|;)?$`)
	reCppClass     = regexp.MustCompile(`^(?:template\s*<[^>]*>\s*)?(?:export\s+)?(class|struct|union)\s+(?:\[\[[^\]]*\]\]\s*)?(?:[A-Z_][A-Z0-9_]*\s+)?([A-Za-z_]\w*)\s*(?:<[^>]*>)?\s*(final\s*)?(?::\s*([^{;]+))?\s*(\{.*)?$`)
	reTypedef      = regexp.MustCompile(`^typedef\s+.*?\b([A-Za-z_]\w*)\s*(?:\[[^\]]*\])?\s*;$`)
	reUsingAlias   = regexp.MustCompile(`^(?:template\s*<[^>]*>\s*)?using\s+([A-Za-z_]\w*)\s*=\s*([^;]+);`)
	reCFunc        = regexp.MustCompile(`^((?:(?:template\s*<[^>]*>|virtual|static|inline|constexpr|consteval|explicit|friend|extern(?:\s+"[^"]*")?|export|\[\[[^\]]*\]\])\s*)*)` +
		`((?:[\w:]+(?:<[^()]*>)?[\s\*&]+)*?)` +
		`(~?[A-Za-z_]\w*(?:::~?[A-Za-z_]\w*)*|operator\s*[^\s(]+)\s*` +
		`\(([^()]*(?:\([^()]*\)[^()]*)*)\)\s*` +
		`((?:const|override|final|noexcept(?:\([^)]*\))?|volatile|mutable|&&?|->\s*[\w:<>\*&]+|\s)*)` +
		`(=\s*(?:0|default|delete)\s*)?` +
		`(\{.*|;|:.*)?$`)
	reCField = regexp.MustCompile(`^((?:(?:static|const|constexpr|mutable|inline|volatile)\s+)*)([\w:]+(?:<[^;()]*>)?[\s\*&]+)([A-Za-z_]\w*)\s*(?:\[[^\]]*\])?\s*(?:=[^;]*|\{[^;]*\})?;$`)

	reGoPackage   = regexp.MustCompile(`^package\s+(\w+)`)
	reGoImport    = regexp.MustCompile(`^import\s+(?:[\w\.]+\s+)?"([^"]+)"`)
	reGoImportRow = regexp.MustCompile(`^(?:[\w\.]+\s+)?"([^"]+)"`)
	reGoType      = regexp.MustCompile(`^type\s+([A-Za-z_]\w*)(\[[^\]]*\])?\s+(=\s*)?(struct|interface|[\w\.\[\]\*]+.*?)\s*(\{.*)?$`)
	reGoFunc      = regexp.MustCompile(`^func\s+(?:\(\s*(?:\w+\s+)?\*?\s*([A-Za-z_]\w*)(?:\[[^\]]*\])?\s*\)\s*)?([A-Za-z_]\w*)(\[[^\]]*\])?\s*\(([^)]*)\)\s*([^{]*?)\s*(\{.*)?$`)
	reGoField     = regexp.MustCompile(`^([A-Za-z_]\w*(?:\s*,\s*[A-Za-z_]\w*)*)\s+([\*\[\]\w\.]+[^` + "`" + `]*?)\s*(?:` + "`" + `.*)?$`)
	reGoEmbedded  = regexp.MustCompile(`^\*?([A-Za-z_][\w]*(?:\.[A-Za-z_]\w*)?)$`)
	reGoIfaceFunc = regexp.MustCompile(`^([A-Za-z_]\w*)\s*\(([^)]*)\)\s*(.*)$`)

	reJSImport     = regexp.MustCompile(`^import\s+(?:type\s+)?(?:.*?\s+from\s+)?['"]([^'"]+)['"]`)
	reJSRequire    = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	reJSExportList = regexp.MustCompile(`^export\s*\{([^}]*)\}`)
	reJSClass      = regexp.MustCompile(`^(export\s+)?(?:default\s+)?(?:declare\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)(?:<[^>]*>)?(?:\s+extends\s+([\w$.]+)(?:<[^>]*>)?)?(?:\s+implements\s+([\w$.,\s<>]+?))?\s*(\{.*)?$`)
	reTSInterface  = regexp.MustCompile(`^(export\s+)?(?:declare\s+)?interface\s+([A-Za-z_$][\w$]*)(?:<[^>]*>)?(?:\s+extends\s+([\w$.,\s<>]+?))?\s*(\{.*)?$`)
	reTSEnum       = regexp.MustCompile(`^(export\s+)?(?:const\s+)?enum\s+([A-Za-z_$][\w$]*)\s*(\{.*)?$`)
	reTSType       = regexp.MustCompile(`^(export\s+)?type\s+([A-Za-z_$][\w$]*)(?:<[^>]*>)?\s*=`)
	reJSFunc       = regexp.MustCompile(`^(export\s+)?(?:default\s+)?(async\s+)?function\s*(\*)?\s*([A-Za-z_$][\w$]*)\s*(?:<[^>]*>)?\s*\(([^)]*)\)\s*(?::\s*([^{]+?))?\s*(\{.*)?$`)
	reJSArrow      = regexp.MustCompile(`^(export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*(?::\s*[^=]+)?=\s*(async\s+)?(?:function\s*\*?\s*[\w$]*\s*)?\(([^)]*)\)\s*(?::\s*([^=>{]+?))?\s*(?:=>\s*)?(\{.*)?$`)
	reJSMethod     = regexp.MustCompile(`^((?:(?:public|private|protected|static|readonly|abstract|override|async|get|set)\s+)*)(\*)?\s*(#?[A-Za-z_$][\w$]*)\s*(?:<[^>]*>)?\s*\(([^)]*)\)\s*(?::\s*([^{;]+?))?\s*(\{.*|;)?$`)
	reJSPropArrow  = regexp.MustCompile(`^((?:(?:public|private|protected|static|readonly)\s+)*)(#?[A-Za-z_$][\w$]*)\s*(?::\s*[^=]+)?=\s*(async\s+)?\(([^)]*)\)\s*(?::\s*[^=]+?)?\s*=>\s*(\{.*)?$`)
	reJSField      = regexp.MustCompile(`^((?:(?:public|private|protected|static|readonly|declare)\s+)*)(#?[A-Za-z_$][\w$]*)\s*[?!]?\s*(?::\s*([^=;]+))?(?:=\s*[^;]+)?;?$`)

	rePyDecorator = regexp.MustCompile(`^@([\w\.]+)`)
	rePyImport    = regexp.MustCompile(`^import\s+([\w\.]+(?:\s*,\s*[\w\.]+)*)`)
	rePyFrom      = regexp.MustCompile(`^from\s+([\w\.]+)\s+import\s+`)
	rePyClass     = regexp.MustCompile(`^class\s+([A-Za-z_]\w*)\s*(?:\(([^)]*)\))?\s*:`)
	rePyDef       = regexp.MustCompile(`^(async\s+)?def\s+([A-Za-z_]\w*)\s*\((.*)\)\s*(?:->\s*([^:]+))?:`)
	rePySelfField = regexp.MustCompile(`\bself\.([A-Za-z_]\w*)\s*(?::\s*[^=]+)?=[^=]`)

	reRustUse    = regexp.MustCompile(`^(?:pub(?:\([^)]*\))?\s+)?use\s+([^;]+);`)
	reRustMod    = regexp.MustCompile(`^(pub(?:\([^)]*\))?\s+)?mod\s+([A-Za-z_]\w*)\s*(\{|;)`)
	reRustType   = regexp.MustCompile(`^(pub(?:\([^)]*\))?\s+)?(struct|enum|trait|union|type)\s+([A-Za-z_]\w*)\s*(<[^>]*>)?(.*)$`)
	reRustImpl   = regexp.MustCompile(`^(?:unsafe\s+)?impl\s*(<[^>]*>)?\s+(?:([\w:]+)(?:<[^>]*>)?\s+for\s+)?([\w:]+)(?:<[^>]*>)?`)
	reRustFn     = regexp.MustCompile(`^(pub(?:\([^)]*\))?\s+)?((?:(?:const|async|unsafe|extern\s+"[^"]*"|default)\s+)*)fn\s+([A-Za-z_]\w*)\s*(<[^>]*>)?\s*\((.*?)\)\s*(?:->\s*([^{;]+?))?\s*(?:where[^{;]*)?(\{.*|;)?$`)
	reRustExtern = regexp.MustCompile(`^extern\s+"([^"]+)"\s*\{`)

	reJVMPackage   = regexp.MustCompile(`^package\s+([\w\.]+)\s*;?`)
	reJVMImport    = regexp.MustCompile(`^import\s+(?:static\s+)?([\w\.\*]+)\s*;?`)
	reCSharpUsing  = regexp.MustCompile(`^(?:global\s+)?using\s+(?:static\s+)?([\w\.]+)\s*;`)
	reAnnotation   = regexp.MustCompile(`^@([A-Za-z_][\w\.]*)(?:\(.*\))?$`)
	reJVMClass     = regexp.MustCompile(`^((?:(?:public|private|protected|internal|abstract|final|static|sealed|open|data|partial|inner|enum|annotation|value|readonly)\s+)*)(class|interface|enum|record|object|struct)\s+([A-Za-z_]\w*)(?:<[^>]*>)?(?:\s*\([^)]*\))?(?:\s+extends\s+([\w\.<>,\s]+?))?(?:\s+implements\s+([\w\.,\s<>]+?))?(?:\s*:\s*([^{]+?))?\s*(\{.*)?$`)
	reJVMMethod    = regexp.MustCompile(`^((?:(?:public|private|protected|internal|static|final|abstract|synchronized|native|default|override|virtual|async|sealed|new|extern|unsafe|partial)\s+)*)(?:<[^>]*>\s+)?([\w\.\[\]\?]+(?:<[^()]*>)?(?:\[\])*)\s+([A-Za-z_]\w*)\s*\(([^)]*)\)\s*(?:throws\s+[\w\.,\s]+)?\s*(\{.*|;|=>.*)?$`)
	reJVMCtor      = regexp.MustCompile(`^((?:(?:public|private|protected|internal)\s+)?)([A-Z]\w*)\s*\(([^)]*)\)\s*(?:throws\s+[\w\.,\s]+)?\s*(?::\s*(?:base|this)\s*\(.*\))?\s*(\{.*)?$`)
	reKotlinFun    = regexp.MustCompile(`^((?:(?:public|private|protected|internal|override|open|abstract|suspend|inline|operator|infix|tailrec|external)\s+)*)fun\s+(?:<[^>]*>\s*)?(?:([\w\.]+)\.)?([A-Za-z_]\w*)\s*\(([^)]*)\)\s*(?::\s*([^{=]+?))?\s*(\{.*|=.*)?$`)
	reJVMField     = regexp.MustCompile(`^((?:(?:public|private|protected|internal|static|final|readonly|volatile|transient|const)\s+)*)([\w\.\[\]\?]+(?:<[^;=()]*>)?(?:\[\])*)\s+([A-Za-z_]\w*)\s*(?:=[^;]*)?;$`)
	reKotlinField  = regexp.MustCompile(`^((?:(?:private|public|protected|internal|override|open|lateinit|const)\s+)*)(?:val|var)\s+([A-Za-z_]\w*)\s*(?::\s*([^=]+))?`)

	reShellFunc = regexp.MustCompile(`^(?:function\s+)?([A-Za-z_][\w\-]*)\s*\(\s*\)\s*(\{.*)?$|^function\s+([A-Za-z_][\w\-]*)\s*(\{.*)?$`)
	reShellSrc  = regexp.MustCompile(`^(?:source|\.)\s+(\S+)`)

	reCall           = regexp.MustCompile(`([A-Za-z_$][\w$]*(?:\s*(?:\.|::|->)\s*[A-Za-z_$][\w$]*)*)\s*(?:<[\w\s:,\*&]*>)?\s*\(`)
	reFieldAccess    = regexp.MustCompile(`(?:\bthis\s*(?:->|\.)|\bself\s*(?:\.|->))\s*([A-Za-z_]\w*)`)
	reAssignAfter    = regexp.MustCompile(`^\s*(?:=[^=]|\+=|-=|\*=|/=|%=|\|=|&=|\^=|<<=|>>=|\+\+|--)`)
	reSignatureStart = regexp.MustCompile(`^(?:@\S+\s+)*(?:(?:pub(?:\([^)]*\))?|async|export|default|public|private|protected|internal|static|virtual|inline|constexpr|override|final|abstract|suspend|open|unsafe|extern)\s+)*(?:def|fn|fun|func|function)\b|^[\w:<>\*&~\[\],\s]+\s+[\*&]*~?[\w:]+\s*\(`)
	reTypeIdent      = regexp.MustCompile(`\b([A-Z][A-Za-z0-9_]*(?:(?:::|\.)[A-Z][A-Za-z0-9_]*)*)\b`)
)

// callable describes a function-like declaration.
type callable struct {
	name       string
	owner      string
	params     string
	returnType string
	modifiers  string
	visibility string
	definition bool
	async      bool
	exported   bool
	generator  bool
}

func (st *scanState) declareCallable(ctx ParseContext, c callable, raw string, line, depth int, hasBrace bool) ParseContext {
	a := st.analyzer
	kind := model.KindFunction
	var parent string
	switch {
	case c.owner != "":
		parent = model.QualifiedJoin(a.sep, ctx.Scope(), c.owner)
		kind = model.KindMethod
	case ctx.InClassBody():
		parent = ctx.CurrentClass()
		kind = model.KindMethod
	case ctx.InFunctionBody():
		parent = ctx.CurrentFunction()
	default:
		parent = ctx.CurrentNamespace()
	}
	if kind == model.KindMethod {
		owner := lastSegment(parent)
		if c.name == owner || c.name == "constructor" || c.name == "__init__" || c.name == "new" && a.lang == model.LangRust {
			kind = model.KindConstructor
		}
	}

	qualified := model.QualifiedJoin(a.sep, parent, c.name)
	visibility := c.visibility
	if visibility == "" {
		visibility = st.defaultVisibility(ctx, parent, c.name)
	}
	sym := model.Symbol{
		Name:          c.name,
		QualifiedName: qualified,
		Kind:          kind,
		Line:          line,
		Column:        indentBytes(raw) + 1,
		Signature:     signatureText(raw),
		ReturnType:    strings.TrimSpace(c.returnType),
		Visibility:    visibility,
		Namespace:     ctx.CurrentNamespace(),
		ParentScope:   parent,
		IsDefinition:  c.definition,
		IsExported:    c.exported,
		IsAsync:       c.async,
	}
	applyModifiers(&sym, c.modifiers)
	if c.async {
		sym.Features.Set(model.FeatureAsync, "")
	}
	if c.generator {
		sym.Features.Set(model.FeatureGenerator, "")
	}
	st.addSymbol(sym)

	ctx = st.recordTypeRefs(ctx, qualified, c.params+" "+c.returnType, line)
	if c.definition {
		ctx = st.open(ctx, frameFunction, c.name, qualified, depth, hasBrace)
	}
	return ctx
}

// base is a supertype reference on a type declaration.
type base struct {
	name string
	rel  model.RelationshipType
}

func (st *scanState) declareType(ctx ParseContext, kind model.SymbolKind, name string, bases []base, raw string, line, depth int, hasBrace, body, exported bool, modifiers string) ParseContext {
	a := st.analyzer
	scope := ctx.Scope()
	if ctx.InFunctionBody() {
		scope = ctx.CurrentFunction()
	}
	qualified := model.QualifiedJoin(a.sep, scope, name)
	sym := model.Symbol{
		Name:          name,
		QualifiedName: qualified,
		Kind:          kind,
		Line:          line,
		Column:        indentBytes(raw) + 1,
		Signature:     signatureText(raw),
		Visibility:    st.defaultVisibility(ctx, scope, name),
		Namespace:     ctx.CurrentNamespace(),
		ParentScope:   scope,
		IsDefinition:  body || !strings.HasSuffix(strings.TrimSpace(raw), ";"),
		IsExported:    exported,
	}
	if exported && sym.Visibility == "private" {
		sym.Visibility = "public"
	}
	applyModifiers(&sym, modifiers)
	st.addSymbol(sym)

	for _, b := range bases {
		bn := strings.TrimSpace(b.name)
		if bn == "" {
			continue
		}
		st.addRelationship(qualified, bn, b.rel, 0.85, line, raw)
		if !isBuiltinType(a.lang, bn) {
			ctx = ctx.AddUnresolved(bn)
		}
	}

	switch kind {
	case model.KindClass:
		st.access[qualified] = "private"
		if a.lang != model.LangCpp {
			st.access[qualified] = ""
		}
	case model.KindStruct:
		st.access[qualified] = "public"
	}
	st.kinds()[qualified] = kind

	if body {
		ctx = st.open(ctx, frameClass, name, qualified, depth, hasBrace)
	}
	return ctx
}

func (st *scanState) declareNamespace(ctx ParseContext, name, raw string, line, depth int, hasBrace, fileScoped bool) ParseContext {
	a := st.analyzer
	qualified := model.QualifiedJoin(a.sep, ctx.CurrentNamespace(), strings.ReplaceAll(name, ".", a.sep))
	st.addSymbol(model.Symbol{
		Name:          name,
		QualifiedName: qualified,
		Kind:          model.KindNamespace,
		Line:          line,
		Column:        indentBytes(raw) + 1,
		Namespace:     ctx.CurrentNamespace(),
		IsDefinition:  true,
		IsExported:    true,
	})
	st.res.namespaces = append(st.res.namespaces, qualified)
	if fileScoped {
		return ctx.PushNamespace(name, qualified, 0)
	}
	return st.open(ctx, frameNamespace, name, qualified, depth, hasBrace)
}

func (st *scanState) declareField(ctx ParseContext, name, typ, modifiers, raw string, line int) ParseContext {
	a := st.analyzer
	cls := ctx.CurrentClass()
	qualified := model.QualifiedJoin(a.sep, cls, name)
	sym := model.Symbol{
		Name:          name,
		QualifiedName: qualified,
		Kind:          model.KindField,
		Line:          line,
		Column:        indentBytes(raw) + 1,
		Signature:     signatureText(raw),
		ReturnType:    strings.TrimSpace(typ),
		Visibility:    st.defaultVisibility(ctx, cls, name),
		Namespace:     ctx.CurrentNamespace(),
		ParentScope:   cls,
		IsDefinition:  true,
	}
	if v := jvmVisibility(modifiers); v != "" {
		sym.Visibility = v
	}
	applyModifiers(&sym, modifiers)
	st.addSymbol(sym)
	return st.recordTypeRefs(ctx, cls, typ, line)
}

func (st *scanState) kinds() map[string]model.SymbolKind {
	if st.typeKinds == nil {
		st.typeKinds = make(map[string]model.SymbolKind)
	}
	return st.typeKinds
}

func (st *scanState) defaultVisibility(ctx ParseContext, scope, name string) string {
	switch st.analyzer.lang {
	case model.LangCpp:
		if v, ok := st.access[scope]; ok && v != "" {
			return v
		}
		return "public"
	case model.LangGo:
		if isUpper(name) {
			return "public"
		}
		return "private"
	case model.LangPython:
		if strings.HasPrefix(name, "__") && !strings.HasSuffix(name, "__") {
			return "private"
		}
		if strings.HasPrefix(name, "_") {
			return "protected"
		}
		return "public"
	case model.LangRust:
		return "private"
	case model.LangJava, model.LangCSharp:
		if st.kinds()[scope] == model.KindInterface {
			return "public"
		}
		return "package"
	}
	return "public"
}

func (r *languageRules) declareC(st *scanState, ctx ParseContext, t, raw string, line, depth int, hasBrace bool) (ParseContext, bool) {
	if strings.HasPrefix(t, "#") {
		if m := reInclude.FindStringSubmatch(strings.TrimSpace(raw)); m != nil {
			st.res.imports = append(st.res.imports, m[1])
			st.addRelationship(st.analyzer.path, m[1], model.RelIncludes, 0.95, line, raw)
		}
		return ctx, true
	}
	if m := reCppModule.FindStringSubmatch(t); m != nil {
		st.res.moduleName = m[2]
		if m[1] != "" {
			st.res.exports = append(st.res.exports, m[2])
		}
		return ctx, true
	}
	if m := reCppImport.FindStringSubmatch(strings.TrimSpace(raw)); m != nil {
		st.res.imports = append(st.res.imports, strings.Trim(m[1], `<>"`))
		st.addRelationship(st.analyzer.path, strings.Trim(m[1], `<>"`), model.RelImports, 0.9, line, raw)
		return ctx, true
	}
	if m := reAccessLabel.FindStringSubmatch(t); m != nil && ctx.InClassBody() {
		st.access[ctx.CurrentClass()] = m[1]
		return ctx, true
	}
	if m := reTemplateLine.FindStringSubmatch(t); m != nil {
		st.pendingTemplate = m[1]
		return ctx, true
	}
	if ctx.InFunctionBody() {
		return ctx, false
	}

	exported := strings.HasPrefix(t, "export ")
	if m := reNamespace.FindStringSubmatch(t); m != nil {
		return st.declareNamespace(ctx, m[1], raw, line, depth, hasBrace, false), true
	}
	if m := reCppEnum.FindStringSubmatch(t); m != nil {
		body := !strings.HasPrefix(m[2], ";")
		return st.declareType(ctx, model.KindEnum, m[1], nil, raw, line, depth, hasBrace, body, exported, ""), true
	}
	if m := reCppClass.FindStringSubmatch(t); m != nil {
		kind := model.KindClass
		if m[1] != "class" {
			kind = model.KindStruct
		}
		var bases []base
		if m[4] != "" {
			for _, b := range strings.Split(m[4], ",") {
				b = strings.TrimSpace(b)
				for _, kw := range []string{"public ", "private ", "protected ", "virtual "} {
					b = strings.TrimPrefix(b, kw)
				}
				b = strings.TrimSpace(stripGenerics(b))
				bases = append(bases, base{name: b, rel: model.RelInherits})
			}
		}
		ctx = st.declareType(ctx, kind, m[2], bases, raw, line, depth, hasBrace, true, exported, "")
		return ctx, true
	}
	if m := reTypedef.FindStringSubmatch(t); m != nil {
		return st.declareType(ctx, model.KindTypedef, m[1], nil, raw, line, depth, false, false, exported, ""), true
	}
	if m := reUsingAlias.FindStringSubmatch(t); m != nil {
		ctx = st.declareType(ctx, model.KindTypedef, m[1], nil, raw, line, depth, false, false, exported, "")
		return st.recordTypeRefs(ctx, model.QualifiedJoin(st.analyzer.sep, ctx.Scope(), m[1]), m[2], line), true
	}
	if m := reCFunc.FindStringSubmatch(t); m != nil {
		name := m[3]
		ret := strings.TrimSpace(m[2])
		owner := ""
		if i := strings.LastIndex(name, "::"); i >= 0 {
			owner, name = name[:i], name[i+2:]
		}
		if isKeyword(name) || isStatementWord(firstWord(ret)) {
			return ctx, false
		}
		inClass := ctx.InClassBody()
		isCtor := strings.HasPrefix(name, "~") || (inClass && name == lastSegment(ctx.CurrentClass())) || (owner != "" && lastSegment(owner) == name)
		if ret == "" && owner == "" && !isCtor {
			return ctx, false
		}
		term := m[7]
		definition := strings.HasPrefix(term, "{") || strings.HasPrefix(term, ":") || term == ""
		if m[6] != "" {
			definition = strings.Contains(m[6], "default")
		}
		if term == ";" {
			definition = false
		}
		mods := m[1] + " " + m[5]
		c := callable{
			name:       name,
			owner:      owner,
			params:     m[4],
			returnType: ret,
			modifiers:  mods,
			definition: definition && m[6] == "",
			exported:   exported || !strings.Contains(m[1], "static"),
		}
		if strings.Contains(m[6], "0") {
			c.modifiers += " pure"
		}
		return st.declareCallable(ctx, c, raw, line, depth, strings.HasPrefix(term, "{") || hasBrace), true
	}
	if ctx.InClassBody() {
		if m := reCField.FindStringSubmatch(t); m != nil && !isStatementWord(firstWord(m[2])) {
			return st.declareField(ctx, m[3], m[2], m[1], raw, line), true
		}
	}
	return ctx, false
}

func (r *languageRules) declareGo(st *scanState, ctx ParseContext, t, raw string, line, depth int, hasBrace bool) (ParseContext, bool) {
	if st.inImportBlock {
		if strings.HasPrefix(t, ")") {
			st.inImportBlock = false
		} else if m := reGoImportRow.FindStringSubmatch(strings.TrimSpace(raw)); m != nil {
			st.addImport(m[1], line, raw)
		}
		return ctx, true
	}
	if m := reGoPackage.FindStringSubmatch(t); m != nil {
		st.res.moduleName = m[1]
		return st.declareNamespace(ctx, m[1], raw, line, depth, false, true), true
	}
	if strings.HasPrefix(t, "import (") || t == "import(" {
		st.inImportBlock = true
		return ctx, true
	}
	if m := reGoImport.FindStringSubmatch(strings.TrimSpace(raw)); m != nil {
		st.addImport(m[1], line, raw)
		return ctx, true
	}
	if ctx.InFunctionBody() {
		return ctx, false
	}
	if m := reGoType.FindStringSubmatch(t); m != nil {
		name := m[1]
		kind := model.KindTypedef
		body := false
		switch m[4] {
		case "struct":
			kind, body = model.KindStruct, true
		case "interface":
			kind, body = model.KindInterface, true
		}
		mods := ""
		if m[2] != "" {
			mods = "generic"
		}
		ctx = st.declareType(ctx, kind, name, nil, raw, line, depth, hasBrace, body, isUpper(name), mods)
		if kind == model.KindTypedef {
			ctx = st.recordTypeRefs(ctx, model.QualifiedJoin(".", ctx.Scope(), name), m[4], line)
		}
		return ctx, true
	}
	if m := reGoFunc.FindStringSubmatch(t); m != nil {
		mods := ""
		if m[3] != "" {
			mods = "generic"
		}
		c := callable{
			name:       m[2],
			owner:      m[1],
			params:     m[4],
			returnType: m[5],
			modifiers:  mods,
			definition: true,
			exported:   isUpper(m[2]),
		}
		return st.declareCallable(ctx, c, raw, line, depth, m[6] != ""), true
	}
	if ctx.InClassBody() {
		cls := ctx.CurrentClass()
		switch st.kinds()[cls] {
		case model.KindInterface:
			if m := reGoIfaceFunc.FindStringSubmatch(t); m != nil {
				c := callable{name: m[1], params: m[2], returnType: m[3], exported: isUpper(m[1])}
				return st.declareCallable(ctx, c, raw, line, depth, false), true
			}
			if m := reGoEmbedded.FindStringSubmatch(t); m != nil {
				st.addRelationship(cls, m[1], model.RelInherits, 0.8, line, raw)
				return ctx, true
			}
		case model.KindStruct:
			if m := reGoEmbedded.FindStringSubmatch(t); m != nil {
				st.addRelationship(cls, m[1], model.RelInherits, 0.8, line, raw)
				return ctx, true
			}
			if m := reGoField.FindStringSubmatch(t); m != nil && !strings.HasPrefix(t, "}") {
				for _, name := range strings.Split(m[1], ",") {
					ctx = st.declareField(ctx, strings.TrimSpace(name), m[2], "", raw, line)
				}
				return ctx, true
			}
		}
	}
	return ctx, false
}

func (r *languageRules) declareJS(st *scanState, ctx ParseContext, t, raw string, line, depth int, hasBrace bool) (ParseContext, bool) {
	if m := reJSImport.FindStringSubmatch(strings.TrimSpace(raw)); m != nil {
		st.addImport(m[1], line, raw)
		return ctx, true
	}
	for _, m := range reJSRequire.FindAllStringSubmatch(raw, -1) {
		st.addImport(m[1], line, raw)
	}
	if m := reJSExportList.FindStringSubmatch(t); m != nil {
		for _, name := range strings.Split(m[1], ",") {
			name = strings.TrimSpace(strings.Split(strings.TrimSpace(name), " as ")[0])
			if name != "" {
				st.res.exports = append(st.res.exports, name)
			}
		}
		return ctx, true
	}
	if strings.HasPrefix(t, "@") {
		if m := reAnnotation.FindStringSubmatch(t); m != nil {
			st.pendingDecorator = append(st.pendingDecorator, m[1])
			return ctx, true
		}
	}
	if ctx.InFunctionBody() {
		return ctx, false
	}

	if m := reJSClass.FindStringSubmatch(t); m != nil {
		var bases []base
		if m[3] != "" {
			bases = append(bases, base{name: m[3], rel: model.RelInherits})
		}
		for _, i := range splitList(m[4]) {
			bases = append(bases, base{name: i, rel: model.RelImplements})
		}
		return st.declareType(ctx, model.KindClass, m[2], bases, raw, line, depth, m[5] != "", true, m[1] != "", ""), true
	}
	if m := reTSInterface.FindStringSubmatch(t); m != nil {
		var bases []base
		for _, i := range splitList(m[3]) {
			bases = append(bases, base{name: i, rel: model.RelInherits})
		}
		return st.declareType(ctx, model.KindInterface, m[2], bases, raw, line, depth, m[4] != "", true, m[1] != "", ""), true
	}
	if m := reTSEnum.FindStringSubmatch(t); m != nil {
		return st.declareType(ctx, model.KindEnum, m[2], nil, raw, line, depth, m[3] != "", true, m[1] != "", ""), true
	}
	if m := reTSType.FindStringSubmatch(t); m != nil {
		return st.declareType(ctx, model.KindTypedef, m[2], nil, raw, line, depth, false, false, m[1] != "", ""), true
	}
	if m := reJSFunc.FindStringSubmatch(t); m != nil {
		c := callable{
			name:       m[4],
			params:     m[5],
			returnType: m[6],
			definition: true,
			async:      m[2] != "",
			generator:  m[3] != "",
			exported:   m[1] != "",
		}
		return st.declareCallable(ctx, c, raw, line, depth, m[7] != ""), true
	}
	if m := reJSArrow.FindStringSubmatch(t); m != nil && !ctx.InClassBody() {
		c := callable{
			name:       m[2],
			params:     m[4],
			returnType: m[5],
			definition: true,
			async:      m[3] != "",
			exported:   m[1] != "",
		}
		return st.declareCallable(ctx, c, raw, line, depth, m[6] != ""), m[6] != ""
	}
	if !ctx.InClassBody() {
		return ctx, false
	}
	if m := reJSPropArrow.FindStringSubmatch(t); m != nil {
		c := callable{name: m[2], params: m[4], modifiers: m[1], definition: true, async: m[3] != "", visibility: jsVisibility(m[1], m[2])}
		return st.declareCallable(ctx, c, raw, line, depth, m[5] != ""), true
	}
	if m := reJSMethod.FindStringSubmatch(t); m != nil && !isKeyword(m[3]) {
		c := callable{
			name:       m[3],
			params:     m[4],
			returnType: m[5],
			modifiers:  m[1],
			visibility: jsVisibility(m[1], m[3]),
			definition: m[6] != ";",
			async:      strings.Contains(m[1], "async"),
			generator:  m[2] != "",
		}
		return st.declareCallable(ctx, c, raw, line, depth, strings.HasPrefix(m[6], "{")), true
	}
	if m := reJSField.FindStringSubmatch(t); m != nil && !isKeyword(m[2]) && !strings.ContainsAny(t, "(){}") {
		return st.declareField(ctx, m[2], m[3], m[1], raw, line), true
	}
	return ctx, false
}

func (r *languageRules) declarePython(st *scanState, ctx ParseContext, t, raw string, line, indent int) (ParseContext, bool) {
	if m := rePyDecorator.FindStringSubmatch(t); m != nil {
		st.pendingDecorator = append(st.pendingDecorator, m[1])
		return ctx, true
	}
	if m := rePyImport.FindStringSubmatch(t); m != nil {
		for _, mod := range strings.Split(m[1], ",") {
			st.addImport(strings.TrimSpace(mod), line, raw)
		}
		return ctx, true
	}
	if m := rePyFrom.FindStringSubmatch(t); m != nil {
		st.addImport(m[1], line, raw)
		return ctx, true
	}
	if m := rePyClass.FindStringSubmatch(t); m != nil {
		var bases []base
		for _, b := range splitList(m[2]) {
			if strings.Contains(b, "=") || b == "object" {
				continue
			}
			bases = append(bases, base{name: b, rel: model.RelInherits})
		}
		return st.declareType(ctx, model.KindClass, m[1], bases, raw, line, indent, false, true, !strings.HasPrefix(m[1], "_"), ""), true
	}
	if m := rePyDef.FindStringSubmatch(t); m != nil {
		params := dropSelf(m[3])
		c := callable{
			name:       m[2],
			params:     params,
			returnType: m[4],
			definition: true,
			async:      m[1] != "",
			exported:   !strings.HasPrefix(m[2], "_"),
		}
		for _, d := range st.pendingDecorator {
			switch d {
			case "staticmethod", "classmethod":
				c.modifiers += " static"
			case "property":
				c.modifiers += " property"
			}
		}
		return st.declareCallable(ctx, c, raw, line, indent, false), true
	}
	if ctx.InFunctionBody() && strings.Contains(t, "self.") {
		if m := rePySelfField.FindStringSubmatch(t); m != nil {
			cls := ctx.CurrentClass()
			key := cls + "." + m[1]
			if cls != "" && !st.seen(key) {
				ctx = st.declareField(ctx, m[1], "", "", raw, line)
			}
		}
	}
	return ctx, false
}

func (r *languageRules) declareRust(st *scanState, ctx ParseContext, t, raw string, line, depth int, hasBrace bool) (ParseContext, bool) {
	if m := reRustUse.FindStringSubmatch(t); m != nil {
		st.addImport(strings.TrimSpace(m[1]), line, raw)
		return ctx, true
	}
	if strings.HasPrefix(t, "#[") || strings.HasPrefix(t, "#![") {
		st.pendingDecorator = append(st.pendingDecorator, strings.Trim(t, "#![]"))
		return ctx, true
	}
	if ctx.InFunctionBody() {
		return ctx, false
	}
	if m := reRustMod.FindStringSubmatch(t); m != nil {
		if m[3] == ";" {
			st.addImport(m[2], line, raw)
			return ctx, true
		}
		return st.declareNamespace(ctx, m[2], raw, line, depth, hasBrace, false), true
	}
	if m := reRustExtern.FindStringSubmatch(strings.TrimSpace(raw)); m != nil {
		st.pendingDecorator = append(st.pendingDecorator, "extern:"+m[1])
		return ctx, false
	}
	if m := reRustType.FindStringSubmatch(t); m != nil {
		kind := model.KindStruct
		switch m[2] {
		case "enum":
			kind = model.KindEnum
		case "trait":
			kind = model.KindInterface
		case "type":
			kind = model.KindTypedef
		}
		mods := genericModifiers(m[4])
		rest := strings.TrimSpace(m[5])
		body := strings.Contains(rest, "{") || (!strings.HasSuffix(rest, ";") && kind != model.KindTypedef)
		ctx = st.declareType(ctx, kind, m[3], nil, raw, line, depth, strings.Contains(rest, "{"), body, m[1] != "", mods)
		if kind == model.KindInterface {
			if i := strings.Index(rest, ":"); i >= 0 {
				supers := strings.TrimSpace(strings.TrimSuffix(rest[i+1:], "{"))
				for _, s := range strings.Split(supers, "+") {
					st.addRelationship(model.QualifiedJoin("::", ctx.Scope(), m[3]), strings.TrimSpace(s), model.RelInherits, 0.8, line, raw)
				}
			}
		}
		return ctx, true
	}
	if m := reRustImpl.FindStringSubmatch(t); m != nil {
		target := m[3]
		qualified := model.QualifiedJoin("::", ctx.CurrentNamespace(), lastSegment(target))
		if m[2] != "" {
			st.addRelationship(qualified, m[2], model.RelImplements, 0.9, line, raw)
			ctx = ctx.AddUnresolved(m[2])
		}
		st.kinds()[qualified] = model.KindStruct
		return st.open(ctx, frameClass, lastSegment(target), qualified, depth, hasBrace), true
	}
	if m := reRustFn.FindStringSubmatch(t); m != nil {
		mods := m[2] + " " + genericModifiers(m[4])
		c := callable{
			name:       m[3],
			params:     dropSelf(m[5]),
			returnType: m[6],
			modifiers:  mods,
			definition: m[7] != ";",
			async:      strings.Contains(m[2], "async"),
			exported:   m[1] != "",
		}
		if m[1] != "" {
			c.visibility = "public"
		}
		return st.declareCallable(ctx, c, raw, line, depth, strings.HasPrefix(m[7], "{")), true
	}
	return ctx, false
}

func (r *languageRules) declareJVM(st *scanState, ctx ParseContext, t, raw string, line, depth int, hasBrace bool) (ParseContext, bool) {
	lang := st.analyzer.lang
	if m := reJVMPackage.FindStringSubmatch(t); m != nil && lang != model.LangCSharp {
		st.res.moduleName = m[1]
		return st.declareNamespace(ctx, m[1], raw, line, depth, false, true), true
	}
	if lang == model.LangCSharp {
		if m := reCSharpUsing.FindStringSubmatch(t); m != nil {
			st.addImport(m[1], line, raw)
			return ctx, true
		}
		if m := reNamespace.FindStringSubmatch(t); m != nil {
			return st.declareNamespace(ctx, m[1], raw, line, depth, hasBrace, m[2] == ";"), true
		}
	} else if m := reJVMImport.FindStringSubmatch(t); m != nil {
		st.addImport(m[1], line, raw)
		return ctx, true
	}
	if m := reAnnotation.FindStringSubmatch(t); m != nil {
		st.pendingDecorator = append(st.pendingDecorator, m[1])
		return ctx, true
	}
	if strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]") {
		st.pendingDecorator = append(st.pendingDecorator, strings.Trim(t, "[]"))
		return ctx, true
	}
	if ctx.InFunctionBody() {
		return ctx, false
	}

	if m := reJVMClass.FindStringSubmatch(t); m != nil {
		kind := model.KindClass
		switch m[2] {
		case "interface":
			kind = model.KindInterface
		case "enum":
			kind = model.KindEnum
		case "struct":
			kind = model.KindStruct
		}
		if strings.Contains(m[1], "enum") {
			kind = model.KindEnum
		}
		var bases []base
		for _, b := range splitList(m[4]) {
			bases = append(bases, base{name: b, rel: model.RelInherits})
		}
		for _, b := range splitList(m[5]) {
			bases = append(bases, base{name: b, rel: model.RelImplements})
		}
		for i, b := range splitList(m[6]) {
			rel := model.RelImplements
			switch {
			case strings.Contains(b, "("):
				rel = model.RelInherits
			case lang == model.LangCSharp && i == 0 && !isInterfaceName(b):
				rel = model.RelInherits
			case kind == model.KindInterface:
				rel = model.RelInherits
			}
			bases = append(bases, base{name: strings.TrimSpace(strings.Split(b, "(")[0]), rel: rel})
		}
		exported := strings.Contains(m[1], "public") || lang == model.LangKotlin && !strings.Contains(m[1], "private") && !strings.Contains(m[1], "internal")
		ctx = st.declareType(ctx, kind, m[3], bases, raw, line, depth, m[7] != "", true, exported, m[1])
		return ctx, true
	}
	if lang == model.LangKotlin {
		if m := reKotlinFun.FindStringSubmatch(t); m != nil {
			c := callable{
				name:       m[3],
				owner:      m[2],
				params:     m[4],
				returnType: m[5],
				modifiers:  m[1],
				definition: m[6] != "" || !ctx.InClassBody() || st.kinds()[ctx.CurrentClass()] != model.KindInterface,
				async:      strings.Contains(m[1], "suspend"),
				exported:   !strings.Contains(m[1], "private") && !strings.Contains(m[1], "internal"),
			}
			return st.declareCallable(ctx, c, raw, line, depth, strings.HasPrefix(m[6], "{")), true
		}
		if ctx.InClassBody() {
			if m := reKotlinField.FindStringSubmatch(t); m != nil {
				return st.declareField(ctx, m[2], m[3], m[1], raw, line), true
			}
		}
		return ctx, false
	}
	if !ctx.InClassBody() {
		return ctx, false
	}
	cls := ctx.CurrentClass()
	if m := reJVMCtor.FindStringSubmatch(t); m != nil && m[2] == lastSegment(cls) {
		c := callable{name: m[2], params: m[3], modifiers: m[1], visibility: jvmVisibility(m[1]), definition: true, exported: strings.Contains(m[1], "public")}
		return st.declareCallable(ctx, c, raw, line, depth, m[4] != ""), true
	}
	if m := reJVMMethod.FindStringSubmatch(t); m != nil && !isStatementWord(m[2]) && !isKeyword(m[3]) {
		iface := st.kinds()[cls] == model.KindInterface
		definition := m[5] != ";" && !(iface && m[5] == "")
		c := callable{
			name:       m[3],
			params:     m[4],
			returnType: m[2],
			modifiers:  m[1],
			visibility: jvmVisibility(m[1]),
			definition: definition && !strings.Contains(m[1], "abstract"),
			async:      strings.Contains(m[1], "async"),
			exported:   strings.Contains(m[1], "public") || iface,
		}
		if c.visibility == "" && iface {
			c.visibility = "public"
		}
		return st.declareCallable(ctx, c, raw, line, depth, strings.HasPrefix(m[5], "{")), true
	}
	if m := reJVMField.FindStringSubmatch(t); m != nil && !isStatementWord(m[2]) && !isKeyword(m[3]) {
		return st.declareField(ctx, m[3], m[2], m[1], raw, line), true
	}
	return ctx, false
}

func (r *languageRules) declareShell(st *scanState, ctx ParseContext, t, raw string, line, depth int, hasBrace bool) (ParseContext, bool) {
	if m := reShellSrc.FindStringSubmatch(strings.TrimSpace(raw)); m != nil {
		st.addImport(strings.Trim(m[1], `"'`), line, raw)
		return ctx, true
	}
	if ctx.InFunctionBody() {
		return ctx, false
	}
	if m := reShellFunc.FindStringSubmatch(t); m != nil {
		name, body := m[1], m[2]
		if name == "" {
			name, body = m[3], m[4]
		}
		c := callable{name: name, definition: true, exported: true}
		return st.declareCallable(ctx, c, raw, line, depth, body != ""), true
	}
	return ctx, false
}

func (st *scanState) addImport(path string, line int, raw string) {
	if path == "" {
		return
	}
	st.res.imports = append(st.res.imports, path)
	st.addRelationship(st.analyzer.path, path, model.RelImports, 0.9, line, raw)
}

func (st *scanState) seen(key string) bool {
	if st.seenKeys == nil {
		st.seenKeys = make(map[string]bool)
	}
	if st.seenKeys[key] {
		return true
	}
	st.seenKeys[key] = true
	return false
}

// applyModifiers maps declaration keywords to features, tags and visibility.
func applyModifiers(sym *model.Symbol, modifiers string) {
	for _, word := range strings.Fields(modifiers) {
		switch word {
		case "virtual":
			sym.Features.Set(model.FeatureVirtual, "")
			sym.AddTag("virtual")
		case "override":
			sym.Features.Set(model.FeatureOverride, "")
			sym.AddTag("override")
		case "pure":
			sym.AddTag("pure_virtual")
		case "static":
			sym.Features.Set(model.FeatureStatic, "")
			sym.AddTag("static")
		case "constexpr", "consteval", "const":
			if word != "const" || sym.Kind.IsCallable() && sym.Language == model.LangRust {
				sym.Features.Set(model.FeatureConstexpr, "")
				sym.AddTag("constexpr")
			}
		case "async", "suspend":
			sym.IsAsync = true
			sym.Features.Set(model.FeatureAsync, "")
		case "export":
			sym.IsExported = true
			sym.Features.Set(model.FeatureModuleExport, "")
		case "generic":
			sym.Features.Set(model.FeatureGeneric, "")
			sym.AddTag("generic")
		case "lifetime":
			sym.Features.Set(model.FeatureLifetime, "")
		case "abstract":
			sym.AddTag("abstract")
		case "property":
			sym.AddTag("property")
		case "public", "private", "protected", "internal":
			if sym.Visibility == "" || sym.Visibility == "package" {
				sym.Visibility = word
			}
		case "unsafe":
			sym.AddTag("unsafe")
		case "native", "external":
			sym.AddTag("ffi")
		}
		if strings.HasPrefix(word, "template") {
			sym.Features.Set(model.FeatureTemplate, strings.TrimPrefix(word, "template"))
			sym.AddTag("template")
		}
		if strings.HasPrefix(word, `"C"`) || word == "extern" {
			sym.Features.SetExtra("abi", "C")
			sym.AddTag("ffi")
		}
	}
}

func genericModifiers(params string) string {
	if params == "" {
		return ""
	}
	mods := "generic"
	if strings.Contains(params, "'") {
		mods += " lifetime"
	}
	return mods
}

func jsVisibility(modifiers, name string) string {
	switch {
	case strings.HasPrefix(name, "#"), strings.Contains(modifiers, "private"):
		return "private"
	case strings.Contains(modifiers, "protected"):
		return "protected"
	}
	return "public"
}

func jvmVisibility(modifiers string) string {
	for _, v := range []string{"public", "private", "protected", "internal"} {
		if strings.Contains(modifiers, v) {
			return v
		}
	}
	return ""
}

func isInterfaceName(name string) bool {
	return len(name) > 1 && name[0] == 'I' && unicode.IsUpper(rune(name[1]))
}

func splitList(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, c := range s {
		switch c {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			depth--
		case ',':
			if depth == 0 {
				if item := strings.TrimSpace(stripGenerics(s[start:i])); item != "" {
					out = append(out, item)
				}
				start = i + 1
			}
		}
	}
	if item := strings.TrimSpace(stripGenerics(s[start:])); item != "" {
		out = append(out, item)
	}
	return out
}

func stripGenerics(s string) string {
	if i := strings.Index(s, "<"); i >= 0 {
		return s[:i]
	}
	return s
}

func dropSelf(params string) string {
	parts := splitList(params)
	if len(parts) == 0 {
		return params
	}
	first := strings.TrimLeft(parts[0], "&* ")
	first = strings.TrimPrefix(first, "mut ")
	if first == "self" || first == "cls" || strings.HasPrefix(first, "self:") || strings.HasPrefix(first, "self ") {
		parts = parts[1:]
	}
	return strings.Join(parts, ", ")
}

func signatureText(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "{"); i > 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.TrimSuffix(s, ":")
	s = strings.TrimSuffix(s, ";")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func isUpper(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

// typeIdentifiers returns the distinct capitalized or qualified type names in text.
func typeIdentifiers(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range reTypeIdent.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if len(name) == 1 || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
