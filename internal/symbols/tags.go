package symbols

import (
	"path/filepath"
	"strings"
	"unicode"

	"sentinel/internal/model"
)

// tagRule adds tag when the lowercased name matches any of the vocabularies.
type tagRule struct {
	tag      string
	prefixes []string
	contains []string
	suffixes []string
}

var nameRules = []tagRule{
	{tag: "data_retrieval", prefixes: []string{"get", "fetch", "find", "load", "retrieve", "lookup"}},
	{tag: "data_creation", prefixes: []string{"create", "add", "insert", "make", "new"}},
	{tag: "data_update", prefixes: []string{"update", "modify", "edit", "patch", "set", "change"}},
	{tag: "data_deletion", prefixes: []string{"delete", "remove", "destroy", "drop", "clear"}},
	{tag: "authentication", contains: []string{"auth", "login", "logout", "signin", "signup"}},
	{tag: "validation", contains: []string{"validate", "verify", "ensure", "sanitize"}},
	{tag: "handler", prefixes: []string{"handle", "process"}, suffixes: []string{"handler", "processor"}},
	{tag: "database_operation", contains: []string{"query", "sql", "database", "repository"}},
	{tag: "parsing", contains: []string{"parse", "deserialize", "unmarshal", "decode"}},
	{tag: "serialization", contains: []string{"serialize", "marshal", "encode", "stringify"}},
	{tag: "ui_rendering", contains: []string{"render", "draw", "paint"}},
	{tag: "initialization", prefixes: []string{"init", "setup", "configure", "bootstrap"}},
	{tag: "config", contains: []string{"config", "settings", "options"}},
	{tag: "factory", prefixes: []string{"create", "make", "build"}, suffixes: []string{"factory"}},
	{tag: "callback", contains: []string{"callback", "listener"}},
}

// ApplyTags adds semantic tags derived from the symbol's name, kind,
// signature and file path.
func ApplyTags(sym *model.Symbol) {
	name := strings.ToLower(sym.Name)
	for _, r := range nameRules {
		if matchesRule(name, r) {
			sym.AddTag(r.tag)
		}
	}

	sig := strings.ToLower(sym.Signature)
	switch {
	case sym.Kind == model.KindConstructor:
		sym.AddTag("constructor")
	case sym.Kind.IsCallable() && isAccessor(sym.Name):
		sym.AddTag("accessor")
	}
	if sym.IsAsync || strings.Contains(sig, "async ") || strings.Contains(sig, "suspend ") {
		sym.AddTag("async")
	}
	if isTestSymbol(sym) {
		sym.AddTag("test")
	}
	if sym.Kind.IsCallable() && (strings.Contains(name, "error") || strings.Contains(name, "exception") ||
		strings.Contains(name, "recover") || strings.Contains(sig, "throws ")) {
		sym.AddTag("error_handling")
	}
	if sym.Kind.IsCallable() && (name == "main" || name == "__main__" || name == "wmain" || name == "winmain") {
		sym.AddTag("entry_point")
	}
	if isEndpoint(sym) {
		sym.AddTag("api_endpoint")
	}
	if sym.Kind.IsCallable() && (name == "getinstance" || name == "instance" || name == "shared" || name == "get_instance") {
		sym.AddTag("singleton")
	}
	if sym.Kind.IsCallable() && len(sym.Name) > 2 && strings.HasPrefix(sym.Name, "on") && unicode.IsUpper(rune(sym.Name[2])) {
		sym.AddTag("callback")
	}
	switch sym.Visibility {
	case "public":
		if sym.IsExported {
			sym.AddTag("public_api")
		}
	case "private":
		sym.AddTag("internal")
	}
}

func matchesRule(name string, r tagRule) bool {
	for _, p := range r.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, c := range r.contains {
		if strings.Contains(name, c) {
			return true
		}
	}
	for _, s := range r.suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

func isAccessor(name string) bool {
	for _, p := range []string{"get", "set", "is", "has"} {
		if len(name) > len(p) && strings.HasPrefix(name, p) {
			next := rune(name[len(p)])
			if unicode.IsUpper(next) || next == '_' {
				return true
			}
		}
	}
	return false
}

func isTestSymbol(sym *model.Symbol) bool {
	base := strings.ToLower(filepath.Base(sym.FilePath))
	testFile := strings.HasSuffix(base, "_test.go") || strings.HasPrefix(base, "test_") ||
		strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") ||
		strings.HasSuffix(strings.TrimSuffix(base, filepath.Ext(base)), "test") ||
		strings.HasSuffix(strings.TrimSuffix(base, filepath.Ext(base)), "tests")
	if !sym.Kind.IsCallable() {
		return testFile && strings.Contains(strings.ToLower(sym.Name), "test")
	}
	if strings.HasPrefix(sym.Name, "Test") || strings.HasPrefix(sym.Name, "test_") || strings.HasPrefix(sym.Name, "Benchmark") {
		return true
	}
	for _, t := range sym.SemanticTags {
		switch t {
		case "decorated:Test", "decorated:test", "decorated:pytest.fixture", "decorated:ParameterizedTest":
			return true
		}
	}
	return testFile && strings.HasPrefix(strings.ToLower(sym.Name), "test")
}

var endpointDecorators = []string{
	"route", "get", "post", "put", "delete", "patch",
	"getmapping", "postmapping", "putmapping", "deletemapping", "requestmapping",
	"httpget", "httppost", "httpput", "httpdelete",
}

func isEndpoint(sym *model.Symbol) bool {
	if !sym.Kind.IsCallable() {
		return false
	}
	for _, t := range sym.SemanticTags {
		if !strings.HasPrefix(t, "decorated:") {
			continue
		}
		d := strings.ToLower(lastSegment(strings.TrimPrefix(t, "decorated:")))
		if i := strings.Index(d, "("); i >= 0 {
			d = d[:i]
		}
		for _, e := range endpointDecorators {
			if d == e {
				return true
			}
		}
	}
	return false
}

// patternHints raises pattern candidates from naming conventions. The
// pattern engine decides whether they hold.
func patternHints(symbols []model.Symbol) []model.PatternCandidate {
	var out []model.PatternCandidate
	for _, s := range symbols {
		name := strings.ToLower(s.Name)
		switch {
		case s.HasTag("singleton"):
			out = append(out, model.PatternCandidate{Name: "singleton", Symbols: []string{s.ParentScope, s.QualifiedName}, Line: s.Line, Confidence: 0.6})
		case s.Kind.IsType() && strings.HasSuffix(name, "factory"):
			out = append(out, model.PatternCandidate{Name: "factory", Symbols: []string{s.QualifiedName}, Line: s.Line, Confidence: 0.6})
		case s.Kind.IsType() && strings.HasSuffix(name, "builder"):
			out = append(out, model.PatternCandidate{Name: "builder", Symbols: []string{s.QualifiedName}, Line: s.Line, Confidence: 0.6})
		case s.Kind.IsType() && (strings.HasSuffix(name, "observer") || strings.HasSuffix(name, "listener")):
			out = append(out, model.PatternCandidate{Name: "observer", Symbols: []string{s.QualifiedName}, Line: s.Line, Confidence: 0.5})
		case s.Kind.IsType() && strings.HasSuffix(name, "repository"):
			out = append(out, model.PatternCandidate{Name: "repository", Symbols: []string{s.QualifiedName}, Line: s.Line, Confidence: 0.6})
		case s.Kind.IsType() && strings.HasSuffix(name, "adapter"):
			out = append(out, model.PatternCandidate{Name: "adapter", Symbols: []string{s.QualifiedName}, Line: s.Line, Confidence: 0.5})
		}
	}
	return out
}
