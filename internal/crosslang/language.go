package crosslang

import (
	"path"
	"regexp"
	"strings"

	"sentinel/internal/model"
)

var interpreters = map[string]model.Language{
	"python":  model.LangPython,
	"pypy":    model.LangPython,
	"node":    model.LangJavaScript,
	"nodejs":  model.LangJavaScript,
	"bun":     model.LangJavaScript,
	"deno":    model.LangTypeScript,
	"ts-node": model.LangTypeScript,
	"tsx":     model.LangTypeScript,
	"cargo":   model.LangRust,
	"rustc":   model.LangRust,
	"go":      model.LangGo,
	"java":    model.LangJava,
	"kotlin":  model.LangKotlin,
	"dotnet":  model.LangCSharp,
	"bash":    model.LangShell,
	"sh":      model.LangShell,
	"zsh":     model.LangShell,
	"dash":    model.LangShell,
	"ksh":     model.LangShell,
}

var reVersionSuffix = regexp.MustCompile(`[0-9.]+$`)

// GuessLanguage infers the language a command runs from a script filename
// among its tokens or, failing that, from the interpreter name.
func GuessLanguage(command string, args ...string) (model.Language, bool) {
	tokens := append(strings.Fields(command), args...)
	for _, t := range tokens {
		t = strings.Trim(t, `"'`+"`")
		if strings.HasPrefix(t, "-") {
			continue
		}
		if strings.HasSuffix(strings.ToLower(t), ".jar") {
			return model.LangJava, true
		}
		if lang, ok := model.LanguageFromPath(t); ok {
			return lang, true
		}
	}
	for _, t := range tokens {
		if lang, ok := interpreterLanguage(t); ok {
			return lang, true
		}
	}
	return model.LangUnknown, false
}

// interpreterLanguage maps "python3.11", "/usr/bin/node" and similar to a
// language.
func interpreterLanguage(token string) (model.Language, bool) {
	base := strings.ToLower(path.Base(strings.Trim(token, `"'`)))
	base = strings.TrimSuffix(base, ".exe")
	if lang, ok := interpreters[base]; ok {
		return lang, true
	}
	if lang, ok := interpreters[reVersionSuffix.ReplaceAllString(base, "")]; ok {
		return lang, true
	}
	return model.LangUnknown, false
}

// scriptName returns the first token naming a source file or jar.
func scriptName(tokens []string) string {
	for _, t := range tokens {
		t = strings.Trim(t, `"'`+"`")
		if strings.HasPrefix(t, "-") {
			continue
		}
		if _, ok := model.LanguageFromPath(t); ok || strings.HasSuffix(strings.ToLower(t), ".jar") {
			return t
		}
	}
	return ""
}
