// Package model defines the universal symbol and relationship model that every
// language adapter normalizes into.
package model

import (
	"path/filepath"
	"strings"
)

// Language identifies a supported source language.
type Language string

const (
	LangUnknown    Language = ""
	LangCpp        Language = "cpp"
	LangC          Language = "c"
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
	LangCSharp     Language = "csharp"
	LangShell      Language = "shell"
)

var extensionLanguages = map[string]Language{
	".cpp":  LangCpp,
	".cc":   LangCpp,
	".cxx":  LangCpp,
	".hpp":  LangCpp,
	".hh":   LangCpp,
	".hxx":  LangCpp,
	".ixx":  LangCpp,
	".cppm": LangCpp,
	".c":    LangC,
	".h":    LangC,
	".go":   LangGo,
	".js":   LangJavaScript,
	".mjs":  LangJavaScript,
	".cjs":  LangJavaScript,
	".jsx":  LangJavaScript,
	".ts":   LangTypeScript,
	".mts":  LangTypeScript,
	".cts":  LangTypeScript,
	".tsx":  LangTSX,
	".py":   LangPython,
	".pyw":  LangPython,
	".rs":   LangRust,
	".java": LangJava,
	".kt":   LangKotlin,
	".kts":  LangKotlin,
	".cs":   LangCSharp,
	".sh":   LangShell,
	".bash": LangShell,
}

// LanguageFromExtension returns the Language for a file extension such as ".go".
func LanguageFromExtension(ext string) (Language, bool) {
	lang, ok := extensionLanguages[strings.ToLower(ext)]
	return lang, ok
}

// LanguageFromPath detects the language of a file by its extension.
func LanguageFromPath(path string) (Language, bool) {
	return LanguageFromExtension(filepath.Ext(path))
}

// SupportedExtensions lists every recognized file extension.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionLanguages))
	for ext := range extensionLanguages {
		exts = append(exts, ext)
	}
	return exts
}

// UsesBraces reports whether blocks in the language are delimited by braces.
func (l Language) UsesBraces() bool {
	switch l {
	case LangPython, LangShell, LangUnknown:
		return false
	}
	return true
}

// ParseLanguage maps a user supplied name ("c++", "py", "ts") to a Language.
func ParseLanguage(name string) Language {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cpp", "c++", "cxx":
		return LangCpp
	case "c":
		return LangC
	case "go", "golang":
		return LangGo
	case "javascript", "js", "node":
		return LangJavaScript
	case "typescript", "ts":
		return LangTypeScript
	case "tsx":
		return LangTSX
	case "python", "py", "python3":
		return LangPython
	case "rust", "rs":
		return LangRust
	case "java":
		return LangJava
	case "kotlin", "kt":
		return LangKotlin
	case "csharp", "c#", "cs":
		return LangCSharp
	case "shell", "sh", "bash":
		return LangShell
	}
	return LangUnknown
}
