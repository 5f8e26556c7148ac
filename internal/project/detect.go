// Package project holds a project's persisted identity and detects the
// languages it uses from manifest files.
package project

import (
	"os"
	"path/filepath"
	"sort"

	"sentinel/internal/model"
)

// Manifest is a build manifest found at the project root.
type Manifest struct {
	Path     string         `toml:"path" json:"path"`
	Language model.Language `toml:"language" json:"language"`
}

// manifests lists root manifest files in priority order.
var manifests = []Manifest{
	{"go.mod", model.LangGo},
	{"Cargo.toml", model.LangRust},
	{"package.json", model.LangTypeScript},
	{"pyproject.toml", model.LangPython},
	{"requirements.txt", model.LangPython},
	{"setup.py", model.LangPython},
	{"pom.xml", model.LangJava},
	{"build.gradle", model.LangJava},
	{"build.gradle.kts", model.LangKotlin},
	{"CMakeLists.txt", model.LangCpp},
	{"Makefile", model.LangC},
	{"compile_commands.json", model.LangCpp},
}

// DetectLanguage detects the primary language of a project from manifest
// files. It returns the language, the manifest path and whether detection
// succeeded.
func DetectLanguage(root string) (model.Language, string, bool) {
	found := DetectManifests(root)
	if len(found) == 0 {
		return model.LangUnknown, "", false
	}
	return found[0].Language, found[0].Path, true
}

// DetectManifests returns every manifest present at root in priority order.
func DetectManifests(root string) []Manifest {
	var out []Manifest
	for _, m := range manifests {
		if _, err := os.Stat(filepath.Join(root, m.Path)); err != nil {
			continue
		}
		if m.Path == "package.json" {
			m.Language = detectJSorTS(root)
		}
		out = append(out, m)
	}
	return out
}

// DetectLanguages returns the distinct languages named by root manifests,
// sorted.
func DetectLanguages(root string) []model.Language {
	seen := make(map[model.Language]bool)
	var out []model.Language
	for _, m := range DetectManifests(root) {
		if !seen[m.Language] {
			seen[m.Language] = true
			out = append(out, m.Language)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// detectJSorTS checks if a project is TypeScript or JavaScript.
func detectJSorTS(root string) model.Language {
	if _, err := os.Stat(filepath.Join(root, "tsconfig.json")); err == nil {
		return model.LangTypeScript
	}
	if hasFileWithExt(root, ".ts") {
		return model.LangTypeScript
	}
	return model.LangJavaScript
}

// hasFileWithExt checks root and root/src for a file with the extension.
func hasFileWithExt(root, ext string) bool {
	for _, dir := range []string{root, filepath.Join(root, "src")} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ext {
				return true
			}
		}
	}
	return false
}

// LanguageDisplayName returns a human-readable name for the language.
func LanguageDisplayName(lang model.Language) string {
	switch lang {
	case model.LangGo:
		return "Go"
	case model.LangTypeScript:
		return "TypeScript"
	case model.LangTSX:
		return "TSX"
	case model.LangJavaScript:
		return "JavaScript"
	case model.LangPython:
		return "Python"
	case model.LangRust:
		return "Rust"
	case model.LangJava:
		return "Java"
	case model.LangKotlin:
		return "Kotlin"
	case model.LangCpp:
		return "C++"
	case model.LangC:
		return "C"
	case model.LangCSharp:
		return "C#"
	case model.LangShell:
		return "Shell"
	default:
		return "Unknown"
	}
}
