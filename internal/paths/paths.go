// Package paths locates the engine's on-disk state and normalizes source paths.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// DataDirName is the per-project state directory.
const DataDirName = ".sentinel"

// DataDir returns <root>/.sentinel.
func DataDir(root string) string {
	return filepath.Join(root, DataDirName)
}

// EnsureDataDir creates <root>/.sentinel if needed and returns its path.
func EnsureDataDir(root string) (string, error) {
	dir := DataDir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// ConfigFile returns the path of config.json.
func ConfigFile(root string) string {
	return filepath.Join(DataDir(root), "config.json")
}

// ProjectFile returns the path of the project identity file.
func ProjectFile(root string) string {
	return filepath.Join(DataDir(root), "project.toml")
}

// DatabaseFile returns the default symbol store location.
func DatabaseFile(root string) string {
	return filepath.Join(DataDir(root), "symbols.db")
}

// LogFile returns the CLI log file location.
func LogFile(root string) string {
	return filepath.Join(DataDir(root), "logs", "sentinel.log")
}

// SpawnCatalogFile returns the optional spawn catalog extension file.
func SpawnCatalogFile(root string) string {
	return filepath.Join(DataDir(root), "SPAWNS.toml")
}

// PatternCatalogFile returns the optional user pattern catalog.
func PatternCatalogFile(root string) string {
	return filepath.Join(DataDir(root), "patterns.yaml")
}

// CanonicalizePath converts an absolute path to a root-relative path with
// forward slashes, resolving symlinks where possible.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = root
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithinRoot checks if a path is inside root.
func IsWithinRoot(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizePath converts backslashes to forward slashes on every platform.
func NormalizePath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// JoinRoot joins a root with a canonical (forward slash) path.
func JoinRoot(root string, canonicalPath string) string {
	parts := strings.Split(NormalizePath(canonicalPath), "/")
	return filepath.Join(append([]string{root}, parts...)...)
}
