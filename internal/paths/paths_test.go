package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDataLocations(t *testing.T) {
	root := filepath.Join("tmp", "proj")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"config", ConfigFile(root), filepath.Join(root, ".sentinel", "config.json")},
		{"project", ProjectFile(root), filepath.Join(root, ".sentinel", "project.toml")},
		{"database", DatabaseFile(root), filepath.Join(root, ".sentinel", "symbols.db")},
		{"log", LogFile(root), filepath.Join(root, ".sentinel", "logs", "sentinel.log")},
		{"spawns", SpawnCatalogFile(root), filepath.Join(root, ".sentinel", "SPAWNS.toml")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestEnsureDataDir(t *testing.T) {
	root := t.TempDir()
	dir, err := EnsureDataDir(root)
	if err != nil {
		t.Fatalf("EnsureDataDir() error: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s", dir)
	}
}

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "src", "engine")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(nested, "parser.cpp")
	if err := os.WriteFile(file, []byte("int x;"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := CanonicalizePath(file, root)
	if err != nil {
		t.Fatalf("CanonicalizePath() error: %v", err)
	}
	if got != "src/engine/parser.cpp" {
		t.Errorf("CanonicalizePath() = %q", got)
	}
	if !IsWithinRoot(file, root) {
		t.Error("file should be within root")
	}
	if IsWithinRoot(filepath.Dir(root), root) {
		t.Error("parent should not be within root")
	}
}

func TestJoinRoot(t *testing.T) {
	got := JoinRoot("/repo", "src/a.go")
	if got != filepath.Join("/repo", "src", "a.go") {
		t.Errorf("JoinRoot() = %q", got)
	}
	if got := JoinRoot("/repo", `src\a.go`); got != filepath.Join("/repo", "src", "a.go") {
		t.Errorf("JoinRoot() with backslashes = %q", got)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`src\a.go`, "src/a.go"},
		{`src\pkg\b.go`, "src/pkg/b.go"},
		{"src/a.go", "src/a.go"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
