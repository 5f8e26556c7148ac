package indexer

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"sentinel/internal/config"
	"sentinel/internal/model"
)

// SourceFile is a file selected for indexing.
type SourceFile struct {
	Path     string         `json:"path"` // relative to the project root, slash separated
	AbsPath  string         `json:"-"`
	Language model.Language `json:"language"`
	Size     int64          `json:"size"`
	ModTime  time.Time      `json:"-"`
}

var skipDirs = map[string]struct{}{
	".git":          {},
	".hg":           {},
	".svn":          {},
	".sentinel":     {},
	"node_modules":  {},
	"__pycache__":   {},
	".venv":         {},
	"venv":          {},
	".tox":          {},
	".mypy_cache":   {},
	".pytest_cache": {},
}

// Filter decides which paths discovery keeps.
type Filter struct {
	exclude   []string
	gitignore *ignore.GitIgnore
	languages map[model.Language]bool
	maxSize   int64
}

// NewFilter builds the discovery filter for root. A missing .gitignore is
// not an error.
func NewFilter(root string, cfg config.IndexingConfig) *Filter {
	f := &Filter{
		exclude: cfg.Exclude,
		maxSize: cfg.MaxFileSize,
	}
	if cfg.RespectGitignore {
		if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
			f.gitignore = gi
		}
	}
	if len(cfg.Languages) > 0 {
		f.languages = make(map[model.Language]bool, len(cfg.Languages))
		for _, l := range cfg.Languages {
			if lang := model.ParseLanguage(l); lang != model.LangUnknown {
				f.languages[lang] = true
			}
		}
	}
	return f
}

// Excluded reports whether rel matches an exclude glob or .gitignore.
func (f *Filter) Excluded(rel string, isDir bool) bool {
	for _, pattern := range f.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		// "**/vendor/**" should also prune the vendor directory itself.
		if isDir {
			if ok, _ := doublestar.Match(pattern, rel+"/"); ok {
				return true
			}
		}
	}
	if f.gitignore != nil {
		p := rel
		if isDir {
			p += "/"
		}
		if f.gitignore.MatchesPath(p) {
			return true
		}
	}
	return false
}

// Language returns the language of rel when the filter accepts it.
func (f *Filter) Language(rel string) (model.Language, bool) {
	lang, ok := model.LanguageFromPath(rel)
	if !ok {
		return model.LangUnknown, false
	}
	if f.languages != nil && !f.languages[lang] {
		return lang, false
	}
	return lang, true
}

// Discover walks root and returns every indexable file in path order.
// Unreadable entries and symlinks are skipped.
func Discover(root string, f *Filter) ([]SourceFile, error) {
	var out []SourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // skip unreadable entries
		}
		if path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil //nolint:nilerr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if _, skip := skipDirs[d.Name()]; skip || f.Excluded(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if f.Excluded(rel, false) {
			return nil
		}
		lang, ok := f.Language(rel)
		if !ok {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil //nolint:nilerr
		}
		if f.maxSize > 0 && info.Size() > f.maxSize {
			return nil
		}
		out = append(out, SourceFile{Path: rel, AbsPath: path, Language: lang, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
