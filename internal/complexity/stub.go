//go:build !cgo

package complexity

import (
	"context"

	"sentinel/internal/errors"
	"sentinel/internal/model"
)

// ErrNoCGO is returned when grammar-based analysis is unavailable.
var ErrNoCGO = errors.New(errors.UnsupportedLanguage, "complexity analysis requires CGO (tree-sitter)", nil)

// Analyzer computes complexity metrics for source files.
// This is a stub implementation for non-CGO builds.
type Analyzer struct{}

// NewAnalyzer returns nil when CGO is disabled.
func NewAnalyzer() *Analyzer {
	return nil
}

// AnalyzeFile returns ErrNoCGO.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*FileComplexity, error) {
	return nil, ErrNoCGO
}

// AnalyzeSource returns ErrNoCGO.
func (a *Analyzer) AnalyzeSource(ctx context.Context, path string, source []byte, lang model.Language) (*FileComplexity, error) {
	return nil, ErrNoCGO
}

// Parser wraps tree-sitter parsing functionality.
// This is a stub implementation for non-CGO builds.
type Parser struct{}

// NewParser returns nil when CGO is disabled.
func NewParser() *Parser {
	return nil
}

// IsAvailable returns whether complexity analysis is available.
// Returns false when CGO is disabled.
func IsAvailable() bool {
	return false
}
