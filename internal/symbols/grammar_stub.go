//go:build !cgo

package symbols

import (
	"context"

	"sentinel/internal/errors"
	"sentinel/internal/model"
)

// grammarAdapter is unavailable without cgo; the ladder starts at the
// heuristic rungs.
type grammarAdapter struct{}

func newGrammarAdapter() *grammarAdapter {
	return nil
}

func (g *grammarAdapter) supports(lang model.Language) bool {
	return false
}

func (g *grammarAdapter) extract(ctx context.Context, path string, source []byte, lang model.Language) (*scanResult, error) {
	return nil, errors.New(errors.ParserFailure, "grammar parsing requires CGO (tree-sitter)", nil).WithPath(path)
}

// IsAvailable reports whether the grammar rung is compiled in.
func IsAvailable() bool {
	return false
}
