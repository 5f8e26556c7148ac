package symbols

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"sentinel/internal/errors"
	"sentinel/internal/model"
)

// DeclarationIndex is the persisted declaration store consulted on a cache
// miss.
type DeclarationIndex interface {
	FindDeclarations(ctx context.Context, name string) ([]model.Declaration, error)
	AllDeclarations(ctx context.Context) ([]model.Declaration, error)
}

// Resolution is the outcome of looking up one unresolved type name.
type Resolution struct {
	Name        string
	Found       bool
	FromCache   bool
	Declaration model.Declaration
}

// TypeResolver answers type-name lookups from an in-memory cache seeded once
// from the declaration index. Reads are concurrent; new resolutions are
// written under the lock so the cache only grows.
type TypeResolver struct {
	index  DeclarationIndex
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]model.Declaration
}

// NewTypeResolver seeds the cache with every type declaration in the index.
// A nil index yields a resolver that never finds anything.
func NewTypeResolver(ctx context.Context, index DeclarationIndex, logger *slog.Logger) (*TypeResolver, error) {
	r := &TypeResolver{
		index:  index,
		logger: logger,
		cache:  make(map[string]model.Declaration),
	}
	if index == nil {
		return r, nil
	}
	decls, err := index.AllDeclarations(ctx)
	if err != nil {
		return nil, errors.New(errors.StoreUnavailable, "failed to seed type cache", err)
	}
	for _, d := range decls {
		if d.IsTypeDeclaration() {
			r.store(d)
		}
	}
	logger.Debug("Type cache seeded", "declarations", len(r.cache))
	return r, nil
}

// store keeps the highest-confidence declaration per name. Callers hold mu or
// have exclusive access.
func (r *TypeResolver) store(d model.Declaration) {
	if cur, ok := r.cache[d.Name]; ok && cur.Confidence >= d.Confidence {
		return
	}
	r.cache[d.Name] = d
}

// Len returns the number of cached names.
func (r *TypeResolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// Learn adds declarations produced by a parse so later files in the same
// session can resolve against them.
func (r *TypeResolver) Learn(symbols []model.Symbol) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range symbols {
		if !s.Kind.IsType() || !s.IsDefinition {
			continue
		}
		r.store(model.Declaration{
			Name:       s.Name,
			FilePath:   s.FilePath,
			Line:       s.Line,
			Confidence: s.Confidence,
			Kind:       s.Kind,
		})
	}
}

// Resolve looks up each name in the cache and then in the index. Results
// are informational and returned in name order.
func (r *TypeResolver) Resolve(ctx context.Context, names []string) []Resolution {
	out := make([]Resolution, 0, len(names))
	for _, name := range names {
		res := r.resolveOne(ctx, lastSegment(name))
		res.Name = name
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *TypeResolver) resolveOne(ctx context.Context, name string) Resolution {
	r.mu.RLock()
	d, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		r.logger.Debug("Type resolved from cache", "type", name, "file", d.FilePath, "line", d.Line)
		return Resolution{Found: true, FromCache: true, Declaration: d}
	}
	if r.index == nil {
		return Resolution{}
	}

	decls, err := r.index.FindDeclarations(ctx, name)
	if err != nil {
		r.logger.Debug("Declaration lookup failed", "type", name, "error", err.Error())
		return Resolution{}
	}
	var best *model.Declaration
	for i := range decls {
		if !decls[i].IsTypeDeclaration() {
			continue
		}
		if best == nil || decls[i].Confidence > best.Confidence {
			best = &decls[i]
		}
	}
	if best == nil {
		r.logger.Debug("Type unresolved", "type", name)
		return Resolution{}
	}

	r.mu.Lock()
	r.store(*best)
	r.mu.Unlock()
	r.logger.Debug("Type resolved from store", "type", name, "file", best.FilePath, "line", best.Line)
	return Resolution{Found: true, Declaration: *best}
}
