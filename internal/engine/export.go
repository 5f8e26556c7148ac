package engine

import (
	"context"
	"time"

	"sentinel/internal/export"
	"sentinel/internal/storage"
)

// ExportBatch writes the stored symbols and relationships of the project to
// path as a compressed batch.
func (e *Engine) ExportBatch(ctx context.Context, path string) (*export.Batch, error) {
	snap, err := e.Snapshot(ctx, "")
	if err != nil {
		return nil, err
	}
	b := export.BatchFromSnapshot(e.project.ID, snap)
	if err := export.WriteBatchFile(path, b); err != nil {
		return nil, err
	}
	e.logger.Info("Exported symbol batch",
		"path", path,
		"symbols", len(b.Symbols),
		"relationships", len(b.Relationships))
	return b, nil
}

// ExportSCIP writes the stored index of the project to path in SCIP form.
func (e *Engine) ExportSCIP(ctx context.Context, path string) (int, error) {
	snap, err := e.Snapshot(ctx, "")
	if err != nil {
		return 0, err
	}
	index := export.BuildSCIP(snap, export.SCIPOptions{
		ProjectName: e.project.Name,
		ProjectRoot: e.root,
	})
	if err := export.WriteSCIPFile(path, index); err != nil {
		return 0, err
	}
	e.logger.Info("Exported SCIP index", "path", path, "documents", len(index.Documents))
	return len(index.Documents), nil
}

// ImportBatch loads a batch written by ExportBatch into this project's
// store, replacing every file the batch covers. Imported files carry no
// content hash, so the next index run re-parses them.
func (e *Engine) ImportBatch(ctx context.Context, path string) (*export.Batch, error) {
	b, err := export.ReadBatchFile(path)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for _, g := range b.Files() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := storage.FileRecord{
			Path:       g.Path,
			Language:   g.Language,
			Confidence: meanConfidence(g),
			IndexedAt:  now,
		}
		for _, s := range g.Symbols {
			if s.EndLine > rec.LineCount {
				rec.LineCount = s.EndLine
			}
		}
		if err := e.db.ReplaceFile(ctx, e.project.ID, rec, g.Symbols, g.Relationships); err != nil {
			return nil, err
		}
	}
	e.resolver.Learn(b.Symbols)
	e.logger.Info("Imported symbol batch",
		"path", path,
		"from", b.ProjectID,
		"symbols", len(b.Symbols),
		"relationships", len(b.Relationships))
	return b, nil
}

func meanConfidence(g export.FileGroup) float64 {
	if len(g.Symbols) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range g.Symbols {
		sum += s.Confidence
	}
	return sum / float64(len(g.Symbols))
}
