package engine

import (
	"context"

	"sentinel/internal/indexer"
	"sentinel/internal/slogutil"
	"sentinel/internal/watcher"
)

// WatchFunc observes each re-index triggered by a change batch.
type WatchFunc func(res *indexer.Result, events []watcher.Event, err error)

// Watch re-indexes the project each time a debounced batch of source
// changes is seen, until ctx is done. Unchanged files are skipped by their
// content hash as in any incremental run.
func (e *Engine) Watch(ctx context.Context, onRun WatchFunc) error {
	filter := indexer.NewFilter(e.root, e.cfg.Indexing)
	scan := func() (map[string]watcher.FileState, error) {
		files, err := indexer.Discover(e.root, filter)
		if err != nil {
			return nil, err
		}
		out := make(map[string]watcher.FileState, len(files))
		for _, f := range files {
			out[f.Path] = watcher.FileState{ModTime: f.ModTime, Size: f.Size}
		}
		return out, nil
	}
	onChange := func(ctx context.Context, events []watcher.Event) {
		res, err := e.Index(ctx, IndexOptions{})
		if onRun != nil {
			onRun(res, events, err)
		}
	}
	return watcher.New(e.cfg.Watch, scan, onChange, slogutil.Component(e.logger, "watcher")).Run(ctx)
}
