// Package watcher polls a project tree and reports source file changes.
package watcher

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"sentinel/internal/config"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event is one observed change to a source file.
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// FileState is what a scan records per file to detect modifications.
type FileState struct {
	ModTime time.Time
	Size    int64
}

// Scanner lists the watched files keyed by project-relative path.
type Scanner func() (map[string]FileState, error)

// ChangeHandler is called with each debounced batch of changes. Calls never
// overlap.
type ChangeHandler func(ctx context.Context, events []Event)

// Watcher polls a Scanner and hands debounced change batches to a handler.
type Watcher struct {
	interval time.Duration
	scan     Scanner
	handler  ChangeHandler
	logger   *slog.Logger
	batch    *BatchDebouncer

	last map[string]FileState

	// handlerMu serializes handler calls; stopped is guarded by it.
	handlerMu sync.Mutex
	stopped   bool
	ctx       context.Context
}

// New creates a watcher. Nothing is polled until Run.
func New(cfg config.WatchConfig, scan Scanner, handler ChangeHandler, logger *slog.Logger) *Watcher {
	w := &Watcher{
		interval: time.Duration(cfg.PollIntervalMs) * time.Millisecond,
		scan:     scan,
		handler:  handler,
		logger:   logger,
	}
	if w.interval <= 0 {
		w.interval = 2 * time.Second
	}
	w.batch = NewBatchDebouncer(time.Duration(cfg.DebounceMs)*time.Millisecond, w.dispatch)
	return w
}

// Run takes a baseline scan and polls until ctx is done. Pending changes
// are dropped on exit and Run waits for a handler call in progress.
func (w *Watcher) Run(ctx context.Context) error {
	baseline, err := w.scan()
	if err != nil {
		return err
	}
	w.last = baseline
	w.handlerMu.Lock()
	w.ctx, w.stopped = ctx, false
	w.handlerMu.Unlock()

	w.logger.Info("Watching for changes", "files", len(baseline), "interval", w.interval.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.batch.Cancel()
			w.handlerMu.Lock()
			w.stopped = true
			w.handlerMu.Unlock()
			w.logger.Info("Watcher stopped")
			return nil
		case <-ticker.C:
			for _, ev := range w.Poll() {
				w.batch.Add(ev)
			}
		}
	}
}

// Poll rescans the tree and returns the changes since the previous scan.
// A failed scan reports nothing and keeps the previous state.
func (w *Watcher) Poll() []Event {
	cur, err := w.scan()
	if err != nil {
		w.logger.Warn("Scan failed", "error", err.Error())
		return nil
	}
	events := Diff(w.last, cur, time.Now())
	w.last = cur
	if len(events) > 0 {
		w.logger.Debug("Changes detected", "events", len(events))
	}
	return events
}

func (w *Watcher) dispatch(events []Event) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	if w.stopped || w.ctx == nil || w.handler == nil {
		return
	}
	w.handler(w.ctx, events)
}

// Diff compares two scans and returns the changes in path order.
func Diff(prev, cur map[string]FileState, now time.Time) []Event {
	var events []Event
	for path, st := range cur {
		old, ok := prev[path]
		switch {
		case !ok:
			events = append(events, Event{Type: EventCreate, Path: path, Timestamp: now})
		case !old.ModTime.Equal(st.ModTime) || old.Size != st.Size:
			events = append(events, Event{Type: EventModify, Path: path, Timestamp: now})
		}
	}
	for path := range prev {
		if _, ok := cur[path]; !ok {
			events = append(events, Event{Type: EventDelete, Path: path, Timestamp: now})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	return events
}
