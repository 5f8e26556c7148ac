package watcher

import (
	"sort"
	"sync"
	"time"
)

// BatchDebouncer collects events and emits them as one batch once no new
// event arrived for the delay. Events on the same path are folded into one.
type BatchDebouncer struct {
	delay  time.Duration
	timer  *time.Timer
	mu     sync.Mutex
	events map[string]Event
	emit   func([]Event)
}

// NewBatchDebouncer creates a new batch debouncer
func NewBatchDebouncer(delay time.Duration, emit func([]Event)) *BatchDebouncer {
	return &BatchDebouncer{
		delay:  delay,
		events: make(map[string]Event),
		emit:   emit,
	}
}

// Add adds an event to the batch and restarts the delay.
func (b *BatchDebouncer) Add(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.events[event.Path]; ok {
		merged, keep := fold(prev, event)
		if !keep {
			delete(b.events, event.Path)
		} else {
			b.events[event.Path] = merged
		}
	} else {
		b.events[event.Path] = event
	}

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.flush)
}

// fold merges a later event into an earlier one on the same path. A file
// created and then deleted within one batch drops out entirely.
func fold(prev, next Event) (Event, bool) {
	switch {
	case prev.Type == EventCreate && next.Type == EventDelete:
		return Event{}, false
	case prev.Type == EventCreate:
		next.Type = EventCreate
	case prev.Type == EventDelete && next.Type == EventCreate:
		next.Type = EventModify
	}
	return next, true
}

func (b *BatchDebouncer) flush() {
	b.mu.Lock()
	events := make([]Event, 0, len(b.events))
	for _, ev := range b.events {
		events = append(events, ev)
	}
	b.events = make(map[string]Event)
	b.timer = nil
	b.mu.Unlock()

	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	if len(events) > 0 && b.emit != nil {
		b.emit(events)
	}
}

// Cancel cancels any pending emission
func (b *BatchDebouncer) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.events = make(map[string]Event)
}

// Flush immediately emits any pending events
func (b *BatchDebouncer) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	b.flush()
}

// Pending returns the number of paths waiting to be emitted
func (b *BatchDebouncer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
