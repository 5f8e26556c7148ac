package watcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"sentinel/internal/config"
	"sentinel/internal/slogutil"
)

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventCreate, "create"},
		{EventModify, "modify"},
		{EventDelete, "delete"},
		{EventType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.eventType.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDiff(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Second)
	prev := map[string]FileState{
		"a.go": {ModTime: t0, Size: 10},
		"b.go": {ModTime: t0, Size: 10},
		"c.go": {ModTime: t0, Size: 10},
		"d.go": {ModTime: t0, Size: 10},
	}
	cur := map[string]FileState{
		"a.go": {ModTime: t0, Size: 10},
		"b.go": {ModTime: t1, Size: 10},
		"c.go": {ModTime: t0, Size: 12},
		"e.go": {ModTime: t1, Size: 1},
	}

	events := Diff(prev, cur, t1)
	want := []struct {
		path string
		typ  EventType
	}{
		{"b.go", EventModify},
		{"c.go", EventModify},
		{"d.go", EventDelete},
		{"e.go", EventCreate},
	}
	if len(events) != len(want) {
		t.Fatalf("Diff() = %+v, want %d events", events, len(want))
	}
	for i, w := range want {
		if events[i].Path != w.path || events[i].Type != w.typ {
			t.Errorf("event %d = %s %s, want %s %s", i, events[i].Type, events[i].Path, w.typ, w.path)
		}
	}

	if got := Diff(cur, cur, t1); len(got) != 0 {
		t.Errorf("Diff of identical scans = %+v", got)
	}
}

func TestBatchDebouncer_Folds(t *testing.T) {
	tests := []struct {
		name   string
		events []EventType
		want   []EventType // empty means the path drops out
	}{
		{"create then modify", []EventType{EventCreate, EventModify}, []EventType{EventCreate}},
		{"create then delete", []EventType{EventCreate, EventDelete}, nil},
		{"delete then create", []EventType{EventDelete, EventCreate}, []EventType{EventModify}},
		{"modify then delete", []EventType{EventModify, EventDelete}, []EventType{EventDelete}},
		{"modify twice", []EventType{EventModify, EventModify}, []EventType{EventModify}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []Event
			b := NewBatchDebouncer(time.Hour, func(events []Event) { got = events })
			for _, typ := range tt.events {
				b.Add(Event{Type: typ, Path: "x.go"})
			}
			b.Flush()
			if len(got) != len(tt.want) {
				t.Fatalf("emitted %+v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i].Type != tt.want[i] {
					t.Errorf("emitted %s, want %s", got[i].Type, tt.want[i])
				}
			}
			if b.Pending() != 0 {
				t.Errorf("Pending() = %d after flush", b.Pending())
			}
		})
	}
}

func TestBatchDebouncer_Cancel(t *testing.T) {
	emitted := false
	b := NewBatchDebouncer(10*time.Millisecond, func([]Event) { emitted = true })
	b.Add(Event{Type: EventModify, Path: "a.go"})
	b.Cancel()
	time.Sleep(30 * time.Millisecond)
	if emitted {
		t.Error("canceled batch was emitted")
	}
}

// fakeTree is a Scanner over an in-memory file set.
type fakeTree struct {
	mu    sync.Mutex
	files map[string]FileState
}

func (f *fakeTree) scan() (map[string]FileState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]FileState, len(f.files))
	for k, v := range f.files {
		out[k] = v
	}
	return out, nil
}

func (f *fakeTree) set(path string, st FileState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = st
}

func TestWatcherRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	tree := &fakeTree{files: map[string]FileState{"a.go": {Size: 1}}}
	got := make(chan []Event, 4)
	cfg := config.WatchConfig{PollIntervalMs: 5, DebounceMs: 20}
	w := New(cfg, tree.scan, func(_ context.Context, events []Event) { got <- events }, slogutil.NewDiscardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	tree.set("a.go", FileState{Size: 2})
	tree.set("b.go", FileState{Size: 1})

	select {
	case events := <-got:
		if len(events) != 2 || events[0].Path != "a.go" || events[1].Type != EventCreate {
			t.Errorf("events = %+v", events)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change batch delivered")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
