package symbols

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"sentinel/internal/errors"
	"sentinel/internal/model"
	"sentinel/internal/slogutil"
)

func newResolverIndex() *fakeIndex {
	return &fakeIndex{
		all: []model.Declaration{
			{Name: "Widget", FilePath: "ui/widget.go", Line: 10, Confidence: 0.8, Kind: model.KindStruct},
			{Name: "helper", FilePath: "ui/util.go", Line: 3, Confidence: 0.9, Kind: model.KindFunction},
		},
		find: map[string][]model.Declaration{
			"Gadget": {
				{Name: "Gadget", FilePath: "hw/gadget.cpp", Line: 5, Confidence: 0.7, Kind: model.KindClass},
				{Name: "Gadget", FilePath: "hw/gadget.cpp", Line: 40, Confidence: 0.95, Kind: model.KindFunction},
			},
		},
	}
}

func TestTypeResolver_SeedsTypesOnly(t *testing.T) {
	r, err := NewTypeResolver(context.Background(), newResolverIndex(), slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("NewTypeResolver() error = %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (functions are not type declarations)", r.Len())
	}
}

func TestTypeResolver_Resolve(t *testing.T) {
	r, err := NewTypeResolver(context.Background(), newResolverIndex(), slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("NewTypeResolver() error = %v", err)
	}

	got := r.Resolve(context.Background(), []string{"Widget", "ui.Widget", "Missing", "Gadget"})
	want := []struct {
		name      string
		found     bool
		fromCache bool
	}{
		{"Gadget", true, false},
		{"Missing", false, false},
		{"Widget", true, true},
		{"ui.Widget", true, true},
	}
	if len(got) != len(want) {
		t.Fatalf("len(Resolve()) = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Name != w.name || got[i].Found != w.found || got[i].FromCache != w.fromCache {
			t.Errorf("Resolve()[%d] = %+v, want %+v", i, got[i], w)
		}
	}
	if got[0].Declaration.Kind != model.KindClass {
		t.Errorf("Gadget resolved to %s, want the class declaration", got[0].Declaration.Kind)
	}

	again := r.Resolve(context.Background(), []string{"Gadget"})
	if !again[0].Found || !again[0].FromCache {
		t.Error("a store hit should be cached for later lookups")
	}
}

func TestTypeResolver_StoreUnavailable(t *testing.T) {
	index := &fakeIndex{err: fmt.Errorf("database is locked")}
	_, err := NewTypeResolver(context.Background(), index, slogutil.NewDiscardLogger())
	if !errors.IsCode(err, errors.StoreUnavailable) {
		t.Errorf("error = %v, want STORE_UNAVAILABLE", err)
	}
}

func TestTypeResolver_NilIndex(t *testing.T) {
	r, err := NewTypeResolver(context.Background(), nil, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("NewTypeResolver() error = %v", err)
	}
	if res := r.Resolve(context.Background(), []string{"Anything"}); res[0].Found {
		t.Error("a resolver without an index should not find anything")
	}
}

func TestTypeResolver_Learn(t *testing.T) {
	r, _ := NewTypeResolver(context.Background(), nil, slogutil.NewDiscardLogger())
	r.Learn([]model.Symbol{
		{Name: "Point", Kind: model.KindStruct, IsDefinition: true, Confidence: 0.5},
		{Name: "Shape", Kind: model.KindClass, IsDefinition: false},
		{Name: "draw", Kind: model.KindFunction, IsDefinition: true},
	})
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}

	r.Learn([]model.Symbol{{Name: "Point", Kind: model.KindClass, IsDefinition: true, Confidence: 0.9, FilePath: "b.cpp"}})
	res := r.Resolve(context.Background(), []string{"Point"})
	if res[0].Declaration.FilePath != "b.cpp" {
		t.Errorf("higher confidence declaration should win, got %+v", res[0].Declaration)
	}
}

func TestTypeResolver_Concurrent(t *testing.T) {
	r, err := NewTypeResolver(context.Background(), newResolverIndex(), slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Resolve(context.Background(), []string{"Widget", "Gadget"})
			r.Learn([]model.Symbol{{Name: fmt.Sprintf("T%d", i), Kind: model.KindStruct, IsDefinition: true}})
		}(i)
	}
	wg.Wait()

	if r.Len() != 10 {
		t.Errorf("Len() = %d, want 10", r.Len())
	}
}
