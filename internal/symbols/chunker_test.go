package symbols

import (
	"strings"
	"testing"

	"sentinel/internal/model"
)

func TestSplitChunks_BelowThreshold(t *testing.T) {
	content := []byte("int main() { return 0; }\n")
	chunks := SplitChunks(content, ChunkOptions{Threshold: 1024, Overlap: 64, Lookahead: 32})
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	if c := chunks[0]; c.Start != 0 || c.End != len(content) || c.StartLine != 1 || c.Overlap {
		t.Errorf("chunk = %+v", c)
	}
}

func TestSplitChunks_Boundaries(t *testing.T) {
	content := []byte(strings.Repeat("abcdefghi\n", 100))
	chunks := SplitChunks(content, ChunkOptions{Threshold: 300, Overlap: 40, Lookahead: 50})

	var main, overlap []Chunk
	for _, c := range chunks {
		if c.Overlap {
			overlap = append(overlap, c)
		} else {
			main = append(main, c)
		}
	}
	if len(main) != 4 || len(overlap) != 3 {
		t.Fatalf("main = %d overlap = %d, want 4 and 3", len(main), len(overlap))
	}

	wantEnds := []int{310, 620, 930, 1000}
	for i, c := range main {
		if c.End != wantEnds[i] {
			t.Errorf("main[%d].End = %d, want %d", i, c.End, wantEnds[i])
		}
		if i > 0 && c.Start != main[i-1].End {
			t.Errorf("main[%d] starts at %d, previous ended at %d", i, c.Start, main[i-1].End)
		}
		if c.StartLine != strings.Count(string(content[:c.Start]), "\n")+1 {
			t.Errorf("main[%d].StartLine = %d", i, c.StartLine)
		}
	}

	for i, c := range overlap {
		if c.Start > 0 && content[c.Start-1] != '\n' {
			t.Errorf("overlap[%d] does not start at a line start", i)
		}
		if c.After < 0 || chunks[c.After].Overlap {
			t.Errorf("overlap[%d].After = %d, want a main chunk", i, c.After)
		}
		boundary := chunks[c.After].End
		if c.Start >= boundary || c.End <= boundary {
			t.Errorf("overlap[%d] = [%d,%d) does not straddle %d", i, c.Start, c.End, boundary)
		}
	}
	if overlap[0].Start != 290 || overlap[0].End != 330 || overlap[0].StartLine != 30 {
		t.Errorf("overlap[0] = %+v", overlap[0])
	}
}

func TestSnapBoundary(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		pos       int
		lookahead int
		want      int
	}{
		{"newline", "abc\ndef", 1, 10, 4},
		{"semicolon", "a = 1; b = 2", 2, 10, 6},
		{"brace", "if x {y}", 0, 10, 6},
		{"none within lookahead", "abcdefghij\n", 0, 3, 0},
		{"past end", "abc", 5, 10, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := snapBoundary([]byte(tt.content), tt.pos, tt.lookahead); got != tt.want {
				t.Errorf("snapBoundary() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMergeResults(t *testing.T) {
	sym := func(name string, kind model.SymbolKind, line int, ns string) model.Symbol {
		return model.Symbol{Name: name, Kind: kind, Line: line, Namespace: ns}
	}
	call := func(from, to string, line int) model.Relationship {
		return model.Relationship{FromName: from, ToName: to, Type: model.RelCalls, Context: &model.SourceContext{Line: line}}
	}

	results := []chunkResult{
		{
			symbols:       []model.Symbol{sym("Widget", model.KindClass, 1, "app"), sym("foo", model.KindMethod, 10, "app")},
			relationships: []model.Relationship{call("foo", "bar", 11)},
			imports:       []string{"os"},
			parseErrors:   1,
		},
		{
			symbols: []model.Symbol{
				sym("foo", model.KindMethod, 12, "app"),
				sym("Widget", model.KindClass, 30, "app"),
				sym("baz", model.KindMethod, 40, "app"),
				sym("qux", model.KindMethod, 50, "app"),
			},
			relationships: []model.Relationship{call("foo", "bar", 11), call("baz", "bar", 41), call("qux", "bar", 51)},
			imports:       []string{"os", "io"},
			parseErrors:   3,
			overlap:       true,
		},
		{
			symbols:       []model.Symbol{sym("qux", model.KindMethod, 50, "app")},
			relationships: []model.Relationship{call("qux", "bar", 51)},
		},
	}

	merged := mergeResults(results, 5)

	var names []string
	for _, s := range merged.symbols {
		names = append(names, s.Name)
	}
	if got := strings.Join(names, ","); got != "Widget,foo,baz,qux" {
		t.Errorf("symbols = %s, want Widget,foo,baz,qux", got)
	}
	if len(merged.relationships) != 3 {
		t.Errorf("relationships = %d, want 3", len(merged.relationships))
	}
	if got := strings.Join(merged.imports, ","); got != "os,io" {
		t.Errorf("imports = %s, want os,io", got)
	}
	if merged.parseErrors != 1 {
		t.Errorf("parseErrors = %d, want 1 from main chunks only", merged.parseErrors)
	}
}
