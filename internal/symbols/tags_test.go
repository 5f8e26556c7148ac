package symbols

import (
	"testing"

	"sentinel/internal/model"
)

func TestApplyTags(t *testing.T) {
	tests := []struct {
		name string
		sym  model.Symbol
		want []string
	}{
		{
			name: "getter",
			sym:  model.Symbol{Name: "getUser", Kind: model.KindMethod},
			want: []string{"data_retrieval", "accessor"},
		},
		{
			name: "entry point",
			sym:  model.Symbol{Name: "main", Kind: model.KindFunction},
			want: []string{"entry_point"},
		},
		{
			name: "go test",
			sym:  model.Symbol{Name: "TestParse", Kind: model.KindFunction, FilePath: "pkg/parse_test.go"},
			want: []string{"test", "parsing"},
		},
		{
			name: "repository type",
			sym:  model.Symbol{Name: "UserRepository", Kind: model.KindClass},
			want: []string{"database_operation"},
		},
		{
			name: "constructor",
			sym:  model.Symbol{Name: "Widget", Kind: model.KindConstructor},
			want: []string{"constructor"},
		},
		{
			name: "spring endpoint",
			sym:  model.Symbol{Name: "list", Kind: model.KindMethod, SemanticTags: []string{"decorated:GetMapping"}},
			want: []string{"api_endpoint"},
		},
		{
			name: "flask route",
			sym:  model.Symbol{Name: "index", Kind: model.KindFunction, SemanticTags: []string{"decorated:app.route"}},
			want: []string{"api_endpoint"},
		},
		{
			name: "event callback",
			sym:  model.Symbol{Name: "onClick", Kind: model.KindMethod},
			want: []string{"callback"},
		},
		{
			name: "singleton accessor",
			sym:  model.Symbol{Name: "getInstance", Kind: model.KindMethod},
			want: []string{"singleton", "accessor"},
		},
		{
			name: "error handler",
			sym:  model.Symbol{Name: "handleError", Kind: model.KindFunction},
			want: []string{"handler", "error_handling"},
		},
		{
			name: "async",
			sym:  model.Symbol{Name: "run", Kind: model.KindFunction, IsAsync: true},
			want: []string{"async"},
		},
		{
			name: "exported public",
			sym:  model.Symbol{Name: "Render", Kind: model.KindFunction, Visibility: "public", IsExported: true},
			want: []string{"public_api", "ui_rendering"},
		},
		{
			name: "private",
			sym:  model.Symbol{Name: "cache", Kind: model.KindField, Visibility: "private"},
			want: []string{"internal"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sym := tt.sym
			ApplyTags(&sym)
			for _, tag := range tt.want {
				if !sym.HasTag(tag) {
					t.Errorf("tags = %v, missing %q", sym.SemanticTags, tag)
				}
			}
		})
	}
}

func TestApplyTags_NoFalsePositives(t *testing.T) {
	sym := model.Symbol{Name: "compute", Kind: model.KindFunction, FilePath: "math.go"}
	ApplyTags(&sym)
	for _, tag := range []string{"test", "entry_point", "api_endpoint", "accessor", "constructor"} {
		if sym.HasTag(tag) {
			t.Errorf("unexpected tag %q", tag)
		}
	}
}

func TestPatternHints(t *testing.T) {
	symbols := []model.Symbol{
		{Name: "getInstance", QualifiedName: "Config.getInstance", ParentScope: "Config", Kind: model.KindMethod, SemanticTags: []string{"singleton"}},
		{Name: "WidgetFactory", QualifiedName: "WidgetFactory", Kind: model.KindClass},
		{Name: "QueryBuilder", QualifiedName: "QueryBuilder", Kind: model.KindStruct},
		{Name: "EventListener", QualifiedName: "EventListener", Kind: model.KindInterface},
		{Name: "UserRepository", QualifiedName: "UserRepository", Kind: model.KindClass},
		{Name: "LegacyAdapter", QualifiedName: "LegacyAdapter", Kind: model.KindClass},
		{Name: "Widget", QualifiedName: "Widget", Kind: model.KindClass},
		{Name: "buildFactory", QualifiedName: "buildFactory", Kind: model.KindFunction},
	}

	hints := patternHints(symbols)
	want := []string{"singleton", "factory", "builder", "observer", "repository", "adapter"}
	if len(hints) != len(want) {
		t.Fatalf("len(hints) = %d, want %d: %+v", len(hints), len(want), hints)
	}
	for i, name := range want {
		if hints[i].Name != name {
			t.Errorf("hints[%d] = %s, want %s", i, hints[i].Name, name)
		}
	}
	if s := hints[0].Symbols; len(s) != 2 || s[0] != "Config" {
		t.Errorf("singleton symbols = %v", s)
	}
}
