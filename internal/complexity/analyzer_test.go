//go:build cgo

package complexity

import (
	"context"
	"strings"
	"testing"

	"sentinel/internal/model"
)

const goSource = `package main

func simple() {
	fmt.Println("hello")
}

func withIf(x int) {
	if x > 0 {
		fmt.Println("positive")
	}
}

func withLoop(items []int) {
	for _, item := range items {
		fmt.Println(item)
	}
}

func withNestedIf(x, y int) {
	if x > 0 {
		if y > 0 {
			fmt.Println("both positive")
		}
	}
}

func withAndOr(a, b bool) {
	if a && b {
		fmt.Println("both true")
	}
	if a || b {
		fmt.Println("one true")
	}
}
`

func TestAnalyzeSource_Cyclomatic(t *testing.T) {
	tests := []struct {
		name string
		path string
		lang model.Language
		src  string
		want map[string]int
	}{
		{
			name: "go",
			path: "main.go",
			lang: LangGo,
			src:  goSource,
			// range adds to the for statement; && and || count once each
			want: map[string]int{"simple": 1, "withIf": 2, "withLoop": 3, "withNestedIf": 3, "withAndOr": 5},
		},
		{
			name: "python",
			path: "util.py",
			lang: LangPython,
			src: `
def simple():
    print("hello")

def with_loop(items):
    for item in items:
        print(item)
`,
			want: map[string]int{"simple": 1, "with_loop": 2},
		},
		{
			name: "c",
			path: "util.c",
			lang: LangC,
			src: `
int clamp(int v, int lo, int hi) {
    if (v < lo) {
        return lo;
    }
    if (v > hi) {
        return hi;
    }
    return v;
}

static char *dup_name(const char *s) {
    return s ? strdup(s) : NULL;
}
`,
			want: map[string]int{"clamp": 3, "dup_name": 2},
		},
		{
			name: "cpp",
			path: "mesh.cpp",
			lang: LangCpp,
			src: `
namespace geo {

int Mesh::vertexCount() const {
    return count_;
}

bool Mesh::validate(int limit) {
    for (int i = 0; i < limit; ++i) {
        if (faces_[i] < 0 || faces_[i] > limit) {
            return false;
        }
    }
    return true;
}

const std::string &Mesh::name() const {
    return name_;
}

Mesh::~Mesh() {
    delete[] faces_;
}

}
`,
			want: map[string]int{"Mesh::vertexCount": 1, "Mesh::validate": 4, "Mesh::name": 1, "Mesh::~Mesh": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, err := NewAnalyzer().AnalyzeSource(context.Background(), tt.path, []byte(tt.src), tt.lang)
			if err != nil {
				t.Fatalf("AnalyzeSource() error = %v", err)
			}
			if fc.Error != "" {
				t.Fatalf("AnalyzeSource() reported %q", fc.Error)
			}
			if len(fc.Functions) != len(tt.want) {
				t.Errorf("functions = %d, want %d: %+v", len(fc.Functions), len(tt.want), fc.Functions)
			}
			for name, want := range tt.want {
				fn := findFunction(fc.Functions, name)
				if fn == nil {
					t.Errorf("%s not found in %+v", name, fc.Functions)
					continue
				}
				if fn.Cyclomatic != want {
					t.Errorf("%s: cyclomatic = %d, want %d", name, fn.Cyclomatic, want)
				}
			}
		})
	}
}

// The tree supplies cyclomatic and cognitive values; nesting, maintainability
// and risk are the text metrics recomputed with those values.
func TestAnalyzeSource_TextMetrics(t *testing.T) {
	fc, err := NewAnalyzer().AnalyzeSource(context.Background(), "main.go", []byte(goSource), LangGo)
	if err != nil {
		t.Fatalf("AnalyzeSource() error = %v", err)
	}
	lines := strings.Split(goSource, "\n")

	for _, fn := range fc.Functions {
		if fn.Lines != fn.EndLine-fn.StartLine+1 {
			t.Errorf("%s: Lines = %d for %d-%d", fn.Name, fn.Lines, fn.StartLine, fn.EndLine)
		}
		m := Compute(strings.Join(lines[fn.StartLine-1:fn.EndLine], "\n"), Shape{Language: LangGo})
		m.Cyclomatic, m.Cognitive = fn.Cyclomatic, fn.Cognitive
		m.assess()
		if fn.MaxNesting != m.MaxNesting || fn.Maintainability != m.Maintainability || fn.Risk != m.Risk {
			t.Errorf("%s: got nesting %d, MI %v, risk %s; want %d, %v, %s",
				fn.Name, fn.MaxNesting, fn.Maintainability, fn.Risk, m.MaxNesting, m.Maintainability, m.Risk)
		}
		if fn.Maintainability <= 0 || fn.Maintainability > 100 {
			t.Errorf("%s: maintainability %v out of range", fn.Name, fn.Maintainability)
		}
		if fn.Risk != RiskLow {
			t.Errorf("%s: risk = %s, want low", fn.Name, fn.Risk)
		}
	}

	simple := findFunction(fc.Functions, "simple")
	nested := findFunction(fc.Functions, "withNestedIf")
	if simple == nil || nested == nil {
		t.Fatal("functions not found")
	}
	if simple.MaxNesting != 0 || nested.MaxNesting < 2 {
		t.Errorf("nesting = %d and %d, want 0 and >= 2", simple.MaxNesting, nested.MaxNesting)
	}
	if nested.Maintainability >= simple.Maintainability {
		t.Errorf("MI of nested (%v) should be below simple (%v)", nested.Maintainability, simple.Maintainability)
	}
}

func TestCognitiveComplexity_NestingPenalty(t *testing.T) {
	source := []byte(`package main

func flat(a, b, c bool) {
	if a {
		doA()
	}
	if b {
		doB()
	}
	if c {
		doC()
	}
}

func nested(a, b, c bool) {
	if a {
		if b {
			if c {
				doABC()
			}
		}
	}
}
`)

	fc, err := NewAnalyzer().AnalyzeSource(context.Background(), "test.go", source, LangGo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	flat := findFunction(fc.Functions, "flat")
	nested := findFunction(fc.Functions, "nested")
	if flat == nil || nested == nil {
		t.Fatal("functions not found")
	}
	if flat.Cyclomatic != nested.Cyclomatic {
		t.Errorf("cyclomatic = %d and %d, want equal", flat.Cyclomatic, nested.Cyclomatic)
	}
	if nested.Cognitive <= flat.Cognitive {
		t.Errorf("expected nested cognitive (%d) > flat cognitive (%d)",
			nested.Cognitive, flat.Cognitive)
	}
}

func TestAnalyzeFile_Unsupported(t *testing.T) {
	fc, err := NewAnalyzer().AnalyzeFile(context.Background(), "notes.txt")
	if err != nil {
		t.Fatalf("AnalyzeFile() error = %v", err)
	}
	if !strings.Contains(fc.Error, "unsupported") {
		t.Errorf("Error = %q, want unsupported file type", fc.Error)
	}
}

func TestFileComplexity_Aggregate(t *testing.T) {
	fc := &FileComplexity{
		Functions: []ComplexityResult{
			{Name: "a", Cyclomatic: 5, Cognitive: 10},
			{Name: "b", Cyclomatic: 3, Cognitive: 4},
			{Name: "c", Cyclomatic: 8, Cognitive: 15},
		},
	}

	fc.Aggregate()

	if fc.FunctionCount != 3 {
		t.Errorf("expected FunctionCount 3, got %d", fc.FunctionCount)
	}
	if fc.TotalCyclomatic != 16 || fc.TotalCognitive != 29 {
		t.Errorf("totals = %d/%d, want 16/29", fc.TotalCyclomatic, fc.TotalCognitive)
	}
	if fc.MaxCyclomatic != 8 || fc.MaxCognitive != 15 {
		t.Errorf("max = %d/%d, want 8/15", fc.MaxCyclomatic, fc.MaxCognitive)
	}
}

func findFunction(functions []ComplexityResult, name string) *ComplexityResult {
	for i := range functions {
		if functions[i].Name == name {
			return &functions[i]
		}
	}
	return nil
}
