// Package complexity computes function complexity metrics, either from a
// tree-sitter syntax tree or from source text alone.
package complexity

import "sentinel/internal/model"

// ComplexityResult contains complexity metrics for a single unit (function/method).
type ComplexityResult struct {
	// Name is the function/method name
	Name string `json:"name"`

	// StartLine is the line number where the function starts
	StartLine int `json:"startLine"`

	// EndLine is the line number where the function ends
	EndLine int `json:"endLine"`

	// Cyclomatic is the cyclomatic complexity (decision points + 1)
	Cyclomatic int `json:"cyclomatic"`

	// Cognitive is the cognitive complexity (nested depth weighted)
	Cognitive int `json:"cognitive"`

	// Lines is the number of lines in the function
	Lines int `json:"lines"`

	// MaxNesting is the deepest block nesting inside the function
	MaxNesting int `json:"maxNesting"`

	// Maintainability is the maintainability index in [0,100]
	Maintainability float64 `json:"maintainability"`

	// Risk is the risk tier derived from the metrics above
	Risk RiskLevel `json:"risk"`
}

// FileComplexity contains complexity metrics for an entire file.
type FileComplexity struct {
	Path              string             `json:"path"`
	Language          model.Language     `json:"language"`
	Functions         []ComplexityResult `json:"functions"`
	TotalCyclomatic   int                `json:"totalCyclomatic"`
	TotalCognitive    int                `json:"totalCognitive"`
	AverageCyclomatic float64            `json:"averageCyclomatic"`
	AverageCognitive  float64            `json:"averageCognitive"`
	MaxCyclomatic     int                `json:"maxCyclomatic"`
	MaxCognitive      int                `json:"maxCognitive"`
	FunctionCount     int                `json:"functionCount"`

	// Error is set if analysis failed
	Error string `json:"error,omitempty"`
}

// Aggregate computes aggregate metrics from function results.
func (fc *FileComplexity) Aggregate() {
	fc.FunctionCount = len(fc.Functions)
	fc.TotalCyclomatic, fc.TotalCognitive = 0, 0
	fc.MaxCyclomatic, fc.MaxCognitive = 0, 0
	if fc.FunctionCount == 0 {
		fc.AverageCyclomatic, fc.AverageCognitive = 0, 0
		return
	}

	for _, f := range fc.Functions {
		fc.TotalCyclomatic += f.Cyclomatic
		fc.TotalCognitive += f.Cognitive

		if f.Cyclomatic > fc.MaxCyclomatic {
			fc.MaxCyclomatic = f.Cyclomatic
		}
		if f.Cognitive > fc.MaxCognitive {
			fc.MaxCognitive = f.Cognitive
		}
	}

	fc.AverageCyclomatic = float64(fc.TotalCyclomatic) / float64(fc.FunctionCount)
	fc.AverageCognitive = float64(fc.TotalCognitive) / float64(fc.FunctionCount)
}

// Supported reports whether a grammar is available for the language.
func Supported(lang model.Language) bool {
	switch lang {
	case model.LangGo, model.LangJavaScript, model.LangTypeScript, model.LangTSX,
		model.LangPython, model.LangRust, model.LangJava, model.LangKotlin,
		model.LangC, model.LangCpp:
		return true
	}
	return false
}
