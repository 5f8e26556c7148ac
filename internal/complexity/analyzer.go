//go:build cgo

package complexity

import (
	"context"
	"os"

	sitter "github.com/smacker/go-tree-sitter"

	"sentinel/internal/model"
)

// Analyzer computes complexity metrics for source files.
type Analyzer struct {
	parser *Parser
}

// NewAnalyzer creates a new complexity analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		parser: NewParser(),
	}
}

// AnalyzeFile analyzes a source file and returns complexity metrics.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*FileComplexity, error) {
	lang, ok := model.LanguageFromPath(path)
	if !ok || !Supported(lang) {
		return &FileComplexity{
			Path:  path,
			Error: "unsupported file type: " + path,
		}, nil
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return &FileComplexity{
			Path:  path,
			Error: "failed to read file: " + err.Error(),
		}, nil
	}

	return a.AnalyzeSource(ctx, path, source, lang)
}

// AnalyzeSource analyzes source code and returns complexity metrics.
func (a *Analyzer) AnalyzeSource(ctx context.Context, path string, source []byte, lang model.Language) (*FileComplexity, error) {
	root, err := a.parser.Parse(ctx, source, lang)
	if err != nil {
		return &FileComplexity{
			Path:     path,
			Language: lang,
			Error:    err.Error(),
		}, nil
	}

	fc := &FileComplexity{
		Path:      path,
		Language:  lang,
		Functions: make([]ComplexityResult, 0),
	}

	for _, fn := range FindNodes(root, GetFunctionNodeTypes(lang)) {
		fc.Functions = append(fc.Functions, a.analyzeFunction(fn, source, lang))
	}

	fc.Aggregate()
	return fc, nil
}

// analyzeFunction computes complexity for a single function. Cyclomatic and
// cognitive values come from the syntax tree; the remaining metrics come
// from the function text.
func (a *Analyzer) analyzeFunction(node *sitter.Node, source []byte, lang model.Language) ComplexityResult {
	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1

	text := string(source[node.StartByte():node.EndByte()])
	m := Compute(text, Shape{Language: lang})
	m.Cyclomatic = computeCyclomaticComplexity(node, source, lang)
	m.Cognitive = computeCognitiveComplexity(node, source, lang)
	m.assess()

	return ComplexityResult{
		Name:            FunctionName(node, source, lang),
		StartLine:       startLine,
		EndLine:         endLine,
		Lines:           endLine - startLine + 1,
		Cyclomatic:      m.Cyclomatic,
		Cognitive:       m.Cognitive,
		MaxNesting:      m.MaxNesting,
		Maintainability: m.Maintainability,
		Risk:            m.Risk,
	}
}

// FunctionName extracts the function name from a node.
func FunctionName(node *sitter.Node, source []byte, lang model.Language) string {
	var nameNode *sitter.Node

	switch lang {
	case LangGo:
		nameNode = node.ChildByFieldName("name")
		if nameNode == nil {
			nameNode = childOfType(node, "identifier")
		}

	case LangKotlin:
		nameNode = childOfType(node, "simple_identifier")

	case LangC, LangCpp:
		nameNode = declaratorName(node)

	default:
		nameNode = node.ChildByFieldName("name")
	}

	if nameNode != nil {
		return nameNode.Content(source)
	}

	switch node.Type() {
	case "arrow_function", "func_literal", "lambda", "lambda_expression",
		"closure_expression", "lambda_literal", "anonymous_function":
		return "<anonymous>"
	}

	return "<unknown>"
}

// declaratorName follows a C/C++ declarator chain down to the declared name.
func declaratorName(node *sitter.Node) *sitter.Node {
	d := node.ChildByFieldName("declarator")
	for d != nil {
		switch d.Type() {
		case "identifier", "field_identifier", "qualified_identifier", "destructor_name", "operator_name":
			return d
		}
		next := d.ChildByFieldName("declarator")
		if next == nil && d.Type() == "reference_declarator" && d.NamedChildCount() > 0 {
			next = d.NamedChild(int(d.NamedChildCount()) - 1)
		}
		if next == nil {
			return nil
		}
		d = next
	}
	return nil
}

func childOfType(node *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil && child.Type() == typ {
			return child
		}
	}
	return nil
}

// computeCyclomaticComplexity counts decision points + 1.
func computeCyclomaticComplexity(node *sitter.Node, source []byte, lang model.Language) int {
	complexity := 1

	for _, dn := range FindNodes(node, GetDecisionNodeTypes(lang)) {
		if dn.Type() == "binary_expression" || dn.Type() == "boolean_operator" {
			if IsBooleanOperator(dn, source, lang) {
				complexity++
			}
		} else {
			complexity++
		}
	}

	return complexity
}

// computeCognitiveComplexity weights every decision by its nesting level.
func computeCognitiveComplexity(node *sitter.Node, source []byte, lang model.Language) int {
	decisionTypes := toSet(GetDecisionNodeTypes(lang))
	nestingTypes := toSet(GetNestingNodeTypes(lang))

	type item struct {
		node    *sitter.Node
		nesting int
	}
	complexity := 0
	stack := []item{{node: node}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := it.node
		nodeType := n.Type()

		if decisionTypes[nodeType] {
			if nodeType == "binary_expression" || nodeType == "boolean_operator" {
				if IsBooleanOperator(n, source, lang) {
					complexity += 1 + it.nesting
				}
			} else {
				complexity += 1 + it.nesting
			}
		}

		childNesting := it.nesting
		if nestingTypes[nodeType] {
			childNesting++
		}
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			if child := n.Child(i); child != nil {
				stack = append(stack, item{node: child, nesting: childNesting})
			}
		}
	}
	return complexity
}

// FindNodes returns all nodes of the given types in document order. The
// walk uses an explicit stack so generated files cannot exhaust the
// goroutine stack.
func FindNodes(root *sitter.Node, types []string) []*sitter.Node {
	if root == nil || len(types) == 0 {
		return nil
	}
	want := toSet(types)

	var result []*sitter.Node
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if want[n.Type()] {
			result = append(result, n)
		}
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			if child := n.Child(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
	return result
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}

// IsAvailable returns whether complexity analysis is available.
// Returns true when CGO is enabled.
func IsAvailable() bool {
	return true
}
