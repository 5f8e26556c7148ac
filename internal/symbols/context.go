package symbols

import "sort"

// frameKind distinguishes the scopes tracked while scanning.
type frameKind int

const (
	frameNamespace frameKind = iota
	frameClass
	frameFunction
)

// frame is one node of a persistent scope stack. Frames are never mutated
// after creation, so stacks can be shared between contexts.
type frame struct {
	kind      frameKind
	name      string
	qualified string
	depth     int
	parent    *frame
}

func (f *frame) names() []string {
	var out []string
	for cur := f; cur != nil; cur = cur.parent {
		out = append(out, cur.name)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// nameNode is one node of a persistent set of type names.
type nameNode struct {
	name string
	next *nameNode
}

// pendingDecl is a declaration whose opening brace has not been seen yet.
type pendingDecl struct {
	kind      frameKind
	name      string
	qualified string
}

// ParseContext is the cross-chunk state threaded through a sequential parse.
// It is immutable: every mutating method returns a new context and leaves the
// receiver untouched, so a snapshot taken at any line stays valid.
type ParseContext struct {
	namespaces     *frame
	classes        *frame
	functions      *frame
	unresolved     *nameNode
	unresolvedSize int
	pending        *pendingDecl
	depth          int
	inBlockComment bool
	lastIndent     int
}

// NewParseContext returns an empty context.
func NewParseContext() ParseContext {
	return ParseContext{}
}

// PushNamespace opens a namespace scope.
func (c ParseContext) PushNamespace(name, qualified string, depth int) ParseContext {
	c.namespaces = &frame{kind: frameNamespace, name: name, qualified: qualified, depth: depth, parent: c.namespaces}
	return c
}

// PushClass opens a class scope.
func (c ParseContext) PushClass(name, qualified string, depth int) ParseContext {
	c.classes = &frame{kind: frameClass, name: name, qualified: qualified, depth: depth, parent: c.classes}
	return c
}

// PushFunction opens a function body scope.
func (c ParseContext) PushFunction(name, qualified string, depth int) ParseContext {
	c.functions = &frame{kind: frameFunction, name: name, qualified: qualified, depth: depth, parent: c.functions}
	return c
}

// PopDeeperThan closes every scope opened at a depth greater than depth.
func (c ParseContext) PopDeeperThan(depth int) ParseContext {
	for c.functions != nil && c.functions.depth > depth {
		c.functions = c.functions.parent
	}
	for c.classes != nil && c.classes.depth > depth {
		c.classes = c.classes.parent
	}
	for c.namespaces != nil && c.namespaces.depth > depth {
		c.namespaces = c.namespaces.parent
	}
	return c
}

// PopAtOrDeeper closes every scope opened at depth or deeper. Indentation
// languages close a scope when a line returns to the scope's own indent.
func (c ParseContext) PopAtOrDeeper(depth int) ParseContext {
	return c.PopDeeperThan(depth - 1)
}

// WithDepth returns a context at the given brace depth or indent.
func (c ParseContext) WithDepth(depth int) ParseContext {
	if depth < 0 {
		depth = 0
	}
	c.depth = depth
	return c
}

// Depth returns the current brace depth (or indent for indentation languages).
func (c ParseContext) Depth() int { return c.depth }

// WithPending records a declaration waiting for its opening brace.
func (c ParseContext) WithPending(kind frameKind, name, qualified string) ParseContext {
	c.pending = &pendingDecl{kind: kind, name: name, qualified: qualified}
	return c
}

// ClearPending drops a waiting declaration.
func (c ParseContext) ClearPending() ParseContext {
	c.pending = nil
	return c
}

// WithBlockComment records whether scanning is inside a block comment.
func (c ParseContext) WithBlockComment(in bool) ParseContext {
	c.inBlockComment = in
	return c
}

// AddUnresolved records a type name that could not be resolved locally.
func (c ParseContext) AddUnresolved(name string) ParseContext {
	if name == "" || c.IsUnresolved(name) {
		return c
	}
	c.unresolved = &nameNode{name: name, next: c.unresolved}
	c.unresolvedSize++
	return c
}

// IsUnresolved reports whether name is in the unresolved set.
func (c ParseContext) IsUnresolved(name string) bool {
	for n := c.unresolved; n != nil; n = n.next {
		if n.name == name {
			return true
		}
	}
	return false
}

// Unresolved returns the unresolved type names, sorted.
func (c ParseContext) Unresolved() []string {
	out := make([]string, 0, c.unresolvedSize)
	for n := c.unresolved; n != nil; n = n.next {
		out = append(out, n.name)
	}
	sort.Strings(out)
	return out
}

// NamespaceStack returns the open namespaces, outermost first.
func (c ParseContext) NamespaceStack() []string { return c.namespaces.names() }

// ClassStack returns the open classes, outermost first.
func (c ParseContext) ClassStack() []string { return c.classes.names() }

// CurrentNamespace returns the qualified name of the innermost namespace.
func (c ParseContext) CurrentNamespace() string {
	if c.namespaces == nil {
		return ""
	}
	return c.namespaces.qualified
}

// CurrentClass returns the qualified name of the innermost class.
func (c ParseContext) CurrentClass() string {
	if c.classes == nil {
		return ""
	}
	return c.classes.qualified
}

// CurrentClassDepth returns the depth of the innermost class body, or -1.
func (c ParseContext) CurrentClassDepth() int {
	if c.classes == nil {
		return -1
	}
	return c.classes.depth
}

// CurrentFunction returns the qualified name of the innermost function.
func (c ParseContext) CurrentFunction() string {
	if c.functions == nil {
		return ""
	}
	return c.functions.qualified
}

// InClassBody reports whether the innermost open scope is a class body
// rather than a function body.
func (c ParseContext) InClassBody() bool {
	if c.classes == nil {
		return false
	}
	return c.functions == nil || c.classes.depth > c.functions.depth
}

// InFunctionBody reports whether scanning is inside a function body.
func (c ParseContext) InFunctionBody() bool {
	return c.functions != nil && !c.InClassBody()
}

// Scope returns the qualified name of the innermost enclosing scope.
func (c ParseContext) Scope() string {
	if cls := c.CurrentClass(); cls != "" {
		return cls
	}
	return c.CurrentNamespace()
}
