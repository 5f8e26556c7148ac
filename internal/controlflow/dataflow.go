package controlflow

import (
	"regexp"
	"sort"
	"strings"

	"sentinel/internal/complexity"
)

var (
	reDeclKeyword = regexp.MustCompile(`\b(?:var|let|const|auto|val|mut)\s+([A-Za-z_]\w*)`)
	reDeclShort   = regexp.MustCompile(`^\s*(?:(?:for|if|switch|else\s+if)\s+)?([A-Za-z_][\w\s,]*?)\s*:=`)
	reIdent       = regexp.MustCompile(`^[A-Za-z_]\w*$`)
	reDeclTyped   = regexp.MustCompile(`^\s*(?:final\s+)?(?:int|long|short|float|double|char|bool|boolean|string|String|size_t|[A-Z]\w*(?:<[^>]*>)?)\s+\*?([A-Za-z_]\w*)\s*(?:=|;)`)
	reDeclAssign  = regexp.MustCompile(`^\s*([A-Za-z_]\w*)\s*=[^=]`)
	reDeclFor     = regexp.MustCompile(`\bfor\s*\(?\s*(?:\w+\s+)?([A-Za-z_]\w*)\s+(?:in|of)\b|\bfor\s*\(\s*(?:final\s+)?\w+(?:<[^>]*>)?\s+([A-Za-z_]\w*)\s*[:=]`)
	reAssignOp    = regexp.MustCompile(`:=|<<=|>>=|[-+*/%&|^]=|[^=!<>]=[^=>]`)

	reSource   = regexp.MustCompile(`\b(?:input|raw_input|readline|readLine|nextLine|recv|recvfrom|scanf|gets|fgets|getenv|Getenv|environ|argv|Args|request|req|params|query|form|stdin|Stdin|urlopen|fetch|ReadFile|readFile|ReadAll|getParameter|getHeader|FormValue)\b`)
	reSink     = regexp.MustCompile(`\b(?:exec|execute|executeQuery|execSync|system|popen|eval|spawn|subprocess|Command|Exec|Query|innerHTML|write|Write|send|Send|printf|fprintf|sprintf|unlink|remove)\b`)
	reSanitize = regexp.MustCompile(`(?i)(validate|sanitize|sanitise|escape|filter|clean|check)`)
)

var notVariables = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "return": true, "func": true,
	"def": true, "fn": true, "let": true, "var": true, "const": true, "new": true,
	"true": true, "false": true, "nil": true, "null": true, "None": true, "self": true,
	"this": true, "_": true,
}

// Variables finds the parameters and locals of fn and records where each is
// read, written or modified.
func Variables(fn *Function, g *Graph) []Variable {
	code := complexity.StripLiterals(fn.Lines, fn.Language)
	declared := make(map[string]int)
	var order []string
	declare := func(name string, line int) {
		name = strings.TrimSpace(name)
		if !reIdent.MatchString(name) || notVariables[name] {
			return
		}
		if _, ok := declared[name]; !ok {
			declared[name] = line
			order = append(order, name)
		}
	}
	params := make(map[string]bool)
	for _, p := range fn.Parameters {
		params[p] = true
		declare(p, fn.StartLine)
	}
	for i, line := range code {
		if i == 0 {
			continue
		}
		lineNo := fn.StartLine + i
		for _, m := range reDeclKeyword.FindAllStringSubmatch(line, -1) {
			declare(m[1], lineNo)
		}
		if m := reDeclShort.FindStringSubmatch(line); m != nil {
			for _, name := range strings.Split(m[1], ",") {
				declare(name, lineNo)
			}
		}
		if m := reDeclTyped.FindStringSubmatch(line); m != nil {
			declare(m[1], lineNo)
		}
		if m := reDeclAssign.FindStringSubmatch(line); m != nil {
			declare(m[1], lineNo)
		}
		if m := reDeclFor.FindStringSubmatch(line); m != nil {
			declare(m[1]+m[2], lineNo)
		}
	}

	vars := make([]Variable, 0, len(order))
	for _, name := range order {
		v := Variable{Name: name, Parameter: params[name], DeclaredAt: declared[name]}
		word := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
		for i, line := range code {
			lineNo := fn.StartLine + i
			if lineNo < v.DeclaredAt || !word.MatchString(line) {
				continue
			}
			kind := classifyUsage(line, name, word)
			if lineNo == v.DeclaredAt && kind == UsageRead {
				kind = UsageWrite
			}
			v.Usages = append(v.Usages, Usage{Line: lineNo, NodeID: g.NodeForLine(lineNo), Kind: kind})
		}
		vars = append(vars, v)
	}
	return vars
}

func classifyUsage(line, name string, word *regexp.Regexp) UsageKind {
	q := regexp.QuoteMeta(name)
	if regexp.MustCompile(`\b` + q + `\s*(?:\+\+|--|<<=|>>=|[-+*/%&|^]=)|(?:\+\+|--)` + q + `\b`).MatchString(line) {
		return UsageModify
	}
	loc := reAssignOp.FindStringIndex(line)
	if loc == nil {
		return UsageRead
	}
	left, right := line[:loc[0]+1], line[loc[1]-1:]
	if strings.HasPrefix(line[loc[0]:], ":=") {
		left, right = line[:loc[0]], line[loc[1]:]
	}
	if !word.MatchString(left) {
		return UsageRead
	}
	if word.MatchString(right) {
		return UsageModify
	}
	return UsageWrite
}

// flowReach reports whether control can pass from one usage to another.
type flowReach struct {
	g     *Graph
	cache map[string]map[string]bool
}

func (r *flowReach) reaches(from, to Usage) bool {
	set, ok := r.cache[from.NodeID]
	if !ok {
		set = r.g.reachable(from.NodeID)
		r.cache[from.NodeID] = set
	}
	if from.NodeID == to.NodeID {
		return to.Line > from.Line || set[from.NodeID]
	}
	return set[to.NodeID]
}

// DataFlows links every write or modification of a variable to each read it
// can reach along the graph.
func DataFlows(vars []Variable, g *Graph) []DataFlow {
	r := &flowReach{g: g, cache: make(map[string]map[string]bool)}
	var flows []DataFlow
	for _, v := range vars {
		for i, w := range v.Usages {
			if w.Kind == UsageRead {
				continue
			}
			for j, u := range v.Usages {
				if i == j || u.Kind == UsageWrite {
					continue
				}
				if r.reaches(w, u) {
					flows = append(flows, DataFlow{Variable: v.Name, From: w, To: u})
				}
			}
		}
	}
	return flows
}

// Taint pairs untrusted sources with sensitive sinks that share a variable.
// A flow is sanitized when a node on the path mentions validation.
func Taint(fn *Function, vars []Variable, g *Graph) []TaintFlow {
	code := complexity.StripLiterals(fn.Lines, fn.Language)
	lineText := func(line int) string {
		if i := line - fn.StartLine; i >= 0 && i < len(code) {
			return code[i]
		}
		return ""
	}
	r := &flowReach{g: g, cache: make(map[string]map[string]bool)}

	var flows []TaintFlow
	for _, v := range vars {
		for _, src := range v.Usages {
			if src.Kind == UsageRead || !reSource.MatchString(lineText(src.Line)) {
				continue
			}
			for _, sink := range v.Usages {
				if sink.Line == src.Line || !reSink.MatchString(lineText(sink.Line)) || !r.reaches(src, sink) {
					continue
				}
				path := g.shortestPath(src.NodeID, sink.NodeID)
				if len(path) == 0 {
					path = []string{src.NodeID, sink.NodeID}
				}
				flows = append(flows, TaintFlow{
					Variable:  v.Name,
					Source:    src,
					Sink:      sink,
					Path:      path,
					Sanitized: pathSanitized(g, path),
				})
			}
		}
	}
	sort.SliceStable(flows, func(i, j int) bool { return flows[i].Source.Line < flows[j].Source.Line })
	return flows
}

func pathSanitized(g *Graph, path []string) bool {
	for _, id := range path {
		if n, ok := g.Node(id); ok && reSanitize.MatchString(n.Code) {
			return true
		}
	}
	return false
}
