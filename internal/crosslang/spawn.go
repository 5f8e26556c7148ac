package crosslang

import (
	"bufio"
	"bytes"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"sentinel/internal/model"
)

// SpawnDetector finds process-creation call sites in source files.
type SpawnDetector struct {
	catalog *Catalog
}

// NewSpawnDetector creates a detector over catalog; nil uses the default.
func NewSpawnDetector(catalog *Catalog) *SpawnDetector {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &SpawnDetector{catalog: catalog}
}

// Name identifies the detector.
func (d *SpawnDetector) Name() string {
	return "spawn"
}

var (
	reLiteral = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)'|` + "`([^`]*)`")
	reEnvVar  = regexp.MustCompile(`process\.env\.([A-Z_][A-Z0-9_]*)|os\.environ\[["']([^"']+)["']\]|os\.Getenv\("([^"]+)"\)|env\s*=\s*\{[^}]*?["']([^"']+)["']\s*:`)
	reWorkDir = regexp.MustCompile(`(?:cwd|working_directory)\s*[=:]\s*["']([^"']+)["']|\.Dir\s*=\s*"([^"]+)"|current_dir\(\s*"([^"]+)"`)
	reStdin   = regexp.MustCompile(`(?i)\bstdin\b|input\s*=|\.write\(|communicate\(`)
	rePipes   = regexp.MustCompile(`(?i)\bPIPE\b|StdoutPipe|StdinPipe|\.pipe\(|Stdio::piped`)
	reCapture = regexp.MustCompile(`\.(?:Output|CombinedOutput)\(\)|capture_output\s*=\s*True|stdout\s*=\s*subprocess\.PIPE|\.output\(\)|getInputStream\(\)|RedirectStandardOutput`)
	reFileArg = regexp.MustCompile(`(?i)\.(?:json|csv|txt|ya?ml|xml|parquet|db)\b|--(?:input|output|file)\b`)
	reNetArg  = regexp.MustCompile(`(?i)--port\b|localhost|127\.0\.0\.1|--host\b|socket`)
	reBgTail  = regexp.MustCompile(`&\s*$`)
)

// Detect returns the spawn sites in f, attributed to the innermost callable
// symbol enclosing each call.
func (d *SpawnDetector) Detect(f SourceFile) []Spawn {
	sigs := d.catalog.For(f.Language)
	if len(sigs) == 0 {
		return nil
	}

	type hit struct {
		sig        *SpawnSignature
		start, end int
		group      string
	}

	var spawns []Spawn
	scanner := bufio.NewScanner(bytes.NewReader(f.Content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if isCommentLine(line, f.Language) {
			continue
		}

		// The longest match ending at the same call wins.
		best := make(map[int]hit)
		for _, sig := range sigs {
			for _, m := range sig.re.FindAllStringSubmatchIndex(line, -1) {
				h := hit{sig: sig, start: m[0], end: m[1]}
				if len(m) >= 4 && m[2] >= 0 {
					h.group = line[m[2]:m[3]]
				}
				key := h.end
				if h.group != "" {
					key = m[2]
				}
				if prev, ok := best[key]; !ok || h.end-h.start > prev.end-prev.start {
					best[key] = h
				}
			}
		}
		keys := make([]int, 0, len(best))
		for k := range best {
			keys = append(keys, k)
		}
		sort.Ints(keys)

		for _, k := range keys {
			h := best[k]
			var tokens []string
			if h.group != "" {
				tokens = splitCommand(h.group)
			} else {
				tokens = literals(callArguments(line[h.end:]))
			}
			spawns = append(spawns, d.newSpawn(f, lineNo, line, h.sig, tokens))
		}
	}
	return spawns
}

func (d *SpawnDetector) newSpawn(f SourceFile, lineNo int, line string, sig *SpawnSignature, tokens []string) Spawn {
	s := Spawn{
		ProcessSpawn: model.ProcessSpawn{
			ParentSymbol:   enclosingSymbol(f, lineNo),
			ParentLanguage: f.Language,
			Mechanism:      model.SpawnMechanism(sig.Mechanism),
			CapturesOutput: sig.CapturesOutput || reCapture.MatchString(line),
			IsAsync:        sig.Async,
			FilePath:       f.Path,
			Line:           lineNo,
		},
		Function: sig.Function,
		Shell:    sig.Shell,
	}
	if f.Language == model.LangShell && reBgTail.MatchString(line) {
		s.IsAsync = true
	}

	// A single shell-style string carries the whole command line.
	if len(tokens) == 1 && strings.ContainsAny(tokens[0], " \t") {
		tokens = splitCommand(tokens[0])
	}
	if len(tokens) > 0 {
		s.Command = tokens[0]
		s.Arguments = tokens[1:]
	}
	if s.Mechanism == model.SpawnFork && s.Command == "" {
		s.ChildLanguage = f.Language
	} else if lang, ok := GuessLanguage(s.Command, s.Arguments...); ok {
		s.ChildLanguage = lang
	}
	s.Script = scriptName(tokens)

	for _, m := range reEnvVar.FindAllStringSubmatch(line, -1) {
		for _, g := range m[1:] {
			if g != "" {
				s.Env = append(s.Env, g)
			}
		}
	}
	if m := reWorkDir.FindStringSubmatch(line); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				s.WorkingDir = g
				break
			}
		}
	}
	s.Transfer = transferMethods(s, line)
	s.Confidence = spawnConfidence(s, sig)
	return s
}

// transferMethods lists how data likely reaches the child.
func transferMethods(s Spawn, line string) []TransferMethod {
	var out []TransferMethod
	args := strings.Join(s.Arguments, " ")
	if len(s.Arguments) > 0 {
		out = append(out, TransferArgs)
	}
	if len(s.Env) > 0 || strings.Contains(line, ".Env") || strings.Contains(line, "env=") {
		out = append(out, TransferEnv)
	}
	if reStdin.MatchString(line) {
		out = append(out, TransferStdin)
	}
	if strings.Contains(s.Command+" "+args, "|") || rePipes.MatchString(line) {
		out = append(out, TransferPipes)
	}
	if reFileArg.MatchString(args) {
		out = append(out, TransferFiles)
	}
	if reNetArg.MatchString(args) {
		out = append(out, TransferNetwork)
	}
	if len(out) == 0 {
		out = append(out, TransferArgs)
	}
	return out
}

func spawnConfidence(s Spawn, sig *SpawnSignature) float64 {
	c := 0.5
	if strings.ContainsAny(sig.Function, ".:") {
		c += 0.3
	}
	if s.Script != "" {
		c += 0.2
	}
	switch s.ParentLanguage {
	case model.LangPython, model.LangJavaScript, model.LangTypeScript, model.LangTSX:
		c += 0.1
	}
	if s.Command == "" && s.Mechanism != model.SpawnFork {
		c -= 0.2
	}
	return model.ClampConfidence(c)
}

// enclosingSymbol names the innermost callable declared around line, or the
// file itself at module level.
func enclosingSymbol(f SourceFile, line int) string {
	var best *model.Symbol
	for i := range f.Symbols {
		s := &f.Symbols[i]
		if !s.Kind.IsCallable() {
			continue
		}
		end := s.EndLine
		if end < s.Line {
			end = s.Line
		}
		if line < s.Line || line > end {
			continue
		}
		if best == nil || s.Line > best.Line {
			best = s
		}
	}
	if best == nil {
		return filepath.Base(f.Path)
	}
	if best.QualifiedName != "" {
		return best.QualifiedName
	}
	return best.Name
}

// callArguments returns the text between the opening parenthesis already
// consumed and its matching close, or the rest of the line.
func callArguments(rest string) string {
	depth := 1
	var quote byte
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return rest[:i]
			}
		}
	}
	return rest
}

// literals returns the string literals in text in order.
func literals(text string) []string {
	var out []string
	for _, m := range reLiteral.FindAllStringSubmatch(text, -1) {
		for _, g := range m[1:] {
			if g != "" {
				out = append(out, g)
				break
			}
		}
	}
	return out
}

// splitCommand splits a shell-style command line, honoring simple quotes.
func splitCommand(cmd string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote rune
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.TrimSpace(cmd) {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
		case r == ' ' || r == '\t':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

func isCommentLine(line string, lang model.Language) bool {
	t := strings.TrimSpace(line)
	switch lang {
	case model.LangPython, model.LangShell:
		return strings.HasPrefix(t, "#")
	}
	return strings.HasPrefix(t, "//") || strings.HasPrefix(t, "/*") || strings.HasPrefix(t, "*")
}

// SpawnEdges turns spawns into process-level edges. Processes are named by
// the source file they run: the parent's file and the child's script, or
// the child's command when no script is named.
func SpawnEdges(spawns []Spawn) []model.CrossLanguageEdge {
	var edges []model.CrossLanguageEdge
	seen := make(map[string]int)
	for _, s := range spawns {
		target := s.Script
		if target == "" {
			target = s.Command
		}
		if target == "" {
			continue
		}
		target = filepath.Base(target)
		source := filepath.Base(s.FilePath)
		key := source + "\x00" + target
		if i, ok := seen[key]; ok {
			edges[i].Weight++
			continue
		}
		seen[key] = len(edges)
		edges = append(edges, model.CrossLanguageEdge{
			Source:         source,
			Target:         target,
			SourceLanguage: s.ParentLanguage,
			TargetLanguage: s.ChildLanguage,
			Type:           model.ConnSpawn,
			Weight:         1,
			Details:        string(s.Mechanism),
		})
	}
	return edges
}
