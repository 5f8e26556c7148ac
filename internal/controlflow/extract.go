package controlflow

import (
	"regexp"
	"strings"

	"sentinel/internal/complexity"
	"sentinel/internal/model"
)

var (
	reBraceKeyword  = regexp.MustCompile(`^(else\s+if|else|if|for|foreach|while|do|switch|select|match|when|loop|case|default|try|catch|finally)\b`)
	reIndentKeyword = regexp.MustCompile(`^(elif|else|if|async\s+for|for|while|try|except|finally|async\s+with|with|match|case)\b`)
	reShellOpen     = regexp.MustCompile(`^(if|for|while|until|case|select)\b`)
	reShellMid      = regexp.MustCompile(`^(elif|else)\b`)
	reShellClose    = regexp.MustCompile(`^(fi|done|esac)\b`)
	reShellInline   = regexp.MustCompile(`;\s*(fi|done|esac)\s*$`)
	reExit          = regexp.MustCompile(`(?:^|[\s;{:)])(return|throw|raise|exit)\b|\b(panic|os\.Exit|sys\.exit|process\.exit|System\.exit)\s*\(`)
	reSpaces        = regexp.MustCompile(`\s+`)
)

// Extract recovers the block structure of a function from its source text.
// source starts at the signature line, which is startLine.
func Extract(name string, startLine int, source string, lang model.Language) *Function {
	lines := strings.Split(strings.TrimRight(source, "\n"), "\n")
	fn := &Function{
		Name:      name,
		Language:  lang,
		StartLine: startLine,
		EndLine:   startLine + len(lines) - 1,
		Lines:     lines,
	}
	code := complexity.StripLiterals(lines, lang)

	switch {
	case lang == model.LangShell:
		extractShell(fn, code)
	case lang.UsesBraces() || (lang == model.LangUnknown && strings.Contains(source, "{")):
		extractBraces(fn, code)
	default:
		extractIndented(fn, lines, code)
	}
	extractExits(fn, code)
	fn.Parameters = parseParameters(code, lang)
	return fn
}

type openBlock struct {
	index int
	depth int
}

func extractBraces(fn *Function, code []string) {
	var stack []openBlock
	depth := 0
	pending := -1

	closeTo := func(lineNo int) {
		for len(stack) > 0 && stack[len(stack)-1].depth > depth {
			fn.Blocks[stack[len(stack)-1].index].EndLine = lineNo
			stack = stack[:len(stack)-1]
		}
	}

	for i, line := range code {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		lineNo := fn.StartLine + i

		lead := 0
		for lead < len(text) && (text[lead] == '}' || text[lead] == ' ') {
			if text[lead] == '}' {
				depth--
			}
			lead++
		}
		closeTo(lineNo)
		rest := text[lead:]

		if pending >= 0 {
			if strings.HasPrefix(rest, "{") {
				stack = append(stack, openBlock{index: pending, depth: depth + 1})
			} else {
				fn.Blocks[pending].EndLine = lineNo
			}
			pending = -1
		}

		if m := reBraceKeyword.FindStringSubmatch(rest); m != nil {
			kind := reSpaces.ReplaceAllString(m[1], " ")
			doWhileTail := kind == "while" && lead > 0 && strings.HasSuffix(rest, ";")
			if !doWhileTail {
				if (kind == "case" || kind == "default") && len(stack) > 0 {
					top := stack[len(stack)-1]
					if k := fn.Blocks[top.index].Kind; (k == "case" || k == "default") && top.depth == depth {
						fn.Blocks[top.index].EndLine = lineNo - 1
						stack = stack[:len(stack)-1]
					}
				}
				parent := -1
				if len(stack) > 0 {
					parent = stack[len(stack)-1].index
				}
				fn.Blocks = append(fn.Blocks, Block{
					Kind:      kind,
					StartLine: lineNo,
					EndLine:   lineNo,
					Parent:    parent,
					Condition: rest,
				})
				idx := len(fn.Blocks) - 1
				switch {
				case strings.Contains(rest, "{"):
					stack = append(stack, openBlock{index: idx, depth: depth + 1})
				case kind == "case" || kind == "default":
					stack = append(stack, openBlock{index: idx, depth: depth})
				case !strings.HasSuffix(rest, ";") && !strings.HasSuffix(rest, "}"):
					pending = idx
				}
			}
		}

		depth += strings.Count(rest, "{") - strings.Count(rest, "}")
		closeTo(lineNo)
	}

	for _, open := range stack {
		fn.Blocks[open.index].EndLine = fn.EndLine
	}
	if pending >= 0 {
		fn.Blocks[pending].EndLine = fn.EndLine
	}
}

func extractIndented(fn *Function, raw, code []string) {
	type open struct {
		index  int
		indent int
	}
	var stack []open
	last := fn.StartLine

	for i, line := range code {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		lineNo := fn.StartLine + i
		indent := indentWidth(raw[i])
		for len(stack) > 0 && indent <= stack[len(stack)-1].indent {
			fn.Blocks[stack[len(stack)-1].index].EndLine = last
			stack = stack[:len(stack)-1]
		}
		last = lineNo

		m := reIndentKeyword.FindStringSubmatch(text)
		if m == nil || !strings.Contains(text, ":") {
			continue
		}
		parent := -1
		if len(stack) > 0 {
			parent = stack[len(stack)-1].index
		}
		fn.Blocks = append(fn.Blocks, Block{
			Kind:      reSpaces.ReplaceAllString(m[1], " "),
			StartLine: lineNo,
			EndLine:   lineNo,
			Parent:    parent,
			Condition: text,
		})
		if strings.HasSuffix(text, ":") {
			stack = append(stack, open{index: len(fn.Blocks) - 1, indent: indent})
		}
	}
	for _, o := range stack {
		fn.Blocks[o.index].EndLine = last
	}
}

func extractShell(fn *Function, code []string) {
	var stack []int
	pop := func(end int) {
		if len(stack) == 0 {
			return
		}
		fn.Blocks[stack[len(stack)-1]].EndLine = end
		stack = stack[:len(stack)-1]
	}
	push := func(kind string, lineNo int, text string, open bool) {
		parent := -1
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
		}
		fn.Blocks = append(fn.Blocks, Block{Kind: kind, StartLine: lineNo, EndLine: lineNo, Parent: parent, Condition: text})
		if open {
			stack = append(stack, len(fn.Blocks)-1)
		}
	}

	for i, line := range code {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		lineNo := fn.StartLine + i
		switch {
		case reShellClose.MatchString(text):
			pop(lineNo)
		case reShellMid.MatchString(text):
			pop(lineNo - 1)
			push(reShellMid.FindStringSubmatch(text)[1], lineNo, text, true)
		case reShellOpen.MatchString(text):
			push(reShellOpen.FindStringSubmatch(text)[1], lineNo, text, !reShellInline.MatchString(text))
		}
	}
	for len(stack) > 0 {
		pop(fn.EndLine)
	}
}

// extractExits records return/throw points and a final fall-through exit
// unless the function always leaves through an explicit one.
func extractExits(fn *Function, code []string) {
	for i, line := range code {
		m := reExit.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		kind := "exit"
		switch {
		case m[1] == "return":
			kind = "return"
		case m[1] == "throw" || m[1] == "raise" || m[2] == "panic":
			kind = "throw"
		}
		fn.Exits = append(fn.Exits, Exit{Line: fn.StartLine + i, Kind: kind})
	}

	lastBlock, lastExit := 0, 0
	for _, b := range fn.Blocks {
		if b.Parent < 0 && b.EndLine > lastBlock {
			lastBlock = b.EndLine
		}
	}
	for _, e := range fn.Exits {
		if fn.innermost(e.Line) < 0 && e.Line > lastExit {
			lastExit = e.Line
		}
	}
	if lastExit == 0 || lastExit < lastBlock {
		fn.Exits = append(fn.Exits, Exit{Line: fn.EndLine, Kind: "end"})
	}
}

// innermost returns the index of the deepest block containing line, or -1.
func (fn *Function) innermost(line int) int {
	best := -1
	for i, b := range fn.Blocks {
		if b.StartLine <= line && line <= b.EndLine {
			best = i
		}
	}
	return best
}

func parseParameters(code []string, lang model.Language) []string {
	var header strings.Builder
	for i, line := range code {
		if i >= 6 {
			break
		}
		header.WriteString(line)
		header.WriteByte(' ')
		t := strings.TrimSpace(line)
		if strings.HasSuffix(t, "{") || strings.HasSuffix(t, ":") {
			break
		}
	}
	h := strings.TrimSpace(header.String())
	if lang == model.LangGo && strings.HasPrefix(h, "func (") {
		if end := matchParen(h, len("func ")); end > 0 {
			h = h[end+1:]
		}
	}
	open := strings.IndexByte(h, '(')
	if open < 0 {
		return nil
	}
	end := matchParen(h, open)
	if end < 0 {
		return nil
	}

	colonTyped := lang == model.LangPython || lang == model.LangTypeScript || lang == model.LangTSX ||
		lang == model.LangJavaScript || lang == model.LangRust || lang == model.LangKotlin
	var params []string
	for _, part := range splitTopLevel(h[open+1 : end]) {
		if k := strings.IndexByte(part, '='); k >= 0 {
			part = part[:k]
		}
		if colonTyped {
			if k := strings.IndexByte(part, ':'); k >= 0 {
				part = part[:k]
			}
		}
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		name := fields[len(fields)-1]
		if lang == model.LangGo {
			name = fields[0]
		}
		name = strings.Trim(name, "*&.[]?")
		switch name {
		case "", "self", "cls", "this", "void", "mut":
			continue
		}
		params = append(params, name)
	}
	return params
}

func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '<', '{':
			depth++
		case ')', ']', '>', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func indentWidth(line string) int {
	w := 0
	for _, c := range line {
		switch c {
		case ' ':
			w++
		case '\t':
			w += 4
		default:
			return w
		}
	}
	return w
}
