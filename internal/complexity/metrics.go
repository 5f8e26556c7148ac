package complexity

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"sentinel/internal/model"
)

// RiskLevel is the risk tier of a function.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// LineCounts splits a body into code, comment and blank lines.
type LineCounts struct {
	Total   int `json:"total"`
	Code    int `json:"code"`
	Comment int `json:"comment"`
	Blank   int `json:"blank"`
}

// Halstead holds operator/operand statistics and the measures derived from them.
type Halstead struct {
	DistinctOperators int     `json:"distinctOperators"`
	DistinctOperands  int     `json:"distinctOperands"`
	TotalOperators    int     `json:"totalOperators"`
	TotalOperands     int     `json:"totalOperands"`
	Vocabulary        int     `json:"vocabulary"`
	Length            int     `json:"length"`
	Volume            float64 `json:"volume"`
	Difficulty        float64 `json:"difficulty"`
	Effort            float64 `json:"effort"`
	Bugs              float64 `json:"estimatedBugs"`
}

// Metrics is the full complexity report for one function.
type Metrics struct {
	Lines           LineCounts `json:"lines"`
	Cyclomatic      int        `json:"cyclomatic"`
	Cognitive       int        `json:"cognitive"`
	Halstead        Halstead   `json:"halstead"`
	MaxNesting      int        `json:"maxNesting"`
	AverageNesting  float64    `json:"averageNesting"`
	Maintainability float64    `json:"maintainabilityIndex"`
	Risk            RiskLevel  `json:"risk"`
	RiskFactors     []string   `json:"riskFactors,omitempty"`
	// FromGraph is set when the cyclomatic value was derived from a
	// control-flow graph rather than keyword counting.
	FromGraph bool `json:"fromGraph"`
}

// Shape carries what is known about a function beyond its text. When Nodes
// is positive the control-flow graph is considered verified and cyclomatic
// complexity is computed as E - N + 2.
type Shape struct {
	Language model.Language
	Nodes    int
	Edges    int
}

// Compute derives all metrics for a function body. It never fails; an empty
// body yields zero counts and cyclomatic complexity 1.
func Compute(body string, shape Shape) Metrics {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	code := StripLiterals(lines, shape.Language)

	var m Metrics
	m.Lines = countLines(lines, code)

	if shape.Nodes > 0 {
		m.Cyclomatic = shape.Edges - shape.Nodes + 2
		m.FromGraph = true
	} else {
		m.Cyclomatic = 1 + countDecisions(code, shape.Language)
	}
	if m.Cyclomatic < 1 {
		m.Cyclomatic = 1
	}

	m.Cognitive, m.MaxNesting, m.AverageNesting = cognitive(lines, code, shape.Language)
	m.Halstead = halstead(strings.Join(code, "\n"))
	m.assess()
	return m
}

// assess fills the maintainability index and risk tier from the other metrics.
func (m *Metrics) assess() {
	volume := math.Max(m.Halstead.Volume, 1)
	loc := math.Max(float64(m.Lines.Code), 1)
	mi := (171 - 5.2*math.Log(volume) - 0.23*float64(m.Cyclomatic) - 16.2*math.Log(loc)) * 100 / 171
	m.Maintainability = math.Round(math.Max(0, math.Min(100, mi))*100) / 100

	score := 0
	m.RiskFactors = nil
	switch {
	case m.Cyclomatic > 20:
		score += 3
		m.RiskFactors = append(m.RiskFactors, fmt.Sprintf("very high cyclomatic complexity (%d)", m.Cyclomatic))
	case m.Cyclomatic > 10:
		score += 2
		m.RiskFactors = append(m.RiskFactors, fmt.Sprintf("high cyclomatic complexity (%d)", m.Cyclomatic))
	}
	switch {
	case m.Cognitive > 25:
		score += 3
		m.RiskFactors = append(m.RiskFactors, fmt.Sprintf("very high cognitive complexity (%d)", m.Cognitive))
	case m.Cognitive > 15:
		score += 2
		m.RiskFactors = append(m.RiskFactors, fmt.Sprintf("high cognitive complexity (%d)", m.Cognitive))
	}
	switch {
	case m.MaxNesting > 5:
		score += 2
		m.RiskFactors = append(m.RiskFactors, fmt.Sprintf("deep nesting (%d levels)", m.MaxNesting))
	case m.MaxNesting > 3:
		score++
		m.RiskFactors = append(m.RiskFactors, fmt.Sprintf("nesting of %d levels", m.MaxNesting))
	}
	switch {
	case m.Lines.Code > 150:
		score += 2
		m.RiskFactors = append(m.RiskFactors, fmt.Sprintf("long function (%d code lines)", m.Lines.Code))
	case m.Lines.Code > 60:
		score++
		m.RiskFactors = append(m.RiskFactors, fmt.Sprintf("function has %d code lines", m.Lines.Code))
	}
	switch {
	case m.Maintainability < 20:
		score += 2
		m.RiskFactors = append(m.RiskFactors, "low maintainability index")
	case m.Maintainability < 50:
		score++
	}
	if m.Halstead.Bugs > 1 {
		score++
		m.RiskFactors = append(m.RiskFactors, fmt.Sprintf("estimated %.1f latent defects", m.Halstead.Bugs))
	}

	switch {
	case score >= 7:
		m.Risk = RiskCritical
	case score >= 4:
		m.Risk = RiskHigh
	case score >= 2:
		m.Risk = RiskMedium
	default:
		m.Risk = RiskLow
	}
}

func countLines(raw, code []string) LineCounts {
	var c LineCounts
	for i, line := range raw {
		if strings.TrimSpace(line) == "" {
			c.Blank++
			continue
		}
		if strings.TrimSpace(code[i]) == "" {
			c.Comment++
			continue
		}
		c.Code++
	}
	c.Total = len(raw)
	if len(raw) == 1 && raw[0] == "" {
		c.Total, c.Blank = 0, 0
	}
	return c
}

var (
	reDecision   = regexp.MustCompile(`\b(if|for|foreach|while|switch|case|catch|except|elif)\b`)
	reElse       = regexp.MustCompile(`\belse\b(\s*\bif\b)?`)
	reBoolOp     = regexp.MustCompile(`&&|\|\|`)
	reWordBoolOp = regexp.MustCompile(`\b(and|or)\b`)
	reTernary    = regexp.MustCompile(`[^?\s]\s+\?\s+[^.?:]`)
)

// countDecisions counts decision keywords, a bare else, boolean operators
// and ternaries. An "else if" counts once, through its if.
func countDecisions(code []string, lang model.Language) int {
	n := 0
	for _, line := range code {
		n += len(reDecision.FindAllString(line, -1))
		for _, m := range reElse.FindAllStringSubmatch(line, -1) {
			if m[1] == "" {
				n++
			}
		}
		n += len(reBoolOp.FindAllString(line, -1))
		if lang == model.LangPython {
			n += len(reWordBoolOp.FindAllString(line, -1))
		}
		n += len(reTernary.FindAllString(line, -1))
	}
	return n
}

var reNesting = regexp.MustCompile(`\b(if|for|foreach|while|switch|catch|except|elif|else|do|try|match|when)\b`)

// cognitive scores every decision construct as 1 plus its nesting level and
// every boolean operator as 1. Nesting follows braces, or indentation for
// languages without braces. Also returns max and average nesting of code lines.
func cognitive(raw, code []string, lang model.Language) (int, int, float64) {
	score := 0
	maxNest := 0
	sumNest := 0
	codeLines := 0

	if !lang.UsesBraces() && lang != model.LangUnknown {
		unit := indentUnit(raw, code)
		base, hdr := -1, 0
		for i, line := range code {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			indent := leadingWidth(raw[i])
			if base < 0 {
				base = indent
				if isHeader(trimmed, lang) {
					hdr = 1
				}
			}
			level := (indent-base)/unit - hdr
			if level < 0 {
				level = 0
			}
			score += lineCognitive(line, level, lang)
			maxNest = maxInt(maxNest, level)
			sumNest += level
			codeLines++
		}
	} else {
		depth := 0
		base, hdr := -1, 0
		for _, line := range code {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			lead := 0
			for _, c := range trimmed {
				if c != '}' {
					break
				}
				lead++
			}
			depth -= lead
			if base < 0 {
				base = depth
				if isHeader(trimmed, lang) {
					hdr = 1
				}
			}
			level := depth - base - hdr
			if level < 0 {
				level = 0
			}
			score += lineCognitive(trimmed, level, lang)
			maxNest = maxInt(maxNest, level)
			sumNest += level
			codeLines++
			depth += strings.Count(trimmed, "{") - (strings.Count(trimmed, "}") - lead)
		}
	}

	avg := 0.0
	if codeLines > 0 {
		avg = math.Round(float64(sumNest)/float64(codeLines)*100) / 100
	}
	return score, maxNest, avg
}

// isHeader reports whether the first line of a body is the function's own
// signature, which opens the outermost block.
func isHeader(line string, lang model.Language) bool {
	if lang.UsesBraces() || lang == model.LangUnknown {
		return strings.HasSuffix(line, "{")
	}
	return strings.HasSuffix(line, ":") && (strings.HasPrefix(line, "def ") || strings.HasPrefix(line, "async def "))
}

func lineCognitive(line string, level int, lang model.Language) int {
	score := 0
	for _, m := range reNesting.FindAllStringSubmatch(line, -1) {
		switch m[1] {
		case "else", "do", "try":
			if m[1] == "else" && strings.Contains(line, "else if") {
				continue
			}
			if m[1] == "else" {
				score++
			}
		default:
			score += 1 + level
		}
	}
	score += len(reBoolOp.FindAllString(line, -1))
	if lang == model.LangPython {
		score += len(reWordBoolOp.FindAllString(line, -1))
	}
	score += len(reTernary.FindAllString(line, -1)) * (1 + level)
	return score
}

func indentUnit(raw, code []string) int {
	unit := 0
	prev := -1
	for i, line := range code {
		if strings.TrimSpace(line) == "" {
			continue
		}
		w := leadingWidth(raw[i])
		if prev >= 0 && w > prev {
			if d := w - prev; unit == 0 || d < unit {
				unit = d
			}
		}
		prev = w
	}
	if unit == 0 {
		return 4
	}
	return unit
}

func leadingWidth(line string) int {
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

// StripLiterals blanks comments and replaces string literals with a
// placeholder token so keywords inside them are not counted.
func StripLiterals(lines []string, lang model.Language) []string {
	hash := lang == model.LangPython || lang == model.LangShell
	out := make([]string, len(lines))
	inBlock := false
	for i, line := range lines {
		var b strings.Builder
		for j := 0; j < len(line); j++ {
			c := line[j]
			if inBlock {
				if hash && strings.HasPrefix(line[j:], `"""`) {
					inBlock = false
					j += 2
				} else if !hash && strings.HasPrefix(line[j:], "*/") {
					inBlock = false
					j++
				}
				continue
			}
			switch {
			case hash && c == '#':
				j = len(line)
			case hash && strings.HasPrefix(line[j:], `"""`):
				if k := strings.Index(line[j+3:], `"""`); k >= 0 {
					b.WriteString(`"s"`)
					j += 3 + k + 2
				} else {
					inBlock = true
					j += 2
				}
			case !hash && strings.HasPrefix(line[j:], "//"):
				j = len(line)
			case !hash && strings.HasPrefix(line[j:], "/*"):
				inBlock = true
				j++
			case c == '"' || c == '\'' || c == '`':
				k := j + 1
				for k < len(line) && line[k] != c {
					if line[k] == '\\' {
						k++
					}
					k++
				}
				b.WriteString(`"s"`)
				j = k
			default:
				b.WriteByte(c)
			}
		}
		out[i] = b.String()
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
