package complexity

import (
	"math"
	"unicode"
)

// operatorKeywords are keywords counted as Halstead operators.
var operatorKeywords = map[string]bool{
	"if": true, "else": true, "elif": true, "for": true, "foreach": true, "while": true,
	"do": true, "switch": true, "case": true, "default": true, "return": true, "break": true,
	"continue": true, "goto": true, "try": true, "catch": true, "except": true, "finally": true,
	"throw": true, "raise": true, "new": true, "delete": true, "sizeof": true, "typeof": true,
	"static_cast": true, "dynamic_cast": true, "reinterpret_cast": true, "const_cast": true,
	"and": true, "or": true, "not": true, "in": true, "is": true, "await": true, "yield": true,
	"match": true, "when": true, "defer": true, "go": true, "select": true, "lambda": true,
	"instanceof": true, "as": true,
}

// declarationWords are neither operators nor operands.
var declarationWords = map[string]bool{
	"func": true, "function": true, "def": true, "fn": true, "fun": true, "var": true,
	"let": true, "const": true, "val": true, "mut": true, "public": true, "private": true,
	"protected": true, "static": true, "final": true, "async": true, "class": true,
	"struct": true, "void": true, "pub": true, "auto": true,
}

// symbolOperators in longest-first order.
var symbolOperators = []string{
	"<<=", ">>=", "...", "===", "!==", "**=",
	"->", "::", "==", "!=", "<=", ">=", "&&", "||", "++", "--", "+=", "-=", "*=", "/=",
	"%=", "&=", "|=", "^=", "<<", ">>", "=>", ":=", "??", "?.", "**",
	"+", "-", "*", "/", "%", "=", "<", ">", "!", "&", "|", "^", "~", "?", ":", ".", ",", ";",
	"(", "[", "{",
}

// halstead counts operators and operands in code with comments already removed
// and string literals collapsed to a placeholder.
func halstead(code string) Halstead {
	operators := make(map[string]int)
	operands := make(map[string]int)

	for i := 0; i < len(code); {
		c := rune(code[i])
		switch {
		case unicode.IsSpace(c) || c == ')' || c == ']' || c == '}':
			i++
		case c == '"':
			j := i + 1
			for j < len(code) && code[j] != '"' {
				j++
			}
			operands[code[i:minInt(j+1, len(code))]]++
			i = j + 1
		case c == '_' || unicode.IsLetter(c):
			j := i + 1
			for j < len(code) && (code[j] == '_' || unicode.IsLetter(rune(code[j])) || unicode.IsDigit(rune(code[j]))) {
				j++
			}
			word := code[i:j]
			switch {
			case operatorKeywords[word]:
				operators[word]++
			case declarationWords[word]:
			default:
				operands[word]++
			}
			i = j
		case unicode.IsDigit(c):
			j := i + 1
			for j < len(code) && (unicode.IsDigit(rune(code[j])) || code[j] == '.' || code[j] == 'x' || code[j] == '_' ||
				(code[j] >= 'a' && code[j] <= 'f') || (code[j] >= 'A' && code[j] <= 'F')) {
				j++
			}
			operands[code[i:j]]++
			i = j
		default:
			matched := false
			for _, op := range symbolOperators {
				if len(code)-i >= len(op) && code[i:i+len(op)] == op {
					operators[op]++
					i += len(op)
					matched = true
					break
				}
			}
			if !matched {
				i++
			}
		}
	}

	h := Halstead{
		DistinctOperators: len(operators),
		DistinctOperands:  len(operands),
	}
	for _, n := range operators {
		h.TotalOperators += n
	}
	for _, n := range operands {
		h.TotalOperands += n
	}
	h.Vocabulary = h.DistinctOperators + h.DistinctOperands
	h.Length = h.TotalOperators + h.TotalOperands
	if h.Vocabulary > 0 {
		h.Volume = round2(float64(h.Length) * math.Log2(float64(h.Vocabulary)))
	}
	if h.DistinctOperands > 0 {
		h.Difficulty = round2(float64(h.DistinctOperators) / 2 * float64(h.TotalOperands) / float64(h.DistinctOperands))
	}
	h.Effort = round2(h.Volume * h.Difficulty)
	h.Bugs = math.Round(h.Volume/3000*1000) / 1000
	return h
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
