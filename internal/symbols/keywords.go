package symbols

import (
	"strings"

	"sentinel/internal/model"
)

var keywords = map[string]bool{
	"if": true, "else": true, "elif": true, "for": true, "foreach": true, "while": true,
	"do": true, "switch": true, "case": true, "default": true, "return": true, "break": true,
	"continue": true, "goto": true, "try": true, "catch": true, "except": true, "finally": true,
	"throw": true, "throws": true, "raise": true, "new": true, "delete": true, "sizeof": true,
	"alignof": true, "decltype": true, "typeof": true, "instanceof": true, "typeid": true,
	"static_assert": true, "static_cast": true, "dynamic_cast": true, "reinterpret_cast": true,
	"const_cast": true, "noexcept": true, "yield": true, "await": true, "async": true,
	"function": true, "def": true, "fn": true, "func": true, "fun": true, "lambda": true,
	"match": true, "when": true, "in": true, "not": true, "and": true, "or": true, "is": true,
	"assert": true, "with": true, "as": true, "using": true, "namespace": true, "class": true,
	"struct": true, "union": true, "enum": true, "interface": true, "trait": true, "impl": true,
	"typedef": true, "template": true, "typename": true, "operator": true, "friend": true,
	"public": true, "private": true, "protected": true, "internal": true, "static": true,
	"const": true, "let": true, "var": true, "val": true, "mut": true, "loop": true,
	"defer": true, "go": true, "select": true, "chan": true, "range": true, "import": true,
	"package": true, "from": true, "export": true, "extern": true, "pass": true, "del": true,
	"global": true, "nonlocal": true, "synchronized": true, "lock": true, "checked": true,
	"unchecked": true, "fixed": true, "unsafe": true, "where": true, "void": true, "super": true,
	"elseif": true, "then": true, "fi": true, "done": true, "esac": true, "until": true,
	"local": true,
}

// isKeyword reports whether name is a control or declaration keyword in any
// supported language.
func isKeyword(name string) bool {
	return keywords[name]
}

// typeWords are keywords that may lead a declared type.
var typeWords = map[string]bool{
	"void": true, "const": true, "struct": true, "union": true, "enum": true, "static": true,
	"extern": true, "typename": true, "class": true, "unsafe": true, "mut": true,
}

// isStatementWord reports whether a leading word rules out a declaration.
func isStatementWord(word string) bool {
	return keywords[word] && !typeWords[word]
}

var builtinTypes = map[string]bool{
	"String": true, "Object": true, "Integer": true, "Long": true, "Double": true, "Float": true,
	"Boolean": true, "Byte": true, "Short": true, "Character": true, "Void": true, "Number": true,
	"List": true, "Map": true, "Set": true, "HashMap": true, "HashSet": true, "ArrayList": true,
	"Array": true, "Optional": true, "Iterable": true, "Iterator": true, "Collection": true,
	"Promise": true, "Record": true, "Partial": true, "Readonly": true, "Date": true, "Error": true,
	"Function": true, "Symbol": true, "BigInt": true, "RegExp": true, "JSON": true, "Math": true,
	"Vec": true, "Option": true, "Result": true, "Box": true, "Rc": true, "Arc": true, "Self": true,
	"Some": true, "None": true, "Ok": true, "Err": true, "HashMapEntry": true, "Cow": true,
	"Any": true, "Unit": true, "Int": true, "Char": true, "MutableList": true, "MutableMap": true,
	"Dict": true, "Tuple": true, "Callable": true, "Sequence": true, "Mapping": true, "Type": true,
	"Union": true, "True": true, "False": true, "Task": true, "IEnumerable": true, "IList": true,
	"Dictionary": true, "Exception": true, "RuntimeException": true, "Override": true,
	"NULL": true, "TRUE": true, "FALSE": true, "EOF": true, "FILE": true,
}

// isBuiltinType reports whether a type name belongs to a language's standard
// library and should not count as an unresolved reference.
func isBuiltinType(lang model.Language, name string) bool {
	if builtinTypes[name] {
		return true
	}
	switch lang {
	case model.LangCpp, model.LangC:
		return strings.HasPrefix(name, "std::") || strings.HasPrefix(name, "boost::") || isMacroName(name)
	case model.LangJava, model.LangKotlin:
		return strings.HasPrefix(name, "java.") || strings.HasPrefix(name, "kotlin.")
	case model.LangCSharp:
		return strings.HasPrefix(name, "System.")
	case model.LangRust:
		return strings.HasPrefix(name, "std::") || strings.HasPrefix(name, "core::")
	}
	return false
}

func isMacroName(name string) bool {
	if len(name) < 2 {
		return false
	}
	for _, r := range name {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}
