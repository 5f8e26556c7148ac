package crosslang

import (
	"bufio"
	"bytes"
	"path/filepath"
	"regexp"
	"strings"

	"sentinel/internal/model"
)

// FFIDirection says which side of a foreign-function boundary a site is on.
type FFIDirection string

const (
	// FFIExport makes a function callable from another language.
	FFIExport FFIDirection = "export"
	// FFIImport calls into a library written in another language.
	FFIImport FFIDirection = "import"
)

// FFIBinding is one foreign-function boundary site.
type FFIBinding struct {
	Symbol    string         `json:"symbol"`
	Language  model.Language `json:"language"`
	Foreign   model.Language `json:"foreign,omitempty"`
	Mechanism string         `json:"mechanism"`
	Direction FFIDirection   `json:"direction"`
	Library   string         `json:"library,omitempty"`
	FilePath  string         `json:"filePath"`
	Line      int            `json:"line"`
}

type ffiRule struct {
	langs     []model.Language
	mechanism string
	direction FFIDirection
	foreign   model.Language
	re        *regexp.Regexp
}

// Group 1, when present, names the library or exported function.
var ffiRules = []ffiRule{
	{langs: []model.Language{model.LangRust}, mechanism: "extern_c", direction: FFIExport, foreign: model.LangC,
		re: regexp.MustCompile(`\bextern\s+"C"\s+fn\s+(\w+)`)},
	{langs: []model.Language{model.LangRust}, mechanism: "no_mangle", direction: FFIExport, foreign: model.LangC,
		re: regexp.MustCompile(`#\[(?:unsafe\()?no_mangle\)?\]`)},
	{langs: []model.Language{model.LangRust}, mechanism: "extern_block", direction: FFIImport, foreign: model.LangC,
		re: regexp.MustCompile(`\bextern\s+"C"\s*\{`)},
	{langs: []model.Language{model.LangRust}, mechanism: "link", direction: FFIImport, foreign: model.LangC,
		re: regexp.MustCompile(`#\[link\(name\s*=\s*"([^"]+)"`)},
	{langs: []model.Language{model.LangRust}, mechanism: "pyo3", direction: FFIExport, foreign: model.LangPython,
		re: regexp.MustCompile(`#\[(?:pyfunction|pymodule|pyclass)\b`)},
	{langs: []model.Language{model.LangRust}, mechanism: "napi", direction: FFIExport, foreign: model.LangJavaScript,
		re: regexp.MustCompile(`#\[napi\b`)},

	{langs: []model.Language{model.LangGo}, mechanism: "cgo", direction: FFIImport, foreign: model.LangC,
		re: regexp.MustCompile(`^\s*import\s+"C"`)},
	{langs: []model.Language{model.LangGo}, mechanism: "cgo_export", direction: FFIExport, foreign: model.LangC,
		re: regexp.MustCompile(`^//export\s+(\w+)`)},

	{langs: []model.Language{model.LangPython}, mechanism: "ctypes", direction: FFIImport, foreign: model.LangC,
		re: regexp.MustCompile(`\bctypes\.(?:CDLL|cdll\.LoadLibrary|WinDLL|PyDLL)\s*\(\s*(?:["']([^"']+)["'])?`)},
	{langs: []model.Language{model.LangPython}, mechanism: "cffi", direction: FFIImport, foreign: model.LangC,
		re: regexp.MustCompile(`\bffi\.dlopen\s*\(\s*(?:["']([^"']+)["'])?`)},

	{langs: []model.Language{model.LangJava}, mechanism: "jni", direction: FFIImport, foreign: model.LangCpp,
		re: regexp.MustCompile(`\bnative\s+[\w<>\[\]]+\s+(\w+)\s*\(`)},
	{langs: []model.Language{model.LangJava, model.LangKotlin}, mechanism: "load_library", direction: FFIImport, foreign: model.LangCpp,
		re: regexp.MustCompile(`System\.loadLibrary\s*\(\s*"([^"]+)"`)},
	{langs: []model.Language{model.LangKotlin}, mechanism: "jni", direction: FFIImport, foreign: model.LangCpp,
		re: regexp.MustCompile(`\bexternal\s+fun\s+(\w+)`)},

	{langs: []model.Language{model.LangCpp, model.LangC}, mechanism: "jni_export", direction: FFIExport, foreign: model.LangJava,
		re: regexp.MustCompile(`\bJNIEXPORT\b.*\bJNICALL\s+(\w+)`)},
	{langs: []model.Language{model.LangCpp}, mechanism: "pybind11", direction: FFIExport, foreign: model.LangPython,
		re: regexp.MustCompile(`\bPYBIND11_MODULE\s*\(\s*(\w+)`)},
	{langs: []model.Language{model.LangCpp, model.LangC}, mechanism: "napi", direction: FFIExport, foreign: model.LangJavaScript,
		re: regexp.MustCompile(`\bNAPI_MODULE\s*\(\s*(\w+)|\bNODE_API_MODULE\s*\(\s*(\w+)`)},
	{langs: []model.Language{model.LangCpp}, mechanism: "extern_c", direction: FFIExport, foreign: model.LangC,
		re: regexp.MustCompile(`\bextern\s+"C"`)},

	{langs: []model.Language{model.LangJavaScript, model.LangTypeScript, model.LangTSX}, mechanism: "ffi_napi", direction: FFIImport, foreign: model.LangC,
		re: regexp.MustCompile(`\bffi\.Library\s*\(\s*(?:["']([^"']+)["'])?`)},
	{langs: []model.Language{model.LangJavaScript, model.LangTypeScript, model.LangTSX}, mechanism: "native_addon", direction: FFIImport, foreign: model.LangCpp,
		re: regexp.MustCompile(`require\s*\(\s*["']([^"']+\.node)["']\s*\)`)},

	{langs: []model.Language{model.LangCSharp}, mechanism: "pinvoke", direction: FFIImport, foreign: model.LangC,
		re: regexp.MustCompile(`\[(?:DllImport|LibraryImport)\s*\(\s*"([^"]+)"`)},
}

// FFIDetector finds foreign-function bindings in source files.
type FFIDetector struct{}

// NewFFIDetector creates a detector over the built-in rules.
func NewFFIDetector() *FFIDetector {
	return &FFIDetector{}
}

// Name identifies the detector.
func (d *FFIDetector) Name() string {
	return "ffi"
}

// Detect returns the FFI sites in f. A line yields at most one binding.
func (d *FFIDetector) Detect(f SourceFile) []FFIBinding {
	var rules []ffiRule
	for _, r := range ffiRules {
		for _, l := range r.langs {
			if l == f.Language {
				rules = append(rules, r)
				break
			}
		}
	}
	if len(rules) == 0 {
		return nil
	}

	var out []FFIBinding
	scanner := bufio.NewScanner(bytes.NewReader(f.Content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		// cgo export directives are comments.
		if f.Language != model.LangGo && isCommentLine(line, f.Language) {
			continue
		}
		for _, r := range rules {
			m := r.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			b := FFIBinding{
				Symbol:    enclosingSymbol(f, lineNo),
				Language:  f.Language,
				Foreign:   r.foreign,
				Mechanism: r.mechanism,
				Direction: r.direction,
				FilePath:  f.Path,
				Line:      lineNo,
			}
			for _, g := range m[1:] {
				if g != "" {
					b.Library = g
					break
				}
			}
			if r.direction == FFIExport && b.Library != "" && b.Symbol == filepath.Base(f.Path) {
				b.Symbol = b.Library
			}
			out = append(out, b)
			break
		}
	}
	return out
}

// FFIEdges turns bindings into ffi edges. Imports point from the binding
// symbol to its library; exports point from the foreign language to the
// exported symbol.
func FFIEdges(bindings []FFIBinding) []model.CrossLanguageEdge {
	var edges []model.CrossLanguageEdge
	for _, b := range bindings {
		foreign := string(b.Foreign)
		if b.Direction == FFIImport && b.Library != "" {
			foreign = strings.TrimSuffix(filepath.Base(b.Library), filepath.Ext(b.Library))
		}
		e := model.CrossLanguageEdge{
			Type:    model.ConnFFI,
			Weight:  1,
			Details: b.Mechanism,
		}
		if b.Direction == FFIImport {
			e.Source, e.SourceLanguage = b.Symbol, b.Language
			e.Target, e.TargetLanguage = foreign, b.Foreign
		} else {
			e.Source, e.SourceLanguage = foreign, b.Foreign
			e.Target, e.TargetLanguage = b.Symbol, b.Language
		}
		edges = append(edges, e)
	}
	return edges
}
