package crosslang

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	toml "github.com/pelletier/go-toml/v2"

	"sentinel/internal/errors"
	"sentinel/internal/model"
)

// SpawnsDeclarationFile is the default filename for spawn catalog extensions
const SpawnsDeclarationFile = "SPAWNS.toml"

// SpawnSignature describes one way a language creates a process
type SpawnSignature struct {
	// Language is the language whose code makes the call
	Language string `toml:"language"`

	// Function is the call being matched, e.g. "subprocess.run"
	Function string `toml:"function"`

	// Pattern is a regular expression locating the call. When it has a
	// capture group, group 1 is the command line; otherwise the string
	// literals following the match are the command and its arguments.
	Pattern string `toml:"pattern"`

	// Mechanism is one of exec, spawn, fork, system, subprocess
	Mechanism string `toml:"mechanism"`

	// Async is true when the caller does not wait for the child
	Async bool `toml:"async,omitempty"`

	// ReturnsHandle is true when the call yields a process handle
	ReturnsHandle bool `toml:"returns_handle,omitempty"`

	// CapturesOutput is true when the call collects the child's output
	CapturesOutput bool `toml:"captures_output,omitempty"`

	// Shell is true when the command line is interpreted by a shell
	Shell bool `toml:"shell,omitempty"`

	// Use is a short note on what the call is commonly used for
	Use string `toml:"use,omitempty"`

	re *regexp.Regexp
}

// SpawnsFile represents the root structure of SPAWNS.toml
type SpawnsFile struct {
	// Version is the schema version
	Version int `toml:"version"`

	// Spawns is the list of extra signatures
	Spawns []SpawnSignature `toml:"spawn"`
}

// Catalog indexes spawn signatures by language.
type Catalog struct {
	byLang map[model.Language][]*SpawnSignature
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byLang: make(map[model.Language][]*SpawnSignature)}
}

// DefaultCatalog returns the built-in signatures.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, sig := range builtinSignatures {
		if err := c.Add(sig); err != nil {
			panic(err)
		}
	}
	return c
}

// Add validates sig and appends it to the catalog.
func (c *Catalog) Add(sig SpawnSignature) error {
	lang := model.ParseLanguage(sig.Language)
	if lang == model.LangUnknown {
		return errors.Newf(errors.InvalidDefinition, "spawn signature %q: unknown language %q", sig.Function, sig.Language)
	}
	if sig.Function == "" || sig.Pattern == "" {
		return errors.Newf(errors.InvalidDefinition, "spawn signature for %s needs a function and a pattern", lang)
	}
	switch model.SpawnMechanism(sig.Mechanism) {
	case model.SpawnExec, model.SpawnSpawn, model.SpawnFork, model.SpawnSystem, model.SpawnSubprocess:
	default:
		return errors.Newf(errors.InvalidDefinition, "spawn signature %q: unknown mechanism %q", sig.Function, sig.Mechanism)
	}
	re, err := regexp.Compile(sig.Pattern)
	if err != nil {
		return errors.New(errors.InvalidDefinition, fmt.Sprintf("spawn signature %q: bad pattern", sig.Function), err)
	}
	sig.re = re
	sig.Language = string(lang)
	c.byLang[lang] = append(c.byLang[lang], &sig)
	return nil
}

// For returns the signatures for a language. TSX shares the TypeScript
// table, C shares C++ and Kotlin shares Java.
func (c *Catalog) For(lang model.Language) []*SpawnSignature {
	sigs := c.byLang[lang]
	switch lang {
	case model.LangTSX:
		sigs = append(sigs, c.byLang[model.LangTypeScript]...)
	case model.LangC:
		sigs = append(sigs, c.byLang[model.LangCpp]...)
	case model.LangKotlin:
		sigs = append(sigs, c.byLang[model.LangJava]...)
	}
	return sigs
}

// Languages lists the languages with at least one signature.
func (c *Catalog) Languages() []model.Language {
	langs := make([]model.Language, 0, len(c.byLang))
	for l := range c.byLang {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// ParseSpawnsFile parses a SPAWNS.toml file from the given path
func ParseSpawnsFile(filePath string) (*SpawnsFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.New(errors.InvalidDefinition, "failed to read "+SpawnsDeclarationFile, err).WithPath(filePath)
	}

	var spawnsFile SpawnsFile
	if err := toml.Unmarshal(data, &spawnsFile); err != nil {
		return nil, errors.New(errors.InvalidDefinition, "failed to parse "+SpawnsDeclarationFile, err).WithPath(filePath)
	}

	// Validate version
	if spawnsFile.Version < 1 {
		spawnsFile.Version = 1 // Default to version 1
	}

	return &spawnsFile, nil
}

// LoadCatalogExtensions adds the signatures declared in a SPAWNS.toml file
// to c. It returns the number of signatures added.
func LoadCatalogExtensions(c *Catalog, filePath string) (int, error) {
	file, err := ParseSpawnsFile(filePath)
	if err != nil {
		return 0, err
	}
	for _, sig := range file.Spawns {
		if err := c.Add(sig); err != nil {
			if se, ok := err.(*errors.SentinelError); ok {
				return 0, se.WithPath(filePath)
			}
			return 0, err
		}
	}
	return len(file.Spawns), nil
}

const (
	jsPrefix    = `(?:^|[^.\w$])`
	cPrefix     = `(?:^|[^.\w>:])`
	shellPrefix = `^\s*(?:exec\s+|nohup\s+|time\s+)?`
)

var builtinSignatures = []SpawnSignature{
	// Go
	{Language: "go", Function: "exec.Command", Pattern: `\bexec\.Command\s*\(`, Mechanism: "exec", ReturnsHandle: true, Use: "run a tool and wait for it"},
	{Language: "go", Function: "exec.CommandContext", Pattern: `\bexec\.CommandContext\s*\(`, Mechanism: "exec", ReturnsHandle: true, Use: "run a cancellable tool"},
	{Language: "go", Function: "os.StartProcess", Pattern: `\bos\.StartProcess\s*\(`, Mechanism: "spawn", Async: true, ReturnsHandle: true, Use: "low-level process start"},
	{Language: "go", Function: "syscall.Exec", Pattern: `\bsyscall\.Exec\s*\(`, Mechanism: "exec", Use: "replace the current process"},

	// Python
	{Language: "python", Function: "subprocess.run", Pattern: `\bsubprocess\.(?:run|call|check_call)\s*\(`, Mechanism: "subprocess", Use: "run a command and wait"},
	{Language: "python", Function: "subprocess.check_output", Pattern: `\bsubprocess\.(?:check_output|getoutput)\s*\(`, Mechanism: "subprocess", CapturesOutput: true, Use: "collect a command's output"},
	{Language: "python", Function: "subprocess.Popen", Pattern: `\bsubprocess\.Popen\s*\(`, Mechanism: "subprocess", Async: true, ReturnsHandle: true, Use: "background worker with pipes"},
	{Language: "python", Function: "asyncio.create_subprocess_exec", Pattern: `\basyncio\.create_subprocess_(?:exec|shell)\s*\(`, Mechanism: "subprocess", Async: true, ReturnsHandle: true, Use: "asyncio child process"},
	{Language: "python", Function: "os.system", Pattern: `\bos\.system\s*\(`, Mechanism: "system", Shell: true, Use: "fire a shell command"},
	{Language: "python", Function: "os.popen", Pattern: `\bos\.popen\s*\(`, Mechanism: "system", Shell: true, CapturesOutput: true, Use: "read a shell command's output"},
	{Language: "python", Function: "os.exec", Pattern: `\bos\.exec(?:l|lp|le|lpe|v|vp|ve|vpe)\s*\(`, Mechanism: "exec", Use: "replace the interpreter"},
	{Language: "python", Function: "os.fork", Pattern: `\bos\.fork\s*\(\s*\)`, Mechanism: "fork", Async: true, Use: "duplicate the interpreter"},
	{Language: "python", Function: "multiprocessing.Process", Pattern: `\bmultiprocessing\.Process\s*\(`, Mechanism: "fork", Async: true, ReturnsHandle: true, Use: "parallel python worker"},

	// JavaScript and TypeScript
	{Language: "javascript", Function: "child_process.spawn", Pattern: jsPrefix + `(?:child_process\.)?spawn\s*\(`, Mechanism: "spawn", Async: true, ReturnsHandle: true, Use: "streaming child process"},
	{Language: "javascript", Function: "child_process.spawnSync", Pattern: jsPrefix + `(?:child_process\.)?spawnSync\s*\(`, Mechanism: "spawn", CapturesOutput: true, Use: "blocking child process"},
	{Language: "javascript", Function: "child_process.exec", Pattern: jsPrefix + `(?:child_process\.)?exec(?:Sync)?\s*\(`, Mechanism: "exec", Shell: true, CapturesOutput: true, Use: "buffered shell command"},
	{Language: "javascript", Function: "child_process.execFile", Pattern: jsPrefix + `(?:child_process\.)?execFile(?:Sync)?\s*\(`, Mechanism: "exec", CapturesOutput: true, Use: "buffered executable"},
	{Language: "javascript", Function: "child_process.fork", Pattern: jsPrefix + `(?:child_process\.)?fork\s*\(`, Mechanism: "fork", Async: true, ReturnsHandle: true, Use: "node worker with IPC"},
	{Language: "javascript", Function: "Bun.spawn", Pattern: `\bBun\.spawn(?:Sync)?\s*\(`, Mechanism: "spawn", Async: true, ReturnsHandle: true, Use: "bun child process"},
	{Language: "typescript", Function: "child_process.spawn", Pattern: jsPrefix + `(?:child_process\.)?spawn\s*\(`, Mechanism: "spawn", Async: true, ReturnsHandle: true, Use: "streaming child process"},
	{Language: "typescript", Function: "child_process.spawnSync", Pattern: jsPrefix + `(?:child_process\.)?spawnSync\s*\(`, Mechanism: "spawn", CapturesOutput: true, Use: "blocking child process"},
	{Language: "typescript", Function: "child_process.exec", Pattern: jsPrefix + `(?:child_process\.)?exec(?:Sync)?\s*\(`, Mechanism: "exec", Shell: true, CapturesOutput: true, Use: "buffered shell command"},
	{Language: "typescript", Function: "child_process.execFile", Pattern: jsPrefix + `(?:child_process\.)?execFile(?:Sync)?\s*\(`, Mechanism: "exec", CapturesOutput: true, Use: "buffered executable"},
	{Language: "typescript", Function: "child_process.fork", Pattern: jsPrefix + `(?:child_process\.)?fork\s*\(`, Mechanism: "fork", Async: true, ReturnsHandle: true, Use: "node worker with IPC"},
	{Language: "typescript", Function: "Deno.Command", Pattern: `\bnew\s+Deno\.Command\s*\(`, Mechanism: "spawn", Async: true, ReturnsHandle: true, Use: "deno child process"},

	// Rust
	{Language: "rust", Function: "std::process::Command", Pattern: `\b(?:std::process::)?Command::new\s*\(`, Mechanism: "exec", ReturnsHandle: true, Use: "run a tool"},
	{Language: "rust", Function: "tokio::process::Command", Pattern: `\btokio::process::Command::new\s*\(`, Mechanism: "spawn", Async: true, ReturnsHandle: true, Use: "async child process"},

	// C and C++
	{Language: "cpp", Function: "system", Pattern: cPrefix + `(?:std::)?system\s*\(`, Mechanism: "system", Shell: true, Use: "fire a shell command"},
	{Language: "cpp", Function: "popen", Pattern: cPrefix + `_?popen\s*\(`, Mechanism: "system", Shell: true, CapturesOutput: true, Use: "read a shell command's output"},
	{Language: "cpp", Function: "exec", Pattern: `\bexec(?:l|lp|le|v|vp|vpe|ve)\s*\(`, Mechanism: "exec", Use: "replace the process image"},
	{Language: "cpp", Function: "fork", Pattern: cPrefix + `v?fork\s*\(\s*\)`, Mechanism: "fork", Async: true, Use: "duplicate the process"},
	{Language: "cpp", Function: "posix_spawn", Pattern: `\bposix_spawnp?\s*\(`, Mechanism: "spawn", Async: true, ReturnsHandle: true, Use: "spawn without fork"},
	{Language: "cpp", Function: "CreateProcess", Pattern: `\bCreateProcess[AW]?\s*\(`, Mechanism: "spawn", Async: true, ReturnsHandle: true, Use: "windows child process"},

	// Java and Kotlin
	{Language: "java", Function: "ProcessBuilder", Pattern: `\bProcessBuilder\s*\(`, Mechanism: "spawn", Async: true, ReturnsHandle: true, Use: "configurable child process"},
	{Language: "java", Function: "Runtime.exec", Pattern: `\bRuntime\.getRuntime\(\)\.exec\s*\(`, Mechanism: "exec", Async: true, ReturnsHandle: true, Use: "legacy child process"},

	// C#
	{Language: "csharp", Function: "Process.Start", Pattern: `\bProcess\.Start\s*\(`, Mechanism: "spawn", Async: true, ReturnsHandle: true, Use: "start an executable"},

	// Shell
	{Language: "shell", Function: "interpreter", Pattern: shellPrefix + `((?:python[0-9.]*|node|deno|bun|ruby|perl|java|bash|sh|zsh)\s+[^;&|#]+)`, Mechanism: "exec", Use: "run a script"},
	{Language: "shell", Function: "go run", Pattern: shellPrefix + `(go\s+run\s+[^;&|#]+)`, Mechanism: "exec", Use: "run a go program"},
	{Language: "shell", Function: "cargo run", Pattern: shellPrefix + `(cargo\s+run\b[^;&|#]*)`, Mechanism: "exec", Use: "run a rust program"},
}
