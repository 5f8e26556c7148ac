package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"sentinel/internal/config"
	"sentinel/internal/engine"
	"sentinel/internal/errors"
	"sentinel/internal/slogutil"
)

// cliEnv bundles what every command needs and must release.
type cliEnv struct {
	engine  *engine.Engine
	logger  *slog.Logger
	factory *slogutil.LoggerFactory
}

func (c *cliEnv) Close() {
	if c.engine != nil {
		c.engine.Close()
	}
	c.factory.Close()
}

// getRepoRoot returns the --root flag or the working directory.
func getRepoRoot() (string, error) {
	if rootFlag != "" {
		return rootFlag, nil
	}
	return os.Getwd()
}

// mustGetRepoRoot returns the project root or exits on error.
func mustGetRepoRoot() string {
	root, err := getRepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return root
}

// cliLevel returns the level forced by -v/-q, or nil to defer to config.
func cliLevel() *slog.Level {
	if verboseFlag == 0 && !quietFlag {
		return nil
	}
	level := slogutil.LevelFromVerbosity(verboseFlag, quietFlag)
	return &level
}

// loadConfig loads the project configuration, falling back to defaults.
func loadConfig(root string) *config.Config {
	cfg, err := config.LoadConfig(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config, using defaults: %v\n", err)
		return config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid config, using defaults: %v\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

// newEnv opens the engine for the project root.
func newEnv(ctx context.Context) (*cliEnv, error) {
	root, err := getRepoRoot()
	if err != nil {
		return nil, err
	}
	cfg := loadConfig(root)
	factory := slogutil.NewLoggerFactory(root, cfg, cliLevel())
	logger := factory.CLILogger()

	eng, err := engine.New(ctx, root, cfg, logger)
	if err != nil {
		factory.Close()
		return nil, fmt.Errorf("failed to open project: %w", err)
	}
	return &cliEnv{engine: eng, logger: logger, factory: factory}, nil
}

// mustGetEnv opens the engine or exits on error.
func mustGetEnv(ctx context.Context) *cliEnv {
	env, err := newEnv(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing engine: %v\n", err)
		os.Exit(1)
	}
	return env
}

// newContext returns a context canceled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// printOutput formats resp and writes it to stdout, exiting on failure.
func printOutput(resp any, format string) {
	output, err := FormatResponse(resp, OutputFormat(format))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}

// fail prints err with its suggested fixes and exits.
func fail(prefix string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", prefix, err)
	for _, hint := range errorHints(err) {
		fmt.Fprintf(os.Stderr, "  hint: %s\n", hint)
	}
	os.Exit(1)
}

// errorHints lists "did you mean" names and the suggested fixes carried by
// a coded error.
func errorHints(err error) []string {
	var se *errors.SentinelError
	if !stderrors.As(err, &se) {
		return nil
	}
	var hints []string
	if details, ok := se.Details.(map[string]any); ok {
		if names, ok := details["suggestions"].([]string); ok && len(names) > 0 {
			hints = append(hints, "did you mean "+strings.Join(names, ", ")+"?")
		}
	}
	for _, fix := range se.SuggestedFixes {
		if fix.Command == "" {
			continue
		}
		cmd := strings.ReplaceAll(fix.Command, "${path}", se.Path)
		hints = append(hints, fmt.Sprintf("%s: %s", fix.Description, cmd))
	}
	return hints
}
