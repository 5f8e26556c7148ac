package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var (
	exportFormat    string
	exportOut       string
	exportOutFormat string
	importFormat    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the symbol store",
	Long: `Write the project's stored symbols and relationships to a file.

Formats:
  - batch: zstd-compressed JSON lines, readable by 'sentinel import'
  - scip: a SCIP index for code-navigation tools

Examples:
  sentinel export --out=symbols.jsonl.zst
  sentinel export --format=scip --out=index.scip`,
	Args: cobra.NoArgs,
	Run:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a symbol batch into the store",
	Long: `Load a batch written by 'sentinel export' into this project's store,
replacing every file the batch covers. Imported files are re-parsed by the
next index run.

Examples:
  sentinel import symbols.jsonl.zst`,
	Args: cobra.ExactArgs(1),
	Run:  runImport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "batch", "Export format (batch, scip)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: sentinel.jsonl.zst or index.scip)")
	exportCmd.Flags().StringVar(&exportOutFormat, "output", "json", "Report format (json, human)")
	importCmd.Flags().StringVar(&importFormat, "format", "json", "Output format (json, human)")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	start := time.Now()
	out := exportOut
	if out == "" {
		out = defaultExportPath(exportFormat)
	}
	if out == "" {
		fmt.Fprintf(os.Stderr, "Error: unsupported export format %q (use batch or scip)\n", exportFormat)
		os.Exit(2)
	}
	out, _ = filepath.Abs(out)

	ctx, cancel := newContext()
	defer cancel()
	env := mustGetEnv(ctx)
	defer env.Close()

	resp := &ExportResponseCLI{Action: "Exported", Format: exportFormat, Path: out}
	switch exportFormat {
	case "scip":
		docs, err := env.engine.ExportSCIP(ctx, out)
		if err != nil {
			fail("Error exporting SCIP index", err)
		}
		resp.Documents = docs
		if st, err := env.engine.Stats(ctx); err == nil {
			resp.Symbols, resp.Relationships = st.Symbols, st.Relationships
		}
	default:
		b, err := env.engine.ExportBatch(ctx, out)
		if err != nil {
			fail("Error exporting batch", err)
		}
		resp.Files = len(b.Files())
		resp.Symbols, resp.Relationships = len(b.Symbols), len(b.Relationships)
	}
	if info, err := os.Stat(out); err == nil {
		resp.SizeBytes = info.Size()
	}
	printOutput(resp, exportOutFormat)

	env.logger.Debug("Export completed",
		"format", exportFormat,
		"path", out,
		"bytes", resp.SizeBytes,
		"duration", time.Since(start).Milliseconds())
}

func runImport(cmd *cobra.Command, args []string) {
	start := time.Now()
	in, _ := filepath.Abs(args[0])

	ctx, cancel := newContext()
	defer cancel()
	env := mustGetEnv(ctx)
	defer env.Close()

	b, err := env.engine.ImportBatch(ctx, in)
	if err != nil {
		fail("Error importing batch", err)
	}
	resp := &ExportResponseCLI{
		Action:        "Imported",
		Format:        "batch",
		Path:          in,
		Files:         len(b.Files()),
		Symbols:       len(b.Symbols),
		Relationships: len(b.Relationships),
	}
	printOutput(resp, importFormat)

	env.logger.Debug("Import completed",
		"path", in,
		"sourceProject", b.ProjectID,
		"duration", time.Since(start).Milliseconds())
}

// defaultExportPath returns the file name used when --out is omitted, or
// "" for an unknown format.
func defaultExportPath(format string) string {
	switch format {
	case "batch":
		return "sentinel.jsonl.zst"
	case "scip":
		return "index.scip"
	}
	return ""
}

// ExportResponseCLI describes a completed export or import
type ExportResponseCLI struct {
	Action        string `json:"action"`
	Format        string `json:"format"`
	Path          string `json:"path"`
	Documents     int    `json:"documents,omitempty"`
	Files         int    `json:"files,omitempty"`
	Symbols       int    `json:"symbols"`
	Relationships int    `json:"relationships"`
	SizeBytes     int64  `json:"sizeBytes,omitempty"`
}
