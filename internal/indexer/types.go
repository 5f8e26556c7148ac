// Package indexer indexes a project in fixed-size batches: files are parsed
// concurrently within a batch and merged into the store once it completes.
package indexer

import (
	"context"
	"time"

	"sentinel/internal/errors"
	"sentinel/internal/model"
	"sentinel/internal/storage"
)

// Parser parses one file's content.
type Parser interface {
	ParseSource(ctx context.Context, path string, content []byte) (*model.ModuleInfo, error)
}

// Store persists indexed files.
type Store interface {
	FileHashes(ctx context.Context, projectID string) (map[string]string, error)
	ReplaceFile(ctx context.Context, projectID string, file storage.FileRecord, symbols []model.Symbol, rels []model.Relationship) error
	RemoveFile(ctx context.Context, projectID, path string) error
	RecordIndexRun(ctx context.Context, run storage.IndexRun) error
}

// Learner receives the symbols of every merged batch. The type resolver
// implements it so later batches resolve against earlier ones.
type Learner interface {
	Learn(symbols []model.Symbol)
}

// ChangeType classifies a file relative to the stored index.
type ChangeType string

const (
	ChangeAdded     ChangeType = "added"
	ChangeModified  ChangeType = "modified"
	ChangeUnchanged ChangeType = "unchanged"
	ChangeDeleted   ChangeType = "deleted"
)

// Stage names a progress event.
type Stage string

const (
	StageDiscovered Stage = "discovered"
	StageBatch      Stage = "batch"
	StageDone       Stage = "done"
)

// Progress is one event on the progress channel.
type Progress struct {
	RunID     string `json:"runId"`
	Stage     Stage  `json:"stage"`
	Batch     int    `json:"batch"`
	Batches   int    `json:"batches"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Failed    int    `json:"failed"`
}

// FileError is a per-file failure collected into the run result.
type FileError struct {
	Path    string           `json:"path"`
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// Result summarizes an indexing run.
type Result struct {
	RunID         string        `json:"runId"`
	ProjectID     string        `json:"projectId"`
	FilesTotal    int           `json:"filesTotal"`
	Indexed       int           `json:"indexed"`
	Skipped       int           `json:"skipped"`
	Removed       int           `json:"removed"`
	Symbols       int           `json:"symbols"`
	Relationships int           `json:"relationships"`
	Errors        []FileError   `json:"errors,omitempty"`
	Canceled      bool          `json:"canceled"`
	Duration      time.Duration `json:"duration"`
}

// fileOutcome is what one worker produces for one file.
type fileOutcome struct {
	file   SourceFile
	change ChangeType
	hash   string
	module *model.ModuleInfo
	err    error
}
