// Package export writes and reads persistable symbol batches: a
// zstd-compressed JSON-lines format for bulk transfer between stores and a
// SCIP index for external code-intelligence tooling.
package export

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"

	"sentinel/internal/errors"
	"sentinel/internal/model"
)

// FormatVersion is the batch format written by this package.
const FormatVersion = 1

// RecordKind tags each line of a batch stream.
type RecordKind string

const (
	RecordHeader       RecordKind = "header"
	RecordSymbol       RecordKind = "symbol"
	RecordRelationship RecordKind = "relationship"
)

// Header is the first line of every batch stream.
type Header struct {
	Version       int       `json:"version"`
	ProjectID     string    `json:"projectId"`
	GeneratedAt   time.Time `json:"generatedAt"`
	Symbols       int       `json:"symbols"`
	Relationships int       `json:"relationships"`
}

// Batch is the set of symbols and relationships of one project.
type Batch struct {
	ProjectID     string               `json:"projectId"`
	Symbols       []model.Symbol       `json:"symbols"`
	Relationships []model.Relationship `json:"relationships"`
}

// BatchFromSnapshot copies the real symbols and all relationships of snap.
// Virtual endpoint symbols are left out; they are recreated on load.
func BatchFromSnapshot(projectID string, snap *model.Snapshot) *Batch {
	b := &Batch{ProjectID: projectID}
	for _, s := range snap.Symbols() {
		if s.HasTag("virtual") {
			continue
		}
		b.Symbols = append(b.Symbols, s)
	}
	b.Relationships = append(b.Relationships, snap.Relationships()...)
	return b
}

// Files groups the batch by file path, in path order. Relationships without
// a file path are attached to their source symbol's file.
func (b *Batch) Files() []FileGroup {
	byPath := make(map[string]*FileGroup)
	group := func(path string) *FileGroup {
		g, ok := byPath[path]
		if !ok {
			g = &FileGroup{Path: path}
			byPath[path] = g
		}
		return g
	}

	fileOf := make(map[string]string)
	for _, s := range b.Symbols {
		g := group(s.FilePath)
		if g.Language == "" {
			g.Language = s.Language
		}
		g.Symbols = append(g.Symbols, s)
		if _, ok := fileOf[s.QualifiedName]; !ok {
			fileOf[s.QualifiedName] = s.FilePath
		}
	}
	for _, r := range b.Relationships {
		path := r.FilePath
		if path == "" {
			path = fileOf[r.FromName]
		}
		if path == "" {
			continue
		}
		group(path).Relationships = append(group(path).Relationships, r)
	}

	out := make([]FileGroup, 0, len(byPath))
	for _, g := range byPath {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// FileGroup is the part of a batch that belongs to one file.
type FileGroup struct {
	Path          string
	Language      model.Language
	Symbols       []model.Symbol
	Relationships []model.Relationship
}

type record struct {
	Kind         RecordKind          `json:"kind"`
	Header       *Header             `json:"header,omitempty"`
	Symbol       *model.Symbol       `json:"symbol,omitempty"`
	Relationship *model.Relationship `json:"relationship,omitempty"`
}

// WriteBatch writes b to w as zstd-compressed JSON lines: one header line
// followed by one line per symbol and per relationship.
func WriteBatch(w io.Writer, b *Batch) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return errors.New(errors.InternalError, "failed to create zstd writer", err)
	}
	bw := bufio.NewWriter(zw)
	enc := json.NewEncoder(bw)

	header := &Header{
		Version:       FormatVersion,
		ProjectID:     b.ProjectID,
		GeneratedAt:   time.Now().UTC(),
		Symbols:       len(b.Symbols),
		Relationships: len(b.Relationships),
	}
	if err := enc.Encode(record{Kind: RecordHeader, Header: header}); err != nil {
		zw.Close()
		return errors.New(errors.InternalError, "failed to write batch header", err)
	}
	for i := range b.Symbols {
		if err := enc.Encode(record{Kind: RecordSymbol, Symbol: &b.Symbols[i]}); err != nil {
			zw.Close()
			return errors.New(errors.InternalError, "failed to write symbol", err)
		}
	}
	for i := range b.Relationships {
		if err := enc.Encode(record{Kind: RecordRelationship, Relationship: &b.Relationships[i]}); err != nil {
			zw.Close()
			return errors.New(errors.InternalError, "failed to write relationship", err)
		}
	}
	if err := bw.Flush(); err != nil {
		zw.Close()
		return errors.New(errors.InternalError, "failed to flush batch", err)
	}
	if err := zw.Close(); err != nil {
		return errors.New(errors.InternalError, "failed to finish zstd stream", err)
	}
	return nil
}

// ReadBatch reads a stream written by WriteBatch. The header must come first
// and its counts must match the records that follow.
func ReadBatch(r io.Reader) (*Batch, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, errors.New(errors.InvalidDefinition, "not a zstd batch stream", err)
	}
	defer zr.Close()

	dec := json.NewDecoder(zr)
	var header *Header
	b := &Batch{}
	for line := 1; ; line++ {
		var rec record
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Newf(errors.InvalidDefinition, "malformed batch record %d: %v", line, err)
		}
		if header == nil && rec.Kind != RecordHeader {
			return nil, errors.New(errors.InvalidDefinition, "batch stream does not start with a header", nil)
		}
		switch rec.Kind {
		case RecordHeader:
			if header != nil || rec.Header == nil {
				return nil, errors.Newf(errors.InvalidDefinition, "unexpected header at record %d", line)
			}
			if rec.Header.Version != FormatVersion {
				return nil, errors.Newf(errors.InvalidDefinition, "unsupported batch version %d", rec.Header.Version)
			}
			header = rec.Header
			b.ProjectID = header.ProjectID
		case RecordSymbol:
			if rec.Symbol == nil {
				return nil, errors.Newf(errors.InvalidDefinition, "empty symbol at record %d", line)
			}
			b.Symbols = append(b.Symbols, *rec.Symbol)
		case RecordRelationship:
			if rec.Relationship == nil {
				return nil, errors.Newf(errors.InvalidDefinition, "empty relationship at record %d", line)
			}
			b.Relationships = append(b.Relationships, *rec.Relationship)
		default:
			return nil, errors.Newf(errors.InvalidDefinition, "unknown record kind %q", rec.Kind)
		}
	}
	if header == nil {
		return nil, errors.New(errors.InvalidDefinition, "empty batch stream", nil)
	}
	if header.Symbols != len(b.Symbols) || header.Relationships != len(b.Relationships) {
		return nil, errors.Newf(errors.InvalidDefinition,
			"batch truncated: header declares %d symbols and %d relationships, read %d and %d",
			header.Symbols, header.Relationships, len(b.Symbols), len(b.Relationships))
	}
	return b, nil
}

// WriteBatchFile writes b to path through a temporary file so readers never
// see a partial batch.
func WriteBatchFile(path string, b *Batch) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.New(errors.InternalError, "failed to create export directory", err).WithPath(path)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.New(errors.InternalError, "failed to create export file", err).WithPath(path)
	}
	if err := WriteBatch(f, b); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.New(errors.InternalError, "failed to close export file", err).WithPath(path)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.New(errors.InternalError, "failed to move export into place", err).WithPath(path)
	}
	return nil
}

// ReadBatchFile reads a batch written by WriteBatchFile.
func ReadBatchFile(path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(errors.FileFailed, "failed to open batch", err).WithPath(path)
	}
	defer f.Close()
	return ReadBatch(f)
}
