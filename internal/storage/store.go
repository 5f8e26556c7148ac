package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"sentinel/internal/errors"
	"sentinel/internal/model"
)

// Project is a registered project row.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Root      string    `json:"root"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FileRecord describes one indexed file.
type FileRecord struct {
	Path       string           `json:"path"`
	Language   model.Language   `json:"language"`
	Hash       string           `json:"hash"`
	ParserUsed model.ParserRung `json:"parserUsed,omitempty"`
	Confidence float64          `json:"confidence"`
	LineCount  int              `json:"lineCount"`
	IndexedAt  time.Time        `json:"indexedAt"`
}

// UpsertProject registers a project or refreshes its name, root and update
// time.
func (db *DB) UpsertProject(ctx context.Context, p Project) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO projects (id, name, root, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			root = excluded.root,
			updated_at = excluded.updated_at
	`, p.ID, p.Name, p.Root, p.CreatedAt.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return errors.New(errors.StoreUnavailable, "failed to upsert project", err)
	}
	return nil
}

// GetProject loads a project by id.
func (db *DB) GetProject(ctx context.Context, id string) (*Project, error) {
	var p Project
	var created, updated string
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, name, root, created_at, updated_at FROM projects WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Root, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.SymbolNotFound, "project %q not found", id)
	}
	if err != nil {
		return nil, errors.New(errors.StoreUnavailable, "failed to load project", err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, created)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &p, nil
}

// ReplaceFile replaces everything stored for one file in a single
// transaction: the file row, its symbols and its relationships. Symbols and
// relationships of other files are untouched.
func (db *DB) ReplaceFile(ctx context.Context, projectID string, file FileRecord, symbols []model.Symbol, rels []model.Relationship) error {
	if file.IndexedAt.IsZero() {
		file.IndexedAt = time.Now().UTC()
	}
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		// Cascades to the file's symbols and relationships.
		if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE project_id = ? AND path = ?`, projectID, file.Path); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO files (project_id, path, language, hash, parser_used, confidence, line_count, indexed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, projectID, file.Path, string(file.Language), file.Hash, string(file.ParserUsed),
			file.Confidence, file.LineCount, file.IndexedAt.Format(time.RFC3339)); err != nil {
			return err
		}
		if err := insertSymbols(ctx, tx, projectID, file.Path, symbols); err != nil {
			return err
		}
		return insertRelationships(ctx, tx, projectID, file.Path, rels)
	})
	if err != nil {
		if _, ok := errors.CodeOf(err); ok {
			return err
		}
		return errors.New(errors.StoreUnavailable, "failed to replace file", err).WithPath(file.Path)
	}
	return nil
}

func insertSymbols(ctx context.Context, tx *sql.Tx, projectID, path string, symbols []model.Symbol) error {
	if len(symbols) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols (
			id, project_id, file_path, name, qualified_name, kind, language,
			line, col, end_line, end_col, signature, return_type, visibility,
			namespace, parent_scope, tags_json, features_json, complexity,
			confidence, is_definition, is_exported, is_async
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range symbols {
		tags, err := marshalOptional(s.SemanticTags, len(s.SemanticTags) == 0)
		if err != nil {
			return err
		}
		features, err := marshalOptional(s.Features, len(s.Features.Flags) == 0 && len(s.Features.Extras) == 0)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			s.ID, projectID, path, s.Name, s.QualifiedName, string(s.Kind), string(s.Language),
			s.Line, s.Column, s.EndLine, s.EndColumn, s.Signature, s.ReturnType, s.Visibility,
			s.Namespace, s.ParentScope, tags, features, s.Complexity,
			s.Confidence, s.IsDefinition, s.IsExported, s.IsAsync,
		); err != nil {
			return err
		}
	}
	return nil
}

func insertRelationships(ctx context.Context, tx *sql.Tx, projectID, path string, rels []model.Relationship) error {
	if len(rels) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO relationships (
			project_id, file_path, from_name, to_name, from_id, to_id,
			type, confidence, line, col, snippet
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rels {
		var line, col int
		var snippet string
		if r.Context != nil {
			line, col, snippet = r.Context.Line, r.Context.Column, r.Context.Snippet
		}
		if _, err := stmt.ExecContext(ctx,
			projectID, path, r.FromName, r.ToName, r.FromID, r.ToID,
			string(r.Type), r.Confidence, line, col, snippet,
		); err != nil {
			return err
		}
	}
	return nil
}

func marshalOptional(v any, empty bool) (sql.NullString, error) {
	if empty {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// RemoveFile deletes a file and everything extracted from it.
func (db *DB) RemoveFile(ctx context.Context, projectID, path string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM files WHERE project_id = ? AND path = ?`, projectID, path); err != nil {
		return errors.New(errors.StoreUnavailable, "failed to remove file", err).WithPath(path)
	}
	return nil
}

// FileHash returns the content hash stored for a file.
func (db *DB) FileHash(ctx context.Context, projectID, path string) (string, bool, error) {
	var hash string
	err := db.conn.QueryRowContext(ctx, `
		SELECT hash FROM files WHERE project_id = ? AND path = ?
	`, projectID, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.New(errors.StoreUnavailable, "failed to read file hash", err).WithPath(path)
	}
	return hash, true, nil
}

// FileHashes returns the content hash of every file of a project keyed by
// path.
func (db *DB) FileHashes(ctx context.Context, projectID string) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT path, hash FROM files WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, errors.New(errors.StoreUnavailable, "failed to list file hashes", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, errors.New(errors.StoreUnavailable, "failed to scan file hash", err)
		}
		out[path] = hash
	}
	return out, rows.Err()
}

// Files lists the files of a project in path order.
func (db *DB) Files(ctx context.Context, projectID string) ([]FileRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT path, language, hash, parser_used, confidence, line_count, indexed_at
		FROM files WHERE project_id = ? ORDER BY path
	`, projectID)
	if err != nil {
		return nil, errors.New(errors.StoreUnavailable, "failed to list files", err)
	}
	defer rows.Close()

	var out []FileRecord
	for rows.Next() {
		var f FileRecord
		var lang, indexed string
		var parser sql.NullString
		if err := rows.Scan(&f.Path, &lang, &f.Hash, &parser, &f.Confidence, &f.LineCount, &indexed); err != nil {
			return nil, errors.New(errors.StoreUnavailable, "failed to scan file", err)
		}
		f.Language = model.Language(lang)
		f.ParserUsed = model.ParserRung(parser.String)
		f.IndexedAt, _ = time.Parse(time.RFC3339, indexed)
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeclarationIndex serves declaration lookups for type resolution. An empty
// project id searches every project in the store.
type DeclarationIndex struct {
	db        *DB
	projectID string
}

// Declarations returns the declaration index of a project.
func (db *DB) Declarations(projectID string) *DeclarationIndex {
	return &DeclarationIndex{db: db, projectID: projectID}
}

// FindDeclarations returns every symbol named name, highest confidence
// first.
func (x *DeclarationIndex) FindDeclarations(ctx context.Context, name string) ([]model.Declaration, error) {
	return x.query(ctx, `name = ?`, name)
}

// AllDeclarations returns every declaration in the index.
func (x *DeclarationIndex) AllDeclarations(ctx context.Context) ([]model.Declaration, error) {
	return x.query(ctx, `is_definition = 1`)
}

func (x *DeclarationIndex) query(ctx context.Context, where string, args ...any) ([]model.Declaration, error) {
	q := `SELECT name, file_path, line, confidence, kind FROM symbols WHERE ` + where
	if x.projectID != "" {
		q += ` AND project_id = ?`
		args = append(args, x.projectID)
	}
	q += ` ORDER BY confidence DESC, file_path, line`

	rows, err := x.db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.New(errors.StoreUnavailable, "failed to query declarations", err)
	}
	defer rows.Close()

	var out []model.Declaration
	for rows.Next() {
		var d model.Declaration
		var kind string
		if err := rows.Scan(&d.Name, &d.FilePath, &d.Line, &d.Confidence, &kind); err != nil {
			return nil, errors.New(errors.StoreUnavailable, "failed to scan declaration", err)
		}
		d.Kind = model.SymbolKind(kind)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Snapshot loads the symbols and relationships of a project into an
// immutable snapshot. A non-empty language restricts it to files of that
// language.
func (db *DB) Snapshot(ctx context.Context, projectID string, language model.Language) (*model.Snapshot, error) {
	symbols, err := db.loadSymbols(ctx, projectID, language)
	if err != nil {
		return nil, err
	}
	rels, err := db.loadRelationships(ctx, projectID, language)
	if err != nil {
		return nil, err
	}
	db.logger.Debug("Snapshot loaded", "project", projectID, "language", string(language),
		"symbols", len(symbols), "relationships", len(rels))
	return model.NewSnapshot(symbols, rels), nil
}

func (db *DB) loadSymbols(ctx context.Context, projectID string, language model.Language) ([]model.Symbol, error) {
	q := `
		SELECT id, file_path, name, qualified_name, kind, language, line, col,
			end_line, end_col, signature, return_type, visibility, namespace,
			parent_scope, tags_json, features_json, complexity, confidence,
			is_definition, is_exported, is_async
		FROM symbols WHERE project_id = ?`
	args := []any{projectID}
	if language != "" {
		q += ` AND language = ?`
		args = append(args, string(language))
	}
	q += ` ORDER BY file_path, line, rowid`

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.New(errors.StoreUnavailable, "failed to load symbols", err)
	}
	defer rows.Close()

	var out []model.Symbol
	for rows.Next() {
		var s model.Symbol
		var kind, lang string
		var sig, ret, vis, ns, parent, tags, features sql.NullString
		if err := rows.Scan(&s.ID, &s.FilePath, &s.Name, &s.QualifiedName, &kind, &lang, &s.Line, &s.Column,
			&s.EndLine, &s.EndColumn, &sig, &ret, &vis, &ns,
			&parent, &tags, &features, &s.Complexity, &s.Confidence,
			&s.IsDefinition, &s.IsExported, &s.IsAsync); err != nil {
			return nil, errors.New(errors.StoreUnavailable, "failed to scan symbol", err)
		}
		s.Kind = model.SymbolKind(kind)
		s.Language = model.Language(lang)
		s.Signature, s.ReturnType, s.Visibility = sig.String, ret.String, vis.String
		s.Namespace, s.ParentScope = ns.String, parent.String
		if tags.Valid {
			if err := json.Unmarshal([]byte(tags.String), &s.SemanticTags); err != nil {
				return nil, errors.New(errors.StoreUnavailable, "corrupt symbol tags", err).WithPath(s.FilePath)
			}
		}
		if features.Valid {
			if err := json.Unmarshal([]byte(features.String), &s.Features); err != nil {
				return nil, errors.New(errors.StoreUnavailable, "corrupt symbol features", err).WithPath(s.FilePath)
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (db *DB) loadRelationships(ctx context.Context, projectID string, language model.Language) ([]model.Relationship, error) {
	q := `
		SELECT r.file_path, r.from_name, r.to_name, r.from_id, r.to_id, r.type,
			r.confidence, r.line, r.col, r.snippet
		FROM relationships r`
	args := []any{projectID}
	if language != "" {
		q += ` JOIN files f ON f.project_id = r.project_id AND f.path = r.file_path
		WHERE r.project_id = ? AND f.language = ?`
		args = append(args, string(language))
	} else {
		q += ` WHERE r.project_id = ?`
	}
	q += ` ORDER BY r.file_path, r.rowid`

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.New(errors.StoreUnavailable, "failed to load relationships", err)
	}
	defer rows.Close()

	var out []model.Relationship
	for rows.Next() {
		var r model.Relationship
		var typ string
		var fromID, toID, snippet sql.NullString
		var line, col int
		if err := rows.Scan(&r.FilePath, &r.FromName, &r.ToName, &fromID, &toID, &typ,
			&r.Confidence, &line, &col, &snippet); err != nil {
			return nil, errors.New(errors.StoreUnavailable, "failed to scan relationship", err)
		}
		r.Type = model.RelationshipType(typ)
		r.FromID, r.ToID = fromID.String, toID.String
		if line > 0 || snippet.String != "" {
			r.Context = &model.SourceContext{Line: line, Column: col, Snippet: snippet.String}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// StoreStats counts what a project holds.
type StoreStats struct {
	Files         int                    `json:"files"`
	Symbols       int                    `json:"symbols"`
	Relationships int                    `json:"relationships"`
	ByLanguage    map[model.Language]int `json:"byLanguage"`
}

// Stats counts the files, symbols and relationships of a project.
func (db *DB) Stats(ctx context.Context, projectID string) (*StoreStats, error) {
	st := &StoreStats{ByLanguage: make(map[model.Language]int)}
	counts := []struct {
		query string
		dst   *int
	}{
		{`SELECT COUNT(*) FROM files WHERE project_id = ?`, &st.Files},
		{`SELECT COUNT(*) FROM symbols WHERE project_id = ?`, &st.Symbols},
		{`SELECT COUNT(*) FROM relationships WHERE project_id = ?`, &st.Relationships},
	}
	for _, c := range counts {
		if err := db.conn.QueryRowContext(ctx, c.query, projectID).Scan(c.dst); err != nil {
			return nil, errors.New(errors.StoreUnavailable, "failed to count rows", err)
		}
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT language, COUNT(*) FROM files WHERE project_id = ? GROUP BY language
	`, projectID)
	if err != nil {
		return nil, errors.New(errors.StoreUnavailable, "failed to count languages", err)
	}
	defer rows.Close()
	for rows.Next() {
		var lang string
		var n int
		if err := rows.Scan(&lang, &n); err != nil {
			return nil, errors.New(errors.StoreUnavailable, "failed to scan language count", err)
		}
		st.ByLanguage[model.Language(lang)] = n
	}
	return st, rows.Err()
}
