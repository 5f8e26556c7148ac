package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// MatchType records which search tier produced a result.
type MatchType string

const (
	MatchExact     MatchType = "exact"
	MatchPrefix    MatchType = "prefix"
	MatchSubstring MatchType = "substring"
)

// SearchResult is one symbol returned by Search.
type SearchResult struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	QualifiedName string    `json:"qualifiedName"`
	Kind          string    `json:"kind"`
	Signature     string    `json:"signature,omitempty"`
	FilePath      string    `json:"filePath"`
	Line          int       `json:"line"`
	Language      string    `json:"language"`
	Rank          float64   `json:"rank"`
	MatchType     MatchType `json:"matchType"`
}

// createSymbolSearchTable creates the FTS5 index over symbol names. It reads
// its content from the symbols table and is kept in sync by triggers, so
// ReplaceFile needs no extra bookkeeping.
func createSymbolSearchTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
			name,
			qualified_name,
			signature,
			content='symbols',
			content_rowid='rowid'
		)
	`); err != nil {
		return fmt.Errorf("failed to create symbols_fts table: %w", err)
	}

	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS symbols_fts_ai AFTER INSERT ON symbols BEGIN
			INSERT INTO symbols_fts(rowid, name, qualified_name, signature)
			VALUES (new.rowid, new.name, new.qualified_name, new.signature);
		END`,
		`CREATE TRIGGER IF NOT EXISTS symbols_fts_ad AFTER DELETE ON symbols BEGIN
			INSERT INTO symbols_fts(symbols_fts, rowid, name, qualified_name, signature)
			VALUES ('delete', old.rowid, old.name, old.qualified_name, old.signature);
		END`,
		`CREATE TRIGGER IF NOT EXISTS symbols_fts_au AFTER UPDATE ON symbols BEGIN
			INSERT INTO symbols_fts(symbols_fts, rowid, name, qualified_name, signature)
			VALUES ('delete', old.rowid, old.name, old.qualified_name, old.signature);
			INSERT INTO symbols_fts(rowid, name, qualified_name, signature)
			VALUES (new.rowid, new.name, new.qualified_name, new.signature);
		END`,
	}
	for _, trigger := range triggers {
		if _, err := tx.Exec(trigger); err != nil {
			return fmt.Errorf("failed to create trigger: %w", err)
		}
	}
	return nil
}

// Search finds symbols of a project by name. Exact phrase matches come
// first, then prefix matches, then a LIKE substring fallback.
func (db *DB) Search(ctx context.Context, projectID, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var results []SearchResult
	seen := make(map[int64]bool)
	add := func(found []rankedRow) {
		for _, r := range found {
			if len(results) >= limit || seen[r.rowid] {
				continue
			}
			seen[r.rowid] = true
			results = append(results, r.SearchResult)
		}
	}

	escaped := escapeFTS5Query(query)
	tiers := []struct {
		match string
		kind  MatchType
		rank  float64
	}{
		{fmt.Sprintf(`"%s"`, escaped), MatchExact, 1.0},
		{fmt.Sprintf(`"%s"*`, escaped), MatchPrefix, 0.8},
	}
	for _, tier := range tiers {
		if len(results) >= limit {
			break
		}
		found, err := db.searchFTS(ctx, projectID, tier.match, limit)
		if err != nil {
			return nil, err
		}
		for i := range found {
			found[i].MatchType = tier.kind
			found[i].Rank = tier.rank
		}
		add(found)
	}

	if len(results) < limit {
		found, err := db.searchLike(ctx, projectID, query, limit)
		if err != nil {
			return nil, err
		}
		add(found)
	}
	return results, nil
}

type rankedRow struct {
	SearchResult
	rowid int64
}

const searchColumns = `s.rowid, s.id, s.name, s.qualified_name, s.kind, s.signature, s.file_path, s.line, s.language`

func (db *DB) searchFTS(ctx context.Context, projectID, match string, limit int) ([]rankedRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+searchColumns+`
		FROM symbols_fts f
		JOIN symbols s ON f.rowid = s.rowid
		WHERE symbols_fts MATCH ? AND s.project_id = ?
		ORDER BY bm25(symbols_fts, 1.0, 0.5, 0.3)
		LIMIT ?
	`, match, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSearchRows(rows)
}

func (db *DB) searchLike(ctx context.Context, projectID, query string, limit int) ([]rankedRow, error) {
	pattern := "%" + query + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+searchColumns+`
		FROM symbols s
		WHERE s.project_id = ? AND (s.name LIKE ? OR s.qualified_name LIKE ?)
		ORDER BY length(s.name), s.name
		LIMIT ?
	`, projectID, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found, err := scanSearchRows(rows)
	for i := range found {
		found[i].MatchType = MatchSubstring
		found[i].Rank = 0.5
	}
	return found, err
}

func scanSearchRows(rows *sql.Rows) ([]rankedRow, error) {
	var out []rankedRow
	for rows.Next() {
		var r rankedRow
		var sig sql.NullString
		if err := rows.Scan(&r.rowid, &r.ID, &r.Name, &r.QualifiedName, &r.Kind, &sig, &r.FilePath, &r.Line, &r.Language); err != nil {
			return nil, err
		}
		r.Signature = sig.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// RebuildSearchIndex rebuilds the FTS index from the symbols table.
func (db *DB) RebuildSearchIndex(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "INSERT INTO symbols_fts(symbols_fts) VALUES('rebuild')")
	return err
}

// escapeFTS5Query escapes double quotes for use inside an FTS5 phrase.
func escapeFTS5Query(query string) string {
	return strings.ReplaceAll(query, `"`, `""`)
}
