package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 2

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createProjectsTable(tx); err != nil {
			return err
		}
		if err := createFilesTable(tx); err != nil {
			return err
		}
		if err := createSymbolsTable(tx); err != nil {
			return err
		}
		if err := createRelationshipsTable(tx); err != nil {
			return err
		}
		if err := createSymbolSearchTable(tx); err != nil {
			return err
		}
		if err := createIndexRunsTable(tx); err != nil {
			return err
		}
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", "version", currentSchemaVersion)
		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", "version", version)
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Running database migrations", "fromVersion", version, "toVersion", currentSchemaVersion)

	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if version < 1 {
			return fmt.Errorf("database has no schema version")
		}
		// v2 added run bookkeeping.
		if version < 2 {
			if err := createIndexRunsTable(tx); err != nil {
				return err
			}
		}
		return setSchemaVersion(tx, currentSchemaVersion)
	})
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

func createProjectsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			root TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	return err
}

func createFilesTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS files (
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			path TEXT NOT NULL,
			language TEXT NOT NULL,
			hash TEXT NOT NULL,
			parser_used TEXT,
			confidence REAL NOT NULL DEFAULT 0,
			line_count INTEGER NOT NULL DEFAULT 0,
			indexed_at TEXT NOT NULL,
			PRIMARY KEY (project_id, path)
		)
	`); err != nil {
		return err
	}
	_, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_files_language ON files(project_id, language)")
	return err
}

func createSymbolsTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS symbols (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			project_id TEXT NOT NULL,
			file_path TEXT NOT NULL,
			name TEXT NOT NULL,
			qualified_name TEXT NOT NULL,
			kind TEXT NOT NULL,
			language TEXT NOT NULL,
			line INTEGER NOT NULL,
			col INTEGER NOT NULL DEFAULT 0,
			end_line INTEGER NOT NULL DEFAULT 0,
			end_col INTEGER NOT NULL DEFAULT 0,
			signature TEXT,
			return_type TEXT,
			visibility TEXT,
			namespace TEXT,
			parent_scope TEXT,
			tags_json TEXT,
			features_json TEXT,
			complexity INTEGER NOT NULL DEFAULT 0,
			confidence REAL NOT NULL DEFAULT 0,
			is_definition INTEGER NOT NULL DEFAULT 0,
			is_exported INTEGER NOT NULL DEFAULT 0,
			is_async INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (project_id, file_path) REFERENCES files(project_id, path) ON DELETE CASCADE
		)
	`); err != nil {
		return err
	}
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_symbols_id ON symbols(id)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(project_id, file_path)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_language ON symbols(project_id, language)",
	}
	for _, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return err
		}
	}
	return nil
}

func createRelationshipsTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS relationships (
			project_id TEXT NOT NULL,
			file_path TEXT NOT NULL,
			from_name TEXT NOT NULL,
			to_name TEXT NOT NULL,
			from_id TEXT,
			to_id TEXT,
			type TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 0,
			line INTEGER NOT NULL DEFAULT 0,
			col INTEGER NOT NULL DEFAULT 0,
			snippet TEXT,
			FOREIGN KEY (project_id, file_path) REFERENCES files(project_id, path) ON DELETE CASCADE
		)
	`); err != nil {
		return err
	}
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_relationships_file ON relationships(project_id, file_path)",
		"CREATE INDEX IF NOT EXISTS idx_relationships_from ON relationships(from_name)",
		"CREATE INDEX IF NOT EXISTS idx_relationships_to ON relationships(to_name)",
	}
	for _, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return err
		}
	}
	return nil
}

func createIndexRunsTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS index_runs (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			files_total INTEGER NOT NULL,
			files_indexed INTEGER NOT NULL,
			files_skipped INTEGER NOT NULL,
			files_failed INTEGER NOT NULL,
			symbols INTEGER NOT NULL,
			relationships INTEGER NOT NULL,
			canceled INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		return err
	}
	_, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_index_runs_project ON index_runs(project_id, started_at)")
	return err
}
