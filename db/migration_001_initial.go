package db

import (
	"database/sql"
)

func init() {
	RegisterMigration(Migration{
		Version:     1,
		Description: "Initial schema - projects, project groups and sessions",
		Up:          migration001_initial,
	})
}

func migration001_initial(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		CREATE TABLE projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'primary',
			created_at INTEGER NOT NULL
		);
		CREATE INDEX idx_projects_path ON projects(path);

		CREATE TABLE project_groups (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX idx_project_groups_project_id ON project_groups(project_id);
	`)
	if err != nil {
		return err
	}

	// Relations are plain foreign keys; a vanished project or group leaves
	// the session in place with no relation.
	_, err = tx.Exec(`
		CREATE TABLE sessions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			project_path TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			last_accessed_at INTEGER NOT NULL,
			description TEXT,
			external_id TEXT,
			summary TEXT,
			is_completed INTEGER NOT NULL DEFAULT 0,
			completed_at INTEGER,
			is_waiting_for_input INTEGER NOT NULL DEFAULT 0,
			group_id TEXT REFERENCES project_groups(id) ON DELETE SET NULL,
			project_id TEXT REFERENCES projects(id) ON DELETE SET NULL
		);
		CREATE INDEX idx_sessions_last_accessed_at ON sessions(last_accessed_at);
		CREATE INDEX idx_sessions_project_id ON sessions(project_id);
		CREATE INDEX idx_sessions_status ON sessions(is_completed, is_waiting_for_input);
	`)
	if err != nil {
		return err
	}

	return tx.Commit()
}
