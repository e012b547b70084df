package db

import (
	"database/sql"
	"fmt"
)

// CreateProject inserts a new project
func (d *DB) CreateProject(p *Project) error {
	if p.Category == "" {
		p.Category = ProjectCategoryPrimary
	}
	if !p.Category.Valid() {
		return fmt.Errorf("invalid project category %q", p.Category)
	}

	_, err := d.Run(`
		INSERT INTO projects (id, name, path, category, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Path, string(p.Category), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert project %s: %w", p.ID, err)
	}
	return nil
}

// GetProject retrieves a project by ID, returns nil if not found
func (d *DB) GetProject(id string) (*Project, error) {
	return SelectOne(d,
		`SELECT id, name, path, category, created_at FROM projects WHERE id = ?`,
		[]QueryParam{id},
		func(row *sql.Row) (Project, error) {
			return scanProject(row)
		},
	)
}

// ListProjects returns all projects ordered by category then name
func (d *DB) ListProjects() ([]Project, error) {
	projects, err := Select(d,
		`SELECT id, name, path, category, created_at FROM projects ORDER BY category, name`,
		nil,
		func(rows *sql.Rows) (Project, error) {
			return scanProject(rows)
		},
	)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []Project{}
	}
	return projects, nil
}

// DeleteProject removes a project. Its groups go with it and any sessions
// pointing at it are left with no project relation.
func (d *DB) DeleteProject(id string) error {
	result, err := d.Run(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ProjectExists checks whether a project with the given ID is present
func (d *DB) ProjectExists(id string) (bool, error) {
	return d.Exists(`SELECT 1 FROM projects WHERE id = ?`, id)
}

func scanProject(row interface{ Scan(...any) error }) (Project, error) {
	var p Project
	var category string
	err := row.Scan(&p.ID, &p.Name, &p.Path, &category, &p.CreatedAt)
	p.Category = ProjectCategory(category)
	return p, err
}
