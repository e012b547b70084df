package db

import (
	"database/sql"
	"fmt"
)

// CreateProjectGroup inserts a new group under an existing project
func (d *DB) CreateProjectGroup(g *ProjectGroup) error {
	_, err := d.Run(`
		INSERT INTO project_groups (id, project_id, name, created_at)
		VALUES (?, ?, ?, ?)
	`, g.ID, g.ProjectID, g.Name, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert project group %s: %w", g.ID, err)
	}
	return nil
}

// GetProjectGroup retrieves a group by ID, returns nil if not found
func (d *DB) GetProjectGroup(id string) (*ProjectGroup, error) {
	return SelectOne(d,
		`SELECT id, project_id, name, created_at FROM project_groups WHERE id = ?`,
		[]QueryParam{id},
		func(row *sql.Row) (ProjectGroup, error) {
			return scanProjectGroup(row)
		},
	)
}

// ListProjectGroups returns the groups of a project ordered by name
func (d *DB) ListProjectGroups(projectID string) ([]ProjectGroup, error) {
	groups, err := Select(d,
		`SELECT id, project_id, name, created_at FROM project_groups WHERE project_id = ? ORDER BY name`,
		[]QueryParam{projectID},
		func(rows *sql.Rows) (ProjectGroup, error) {
			return scanProjectGroup(rows)
		},
	)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []ProjectGroup{}
	}
	return groups, nil
}

// DeleteProjectGroup removes a group; member sessions keep existing ungrouped
func (d *DB) DeleteProjectGroup(id string) error {
	result, err := d.Run(`DELETE FROM project_groups WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ProjectGroupExists checks whether a group with the given ID is present
func (d *DB) ProjectGroupExists(id string) (bool, error) {
	return d.Exists(`SELECT 1 FROM project_groups WHERE id = ?`, id)
}

func scanProjectGroup(row interface{ Scan(...any) error }) (ProjectGroup, error) {
	var g ProjectGroup
	err := row.Scan(&g.ID, &g.ProjectID, &g.Name, &g.CreatedAt)
	return g, err
}
