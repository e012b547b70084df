package db

import (
	"database/sql"
	"fmt"
	"strings"
)

const sessionColumns = `id, name, project_path, created_at, last_accessed_at,
	description, external_id, summary,
	is_completed, completed_at, is_waiting_for_input,
	group_id, project_id`

// queryRunner is satisfied by both *sql.DB and *sql.Tx
type queryRunner interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// MergeOutcome reports what MergeSession did with an incoming record
type MergeOutcome int

const (
	MergeInserted MergeOutcome = iota + 1
	MergeUpdated
	MergeKept
)

// CreateSession inserts a new session
func (d *DB) CreateSession(s *Session) error {
	return d.insertSession(d.conn, s)
}

// GetSession retrieves a session by ID, returns nil if not found
func (d *DB) GetSession(id string) (*Session, error) {
	return d.getSession(d.conn, id)
}

// UpdateSession overwrites every mutable field of an existing session.
// The identifier and creation time are never changed.
func (d *DB) UpdateSession(s *Session) error {
	return d.updateSession(d.conn, s)
}

// ModifySession loads a session, applies fn and writes the result back in
// one transaction. Returns ErrNotFound when the session does not exist.
func (d *DB) ModifySession(id string, fn func(*Session) error) (*Session, error) {
	var session *Session
	err := d.Transaction(func(tx *sql.Tx) error {
		current, err := d.getSession(tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrNotFound
		}
		if err := fn(current); err != nil {
			return err
		}
		if err := d.updateSession(tx, current); err != nil {
			return err
		}
		session = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// MergeSession applies last-write-wins against the stored copy in one
// transaction. An absent session is inserted. An existing one is replaced
// only when s.LastAccessedAt is strictly newer, and keeps its stored
// CreatedAt. The returned session is what the store holds afterwards.
func (d *DB) MergeSession(s *Session) (MergeOutcome, *Session, error) {
	var (
		outcome MergeOutcome
		stored  *Session
	)
	err := d.Transaction(func(tx *sql.Tx) error {
		local, err := d.getSession(tx, s.ID)
		if err != nil {
			return err
		}

		switch {
		case local == nil:
			if err := d.insertSession(tx, s); err != nil {
				return err
			}
			outcome, stored = MergeInserted, s
		case s.LastAccessedAt > local.LastAccessedAt:
			merged := *s
			merged.CreatedAt = local.CreatedAt
			if err := d.updateSession(tx, &merged); err != nil {
				return err
			}
			outcome, stored = MergeUpdated, &merged
		default:
			outcome, stored = MergeKept, local
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return outcome, stored, nil
}

func (d *DB) insertSession(q queryRunner, s *Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	params := []QueryParam{
		s.ID, s.Name, s.ProjectPath, s.CreatedAt, s.LastAccessedAt,
		NullString(s.Description), NullString(s.ExternalID), NullString(s.Summary),
		boolInt(s.IsCompleted), NullInt(s.CompletedAt), boolInt(s.IsWaitingForInput),
		NullString(s.GroupID), NullString(s.ProjectID),
	}
	d.logQuery("run", query, params)

	if _, err := q.Exec(query, toArgs(params)...); err != nil {
		return fmt.Errorf("failed to insert session %s: %w", s.ID, err)
	}
	return nil
}

func (d *DB) getSession(q queryRunner, id string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	d.logQuery("get", query, []QueryParam{id})

	session, err := scanSession(q.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (d *DB) updateSession(q queryRunner, s *Session) error {
	query := `
		UPDATE sessions SET
			name = ?,
			project_path = ?,
			last_accessed_at = ?,
			description = ?,
			external_id = ?,
			summary = ?,
			is_completed = ?,
			completed_at = ?,
			is_waiting_for_input = ?,
			group_id = ?,
			project_id = ?
		WHERE id = ?
	`
	params := []QueryParam{
		s.Name, s.ProjectPath, s.LastAccessedAt,
		NullString(s.Description), NullString(s.ExternalID), NullString(s.Summary),
		boolInt(s.IsCompleted), NullInt(s.CompletedAt), boolInt(s.IsWaitingForInput),
		NullString(s.GroupID), NullString(s.ProjectID),
		s.ID,
	}
	d.logQuery("run", query, params)

	result, err := q.Exec(query, toArgs(params)...)
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", s.ID, err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSession removes a session from the database
func (d *DB) DeleteSession(id string) error {
	result, err := d.Run(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSessions returns sessions matching the filter, most recently accessed first
func (d *DB) ListSessions(filter SessionFilter) ([]Session, error) {
	where, params := filter.where()

	query := `SELECT ` + sessionColumns + ` FROM sessions` + where +
		` ORDER BY last_accessed_at DESC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		params = append(params, filter.Limit)
	}

	sessions, err := Select(d, query, params, func(rows *sql.Rows) (Session, error) {
		return scanSession(rows)
	})
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []Session{}
	}
	return sessions, nil
}

// CountSessions returns the number of sessions matching the filter
func (d *DB) CountSessions(filter SessionFilter) (int64, error) {
	where, params := filter.where()
	return d.Count(`SELECT COUNT(*) FROM sessions`+where, params...)
}

func (f SessionFilter) where() (string, []QueryParam) {
	var clauses []string
	var params []QueryParam

	if f.Completed != nil {
		clauses = append(clauses, "is_completed = ?")
		params = append(params, boolInt(*f.Completed))
	}
	if f.Waiting != nil {
		clauses = append(clauses, "is_waiting_for_input = ?")
		params = append(params, boolInt(*f.Waiting))
	}
	if f.ProjectID != nil {
		clauses = append(clauses, "project_id = ?")
		params = append(params, *f.ProjectID)
	}
	if f.GroupID != nil {
		clauses = append(clauses, "group_id = ?")
		params = append(params, *f.GroupID)
	}

	if len(clauses) == 0 {
		return "", params
	}
	return " WHERE " + strings.Join(clauses, " AND "), params
}
