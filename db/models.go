package db

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when an update or delete targets a missing row
var ErrNotFound = errors.New("record not found")

// Session is one tracked unit of work against a project
type Session struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	ProjectPath       string  `json:"projectPath"`
	CreatedAt         int64   `json:"createdAt"`
	LastAccessedAt    int64   `json:"lastAccessedAt"` // merge clock for sync
	Description       *string `json:"description,omitempty"`
	ExternalID        *string `json:"externalId,omitempty"` // external process correlation id
	Summary           *string `json:"summary,omitempty"`
	IsCompleted       bool    `json:"isCompleted"`
	CompletedAt       *int64  `json:"completedAt,omitempty"`
	IsWaitingForInput bool    `json:"isWaitingForInput"`
	GroupID           *string `json:"groupId,omitempty"`
	ProjectID         *string `json:"projectId,omitempty"`
}

// ProjectCategory is used only for grouping in listings
type ProjectCategory string

const (
	ProjectCategoryPrimary  ProjectCategory = "primary"
	ProjectCategoryClient   ProjectCategory = "client"
	ProjectCategoryInternal ProjectCategory = "internal"
)

// Valid reports whether c is a known category
func (c ProjectCategory) Valid() bool {
	switch c {
	case ProjectCategoryPrimary, ProjectCategoryClient, ProjectCategoryInternal:
		return true
	}
	return false
}

// Project is a named reference to a local working directory
type Project struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Path      string          `json:"path"`
	Category  ProjectCategory `json:"category"`
	CreatedAt int64           `json:"createdAt"`
}

// ProjectGroup is a named bucket of sessions within a project
type ProjectGroup struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
}

// SessionFilter selects sessions; nil fields match everything
type SessionFilter struct {
	Completed *bool
	Waiting   *bool
	ProjectID *string
	GroupID   *string
	Limit     int
}

// scanSession scans a row into a Session
func scanSession(row interface{ Scan(...any) error }) (Session, error) {
	var s Session
	var isCompleted, isWaiting int
	var description, externalID, summary, groupID, projectID sql.NullString
	var completedAt sql.NullInt64

	err := row.Scan(
		&s.ID, &s.Name, &s.ProjectPath, &s.CreatedAt, &s.LastAccessedAt,
		&description, &externalID, &summary,
		&isCompleted, &completedAt, &isWaiting,
		&groupID, &projectID,
	)
	if err != nil {
		return s, err
	}

	s.Description = StringPtr(description)
	s.ExternalID = StringPtr(externalID)
	s.Summary = StringPtr(summary)
	s.IsCompleted = isCompleted == 1
	s.CompletedAt = IntPtr(completedAt)
	s.IsWaitingForInput = isWaiting == 1
	s.GroupID = StringPtr(groupID)
	s.ProjectID = StringPtr(projectID)
	return s, nil
}

// NowMs returns the current time as Unix milliseconds (int64)
func NowMs() int64 {
	return time.Now().UnixMilli()
}

// NullString converts *string to sql.NullString
func NullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// NullInt converts *int64 to sql.NullInt64
func NullInt(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

// StringPtr converts sql.NullString to *string
func StringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// IntPtr converts sql.NullInt64 to *int64
func IntPtr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	return &ni.Int64
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
