package sessions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xiaoyuanzhu-com/sessionhub/db"
	"github.com/xiaoyuanzhu-com/sessionhub/log"
	"github.com/xiaoyuanzhu-com/sessionhub/notifications"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrGroupNotFound   = errors.New("project group not found")
	ErrInvalidName     = errors.New("name is required")
)

// Service applies user-level session and project mutations to the record
// store and announces them on the notifications bus.
type Service struct {
	db    *db.DB
	notif *notifications.Service

	now func() int64
}

// NewService creates a session service
func NewService(database *db.DB, notif *notifications.Service) *Service {
	return &Service{
		db:    database,
		notif: notif,
		now:   db.NowMs,
	}
}

// CreateOptions carries optional attributes for a new session
type CreateOptions struct {
	Description *string
	ExternalID  *string
	ProjectID   *string
	GroupID     *string
}

// Create starts tracking a new session
func (s *Service) Create(name, projectPath string, opts CreateOptions) (*db.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	if opts.ProjectID != nil {
		project, err := s.db.GetProject(*opts.ProjectID)
		if err != nil {
			return nil, err
		}
		if project == nil {
			return nil, ErrProjectNotFound
		}
		if projectPath == "" {
			projectPath = project.Path
		}
	}
	if opts.GroupID != nil {
		exists, err := s.db.ProjectGroupExists(*opts.GroupID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrGroupNotFound
		}
	}

	now := s.now()
	session := &db.Session{
		ID:             uuid.New().String(),
		Name:           name,
		ProjectPath:    projectPath,
		CreatedAt:      now,
		LastAccessedAt: now,
		Description:    opts.Description,
		ExternalID:     opts.ExternalID,
		ProjectID:      opts.ProjectID,
		GroupID:        opts.GroupID,
	}

	if err := s.db.CreateSession(session); err != nil {
		return nil, err
	}

	log.Info().Str("sessionId", session.ID).Str("name", name).Msg("session created")
	s.notify(session.ID, "created")
	return session, nil
}

// Get returns a session or ErrSessionNotFound
func (s *Service) Get(id string) (*db.Session, error) {
	session, err := s.db.GetSession(id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// List returns sessions matching the filter
func (s *Service) List(filter db.SessionFilter) ([]db.Session, error) {
	return s.db.ListSessions(filter)
}

// Touch marks the session as accessed now
func (s *Service) Touch(id string) (*db.Session, error) {
	return s.mutate(id, "touched", func(*db.Session) {})
}

// Rename changes the display name
func (s *Service) Rename(id, name string) (*db.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	return s.mutate(id, "renamed", func(session *db.Session) {
		session.Name = name
	})
}

// SetDescription replaces the free-text description (nil clears it)
func (s *Service) SetDescription(id string, description *string) (*db.Session, error) {
	return s.mutate(id, "described", func(session *db.Session) {
		session.Description = description
	})
}

// SetSummary replaces the summary text (nil clears it)
func (s *Service) SetSummary(id string, summary *string) (*db.Session, error) {
	return s.mutate(id, "summarized", func(session *db.Session) {
		session.Summary = summary
	})
}

// SetExternalID records the correlation id of the external process
func (s *Service) SetExternalID(id string, externalID *string) (*db.Session, error) {
	return s.mutate(id, "linked", func(session *db.Session) {
		session.ExternalID = externalID
	})
}

// SetWaiting flips the waiting-for-input flag
func (s *Service) SetWaiting(id string, waiting bool) (*db.Session, error) {
	return s.mutate(id, "waiting", func(session *db.Session) {
		session.IsWaitingForInput = waiting
	})
}

// Complete marks the session as done. Completing twice keeps the first
// completion time.
func (s *Service) Complete(id string) (*db.Session, error) {
	return s.mutate(id, "completed", func(session *db.Session) {
		if !session.IsCompleted {
			completedAt := s.now()
			session.CompletedAt = &completedAt
		}
		session.IsCompleted = true
		session.IsWaitingForInput = false
	})
}

// Reopen clears the completion state
func (s *Service) Reopen(id string) (*db.Session, error) {
	return s.mutate(id, "reopened", func(session *db.Session) {
		session.IsCompleted = false
		session.CompletedAt = nil
	})
}

// Delete removes the session from the local store only. Deletions are not
// written to the shared sync folder.
func (s *Service) Delete(id string) error {
	if err := s.db.DeleteSession(id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}

	log.Info().Str("sessionId", id).Msg("session deleted")
	if s.notif != nil {
		s.notif.NotifySessionDeleted(id)
	}
	return nil
}

// mutate loads, modifies and stores a session in one transaction. Every
// mutation advances lastAccessedAt by at least a millisecond, even when the
// stored value is ahead of the local clock, so the edit wins the next merge.
func (s *Service) mutate(id, operation string, fn func(*db.Session)) (*db.Session, error) {
	session, err := s.db.ModifySession(id, func(session *db.Session) error {
		fn(session)
		session.LastAccessedAt = max(s.now(), session.LastAccessedAt+1)
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to update session %s: %w", id, err)
	}

	log.Debug().Str("sessionId", id).Str("operation", operation).Msg("session updated")
	s.notify(id, operation)
	return session, nil
}

func (s *Service) notify(id, operation string) {
	if s.notif != nil {
		s.notif.NotifySessionChanged(id, operation)
	}
}
