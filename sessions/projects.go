package sessions

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/xiaoyuanzhu-com/sessionhub/db"
)

// CreateProject registers a local working directory
func (s *Service) CreateProject(name, path string, category db.ProjectCategory) (*db.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	project := &db.Project{
		ID:        uuid.New().String(),
		Name:      name,
		Path:      path,
		Category:  category,
		CreatedAt: s.now(),
	}
	if err := s.db.CreateProject(project); err != nil {
		return nil, err
	}

	s.notifyProject(project.ID, "created")
	return project, nil
}

// ListProjects returns every registered project
func (s *Service) ListProjects() ([]db.Project, error) {
	return s.db.ListProjects()
}

// DeleteProject removes a project; its sessions stay with no project relation
func (s *Service) DeleteProject(id string) error {
	if err := s.db.DeleteProject(id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrProjectNotFound
		}
		return err
	}
	s.notifyProject(id, "deleted")
	return nil
}

// CreateGroup adds a named session bucket to a project
func (s *Service) CreateGroup(projectID, name string) (*db.ProjectGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	exists, err := s.db.ProjectExists(projectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrProjectNotFound
	}

	group := &db.ProjectGroup{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      name,
		CreatedAt: s.now(),
	}
	if err := s.db.CreateProjectGroup(group); err != nil {
		return nil, err
	}

	s.notifyProject(projectID, "group-created")
	return group, nil
}

// ListGroups returns the groups of a project
func (s *Service) ListGroups(projectID string) ([]db.ProjectGroup, error) {
	return s.db.ListProjectGroups(projectID)
}

// DeleteGroup removes a group; member sessions become ungrouped
func (s *Service) DeleteGroup(id string) error {
	group, err := s.db.GetProjectGroup(id)
	if err != nil {
		return err
	}
	if group == nil {
		return ErrGroupNotFound
	}
	if err := s.db.DeleteProjectGroup(id); err != nil {
		return err
	}
	s.notifyProject(group.ProjectID, "group-deleted")
	return nil
}

func (s *Service) notifyProject(id, operation string) {
	if s.notif != nil {
		s.notif.NotifyProjectChanged(id, operation)
	}
}
