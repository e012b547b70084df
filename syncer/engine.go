package syncer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xiaoyuanzhu-com/sessionhub/db"
	"github.com/xiaoyuanzhu-com/sessionhub/log"
)

var logger = log.GetLogger("Sync")

// Config controls the sync engine. The zero value is a disabled engine.
type Config struct {
	Enabled bool
	Dir     string
}

// Store is the slice of the record store the engine reads and writes
type Store interface {
	GetSession(id string) (*db.Session, error)
	MergeSession(s *db.Session) (db.MergeOutcome, *db.Session, error)
	ListSessions(filter db.SessionFilter) ([]db.Session, error)
	ProjectExists(id string) (bool, error)
	ProjectGroupExists(id string) (bool, error)
}

// Outcome is the result of importing a single document
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeImported
	OutcomeUpdated
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeImported:
		return "imported"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// ExportResult counts the outcome of an export pass
type ExportResult struct {
	Exported int `json:"exported"`
	Failed   int `json:"failed"`
}

// ImportResult counts the outcome of an import pass
type ImportResult struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func (r *ImportResult) add(o Outcome) {
	switch o {
	case OutcomeImported:
		r.Imported++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

// Total returns the number of documents seen
func (r ImportResult) Total() int {
	return r.Imported + r.Updated + r.Skipped + r.Failed
}

// Engine reconciles the record store with a shared folder of one document
// per session. The record with the strictly greater lastAccessedAt wins;
// ties keep the local copy and re-export it.
//
// The shared folder may be written concurrently by other devices. The only
// discipline is atomic per-file writes. All failures are logged and counted,
// never returned.
type Engine struct {
	cfg   Config
	store Store
}

// NewEngine creates a sync engine
func NewEngine(cfg Config, store Store) *Engine {
	return &Engine{cfg: cfg, store: store}
}

// Enabled reports whether the engine does anything
func (e *Engine) Enabled() bool {
	return e.cfg.Enabled && e.cfg.Dir != ""
}

// Dir returns the shared folder
func (e *Engine) Dir() string {
	return e.cfg.Dir
}

// DocumentPath returns the shared-folder path of a session's document
func (e *Engine) DocumentPath(id string) string {
	return filepath.Join(e.cfg.Dir, documentFileName(id))
}

// ExportRecord writes a session's document to the shared folder,
// overwriting any previous version. An identical document is left alone so
// watchers do not see a write. Failures are logged.
func (e *Engine) ExportRecord(ctx context.Context, session *db.Session) {
	if !e.Enabled() || session == nil {
		return
	}
	if err := e.exportRecord(ctx, session); err != nil {
		logger.Warn().Err(err).Str("sessionId", session.ID).Msg("failed to export session")
	}
}

func (e *Engine) exportRecord(ctx context.Context, session *db.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validDocumentID(session.ID) {
		return fmt.Errorf("session id %q is not a valid document name", session.ID)
	}

	data, err := NewDocument(session).Encode()
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if err := os.MkdirAll(e.cfg.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create sync directory: %w", err)
	}

	path := e.DocumentPath(session.ID)
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, data) {
		return nil
	}
	return writeFileAtomic(path, data)
}

// ExportAll writes a document for every session in the store
func (e *Engine) ExportAll(ctx context.Context) ExportResult {
	var result ExportResult
	if !e.Enabled() {
		return result
	}

	sessions, err := e.store.ListSessions(db.SessionFilter{})
	if err != nil {
		logger.Error().Err(err).Msg("failed to list sessions for export")
		return result
	}

	for i := range sessions {
		if err := e.exportRecord(ctx, &sessions[i]); err != nil {
			logger.Warn().Err(err).Str("sessionId", sessions[i].ID).Msg("failed to export session")
			result.Failed++
			continue
		}
		result.Exported++
	}

	logger.Debug().
		Int("exported", result.Exported).
		Int("failed", result.Failed).
		Msg("export pass finished")
	return result
}

// ImportAll merges every document in the shared folder into the store.
// A bad document counts as failed and never stops the pass.
func (e *Engine) ImportAll(ctx context.Context) ImportResult {
	var result ImportResult
	if !e.Enabled() {
		return result
	}

	entries, err := os.ReadDir(e.cfg.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug().Str("dir", e.cfg.Dir).Msg("sync directory does not exist yet")
		} else {
			logger.Error().Err(err).Str("dir", e.cfg.Dir).Msg("failed to read sync directory")
		}
		return result
	}

	for _, entry := range entries {
		if entry.IsDir() || !isDocumentFile(entry.Name()) {
			continue
		}
		if ctx.Err() != nil {
			logger.Info().Msg("import pass cancelled")
			break
		}
		result.add(e.ImportFile(ctx, filepath.Join(e.cfg.Dir, entry.Name())))
	}

	logger.Debug().
		Int("imported", result.Imported).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("import pass finished")
	return result
}

// ImportFile merges a single document into the store
func (e *Engine) ImportFile(ctx context.Context, path string) Outcome {
	if !e.Enabled() {
		return OutcomeSkipped
	}

	outcome, err := e.importFile(ctx, path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to import document")
		return OutcomeFailed
	}
	return outcome
}

func (e *Engine) importFile(ctx context.Context, path string) (Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return OutcomeFailed, err
	}

	doc, err := DecodeDocument(data)
	if err != nil {
		return OutcomeFailed, err
	}

	incoming := doc.Session()
	if err := e.resolveRelations(incoming); err != nil {
		return OutcomeFailed, err
	}

	// Compare and write happen in one store transaction, so a local edit
	// that lands mid-import is never overwritten by an older document.
	merged, stored, err := e.store.MergeSession(incoming)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to merge session %s: %w", doc.ID, err)
	}

	switch merged {
	case db.MergeInserted:
		logger.Info().Str("sessionId", doc.ID).Msg("imported session")
		return OutcomeImported, nil
	case db.MergeUpdated:
		logger.Info().Str("sessionId", doc.ID).Msg("updated session from shared folder")
		return OutcomeUpdated, nil
	}

	// Local is newer or equal: keep it and push it back out
	if err := e.exportRecord(ctx, stored); err != nil {
		logger.Warn().Err(err).Str("sessionId", stored.ID).Msg("failed to re-export local session")
	}
	return OutcomeSkipped, nil
}

// resolveRelations clears project and group ids that do not exist locally
func (e *Engine) resolveRelations(s *db.Session) error {
	if s.ProjectID != nil {
		exists, err := e.store.ProjectExists(*s.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to resolve project %s: %w", *s.ProjectID, err)
		}
		if !exists {
			logger.Debug().Str("sessionId", s.ID).Str("projectId", *s.ProjectID).Msg("unresolved project, dropping relation")
			s.ProjectID = nil
		}
	}
	if s.GroupID != nil {
		exists, err := e.store.ProjectGroupExists(*s.GroupID)
		if err != nil {
			return fmt.Errorf("failed to resolve group %s: %w", *s.GroupID, err)
		}
		if !exists {
			logger.Debug().Str("sessionId", s.ID).Str("groupId", *s.GroupID).Msg("unresolved group, dropping relation")
			s.GroupID = nil
		}
	}
	return nil
}
