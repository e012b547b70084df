package syncer

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xiaoyuanzhu-com/sessionhub/db"
)

// DocumentExt is the file extension of a session document in the shared folder
const DocumentExt = ".json"

// timeLayout is RFC 3339 in UTC with millisecond precision. It sorts
// lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000Z"

var errInvalidDocument = errors.New("invalid sync document")

// Timestamp is a Unix millisecond time serialized as an RFC 3339 string
type Timestamp int64

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.UnixMilli(int64(t)).UTC().Format(timeLayout))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed.UnixMilli())
	return nil
}

// Document is the flat on-disk form of a session. Relations are carried as
// raw identifiers and resolved against the local store on import.
//
// Fields are declared in key order so the encoded object has sorted keys.
type Document struct {
	CompletedAt       *Timestamp `json:"completedAt,omitempty"`
	CreatedAt         Timestamp  `json:"createdAt"`
	Description       *string    `json:"description,omitempty"`
	ExternalID        *string    `json:"externalId,omitempty"`
	GroupID           *string    `json:"groupId,omitempty"`
	ID                string     `json:"id"`
	IsCompleted       bool       `json:"isCompleted"`
	IsWaitingForInput bool       `json:"isWaitingForInput"`
	LastAccessedAt    Timestamp  `json:"lastAccessedAt"`
	Name              string     `json:"name"`
	ProjectID         *string    `json:"projectId,omitempty"`
	ProjectPath       string     `json:"projectPath"`
	Summary           *string    `json:"summary,omitempty"`
}

// NewDocument converts a session into its document form
func NewDocument(s *db.Session) *Document {
	doc := &Document{
		CreatedAt:         Timestamp(s.CreatedAt),
		Description:       s.Description,
		ExternalID:        s.ExternalID,
		GroupID:           s.GroupID,
		ID:                s.ID,
		IsCompleted:       s.IsCompleted,
		IsWaitingForInput: s.IsWaitingForInput,
		LastAccessedAt:    Timestamp(s.LastAccessedAt),
		Name:              s.Name,
		ProjectID:         s.ProjectID,
		ProjectPath:       s.ProjectPath,
		Summary:           s.Summary,
	}
	if s.CompletedAt != nil {
		completedAt := Timestamp(*s.CompletedAt)
		doc.CompletedAt = &completedAt
	}
	return doc
}

// Session converts the document into a session. Relation ids are copied
// verbatim; callers resolve them against the store.
func (d *Document) Session() *db.Session {
	s := &db.Session{
		ID:                d.ID,
		Name:              d.Name,
		ProjectPath:       d.ProjectPath,
		CreatedAt:         int64(d.CreatedAt),
		LastAccessedAt:    int64(d.LastAccessedAt),
		Description:       d.Description,
		ExternalID:        d.ExternalID,
		Summary:           d.Summary,
		IsCompleted:       d.IsCompleted,
		IsWaitingForInput: d.IsWaitingForInput,
		GroupID:           d.GroupID,
		ProjectID:         d.ProjectID,
	}
	if d.CompletedAt != nil {
		completedAt := int64(*d.CompletedAt)
		s.CompletedAt = &completedAt
	}
	return s
}

// Encode serializes the document with two-space indentation and a trailing
// newline
func (d *Document) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeDocument parses a document and checks that it carries an identity
func DecodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidDocument, err)
	}
	if !validDocumentID(doc.ID) {
		return nil, fmt.Errorf("%w: bad id %q", errInvalidDocument, doc.ID)
	}
	return &doc, nil
}

// documentFileName returns the shared-folder file name for a session id
func documentFileName(id string) string {
	return id + DocumentExt
}

// isDocumentFile reports whether a directory entry name is a session
// document. Hidden files cover in-flight temp files from atomic writes.
func isDocumentFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return filepath.Ext(name) == DocumentExt && len(name) > len(DocumentExt)
}

// validDocumentID rejects ids that would escape the shared folder
func validDocumentID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`) && !strings.HasPrefix(id, ".")
}
