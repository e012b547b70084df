package remote

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/sessionhub/db"
	"github.com/xiaoyuanzhu-com/sessionhub/sessions"
)

// ServiceName identifies this endpoint in status responses
const ServiceName = "sessionhub"

// SessionStore applies remote actions to the record store
type SessionStore interface {
	Complete(id string) (*db.Session, error)
	SetWaiting(id string, waiting bool) (*db.Session, error)
}

// Handlers holds the collaborators the routes translate into
type Handlers struct {
	tracker *Tracker
	store   SessionStore
	version string
	address string
}

// NewHandlers creates handlers. A nil store makes the complete route
// answer 501 and keeps replies out of the record store.
func NewHandlers(tracker *Tracker, store SessionStore, version, address string) *Handlers {
	if tracker == nil {
		tracker = NewTracker()
	}
	return &Handlers{
		tracker: tracker,
		store:   store,
		version: version,
		address: address,
	}
}

// GetStatus handles GET /api/status
func (h *Handlers) GetStatus(c *gin.Context) {
	waiting, launched := h.tracker.Counts()
	c.JSON(http.StatusOK, StatusResponse{
		Service:  ServiceName,
		Version:  h.version,
		Waiting:  waiting,
		Launched: launched,
		Address:  h.address,
	})
}

// GetSessions handles GET /api/sessions
func (h *Handlers) GetSessions(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Sessions())
}

// GetTerminal handles GET /api/sessions/:id/terminal
func (h *Handlers) GetTerminal(c *gin.Context) {
	id := c.Param("id")

	src := h.tracker.Transcript(id)
	if src == nil {
		RespondNotAvailable(c, "terminal output is not available for session "+id)
		return
	}

	content, err := src.Transcript(c.Request.Context())
	if err != nil {
		logger.Warn().Err(err).Str("sessionId", id).Msg("failed to read transcript")
		RespondInternalError(c, "failed to read terminal output")
		return
	}

	c.JSON(http.StatusOK, TerminalResponse{ID: id, Content: content})
}

// PostReply handles POST /api/sessions/:id/reply
func (h *Handlers) PostReply(c *gin.Context) {
	id := c.Param("id")

	input := h.tracker.Input(id)
	if input == nil {
		RespondNotAvailable(c, "reply delivery is not available for session "+id)
		return
	}

	// An unparseable body counts as no body
	var req ReplyRequest
	if data, err := c.GetRawData(); err == nil && len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			logger.Debug().Err(err).Str("sessionId", id).Msg("ignoring unparseable reply body")
			req = ReplyRequest{}
		}
	}

	if strings.TrimSpace(req.Message) == "" {
		RespondValidationError(c, "message is required")
		return
	}

	if err := input.Send(c.Request.Context(), req.Message); err != nil {
		logger.Warn().Err(err).Str("sessionId", id).Msg("failed to deliver reply")
		RespondInternalError(c, "failed to deliver reply")
		return
	}

	h.tracker.SetWaiting(id, false)
	if h.store != nil {
		if _, err := h.store.SetWaiting(id, false); err != nil && !errors.Is(err, sessions.ErrSessionNotFound) {
			logger.Warn().Err(err).Str("sessionId", id).Msg("failed to clear waiting flag")
		}
	}
	logger.Info().Str("sessionId", id).Int("length", len(req.Message)).Msg("reply delivered")
	RespondSuccess(c, "")
}

// PostComplete handles POST /api/sessions/:id/complete
func (h *Handlers) PostComplete(c *gin.Context) {
	id := c.Param("id")

	if h.store == nil {
		RespondNotAvailable(c, "session store is not available")
		return
	}

	if _, err := h.store.Complete(id); err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			RespondNotFound(c, "session not found: "+id)
			return
		}
		logger.Error().Err(err).Str("sessionId", id).Msg("failed to complete session")
		RespondInternalError(c, "failed to complete session")
		return
	}

	h.tracker.SetWaiting(id, false)
	logger.Info().Str("sessionId", id).Msg("session completed remotely")
	RespondSuccess(c, id)
}

// NotFound answers every unmatched route, echoing the path
func (h *Handlers) NotFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: ErrorBody{
		Code:    ErrCodeNotFound,
		Message: "route not found",
		Path:    c.Request.URL.Path,
	}})
}
