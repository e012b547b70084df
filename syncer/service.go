package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xiaoyuanzhu-com/sessionhub/notifications"
)

var (
	// ErrDisabled is returned by SyncNow when sync is turned off
	ErrDisabled = errors.New("sync is disabled")

	// ErrSyncInProgress is returned by SyncNow while another pass runs
	ErrSyncInProgress = errors.New("sync pass already in progress")
)

// ServiceConfig controls when passes run
type ServiceConfig struct {
	// Interval between full passes. Zero disables the periodic timer.
	Interval time.Duration

	// Watch enables importing documents as soon as they change on disk
	Watch bool

	DebounceDelay time.Duration
}

// PassResult is the outcome of one import-then-export pass
type PassResult struct {
	Import     ImportResult `json:"import"`
	Export     ExportResult `json:"export"`
	StartedAt  int64        `json:"startedAt"`
	FinishedAt int64        `json:"finishedAt"`
}

// Service drives the engine: a full pass on start and on every interval,
// single-document imports when the shared folder changes, and exports when a
// local session changes. Engine work is serialized; passes never overlap.
type Service struct {
	cfg    ServiceConfig
	engine *Engine
	store  Store
	notif  *notifications.Service

	// held for the duration of any engine work
	mu sync.Mutex

	lastMu sync.RWMutex
	last   *PassResult

	watcher *watcher

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewService creates a sync service. notif may be nil.
func NewService(cfg ServiceConfig, engine *Engine, store Store, notif *notifications.Service) *Service {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultDebounceDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:    cfg,
		engine: engine,
		store:  store,
		notif:  notif,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Engine returns the underlying engine
func (s *Service) Engine() *Engine {
	return s.engine
}

// Start launches the background loops. It is a no-op when sync is disabled.
func (s *Service) Start() error {
	if !s.engine.Enabled() {
		logger.Info().Msg("sync disabled, not starting")
		return nil
	}

	if s.cfg.Watch {
		w, err := newWatcher(s.engine.Dir(), s.cfg.DebounceDelay, s.importChanged)
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		s.watcher = w
	}

	s.started = true

	s.wg.Add(1)
	go s.periodicLoop()

	if s.notif != nil {
		events, unsubscribe := s.notif.Subscribe()
		s.wg.Add(1)
		go s.changeLoop(events, unsubscribe)
	}

	logger.Info().
		Str("dir", s.engine.Dir()).
		Dur("interval", s.cfg.Interval).
		Bool("watch", s.cfg.Watch).
		Msg("sync service started")
	return nil
}

// Stop ends the background loops and waits for in-flight work
func (s *Service) Stop() {
	s.cancel()
	if s.watcher != nil {
		s.watcher.Stop()
	}
	s.wg.Wait()
	if s.started {
		logger.Info().Msg("sync service stopped")
	}
}

// SyncNow runs an import-then-export pass immediately
func (s *Service) SyncNow(ctx context.Context) (*PassResult, error) {
	if !s.engine.Enabled() {
		return nil, ErrDisabled
	}
	if !s.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.mu.Unlock()

	return s.pass(ctx), nil
}

// LastResult returns the most recent pass outcome, or nil before the first pass
func (s *Service) LastResult() *PassResult {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.last
}

// pass must be called with mu held
func (s *Service) pass(ctx context.Context) *PassResult {
	result := &PassResult{StartedAt: time.Now().UnixMilli()}
	result.Import = s.engine.ImportAll(ctx)
	result.Export = s.engine.ExportAll(ctx)
	result.FinishedAt = time.Now().UnixMilli()

	s.lastMu.Lock()
	s.last = result
	s.lastMu.Unlock()

	logger.Info().
		Int("imported", result.Import.Imported).
		Int("updated", result.Import.Updated).
		Int("skipped", result.Import.Skipped).
		Int("failed", result.Import.Failed+result.Export.Failed).
		Int64("durationMs", result.FinishedAt-result.StartedAt).
		Msg("sync pass completed")

	if s.notif != nil {
		s.notif.NotifySyncCompleted(result)
	}
	return result
}

func (s *Service) periodicLoop() {
	defer s.wg.Done()

	s.runScheduledPass()

	if s.cfg.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runScheduledPass()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Service) runScheduledPass() {
	if _, err := s.SyncNow(s.ctx); err != nil {
		logger.Debug().Err(err).Msg("scheduled sync pass skipped")
	}
}

// changeLoop exports sessions as they change locally
func (s *Service) changeLoop(events <-chan notifications.Event, unsubscribe func()) {
	defer s.wg.Done()
	defer unsubscribe()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Type != notifications.EventSessionChanged || event.SessionID == "" {
				continue
			}
			s.exportChanged(event.SessionID)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Service) exportChanged(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.store.GetSession(id)
	if err != nil {
		logger.Warn().Err(err).Str("sessionId", id).Msg("failed to load changed session")
		return
	}
	if session == nil {
		return
	}
	s.engine.ExportRecord(s.ctx, session)
}

// importChanged is called by the watcher for a document that settled on disk
func (s *Service) importChanged(path string) {
	if s.ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	outcome := s.engine.ImportFile(s.ctx, path)
	logger.Debug().Str("path", path).Str("outcome", outcome.String()).Msg("imported changed document")
}
