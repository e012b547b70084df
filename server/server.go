package server

import (
	"context"
	"fmt"
	"net"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/sessionhub/db"
	"github.com/xiaoyuanzhu-com/sessionhub/log"
	"github.com/xiaoyuanzhu-com/sessionhub/notifications"
	"github.com/xiaoyuanzhu-com/sessionhub/remote"
	"github.com/xiaoyuanzhu-com/sessionhub/sessions"
	"github.com/xiaoyuanzhu-com/sessionhub/syncer"
)

// Server owns and coordinates all application components
type Server struct {
	cfg *Config

	// Components (owned by server)
	database     *db.DB
	notifService *notifications.Service
	sessions     *sessions.Service
	syncEngine   *syncer.Engine
	syncService  *syncer.Service
	tracker      *remote.Tracker

	// Remote endpoint (nil when disabled)
	router *gin.Engine
	remote *remote.Server
}

// New creates a new server with all components initialized
func New(cfg *Config) (*Server, error) {
	s := &Server{cfg: cfg}

	// 1. Open database
	log.Info().Str("path", cfg.DatabasePath).Msg("initializing database")
	database, err := db.Open(cfg.ToDBConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s.database = database

	// 2. Create notifications service
	s.notifService = notifications.NewService()

	// 3. Create session service
	s.sessions = sessions.NewService(s.database, s.notifService)

	// 4. Create sync engine and scheduler
	s.syncEngine = syncer.NewEngine(cfg.ToSyncConfig(), s.database)
	s.syncService = syncer.NewService(cfg.ToSyncServiceConfig(), s.syncEngine, s.database, s.notifService)

	// 5. Launch tracker is filled by the process launcher
	s.tracker = remote.NewTracker()

	// 6. Remote endpoint
	if cfg.RemoteEnabled {
		if !cfg.IsDevelopment() {
			gin.SetMode(gin.ReleaseMode)
		}
		handlers := remote.NewHandlers(s.tracker, s.sessions, cfg.Version, cfg.RemoteAddress)
		s.router = remote.NewRouter(handlers)
		s.remote = remote.NewServer(cfg.ToRemoteConfig(), s.router)
	}

	log.Info().Msg("server initialized successfully")
	return s, nil
}

// Start starts background services and the remote endpoint
func (s *Server) Start() error {
	log.Info().Msg("starting server components")

	if err := s.syncService.Start(); err != nil {
		return fmt.Errorf("failed to start sync service: %w", err)
	}

	if s.remote != nil {
		if err := s.remote.Start(); err != nil {
			return fmt.Errorf("failed to start remote endpoint: %w", err)
		}
		if tcpAddr, ok := s.remote.Addr().(*net.TCPAddr); ok {
			logNetworkAddresses(tcpAddr.Port)
		}
	}

	log.Info().
		Str("env", s.cfg.Env).
		Bool("sync", s.syncEngine.Enabled()).
		Bool("remote", s.remote != nil).
		Msg("server started")
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down server")

	// 1. Stop accepting remote requests and drain in-flight ones
	if s.remote != nil {
		if err := s.remote.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("remote endpoint shutdown error")
		}
	}

	// 2. Stop sync loops before the store goes away
	s.syncService.Stop()

	// 3. Close subscribers
	s.notifService.Shutdown()

	// Close database last
	if s.database != nil {
		if err := s.database.Close(); err != nil {
			log.Error().Err(err).Msg("database close error")
			return err
		}
	}

	log.Info().Msg("server shutdown complete")
	return nil
}

// Component accessors
func (s *Server) DB() *db.DB                            { return s.database }
func (s *Server) Sessions() *sessions.Service           { return s.sessions }
func (s *Server) Sync() *syncer.Service                 { return s.syncService }
func (s *Server) Tracker() *remote.Tracker              { return s.tracker }
func (s *Server) Notifications() *notifications.Service { return s.notifService }
func (s *Server) Router() *gin.Engine                   { return s.router }

// RemoteAddr returns the bound remote endpoint address, or nil when disabled
func (s *Server) RemoteAddr() net.Addr {
	if s.remote == nil {
		return nil
	}
	return s.remote.Addr()
}

// logNetworkAddresses logs the URLs the remote endpoint is reachable on
func logNetworkAddresses(port int) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok {
				if ip4 := ipnet.IP.To4(); ip4 != nil {
					log.Info().
						Str("interface", iface.Name).
						Str("url", fmt.Sprintf("http://%s:%d", ip4.String(), port)).
						Msg("remote endpoint reachable")
				}
			}
		}
	}
}
