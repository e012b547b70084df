package remote

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xiaoyuanzhu-com/sessionhub/log"
)

var logger = log.GetLogger("Remote")

// Config holds the listener settings
type Config struct {
	Host string
	Port int
}

// Addr returns the listen address
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Server accepts connections and answers exactly one request on each.
// Every connection gets its own goroutine; the handler is the only shared
// state. There is no per-request timeout: a stalled client holds its
// goroutine until it disconnects or Shutdown force-closes it.
type Server struct {
	cfg     Config
	handler http.Handler

	listener net.Listener
	closing  atomic.Bool

	// cancelled on Shutdown; parent of every request context
	baseCtx context.Context
	cancel  context.CancelFunc

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// NewServer creates a server that dispatches parsed requests to handler
func NewServer(cfg Config, handler http.Handler) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:     cfg,
		handler: handler,
		baseCtx: ctx,
		cancel:  cancel,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Start binds the listener and begins accepting in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	s.Serve(ln)
	return nil
}

// Serve begins accepting on an existing listener in the background
func (s *Server) Serve(ln net.Listener) {
	s.listener = ln
	s.wg.Add(1)
	go s.acceptLoop()

	logger.Info().Str("addr", ln.Addr().String()).Msg("remote endpoint listening")
}

// Addr returns the bound address, or nil before Start
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting and waits for in-flight connections. When ctx
// expires first, remaining connections are closed forcibly.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}

	if s.listener != nil {
		s.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		logger.Info().Msg("remote endpoint stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		s.mu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
		<-done
		logger.Warn().Msg("remote endpoint stopped with connections force-closed")
		return ctx.Err()
	}
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	var backoff time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closing.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if backoff == 0 {
					backoff = 5 * time.Millisecond
				} else {
					backoff = min(backoff*2, time.Second)
				}
				logger.Warn().Err(err).Dur("retryIn", backoff).Msg("accept error")
				time.Sleep(backoff)
				continue
			}
			logger.Error().Err(err).Msg("accept failed, remote endpoint no longer listening")
			return
		}
		backoff = 0

		s.track(conn)
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// handleConn reads one request, routes it, writes one response and closes
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	req, err := http.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		if errors.Is(err, io.EOF) {
			// Connected and hung up without sending anything
			return
		}
		logger.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("malformed request")
		s.writeError(conn, http.StatusBadRequest, ErrCodeBadRequest, "malformed request: "+err.Error())
		return
	}

	req.RemoteAddr = conn.RemoteAddr().String()
	req = req.WithContext(s.baseCtx)

	rec := newResponseBuffer()
	s.handler.ServeHTTP(rec, req)

	if err := writeResponse(conn, rec.statusCode(), rec.header, rec.body.Bytes()); err != nil {
		logger.Debug().Err(err).Str("path", req.URL.Path).Msg("failed to write response")
	}
}

func (s *Server) writeError(conn net.Conn, status int, code ErrorCode, message string) {
	body, _ := json.Marshal(ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
	if err := writeResponse(conn, status, make(http.Header), body); err != nil {
		logger.Debug().Err(err).Msg("failed to write error response")
	}
}

// writeResponse serializes a complete HTTP/1.1 response with an explicit
// Content-Length and Connection: close
func writeResponse(w io.Writer, status int, header http.Header, body []byte) error {
	if len(body) == 0 {
		body = []byte("{}")
		header.Del("Content-Encoding")
	}
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/json; charset=utf-8")
	}
	setCORSHeaders(header)

	resp := &http.Response{
		StatusCode:    status,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Close:         true,
	}
	return resp.Write(w)
}

// responseBuffer collects a handler's output so it can be written with an
// exact Content-Length
type responseBuffer struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{header: make(http.Header)}
}

func (b *responseBuffer) Header() http.Header {
	return b.header
}

func (b *responseBuffer) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

// Flush is a no-op; the whole response is written at the end
func (b *responseBuffer) Flush() {}

func (b *responseBuffer) statusCode() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}
