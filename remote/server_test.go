package remote

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"
)

func startTestServer(t *testing.T, h *Handlers) *Server {
	t.Helper()
	srv := NewServer(Config{Host: "127.0.0.1", Port: 0}, NewRouter(h))
	if err := srv.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv
}

// rawExchange writes raw bytes and reads back one response
func rawExchange(t *testing.T, addr, raw string) (*http.Response, []byte) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	if _, err := io.WriteString(conn, raw); err != nil {
		t.Fatal(err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func TestServer_StatusOverLoopback(t *testing.T) {
	srv := startTestServer(t, NewHandlers(NewTracker(), nil, "dev", ""))

	resp, body := rawExchange(t, srv.Addr().String(), "GET /api/status HTTP/1.1\r\nHost: x\r\n\r\n")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("unexpected content type %q", got)
	}
	if got := resp.Header.Get("Content-Length"); got != strconv.Itoa(len(body)) {
		t.Errorf("Content-Length %q does not match body length %d", got, len(body))
	}
	if !resp.Close {
		t.Error("expected Connection: close")
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}

	var status StatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatal(err)
	}
	if status.Waiting != 0 || status.Launched != 0 {
		t.Errorf("unexpected counts %+v", status)
	}
}

func TestServer_MalformedRequest(t *testing.T) {
	srv := startTestServer(t, NewHandlers(NewTracker(), nil, "dev", ""))

	resp, body := rawExchange(t, srv.Addr().String(), "THIS IS NOT HTTP\r\n\r\n")

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		t.Fatalf("400 body is not JSON: %s", body)
	}
	if errResp.Error.Code != ErrCodeBadRequest || !strings.Contains(errResp.Error.Message, "malformed") {
		t.Errorf("unexpected error %+v", errResp.Error)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header on 400")
	}
}

func TestServer_OneRequestPerConnection(t *testing.T) {
	srv := startTestServer(t, NewHandlers(NewTracker(), nil, "dev", ""))

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	// Two pipelined requests; only the first is answered
	io.WriteString(conn, "GET /api/status HTTP/1.1\r\nHost: x\r\n\r\nGET /api/sessions HTTP/1.1\r\nHost: x\r\n\r\n")

	reader := bufio.NewReader(conn)
	resp, err := http.ReadResponse(reader, nil)
	if err != nil {
		t.Fatal(err)
	}
	io.ReadAll(resp.Body)
	resp.Body.Close()

	if _, err := http.ReadResponse(reader, nil); err == nil {
		t.Error("expected connection to close after the first response")
	}
}

func TestServer_ReplyNotAvailableOverWire(t *testing.T) {
	srv := startTestServer(t, NewHandlers(NewTracker(), nil, "dev", ""))

	body := `{"message":"hello"}`
	raw := "POST /api/sessions/nope/reply HTTP/1.1\r\nHost: x\r\nContent-Type: application/json\r\nContent-Length: " +
		strconv.Itoa(len(body)) + "\r\n\r\n" + body

	resp, data := rawExchange(t, srv.Addr().String(), raw)
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", resp.StatusCode)
	}
	var errResp ErrorResponse
	if err := json.Unmarshal(data, &errResp); err != nil || errResp.Error.Code != ErrCodeNotAvailable {
		t.Errorf("expected NOT_AVAILABLE JSON, got %s", data)
	}
}

func TestServer_OptionsAsterisk(t *testing.T) {
	srv := startTestServer(t, NewHandlers(NewTracker(), nil, "dev", ""))

	resp, body := rawExchange(t, srv.Addr().String(), "OPTIONS * HTTP/1.1\r\nHost: x\r\n\r\n")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if strings.TrimSpace(string(body)) != "{}" {
		t.Errorf("expected {}, got %s", body)
	}
}

func TestServer_ShutdownForceClosesStalledConnections(t *testing.T) {
	srv := NewServer(Config{Host: "127.0.0.1", Port: 0}, NewRouter(NewHandlers(NewTracker(), nil, "dev", "")))
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}

	// A client that connects and never sends a full request
	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	io.WriteString(conn, "GET /api/status HTTP/1.1\r\n")
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = srv.Shutdown(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("shutdown did not force-close the stalled connection")
	}

	if _, err := net.DialTimeout("tcp", srv.Addr().String(), 200*time.Millisecond); err == nil {
		t.Error("listener should be closed after shutdown")
	}
}

func TestServer_ConcurrentConnections(t *testing.T) {
	tracker := NewTracker()
	tracker.Launch("a")
	srv := startTestServer(t, NewHandlers(tracker, nil, "dev", ""))

	// A stalled client must not block others
	stalled, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer stalled.Close()

	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			client := NewClient("http://"+srv.Addr().String(), time.Second)
			_, err := client.Sessions(context.Background())
			errs <- err
		}()
	}
	for i := 0; i < 10; i++ {
		if err := <-errs; err != nil {
			t.Errorf("request failed: %v", err)
		}
	}
}
