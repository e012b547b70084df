package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_RoundTripAgainstServer(t *testing.T) {
	input := &fakeInput{}
	sessionStore := &fakeSessions{known: map[string]bool{"s1": true}}
	tracker := NewTracker()
	tracker.Launch("s1", WithInput(input), WithTranscript(fakeTranscript{content: "log"}))
	tracker.SetWaiting("s1", true)

	srv := startTestServer(t, NewHandlers(tracker, sessionStore, "1.0.0", ""))
	client := NewClient("http://"+srv.Addr().String()+"/", 0)
	ctx := context.Background()

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Launched != 1 || status.Waiting != 1 || status.Version != "1.0.0" {
		t.Errorf("unexpected status %+v", status)
	}

	list, err := client.Sessions(ctx)
	if err != nil || len(list) != 1 || list[0].ID != "s1" {
		t.Errorf("unexpected sessions %+v, err %v", list, err)
	}

	term, err := client.Terminal(ctx, "s1")
	if err != nil || term.Content != "log" {
		t.Errorf("unexpected terminal %+v, err %v", term, err)
	}

	if err := client.Reply(ctx, "s1", "go ahead"); err != nil {
		t.Errorf("Reply failed: %v", err)
	}
	if len(input.messages) != 1 || input.messages[0] != "go ahead" {
		t.Errorf("reply not delivered: %v", input.messages)
	}

	if err := client.Complete(ctx, "s1"); err != nil {
		t.Errorf("Complete failed: %v", err)
	}
}

func TestClient_StructuredErrors(t *testing.T) {
	srv := startTestServer(t, NewHandlers(NewTracker(), nil, "dev", ""))
	client := NewClient("http://"+srv.Addr().String(), time.Second)
	ctx := context.Background()

	err := client.Reply(ctx, "missing", "hi")
	if !IsNotAvailable(err) {
		t.Errorf("expected not-available error, got %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotImplemented {
		t.Errorf("expected *APIError with 501, got %#v", err)
	}

	err = client.Complete(ctx, "s1")
	if !IsNotAvailable(err) {
		t.Errorf("complete without store should be not-available, got %v", err)
	}
}

func TestClient_NonJSONError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, time.Second).Status(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Code != "" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	client := NewClient(ts.URL, 50*time.Millisecond)

	start := time.Now()
	_, err := client.Status(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("client did not honour its timeout, took %v", elapsed)
	}
}

func TestSessionPath_EscapesID(t *testing.T) {
	if got := sessionPath("a b/c", "reply"); got != "/api/sessions/a%20b%2Fc/reply" {
		t.Errorf("unexpected path %s", got)
	}
}
