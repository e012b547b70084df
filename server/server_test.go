package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/sessionhub/remote"
	"github.com/xiaoyuanzhu-com/sessionhub/sessions"
	"github.com/xiaoyuanzhu-com/sessionhub/syncer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, syncDir string) *Server {
	t.Helper()
	cfg := &Config{
		Env:           "development",
		Version:       "test",
		DatabasePath:  filepath.Join(t.TempDir(), "test.sqlite"),
		SyncEnabled:   syncDir != "",
		SyncDir:       syncDir,
		RemoteEnabled: true,
		RemoteHost:    "127.0.0.1",
		RemotePort:    0,
	}

	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv
}

func TestServer_RemoteCompleteMutatesStoreAndExports(t *testing.T) {
	syncDir := t.TempDir()
	srv := newTestServer(t, syncDir)

	session, err := srv.Sessions().Create("Ship it", "/code/app", sessions.CreateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	srv.Tracker().Launch(session.ID)

	client := remote.NewClient("http://"+srv.RemoteAddr().String(), time.Second)
	if err := client.Complete(context.Background(), session.ID); err != nil {
		t.Fatalf("remote complete failed: %v", err)
	}

	stored, err := srv.Sessions().Get(session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.IsCompleted || stored.CompletedAt == nil {
		t.Errorf("session not completed: %+v", stored)
	}

	// The change is exported to the shared folder
	path := filepath.Join(syncDir, session.ID+syncer.DocumentExt)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if data, err := os.ReadFile(path); err == nil {
			doc, err := syncer.DecodeDocument(data)
			if err == nil && doc.IsCompleted {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("completed session was not exported")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestServer_RemoteCompleteUnknownSession(t *testing.T) {
	srv := newTestServer(t, "")

	client := remote.NewClient("http://"+srv.RemoteAddr().String(), time.Second)
	err := client.Complete(context.Background(), "nope")
	if !remote.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestServer_SyncDisabled(t *testing.T) {
	srv := newTestServer(t, "")

	if _, err := srv.Sync().SyncNow(context.Background()); err != syncer.ErrDisabled {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestServer_RemoteDisabled(t *testing.T) {
	cfg := &Config{
		Env:          "development",
		DatabasePath: filepath.Join(t.TempDir(), "test.sqlite"),
	}
	srv, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	defer srv.Shutdown(context.Background())

	if srv.RemoteAddr() != nil || srv.Router() != nil {
		t.Error("remote endpoint should not exist when disabled")
	}
}

type discardInput struct{}

func (discardInput) Send(context.Context, string) error { return nil }

func TestServer_RemoteReplyClearsStoredWaiting(t *testing.T) {
	srv := newTestServer(t, "")

	session, _ := srv.Sessions().Create("Needs input", "/code/app", sessions.CreateOptions{})
	srv.Sessions().SetWaiting(session.ID, true)
	srv.Tracker().Launch(session.ID, remote.WithInput(discardInput{}))
	srv.Tracker().SetWaiting(session.ID, true)

	client := remote.NewClient("http://"+srv.RemoteAddr().String(), time.Second)
	if err := client.Reply(context.Background(), session.ID, "continue"); err != nil {
		t.Fatalf("remote reply failed: %v", err)
	}

	stored, _ := srv.Sessions().Get(session.ID)
	if stored.IsWaitingForInput {
		t.Error("reply should clear the stored waiting flag")
	}
}
