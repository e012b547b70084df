package syncer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xiaoyuanzhu-com/sessionhub/db"
	"github.com/xiaoyuanzhu-com/sessionhub/notifications"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestService_SyncNowDisabled(t *testing.T) {
	store := openTestStore(t)
	svc := NewService(ServiceConfig{}, NewEngine(Config{}, store), store, nil)

	if err := svc.Start(); err != nil {
		t.Fatalf("Start on disabled sync should succeed, got %v", err)
	}
	defer svc.Stop()

	if _, err := svc.SyncNow(context.Background()); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestService_SyncNowRejectsOverlap(t *testing.T) {
	dir := t.TempDir()
	engine, store := newTestEngine(t, dir)
	svc := NewService(ServiceConfig{}, engine, store, nil)

	svc.mu.Lock()
	_, err := svc.SyncNow(context.Background())
	svc.mu.Unlock()

	if !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("expected ErrSyncInProgress, got %v", err)
	}
}

func TestService_SyncNowImportsThenExports(t *testing.T) {
	dir := t.TempDir()
	engine, store := newTestEngine(t, dir)
	notif := notifications.NewService()
	defer notif.Shutdown()

	events, unsubscribe := notif.Subscribe()
	defer unsubscribe()

	store.CreateSession(testSession("local", 1_000))
	writeDoc(t, dir, testSession("remote", 2_000))

	svc := NewService(ServiceConfig{}, engine, store, notif)
	result, err := svc.SyncNow(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if result.Import.Imported != 1 || result.Export.Exported != 2 {
		t.Errorf("unexpected pass result %+v", result)
	}
	if svc.LastResult() != result {
		t.Error("LastResult should return the latest pass")
	}
	if _, err := os.Stat(filepath.Join(dir, "local.json")); err != nil {
		t.Errorf("local session not exported: %v", err)
	}

	select {
	case event := <-events:
		if event.Type != notifications.EventSyncCompleted {
			t.Errorf("expected sync-completed, got %s", event.Type)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for sync-completed event")
	}
}

func TestService_ExportsOnSessionChange(t *testing.T) {
	dir := t.TempDir()
	engine, store := newTestEngine(t, dir)
	notif := notifications.NewService()
	defer notif.Shutdown()

	svc := NewService(ServiceConfig{}, engine, store, notif)
	if err := svc.Start(); err != nil {
		t.Fatal(err)
	}
	defer svc.Stop()

	// Let the initial pass finish on an empty store
	waitFor(t, time.Second, func() bool { return svc.LastResult() != nil })

	store.CreateSession(testSession("fresh", 5_000))
	notif.NotifySessionChanged("fresh", "created")

	waitFor(t, time.Second, func() bool {
		_, err := os.Stat(filepath.Join(dir, "fresh.json"))
		return err == nil
	})
}

func TestService_WatchImportsNewDocuments(t *testing.T) {
	dir := t.TempDir()
	engine, store := newTestEngine(t, dir)

	svc := NewService(ServiceConfig{Watch: true, DebounceDelay: 20 * time.Millisecond}, engine, store, nil)
	if err := svc.Start(); err != nil {
		t.Fatal(err)
	}
	defer svc.Stop()

	waitFor(t, time.Second, func() bool { return svc.LastResult() != nil })

	// Simulate a sibling device writing atomically
	data, _ := NewDocument(testSession("sibling", 7_000)).Encode()
	if err := writeFileAtomic(filepath.Join(dir, "sibling.json"), data); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, func() bool {
		s, _ := store.GetSession("sibling")
		return s != nil
	})
}

func TestService_PeriodicPass(t *testing.T) {
	dir := t.TempDir()
	engine, store := newTestEngine(t, dir)

	svc := NewService(ServiceConfig{Interval: 30 * time.Millisecond}, engine, store, nil)
	if err := svc.Start(); err != nil {
		t.Fatal(err)
	}
	defer svc.Stop()

	waitFor(t, time.Second, func() bool { return svc.LastResult() != nil })

	writeDoc(t, dir, testSession("later", 1_000))

	waitFor(t, time.Second, func() bool {
		s, _ := store.GetSession("later")
		return s != nil
	})
}

func TestService_StopIsIdempotent(t *testing.T) {
	engine, store := newTestEngine(t, t.TempDir())
	svc := NewService(ServiceConfig{Watch: true}, engine, store, nil)
	if err := svc.Start(); err != nil {
		t.Fatal(err)
	}
	svc.Stop()
	svc.Stop()
}

var _ Store = (*db.DB)(nil)
