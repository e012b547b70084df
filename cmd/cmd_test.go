package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xiaoyuanzhu-com/sessionhub/db"
	"github.com/xiaoyuanzhu-com/sessionhub/syncer"
)

func setupEnv(t *testing.T, syncDir string) {
	t.Helper()
	t.Setenv("SESSIONHUB_CONFIG", "")
	t.Setenv("SESSIONHUB_DB_PATH", "")
	t.Setenv("SESSIONHUB_DATA_DIR", t.TempDir())
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "error")
	if syncDir != "" {
		t.Setenv("SYNC_ENABLED", "true")
		t.Setenv("SYNC_DIR", syncDir)
	} else {
		t.Setenv("SYNC_ENABLED", "false")
		t.Setenv("SYNC_DIR", "")
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSessionCommands(t *testing.T) {
	setupEnv(t, "")

	out, err := run(t, "--json", "session", "create", "Write docs", "--path", "/code/docs")
	if err != nil {
		t.Fatalf("create failed: %v\n%s", err, out)
	}
	var created db.Session
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("create output is not JSON: %s", out)
	}

	if _, err := run(t, "session", "waiting", created.ID); err != nil {
		t.Fatalf("waiting failed: %v", err)
	}

	out, _ = run(t, "--json", "session", "list", "--waiting")
	var waiting []db.Session
	json.Unmarshal([]byte(out), &waiting)
	if len(waiting) != 1 || waiting[0].ID != created.ID {
		t.Errorf("expected the session to be waiting, got %s", out)
	}

	if _, err := run(t, "session", "complete", created.ID); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	out, _ = run(t, "--json", "session", "list", "--active")
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("expected no active sessions, got %s", out)
	}

	out, _ = run(t, "session", "list")
	if !strings.Contains(out, "completed") || !strings.Contains(out, "Write docs") {
		t.Errorf("table output missing session: %s", out)
	}

	if _, err := run(t, "session", "delete", created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := run(t, "session", "delete", created.ID); err == nil {
		t.Error("deleting twice should fail")
	}
}

func TestProjectCommands(t *testing.T) {
	setupEnv(t, "")

	out, err := run(t, "--json", "project", "create", "Shop", "/code/shop", "--category", "client")
	if err != nil {
		t.Fatalf("project create failed: %v\n%s", err, out)
	}
	var project db.Project
	json.Unmarshal([]byte(out), &project)

	out, err = run(t, "--json", "session", "create", "Checkout bug", "--project", project.ID)
	if err != nil {
		t.Fatalf("session create failed: %v", err)
	}
	var session db.Session
	json.Unmarshal([]byte(out), &session)
	if session.ProjectPath != "/code/shop" {
		t.Errorf("session should inherit project path, got %q", session.ProjectPath)
	}

	if _, err := run(t, "project", "create", "Bad", "/x", "--category", "nope"); err == nil {
		t.Error("invalid category should fail")
	}

	out, _ = run(t, "project", "list")
	if !strings.Contains(out, "Shop") || !strings.Contains(out, "client") {
		t.Errorf("unexpected project list: %s", out)
	}

	if _, err := run(t, "project", "delete", project.ID); err != nil {
		t.Fatalf("project delete failed: %v", err)
	}
}

func TestSyncCommands(t *testing.T) {
	syncDir := t.TempDir()
	setupEnv(t, syncDir)

	out, err := run(t, "--json", "session", "create", "Shared work", "--path", "/x")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	var session db.Session
	json.Unmarshal([]byte(out), &session)

	// Mutations export right away
	if _, err := os.Stat(filepath.Join(syncDir, session.ID+syncer.DocumentExt)); err != nil {
		t.Errorf("session not exported on create: %v", err)
	}

	out, err = run(t, "--json", "sync", "export")
	if err != nil {
		t.Fatalf("sync export failed: %v", err)
	}
	var exported syncer.ExportResult
	json.Unmarshal([]byte(out), &exported)
	if exported.Exported != 1 {
		t.Errorf("unexpected export result %s", out)
	}

	out, err = run(t, "--json", "sync", "import")
	if err != nil {
		t.Fatalf("sync import failed: %v", err)
	}
	var imported syncer.ImportResult
	json.Unmarshal([]byte(out), &imported)
	if imported.Skipped != 1 || imported.Total() != 1 {
		t.Errorf("unexpected import result %s", out)
	}
}

func TestSyncCommands_Disabled(t *testing.T) {
	setupEnv(t, "")

	_, err := run(t, "sync", "import")
	if !errors.Is(err, syncer.ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}
