package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGetLogger_TagsModule(t *testing.T) {
	var buf bytes.Buffer
	Configure(false, "debug")
	SetOutput(&buf)
	defer Configure(true, "info")

	GetLogger("syncer").Info().Str("sessionId", "abc").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["module"] != "syncer" {
		t.Errorf("expected module=syncer, got %v", entry["module"])
	}
	if entry["sessionId"] != "abc" {
		t.Errorf("expected sessionId=abc, got %v", entry["sessionId"])
	}
}

func TestSetLevel_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(false, "info")
	SetOutput(&buf)
	defer Configure(true, "info")

	SetLevel("error")
	Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered, got %q", buf.String())
	}

	Error().Msg("kept")
	if buf.Len() == 0 {
		t.Error("expected error to be logged")
	}
}

func TestLevelForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   zerolog.Level
	}{
		{200, zerolog.InfoLevel},
		{404, zerolog.WarnLevel},
		{500, zerolog.ErrorLevel},
		{501, zerolog.WarnLevel},
		{503, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := levelForStatus(tt.status); got != tt.want {
			t.Errorf("levelForStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
