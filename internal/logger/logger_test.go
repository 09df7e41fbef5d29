package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		l := New(Options{Level: tt.level, Writer: &bytes.Buffer{}})
		if l.GetLevel() != tt.want {
			t.Errorf("level %q: got %v, want %v", tt.level, l.GetLevel(), tt.want)
		}
	}
}

func TestNew_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(Options{Format: FormatJSON, Writer: buf})
	l.Info().Str("bank_id", "b1").Msg("Linked")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "Linked" || entry["bank_id"] != "b1" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNew_ConsoleFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(Options{Format: FormatConsole, Writer: buf})
	l.Info().Msg("hello")

	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected output to contain message, got %q", buf.String())
	}
	if json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Errorf("expected console output, got JSON %q", buf.String())
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(Options{Level: "warn", Format: FormatJSON, Writer: buf})
	l.Info().Msg("quiet")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered, got %q", buf.String())
	}
}

func TestSetup_InstallsGlobal(t *testing.T) {
	prev := log.Logger
	defer func() { log.Logger = prev }()

	buf := &bytes.Buffer{}
	Setup(Options{Format: FormatJSON, Writer: buf})
	log.Info().Msg("global")

	if !strings.Contains(buf.String(), "global") {
		t.Errorf("expected global logger to write to buffer, got %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(ctx)
	log.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	prev := log.Logger
	defer func() { log.Logger = prev }()

	buf := &bytes.Buffer{}
	log.Logger = NewWithWriter(buf)

	l := FromContext(context.Background())
	l.Info().Msg("fallback")
	if !strings.Contains(buf.String(), "fallback") {
		t.Errorf("expected fallback to global logger, got %q", buf.String())
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	l := WithFields(NewWithWriter(buf), map[string]interface{}{
		"job_id": "123",
		"action": "sync",
	})
	l.Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, `"job_id":"123"`) {
		t.Errorf("Expected output to contain job_id field, got: %s", output)
	}
	if !strings.Contains(output, `"action":"sync"`) {
		t.Errorf("Expected output to contain action field, got: %s", output)
	}
}
