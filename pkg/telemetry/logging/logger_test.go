package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("cleanup finished", "deleted", 42)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "cleanup finished" {
		t.Errorf("msg = %v, want cleanup finished", entry["msg"])
	}
	if entry["deleted"] != float64(42) {
		t.Errorf("deleted = %v, want 42", entry["deleted"])
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Debug("sweep starting", "category", "temporary_uploads")

	out := buf.String()
	if !strings.Contains(out, "sweep starting") {
		t.Errorf("output missing message: %s", out)
	}
	if !strings.Contains(out, "category=temporary_uploads") {
		t.Errorf("output missing attribute: %s", out)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("should be dropped")
	if buf.Len() != 0 {
		t.Errorf("info logged despite warn level: %s", buf.String())
	}

	logger.Warn("should appear")
	if buf.Len() == 0 {
		t.Error("warn message was dropped")
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(Config{Level: "verbose"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNew_InvalidFormat(t *testing.T) {
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNew_Defaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Writer: &buf})
	if err != nil {
		t.Fatalf("New with empty config failed: %v", err)
	}

	logger.Debug("hidden at default level")
	if buf.Len() != 0 {
		t.Error("debug logged at default info level")
	}

	logger.Info("visible")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("default format is not JSON: %v", err)
	}
}

func TestRedaction_SensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", RedactPII: true, Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("login recorded",
		"ip_address", "203.0.113.9",
		"user_agent", "Mozilla/5.0",
		"board_id", int64(17),
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["ip_address"] != redactedValue {
		t.Errorf("ip_address = %v, want %s", entry["ip_address"], redactedValue)
	}
	if entry["user_agent"] != redactedValue {
		t.Errorf("user_agent = %v, want %s", entry["user_agent"], redactedValue)
	}
	if entry["board_id"] != float64(17) {
		t.Errorf("board_id altered: %v", entry["board_id"])
	}
}

func TestRedaction_EmbeddedIPs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", RedactPII: true, Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("probe", "detail", "request from 198.51.100.7 rejected")

	out := buf.String()
	if strings.Contains(out, "198.51.100.7") {
		t.Errorf("raw IP leaked: %s", out)
	}
	if !strings.Contains(out, "*.*.*.*") {
		t.Errorf("masked IP missing: %s", out)
	}
}

func TestRedaction_OffByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("login recorded", "ip_address", "203.0.113.9")
	if !strings.Contains(buf.String(), "203.0.113.9") {
		t.Error("redaction applied without RedactPII")
	}
}

func TestSetup_InstallsDefault(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	if _, err := Setup(Config{Format: "json", Writer: &buf}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	slog.Default().With("component", "scheduler").Info("wired")
	if !strings.Contains(buf.String(), `"component":"scheduler"`) {
		t.Errorf("default logger not installed: %s", buf.String())
	}
}
