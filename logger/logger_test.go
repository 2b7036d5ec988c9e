package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected level info, got %s", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format console, got %s", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamp enabled")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{Level: "verbose", Format: "json", Output: "stderr"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid level")
	}

	cfg = Config{Level: "debug", Format: "console", Output: "stderr"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := FromZerolog(zerolog.New(&buf)).WithComponent("realtime")

	l.Info("connected", Fields(FieldClientID, "abc"))

	out := buf.String()
	if !strings.Contains(out, `"component":"realtime"`) {
		t.Errorf("missing component field: %s", out)
	}
	if !strings.Contains(out, `"client_id":"abc"`) {
		t.Errorf("missing client_id field: %s", out)
	}
}

func TestFields_IgnoresDanglingValue(t *testing.T) {
	m := Fields("a", 1, "b")
	if len(m) != 1 || m["a"] != 1 {
		t.Errorf("unexpected map: %v", m)
	}
}
