package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: WarnLevel, Output: &buf})
	defer Configure(Config{Level: InfoLevel, Pretty: true, Output: os.Stdout})

	Info().Msg("hidden")
	l := WithField("courseId", 7)
	l.Warn().Msg("visible")

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "visible" || entry["level"] != "warn" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry["courseId"] != float64(7) {
		t.Fatalf("expected courseId field, got %+v", entry)
	}
}

func TestFromSettings(t *testing.T) {
	cfg := FromSettings(" DEBUG ", "text")
	if cfg.Level != DebugLevel || !cfg.Pretty {
		t.Fatalf("unexpected config %+v", cfg)
	}

	Configure(Config{Level: "nonsense", Output: &bytes.Buffer{}})
	defer Configure(Config{Level: InfoLevel, Pretty: true, Output: os.Stdout})
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("unknown level should fall back to info, got %s", zerolog.GlobalLevel())
	}
}
