package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(INFO)
	})
	return &buf
}

func TestLogEmitsJSONWithFields(t *testing.T) {
	buf := capture(t)

	Info("extraction complete", "season", "2023-24", "rows", 450)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", entry["level"])
	}
	if entry["msg"] != "extraction complete" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["season"] != "2023-24" {
		t.Errorf("season = %v", entry["season"])
	}
	if entry["rows"] != float64(450) {
		t.Errorf("rows = %v, want 450", entry["rows"])
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)
	SetLevel(WARN)

	Debug("hidden")
	Info("hidden too")
	Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("low-level entries leaked: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("WARN entry missing: %s", out)
	}
}
