package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewParsesLevel(t *testing.T) {
	if got := New("debug").GetLevel(); got != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %v", got)
	}
	if got := New("warn").GetLevel(); got != logrus.WarnLevel {
		t.Fatalf("expected warn level, got %v", got)
	}
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	if got := New("loud").GetLevel(); got != logrus.InfoLevel {
		t.Fatalf("expected info level, got %v", got)
	}
	if got := New("").GetLevel(); got != logrus.InfoLevel {
		t.Fatalf("expected info level, got %v", got)
	}
}

func TestNewWithOutputWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("info", &buf)
	logger.WithField("run_id", 7).Info("run stored")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json log line: %v", err)
	}
	if entry["msg"] != "run stored" {
		t.Fatalf("unexpected msg: %v", entry["msg"])
	}
	if entry["run_id"] != float64(7) {
		t.Fatalf("unexpected run_id: %v", entry["run_id"])
	}
	if entry["level"] != "info" {
		t.Fatalf("unexpected level: %v", entry["level"])
	}
}
