package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want LogLevel
	}{
		{raw: "DEBUG", want: LogLevelDebug},
		{raw: "INFO", want: LogLevelInfo},
		{raw: "WARNING", want: LogLevelWarn},
		{raw: "warn", want: LogLevelWarn},
		{raw: "ERROR", want: LogLevelError},
		{raw: "CRITICAL", want: LogLevelError},
		{raw: "", want: LogLevelInfo},
		{raw: "verbose", want: LogLevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.raw); got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestNewLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, LogLevelInfo)

	logger.WithField("build_id", "webapp:1").Info("Build started")
	logger.Debug("suppressed")

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("log output is not a single JSON line: %v (%s)", err, buf.String())
	}

	if entry["message"] != "Build started" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["service"] != ServiceName {
		t.Errorf("service = %v, want %s", entry["service"], ServiceName)
	}
	if entry["build_id"] != "webapp:1" {
		t.Errorf("build_id = %v", entry["build_id"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("timestamp field missing")
	}
}

func TestNewLogger_Level(t *testing.T) {
	logger := newLogger(&bytes.Buffer{}, LogLevelWarn)
	if logger.GetLevel() != logrus.WarnLevel {
		t.Errorf("GetLevel() = %s, want warning", logger.GetLevel())
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "abc", want: "***"},
		{in: "abcd", want: "****"},
		{in: "secret-token", want: "********oken"},
	}

	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
