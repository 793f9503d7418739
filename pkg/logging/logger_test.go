// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_slogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(99), slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			if got := tt.level.slogLevel(); got != tt.want {
				t.Errorf("slogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_WriterIsJSONAndFiltered(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Service: "test", Writer: &buf})
	defer logger.Close()

	logger.Info("hidden")
	logger.Warn("shown", "file", "a.js")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["msg"] != "shown" || rec["service"] != "test" || rec["file"] != "a.js" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Service: "svc", LogDir: dir, Writer: &buf})
	logger.With("run_id", "r1").Info("to both")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "svc_*.log"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("log files = %v, err = %v", matches, err)
	}
	content, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), `"run_id":"r1"`) {
		t.Errorf("file log missing attribute: %s", content)
	}
	if !strings.Contains(buf.String(), "to both") {
		t.Errorf("writer missing record: %s", buf.String())
	}
}

func TestNew_Quiet(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Quiet: true, Writer: &buf})
	logger.Error("nothing")
	if buf.Len() != 0 {
		t.Errorf("quiet logger wrote %q", buf.String())
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandPath("~/logs"); got != filepath.Join(home, "logs") {
		t.Errorf("expandPath(~/logs) = %q", got)
	}
	if got := expandPath("/var/log"); got != "/var/log" {
		t.Errorf("expandPath(/var/log) = %q", got)
	}
}
