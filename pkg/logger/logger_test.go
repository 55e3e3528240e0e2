package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer Silence()

	SetLevel(WARN)
	defer SetLevel(INFO)

	Infof("hidden %d", 1)
	Warnf("shown %d", 2)
	Error("failed", nil)

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("info message written at WARN level: %q", got)
	}
	if !strings.Contains(got, "WARN ") || !strings.Contains(got, "shown 2") {
		t.Errorf("expected warn line, got %q", got)
	}
	if !strings.Contains(got, "ERROR") || !strings.Contains(got, "logger_test.go") {
		t.Errorf("expected error line with source, got %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DEBUG, false},
		{"INFO", INFO, false},
		{"", INFO, false},
		{"warning", WARN, false},
		{"error", ERROR, false},
		{"loud", INFO, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) err = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
