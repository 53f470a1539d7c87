package util

import (
	"bytes"
	"strings"
	"testing"
)

func TestHelpers(t *testing.T) {
	if BoolToInt(true) != 1 || BoolToInt(false) != 0 {
		t.Fatalf("BoolToInt mismatch")
	}
	if Deref[string](nil) != "" {
		t.Fatalf("Deref(nil) should be zero value")
	}
	if *Ptr(5) != 5 {
		t.Fatalf("Ptr mismatch")
	}
	if Clamp(150, 0, 100) != 100 || Clamp(-3, 0, 100) != 0 || Clamp(40, 0, 100) != 40 {
		t.Fatalf("Clamp mismatch")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG").String() != "DEBUG" {
		t.Fatalf("expected debug level")
	}
	if ParseLevel("nonsense").String() != "INFO" {
		t.Fatalf("expected info fallback")
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "debug", "json").Debug("office sync started", "since", "2025-03-01T000000Z")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"msg":"office sync started"`) {
		t.Fatalf("expected JSON record, got %q", buf.String())
	}

	buf.Reset()
	newLogger(&buf, "warn", "text").Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level")
	}
}
