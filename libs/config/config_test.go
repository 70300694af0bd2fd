package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	if err := os.WriteFile(file, []byte("TURNOS_TEST_PORT=9100\nTURNOS_TEST_NAME=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("TURNOS_TEST_NAME", "from-env")

	src := Load(file)
	if got := src.String("TURNOS_TEST_NAME", ""); got != "from-env" {
		t.Fatalf("expected env value, got %q", got)
	}
	port, err := src.Port("TURNOS_TEST_PORT", "8080")
	if err != nil || port != "9100" {
		t.Fatalf("expected port from file, got %q err=%v", port, err)
	}
}

func TestFallbacksAndParsing(t *testing.T) {
	src := Load("")
	if got := src.String("TURNOS_TEST_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if _, err := src.RequiredString("TURNOS_TEST_MISSING"); err == nil {
		t.Fatal("expected error for missing required key")
	}

	t.Setenv("TURNOS_TEST_BAD_PORT", "99999")
	if _, err := src.Port("TURNOS_TEST_BAD_PORT", "8080"); err == nil {
		t.Fatal("expected error for out of range port")
	}

	t.Setenv("TURNOS_TEST_TIMEOUT", "750ms")
	d, err := src.Duration("TURNOS_TEST_TIMEOUT", time.Second)
	if err != nil || d != 750*time.Millisecond {
		t.Fatalf("unexpected duration %v err=%v", d, err)
	}

	t.Setenv("TURNOS_TEST_ORIGINS", " http://a.test , ,http://b.test")
	list := src.List("TURNOS_TEST_ORIGINS", "")
	if len(list) != 2 || list[0] != "http://a.test" || list[1] != "http://b.test" {
		t.Fatalf("unexpected list %v", list)
	}

	t.Setenv("TURNOS_TEST_FLAG", "true")
	if !src.Bool("TURNOS_TEST_FLAG", false) {
		t.Fatal("expected flag to be true")
	}
}
