package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"procmux/internal/config"
)

func TestCheckPrintsStartupOrder(t *testing.T) {
	t.Setenv("PROCMUX_LOG_FILE", "")
	buf := &bytes.Buffer{}
	cmdCheck.SetOut(buf)
	t.Cleanup(func() { cmdCheck.SetOut(nil) })

	err := cmdCheck.RunE(cmdCheck, []string{"api@db=echo api", "db=echo db"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	if lines[0] != " 1. DB" || lines[1] != " 2. API after DB" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestCheckRejectsEmptyConfig(t *testing.T) {
	err := cmdCheck.RunE(cmdCheck, nil)
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected invalid configuration, got %v", err)
	}
}

func TestInitWritesStarterOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "procmux.yaml")
	buf := &bytes.Buffer{}
	cmdInit.SetOut(buf)
	t.Cleanup(func() { cmdInit.SetOut(nil) })

	if err := cmdInit.RunE(cmdInit, []string{path}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("starter not written: %v", err)
	}
	if err := cmdInit.RunE(cmdInit, []string{path}); err == nil {
		t.Fatalf("expected second init to refuse overwriting")
	}
}
