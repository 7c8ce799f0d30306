package command

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub")
	}
	path := filepath.Join(t.TempDir(), "stub")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestLocalRunForwardsLines(t *testing.T) {
	stub := writeScript(t, "echo out\necho err >&2\npwd\n")
	dir := t.TempDir()
	var lines []string
	if err := (Local{}).Run(context.Background(), dir, stub, nil, func(line string) {
		lines = append(lines, line)
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	joined := strings.Join(lines, "|")
	for _, want := range []string{"out", "err", filepath.Base(dir)} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in output %q", want, joined)
		}
	}
}

func TestLocalRunExitErrorCarriesOutput(t *testing.T) {
	stub := writeScript(t, "echo 'voice not found' >&2\nexit 3\n")
	err := (Local{}).Run(context.Background(), "", stub, nil, nil)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if !strings.Contains(exitErr.Error(), "voice not found") {
		t.Fatalf("expected output in error, got %q", exitErr.Error())
	}
}

func TestLocalRunTimeout(t *testing.T) {
	stub := writeScript(t, "exec sleep 5\n")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := (Local{}).Run(ctx, "", stub, nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestLocalRunMissingBinary(t *testing.T) {
	err := (Local{}).Run(context.Background(), "", "definitely-not-a-real-binary", nil, nil)
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
