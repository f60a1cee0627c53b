package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := newApp(context.Background())
	c.Writer = &out
	c.ErrWriter = &out
	err := c.Run(append([]string{"crontabber", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestCLIAddListRemove(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out, err := runCLI(t, "--dir", dir, "add", "-m", "0", "-H", "9", "-w", "1", "backup.sh", "--full")
	if err != nil {
		t.Fatalf("add: %v (%s)", err, out)
	}
	if !strings.Contains(out, "added: 0 9 * * 1 backup.sh --full") {
		t.Fatalf("add output = %q", out)
	}
	if _, err := runCLI(t, "--dir", dir, "add", "-m", "99", "broken"); err != nil {
		t.Fatalf("add broken: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "crons"))
	if err != nil {
		t.Fatalf("read backing file: %v", err)
	}
	if got, want := string(b), "0 9 * * 1 backup.sh --full\n99 * * * * broken\n"; got != want {
		t.Fatalf("backing file = %q, want %q", got, want)
	}

	out, err = runCLI(t, "--dir", dir, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "POS") {
		t.Fatalf("list output = %q", out)
	}
	if !strings.Contains(lines[2], " - ") {
		t.Fatalf("invalid job should have no next run: %q", lines[2])
	}

	out, err = runCLI(t, "--dir", dir, "lint")
	if err == nil || !strings.Contains(out, "1: ") {
		t.Fatalf("lint = %v (%q), want failure at 1", err, out)
	}

	if out, err = runCLI(t, "--dir", dir, "remove", "1"); err != nil || !strings.Contains(out, "removed: 99 * * * * broken") {
		t.Fatalf("remove = %v (%q)", err, out)
	}
	if _, err := runCLI(t, "--dir", dir, "remove", "x"); err == nil {
		t.Fatalf("remove x: err = nil")
	}
	if out, err = runCLI(t, "--dir", dir, "lint"); err != nil || strings.TrimSpace(out) != "ok" {
		t.Fatalf("lint after remove = %v (%q)", err, out)
	}
}

func TestCLIAddRequiresCommand(t *testing.T) {
	t.Parallel()

	if _, err := runCLI(t, "--dir", t.TempDir(), "add", "-m", "5"); err == nil {
		t.Fatalf("add without command: err = nil")
	}
}

func TestCLIHistoryNeedsStorage(t *testing.T) {
	t.Parallel()

	if _, err := runCLI(t, "--dir", t.TempDir(), "history"); err == nil {
		t.Fatalf("history without storage: err = nil")
	}
}

func TestAddFlagsDoNotShareScheduleFlags(t *testing.T) {
	t.Parallel()

	if len(scheduleFlags) != 5 || len(addFlags) != 6 {
		t.Fatalf("len(scheduleFlags) = %d, len(addFlags) = %d, want 5 and 6", len(scheduleFlags), len(addFlags))
	}
	if &addFlags[0] == &scheduleFlags[0] {
		t.Fatalf("addFlags shares its backing array with scheduleFlags")
	}
	if got := addFlags[5].GetName(); got != "app" {
		t.Fatalf("addFlags[5] = %q, want app", got)
	}
}
