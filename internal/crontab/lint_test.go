package crontab

import (
	"testing"
	"time"
)

func TestSplit(t *testing.T) {
	t.Parallel()
	tests := []struct {
		job      Job
		schedule string
		command  string
		ok       bool
	}{
		{"0 0 * * * echo hi\n", "0 0 * * *", "echo hi", true},
		{"*/5  1 * *  *   a   b\n", "*/5 1 * * *", "a   b", true},
		{"@daily /usr/bin/backup --full\n", "@daily", "/usr/bin/backup --full", true},
		{"0 0 * * *\n", "", "", false},
		{"@hourly\n", "", "", false},
		{"\n", "", "", false},
		{"@daily\u00a0backup\n", "@daily", "backup", true},
		{"* * * * *\rcmd\n", "* * * * *", "cmd", true},
		{"0\v0\f* * *\tx  y\n", "0 0 * * *", "x  y", true},
	}
	for _, tt := range tests {
		s, c, ok := Split(tt.job)
		if ok != tt.ok || s != tt.schedule || c != tt.command {
			t.Fatalf("Split(%q) = (%q, %q, %v), want (%q, %q, %v)", tt.job, s, c, ok, tt.schedule, tt.command, tt.ok)
		}
	}
}

func TestLint(t *testing.T) {
	t.Parallel()
	valid := []Job{"0 0 * * * a\n", "*/15 9-17 1,15 */3 1-5 b\n", "@weekly c\n", "0 12 * JAN-MAR MON d\n"}
	for _, j := range valid {
		if err := Lint(j); err != nil {
			t.Fatalf("Lint(%q) = %v, want nil", j, err)
		}
	}
	invalid := []Job{"99 * * * * a\n", "* 24 * * * b\n", "x * * * * c\n", "* * * *\n"}
	for _, j := range invalid {
		if err := Lint(j); err == nil {
			t.Fatalf("Lint(%q) = nil, want error", j)
		}
	}
}

func TestLintFields(t *testing.T) {
	t.Parallel()
	if err := LintFields(Fields{Minute: "0", Hour: "0"}); err != nil {
		t.Fatalf("LintFields = %v", err)
	}
	if err := LintFields(Fields{Minute: "60"}); err == nil {
		t.Fatal("LintFields(minute 60) = nil, want error")
	}
}

func TestNext(t *testing.T) {
	t.Parallel()
	from := time.Date(2025, 6, 20, 8, 59, 0, 0, time.UTC)
	got, err := Next("0 9 * * 1 report\n", from)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	want := time.Date(2025, 6, 23, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}
	if _, err := Next("@daily\u00a0backup\n", from); err != nil {
		t.Fatalf("Next(non-breaking space) = %v", err)
	}
	if _, err := Next("bogus\n", from); err == nil {
		t.Fatal("Next(bogus) = nil error")
	}
}
