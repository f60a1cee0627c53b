package crontab

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/robfig/cron/v3"
)

// parser accepts standard five-field expressions and descriptors ("@daily").
// It is never applied by Builder.Add, which accepts any tokens.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Split separates a job into its schedule and command. The schedule is five
// fields, or a single "@descriptor" field. ok is false when no command follows.
func Split(j Job) (schedule, command string, ok bool) {
	fields := strings.Fields(j.Line())
	n := 5
	if len(fields) > 0 && strings.HasPrefix(fields[0], "@") {
		n = 1
	}
	if len(fields) <= n {
		return "", "", false
	}
	// Keep the command as written (inner spacing included). Separators are
	// whatever strings.Fields splits on.
	rest := j.Line()
	for i := 0; i < n; i++ {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		idx := strings.IndexFunc(rest, unicode.IsSpace)
		if idx < 0 {
			return "", "", false
		}
		rest = rest[idx:]
	}
	return strings.Join(fields[:n], " "), strings.TrimLeftFunc(rest, unicode.IsSpace), true
}

// Lint reports whether a job's schedule is a valid five-field cron expression.
func Lint(j Job) error {
	schedule, _, ok := Split(j)
	if !ok {
		return fmt.Errorf("expected a schedule and a command: %q", j.Line())
	}
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}
	return nil
}

// LintFields validates schedule tokens before a job is rendered.
func LintFields(f Fields) error {
	if _, err := parser.Parse(f.String()); err != nil {
		return fmt.Errorf("schedule %q: %w", f.String(), err)
	}
	return nil
}

// Next returns the first activation of j strictly after from.
func Next(j Job, from time.Time) (time.Time, error) {
	schedule, _, ok := Split(j)
	if !ok {
		return time.Time{}, fmt.Errorf("expected a schedule and a command: %q", j.Line())
	}
	s, err := parser.Parse(schedule)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule %q: %w", schedule, err)
	}
	return s.Next(from), nil
}
