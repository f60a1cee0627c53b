package logx

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/rs/zerolog"
)

// journalSender is the seam between the sink and the systemd journal socket.
type journalSender interface {
	Available() bool
	Send(msg string, pri journal.Priority, vars map[string]string) error
}

type systemJournal struct{}

func (systemJournal) Available() bool { return journal.Enabled() }

func (systemJournal) Send(msg string, pri journal.Priority, vars map[string]string) error {
	return journal.Send(msg, pri, vars)
}

// ---- Journal writer (zerolog sink) ----

type journalWriter struct{ svc *Service }

func (w *journalWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.InfoLevel, p)
}

func (w *journalWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	s := w.svc
	if s == nil {
		return len(p), nil
	}

	s.mu.Lock()
	lim := s.limiter
	min := s.minLevel
	ident := s.ident
	sender := s.journal
	s.mu.Unlock()

	if sender == nil || lim == nil || level < min {
		return len(p), nil
	}
	if !lim.Allow() {
		return len(p), nil
	}

	msg, vars := journalRecord(p)
	if msg == "" {
		return len(p), nil
	}
	vars["SYSLOG_IDENTIFIER"] = ident
	// Never fail the zerolog write because the journal is unreachable.
	_ = sender.Send(msg, journalPriority(level), vars)
	return len(p), nil
}

// journalRecord splits a zerolog JSON line into the message and journal fields.
func journalRecord(p []byte) (string, map[string]string) {
	vars := map[string]string{}
	var m map[string]any
	if err := json.Unmarshal(p, &m); err != nil {
		return strings.TrimSpace(string(p)), vars
	}
	msg, _ := m[zerolog.MessageFieldName].(string)
	for k, v := range m {
		if k == zerolog.MessageFieldName || k == zerolog.LevelFieldName || k == zerolog.TimestampFieldName {
			continue
		}
		name := journalFieldName(k)
		if name == "" {
			continue
		}
		vars[name] = fmt.Sprint(v)
	}
	return msg, vars
}

// journalFieldName maps a log key onto the journal's field alphabet
// (uppercase letters, digits and underscores, not starting with '_').
func journalFieldName(k string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(k) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.TrimLeft(b.String(), "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		return ""
	}
	return name
}

func journalPriority(level zerolog.Level) journal.Priority {
	switch {
	case level >= zerolog.ErrorLevel:
		return journal.PriErr
	case level == zerolog.WarnLevel:
		return journal.PriWarning
	case level == zerolog.InfoLevel:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}
