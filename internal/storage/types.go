package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl + snapshot)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// AuditEntry records one crontab action.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At     time.Time `json:"at"`
	Action string    `json:"action"` // save | install | sync | clear | remove | add
	Path   string    `json:"path"`
	Jobs   int       `json:"jobs"`
	OK     bool      `json:"ok"`
	Error  string    `json:"error,omitempty"`
	TookMS int64     `json:"took_ms"`
}

// InstallRecord remembers which backing file, with which content, was last
// handed to the crontab binary for a user. Installing replaces the user's
// whole crontab, so there is one record per Owner.
type InstallRecord struct {
	Owner  string    `json:"owner"`
	Path   string    `json:"path"`
	Digest string    `json:"digest"`
	Jobs   int       `json:"jobs"`
	At     time.Time `json:"at"`
}
