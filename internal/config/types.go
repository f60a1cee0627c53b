package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type Config struct {
	Logging LoggingConfig  `json:"logging"`
	Crontab CrontabConfig  `json:"crontab"`
	Invoker InvokerConfig  `json:"invoker"`
	Storage *StorageConfig `json:"storage,omitempty"`

	// Jobs is the declared crontab. sync replaces the backing file with it.
	Jobs []JobConfig `json:"jobs"`
}

type LoggingConfig struct {
	Level   string         `json:"level"`
	Console bool           `json:"console"`
	File    LoggingFile    `json:"file"`
	Journal LoggingJournal `json:"journal"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingJournal forwards records to systemd-journald when the socket is
// reachable. Records below MinLevel or above RatePerSec are dropped.
type LoggingJournal struct {
	Enabled    bool   `json:"enabled"`
	Identifier string `json:"identifier,omitempty"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// CrontabConfig locates the backing file and the crontab binary.
//
// Defaults (when fields are omitted):
//   - dir: $XDG_CONFIG_HOME/crontabber/crontabs
//   - file: "crons"
//   - crontab_path: "" (resolve "crontab" via PATH)
type CrontabConfig struct {
	Dir         string `json:"dir,omitempty"`
	File        string `json:"file,omitempty"`
	CrontabPath string `json:"crontab_path,omitempty"`
	AtomicSave  bool   `json:"atomic_save,omitempty"`
}

// InvokerConfig controls how application commands become shell command lines.
//
// With Self set (or Interpreter empty) the running executable is used.
// Otherwise lines look like "<interpreter> <root>/<entry><ext> <command> <args...>".
type InvokerConfig struct {
	Self        bool   `json:"self,omitempty"`
	Interpreter string `json:"interpreter,omitempty"`
	Root        string `json:"root,omitempty"`
	Ext         string `json:"ext,omitempty"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./crontabber_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// JobConfig declares one crontab line. Exactly one of Command or App is set.
type JobConfig struct {
	Name    string     `json:"name,omitempty"`
	Minute  Token      `json:"minute,omitempty"`
	Hour    Token      `json:"hour,omitempty"`
	Day     Token      `json:"day,omitempty"`
	Month   Token      `json:"month,omitempty"`
	Weekday Token      `json:"weekday,omitempty"`
	Command string     `json:"command,omitempty"`
	App     *AppConfig `json:"app,omitempty"`
}

// AppConfig is an application command run through the configured invoker.
type AppConfig struct {
	Entry   string   `json:"entry"`
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// UnmarshalJSON disallows unknown fields so typos inside a job entry
// (e.g. "minutes") are caught instead of silently scheduling "*".
func (j *JobConfig) UnmarshalJSON(b []byte) error {
	type plain JobConfig
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var p plain
	if err := dec.Decode(&p); err != nil {
		return err
	}
	*j = JobConfig(p)
	return nil
}

// Token is a schedule field value. It decodes from a JSON string or number,
// so YAML like `minute: 0` and `minute: "*/5"` both work.
type Token string

func (t *Token) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Token(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("schedule field must be a string or number: %s", string(b))
	}
	*t = Token(n.String())
	return nil
}

func (t Token) String() string { return strings.TrimSpace(string(t)) }
