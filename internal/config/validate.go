package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"crontabber/internal/storage"
	logx "crontabber/pkg/logx"
)

// AppName names the per-user config directory.
const AppName = "crontabber"

// Validate checks everything that can be checked without touching the
// filesystem. All problems are reported at once.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	if lvl := strings.TrimSpace(cfg.Logging.Level); lvl != "" && !logx.ValidLevel(lvl) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", lvl))
	}
	if cfg.Logging.File.Enabled && strings.TrimSpace(cfg.Logging.File.Path) == "" {
		errs = append(errs, errors.New("logging.file.path is required when logging.file.enabled=true"))
	}
	if lvl := strings.TrimSpace(cfg.Logging.Journal.MinLevel); lvl != "" && !logx.ValidLevel(lvl) {
		errs = append(errs, fmt.Errorf("logging.journal.min_level: unknown level %q", lvl))
	}
	if cfg.Logging.Journal.RatePerSec < 0 {
		errs = append(errs, errors.New("logging.journal.rate_per_sec must be >= 0"))
	}

	if f := cfg.Crontab.File; strings.ContainsRune(f, os.PathSeparator) {
		errs = append(errs, fmt.Errorf("crontab.file: must be a bare file name, got %q", f))
	}

	if !cfg.Invoker.Self && strings.TrimSpace(cfg.Invoker.Interpreter) == "" &&
		(strings.TrimSpace(cfg.Invoker.Root) != "" || strings.TrimSpace(cfg.Invoker.Ext) != "") {
		errs = append(errs, errors.New("invoker.interpreter is required when invoker.root or invoker.ext is set"))
	}

	if _, _, err := StorageOf(cfg); err != nil {
		errs = append(errs, err)
	}

	seen := map[string]int{}
	for i, j := range cfg.Jobs {
		at := fmt.Sprintf("jobs[%d]", i)
		if n := strings.TrimSpace(j.Name); n != "" {
			if prev, ok := seen[n]; ok {
				errs = append(errs, fmt.Errorf("%s: duplicate name %q (also jobs[%d])", at, n, prev))
			}
			seen[n] = i
		}
		hasCmd := strings.TrimSpace(j.Command) != ""
		switch {
		case hasCmd && j.App != nil:
			errs = append(errs, fmt.Errorf("%s: set either command or app, not both", at))
		case !hasCmd && j.App == nil:
			errs = append(errs, fmt.Errorf("%s: command or app is required", at))
		case j.App != nil:
			if strings.TrimSpace(j.App.Entry) == "" {
				errs = append(errs, fmt.Errorf("%s.app.entry is required", at))
			}
			if strings.TrimSpace(j.App.Command) == "" {
				errs = append(errs, fmt.Errorf("%s.app.command is required", at))
			}
		}
		if strings.ContainsAny(j.Command, "\r\n") {
			errs = append(errs, fmt.Errorf("%s.command: must be a single line", at))
		}
	}

	return errors.Join(errs...)
}

// StorageOf maps the storage section to a storage.Config.
// ok is false when storage is disabled.
func StorageOf(cfg *Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	if !storage.ValidDriver(driver) {
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
	path := strings.TrimSpace(sc.Path)
	if path == "" {
		return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
	}
	busy, err := ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, defaultBusyTimeout)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
}

// CrontabDir resolves the backing-file directory. An empty dir falls back to
// <user config dir>/crontabber/crontabs.
func CrontabDir(cfg *Config) (string, error) {
	if cfg != nil {
		if d := strings.TrimSpace(cfg.Crontab.Dir); d != "" {
			return d, nil
		}
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("crontab.dir not set and no user config dir: %w", err)
	}
	return filepath.Join(base, AppName, "crontabs"), nil
}

// LoggingOf maps the logging section to a logx.Config.
func LoggingOf(cfg *Config) logx.Config {
	if cfg == nil {
		return logx.Config{Level: "info", Console: true}
	}
	l := cfg.Logging
	ident := strings.TrimSpace(l.Journal.Identifier)
	if ident == "" {
		ident = AppName
	}
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
		Journal: logx.JournalConfig{
			Enabled:    l.Journal.Enabled,
			Identifier: ident,
			MinLevel:   l.Journal.MinLevel,
			RatePerSec: l.Journal.RatePerSec,
		},
	}
}
