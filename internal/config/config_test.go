package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
logging:
  level: debug
  console: true
crontab:
  dir: /var/lib/crontabber
  file: crons
  atomic_save: true
invoker:
  interpreter: /usr/bin/php
  root: /srv/app
  ext: .php
storage:
  driver: sqlite
  path: /var/lib/crontabber/state.db
  busy_timeout: 2s
jobs:
  - name: report
    minute: 0
    hour: "6"
    weekday: 1-5
    app:
      entry: cli
      command: report:daily
      args: ["--quiet"]
  - name: cleanup
    minute: "*/15"
    command: /usr/local/bin/cleanup
`

func TestDecodeYAML(t *testing.T) {
	t.Parallel()

	cfg, err := Decode("c.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Crontab.Dir != "/var/lib/crontabber" || !cfg.Crontab.AtomicSave {
		t.Fatalf("crontab = %+v", cfg.Crontab)
	}
	if len(cfg.Jobs) != 2 {
		t.Fatalf("len(jobs) = %d, want 2", len(cfg.Jobs))
	}
	j := cfg.Jobs[0]
	if j.Minute != "0" || j.Hour != "6" || j.Weekday != "1-5" || j.Day != "" {
		t.Fatalf("job tokens = %+v", j)
	}
	if j.App == nil || j.App.Command != "report:daily" || len(j.App.Args) != 1 {
		t.Fatalf("job app = %+v", j.App)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	sc, ok, err := StorageOf(cfg)
	if err != nil || !ok {
		t.Fatalf("StorageOf = ok %v err %v", ok, err)
	}
	if sc.BusyTimeout != 2*time.Second || sc.Driver != "sqlite" {
		t.Fatalf("StorageOf = %+v", sc)
	}
}

func TestDecodeStrict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		file string
		data string
	}{
		{name: "unknown top-level", file: "c.json", data: `{"logging":{},"bogus":1}`},
		{name: "unknown job field", file: "c.json", data: `{"jobs":[{"minutes":"5","command":"x"}]}`},
		{name: "trailing data", file: "c.json", data: `{} {}`},
		{name: "bad token", file: "c.json", data: `{"jobs":[{"minute":true,"command":"x"}]}`},
		{name: "bad yaml", file: "c.yml", data: "jobs: [\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Decode(tt.file, []byte(tt.data)); err == nil {
				t.Fatalf("Decode(%s) err = nil, want error", tt.data)
			}
		})
	}
}

func TestTokenNumberAndNull(t *testing.T) {
	t.Parallel()

	cfg, err := Decode("c.json", []byte(`{"jobs":[{"minute":30,"hour":null,"day":"1,15","command":"x"}]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	j := cfg.Jobs[0]
	if j.Minute.String() != "30" || j.Hour.String() != "" || j.Day.String() != "1,15" {
		t.Fatalf("tokens = %q %q %q", j.Minute, j.Hour, j.Day)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "ok empty", cfg: Config{}},
		{name: "bad level", cfg: Config{Logging: LoggingConfig{Level: "loud"}}, want: "logging.level"},
		{name: "file path", cfg: Config{Logging: LoggingConfig{File: LoggingFile{Enabled: true}}}, want: "logging.file.path"},
		{name: "file name", cfg: Config{Crontab: CrontabConfig{File: "a/b"}}, want: "crontab.file"},
		{name: "invoker", cfg: Config{Invoker: InvokerConfig{Root: "/srv"}}, want: "invoker.interpreter"},
		{name: "storage driver", cfg: Config{Storage: &StorageConfig{Driver: "redis", Path: "x"}}, want: "storage.driver"},
		{name: "storage path", cfg: Config{Storage: &StorageConfig{Driver: "file"}}, want: "storage.path"},
		{name: "busy timeout", cfg: Config{Storage: &StorageConfig{Driver: "sqlite", Path: "x", BusyTimeout: "soon"}}, want: "storage.busy_timeout"},
		{name: "no command", cfg: Config{Jobs: []JobConfig{{Minute: "5"}}}, want: "command or app is required"},
		{name: "both", cfg: Config{Jobs: []JobConfig{{Command: "x", App: &AppConfig{Entry: "e", Command: "c"}}}}, want: "not both"},
		{name: "app entry", cfg: Config{Jobs: []JobConfig{{App: &AppConfig{Command: "c"}}}}, want: "app.entry"},
		{name: "multiline", cfg: Config{Jobs: []JobConfig{{Command: "a\nb"}}}, want: "single line"},
		{name: "dup name", cfg: Config{Jobs: []JobConfig{{Name: "a", Command: "x"}, {Name: "a", Command: "y"}}}, want: "duplicate name"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(&tt.cfg)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("Validate = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	t.Parallel()

	err := Validate(&Config{
		Logging: LoggingConfig{Level: "loud"},
		Jobs:    []JobConfig{{}},
	})
	if err == nil {
		t.Fatalf("Validate = nil, want error")
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) || len(joined.Unwrap()) != 2 {
		t.Fatalf("Validate = %v, want 2 joined errors", err)
	}
}

func TestCrontabDir(t *testing.T) {
	t.Parallel()

	d, err := CrontabDir(&Config{Crontab: CrontabConfig{Dir: " /x/y "}})
	if err != nil || d != "/x/y" {
		t.Fatalf("CrontabDir = %q, %v; want /x/y", d, err)
	}
	if base, err := os.UserConfigDir(); err == nil {
		d, err := CrontabDir(&Config{})
		if err != nil {
			t.Fatalf("CrontabDir default: %v", err)
		}
		if want := filepath.Join(base, AppName, "crontabs"); d != want {
			t.Fatalf("CrontabDir default = %q, want %q", d, want)
		}
	}
}

func TestLoggingOfDefaultsIdentifier(t *testing.T) {
	t.Parallel()

	lc := LoggingOf(&Config{Logging: LoggingConfig{Level: "warn", Journal: LoggingJournal{Enabled: true}}})
	if lc.Journal.Identifier != AppName || !lc.Journal.Enabled || lc.Level != "warn" {
		t.Fatalf("LoggingOf = %+v", lc)
	}
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()

	oldCfg := &Config{
		Jobs: []JobConfig{
			{Name: "a", Minute: "1", Command: "x"},
			{Name: "b", Command: "y"},
			{Command: "anon"},
		},
	}
	newCfg := &Config{
		Logging: LoggingConfig{Level: "debug"},
		Jobs: []JobConfig{
			{Name: "a", Minute: "2", Command: "x"},
			{Name: "c", Command: "z"},
			{Command: "anon"},
		},
	}
	changed, attrs, jobs := SummarizeChange(oldCfg, newCfg)
	if strings.Join(changed, ",") != "jobs,logging" {
		t.Fatalf("changed = %v, want [jobs logging]", changed)
	}
	if len(attrs) == 0 {
		t.Fatalf("attrs empty")
	}
	if strings.Join(jobs, ",") != "a,b,c" {
		t.Fatalf("jobs changed = %v, want [a b c]", jobs)
	}

	if changed, _, _ := SummarizeChange(newCfg, newCfg); len(changed) != 0 {
		t.Fatalf("SummarizeChange(same) = %v, want none", changed)
	}
}

func TestManagerLoadSubscribe(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "crontabber.json")
	if err := os.WriteFile(path, []byte(`{"jobs":[{"command":"true"}]}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get() != cfg || len(cfg.Jobs) != 1 {
		t.Fatalf("Get = %+v, want loaded config", m.Get())
	}

	ch := m.Subscribe(1)
	m.publish(&Config{})
	m.publish(&Config{Jobs: []JobConfig{{Command: "newest"}}})
	got := <-ch
	if len(got.Jobs) != 1 || got.Jobs[0].Command != "newest" {
		t.Fatalf("slow subscriber got %+v, want newest", got)
	}
	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatalf("channel still open after Unsubscribe")
	}
}

func TestManagerWatchReloads(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "crontabber.yaml")
	if err := os.WriteFile(path, []byte("jobs: []\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.SetValidator(func(ctx context.Context, cfg *Config) error { return Validate(cfg) })
	ch := m.Subscribe(4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	// Invalid content is rejected and never published.
	if err := os.WriteFile(path, []byte("jobs:\n  - minute: 5\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(2 * debounceDelay)
	if err := os.WriteFile(path, []byte("jobs:\n  - command: date\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case cfg := <-ch:
		if len(cfg.Jobs) != 1 || cfg.Jobs[0].Command != "date" {
			t.Fatalf("published %+v, want the valid config", cfg)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no config published")
	}
}
