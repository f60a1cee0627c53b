package app

import (
	"context"
	"errors"
	"os"
	"os/user"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"crontabber/internal/config"
	"crontabber/internal/crontab"
	"crontabber/internal/storage"
	logx "crontabber/pkg/logx"
)

// Options are the process-level inputs that are not part of the config file.
type Options struct {
	// ConfigPath is a JSON or YAML config file. Empty means built-in defaults.
	ConfigPath string

	// Dir, File and LogLevel override the config file when non-empty.
	Dir      string
	File     string
	LogLevel string

	// Fs and Runner replace the OS filesystem and the crontab runner.
	Fs     afero.Fs
	Runner crontab.Runner

	// Owner names whose crontab an install replaces. Empty means the
	// current user.
	Owner string
}

type App struct {
	opts Options

	cfgm *config.Manager

	mu   sync.Mutex
	cfg  *config.Config
	file *crontab.File

	log   logx.Logger
	logs  *logx.Service
	store storage.Store
	owner string
}

// New loads the config, starts logging, opens storage and the backing file.
func New(opts Options) (*App, error) {
	cfgm, cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(loggingOf(cfg, opts))
	log = log.With(logx.String("comp", "app"))
	if cfgm != nil {
		cfgm.SetLogger(log.With(logx.String("comp", "config")))
	}

	a := &App{
		opts: opts,
		cfgm: cfgm,
		cfg:  cfg,
		log:   log,
		logs:  logSvc,
		owner: ownerOf(opts),
	}

	if sc, enabled, err := config.StorageOf(cfg); err != nil {
		_ = logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		a.store = st
		log.Debug("storage enabled", logx.String("driver", sc.Driver))
	}

	f, err := a.openFile(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.file = f
	return a, nil
}

// ownerOf returns the user whose crontab gets replaced on install.
func ownerOf(opts Options) string {
	if o := strings.TrimSpace(opts.Owner); o != "" {
		return o
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if o := os.Getenv("USER"); o != "" {
		return o
	}
	return "default"
}

func loadConfig(opts Options) (*config.Manager, *config.Config, error) {
	if strings.TrimSpace(opts.ConfigPath) == "" {
		return nil, &config.Config{Logging: config.LoggingConfig{Level: "info", Console: true}}, nil
	}
	cfgm := config.NewManager(opts.ConfigPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfgm, cfg, nil
}

func loggingOf(cfg *config.Config, opts Options) logx.Config {
	lc := config.LoggingOf(cfg)
	if lvl := strings.TrimSpace(opts.LogLevel); lvl != "" {
		lc.Level = lvl
	}
	return lc
}

// crontabOf applies command-line overrides to the crontab section.
func (a *App) crontabOf(cfg *config.Config) (dir, name string, err error) {
	cc := cfg.Crontab
	if d := strings.TrimSpace(a.opts.Dir); d != "" {
		cc.Dir = d
	}
	if f := strings.TrimSpace(a.opts.File); f != "" {
		cc.File = f
	}
	dir, err = config.CrontabDir(&config.Config{Crontab: cc})
	return dir, strings.TrimSpace(cc.File), err
}

func (a *App) openFile(cfg *config.Config) (*crontab.File, error) {
	dir, name, err := a.crontabOf(cfg)
	if err != nil {
		return nil, err
	}
	opts := []crontab.Option{
		crontab.WithCrontabPath(cfg.Crontab.CrontabPath),
		crontab.WithAtomicSave(cfg.Crontab.AtomicSave),
		crontab.WithLogger(a.log.With(logx.String("comp", "crontab"))),
	}
	if a.opts.Fs != nil {
		opts = append(opts, crontab.WithFs(a.opts.Fs))
	}
	if a.opts.Runner != nil {
		opts = append(opts, crontab.WithRunner(a.opts.Runner))
	}
	return crontab.Open(dir, name, opts...)
}

// invokerOf picks how application commands re-enter a program.
func invokerOf(cfg *config.Config) crontab.Invoker {
	ic := cfg.Invoker
	if ic.Self || strings.TrimSpace(ic.Interpreter) == "" {
		return crontab.SelfInvoker{}
	}
	return crontab.ScriptInvoker{
		Interpreter: strings.TrimSpace(ic.Interpreter),
		Root:        strings.TrimSpace(ic.Root),
		Ext:         strings.TrimSpace(ic.Ext),
	}
}

// Config returns the active config.
func (a *App) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// Path returns the backing file path.
func (a *App) Path() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Path()
}

func (a *App) Logger() logx.Logger { return a.log }

// Close releases the backing file, storage and log sinks.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var errs []error
	if a.file != nil {
		errs = append(errs, a.file.Close())
		a.file = nil
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.logs != nil {
		errs = append(errs, a.logs.Close())
		a.logs = nil
	}
	return errors.Join(errs...)
}

// audit records an action when storage is enabled. Failures are logged only.
func (a *App) audit(ctx context.Context, e storage.AuditEntry) {
	if a.store == nil {
		return
	}
	if err := a.store.AppendAudit(ctx, e); err != nil {
		a.log.Warn("audit append failed", logx.String("action", e.Action), logx.Err(err))
	}
}
