package app

import (
	"context"
	"errors"
	"slices"
	"time"

	"crontabber/internal/config"
	"crontabber/internal/crontab"
	"crontabber/internal/runtime/supervisor"
	"crontabber/internal/storage"
	logx "crontabber/pkg/logx"
)

// SyncResult describes one Sync.
type SyncResult struct {
	Jobs      int
	Digest    string
	Installed bool
}

// Sync replaces the backing file with the declared jobs, saves it and
// installs it. The install is skipped, unless force is set, when storage
// remembers this same file with this same content as the owner's last install.
func (a *App) Sync(ctx context.Context, force bool) (SyncResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	cfg := a.cfg
	a.file.ClearJobs()
	b := crontab.NewBuilder(a.file, crontab.WithInvoker(invokerOf(cfg)))
	for i, jc := range cfg.Jobs {
		b.SetFields(fieldsOf(jc))
		if err := crontab.LintFields(b.Fields()); err != nil {
			a.log.Warn("declared job schedule does not parse",
				logx.Int("index", i), logx.String("name", jc.Name), logx.Err(err))
		}
		if jc.App != nil {
			b.SetApplicationCommand(jc.App.Entry, jc.App.Command, jc.App.Args...)
		} else {
			b.SetCommand(jc.Command)
		}
		b.Add()
	}
	if err := a.saveLocked(ctx, "sync"); err != nil {
		return SyncResult{Jobs: a.file.Len()}, err
	}

	content, err := a.file.Content()
	if err != nil {
		return SyncResult{Jobs: a.file.Len()}, err
	}
	res := SyncResult{Jobs: a.file.Len(), Digest: storage.Digest(content)}

	if !force && a.store != nil {
		prev, ok, err := a.store.GetInstall(ctx, a.owner)
		if err != nil {
			a.log.Warn("install record lookup failed", logx.Err(err))
		} else if ok && prev.Path == a.file.Path() && prev.Digest == res.Digest {
			a.log.Info("crontab unchanged; install skipped",
				logx.String("owner", a.owner),
				logx.String("path", a.file.Path()), logx.String("digest", res.Digest))
			return res, nil
		}
	}

	if _, err := a.installLocked(ctx); err != nil {
		return res, err
	}
	res.Installed = true
	a.log.Info("crontab synced",
		logx.String("path", a.file.Path()),
		logx.Int("jobs", res.Jobs),
		logx.Duration("took", time.Since(start)),
	)
	return res, nil
}

func fieldsOf(jc config.JobConfig) crontab.Fields {
	return crontab.Fields{
		Minute:  jc.Minute.String(),
		Hour:    jc.Hour.String(),
		Day:     jc.Day.String(),
		Month:   jc.Month.String(),
		Weekday: jc.Weekday.String(),
	}
}

// Watch syncs once, then again every time the config file changes, until
// ctx is done. It needs a config file.
func (a *App) Watch(ctx context.Context) error {
	if a.cfgm == nil {
		return errors.New("watch requires --config")
	}

	sup := supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)
	a.cfgm.SetValidator(func(ctx context.Context, cfg *config.Config) error {
		return config.Validate(cfg)
	})
	ch := a.cfgm.Subscribe(1)

	if _, err := a.Sync(sup.Context(), false); err != nil {
		a.log.Warn("initial sync failed", logx.Err(err))
	}

	sup.GoRestart("config.watch", a.cfgm.Watch, supervisor.WithRestartBackoff(time.Second, time.Minute))
	sup.Go("sync", func(ctx context.Context) error {
		defer a.cfgm.Unsubscribe(ch)
		for {
			select {
			case <-ctx.Done():
				return nil
			case cfg, ok := <-ch:
				if !ok {
					return nil
				}
				a.reload(ctx, cfg)
			}
		}
	})

	a.log.Info("watching config", logx.String("path", a.cfgm.Path()))
	err := sup.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// reload applies a new config and syncs. Storage changes need a restart.
func (a *App) reload(ctx context.Context, cfg *config.Config) {
	a.mu.Lock()
	old := a.cfg
	changed, attrs, jobs := config.SummarizeChange(old, cfg)
	a.log.Info("config reloaded", append(attrs, logx.Any("sections", changed), logx.Any("jobs_changed", jobs))...)

	if slices.Contains(changed, "logging") && a.logs != nil {
		a.logs.Apply(loggingOf(cfg, a.opts))
	}
	if slices.Contains(changed, "storage") {
		a.log.Warn("storage changes take effect after restart")
	}
	if slices.Contains(changed, "crontab") {
		f, err := a.openFile(cfg)
		if err != nil {
			a.mu.Unlock()
			a.log.Error("reopen crontab file failed; keeping previous config", logx.Err(err))
			return
		}
		_ = a.file.Close()
		a.file = f
	}
	a.cfg = cfg
	a.mu.Unlock()

	if _, err := a.Sync(ctx, false); err != nil {
		a.log.Error("sync failed", logx.Err(err))
	}
}
