package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crontabber/internal/crontab"
	"crontabber/internal/storage"
	logx "crontabber/pkg/logx"
)

var (
	// ErrNoCommand is returned by Add when neither a command nor an
	// application command is given.
	ErrNoCommand = errors.New("a command is required")
	// ErrNoSuchJob is returned by Remove for an out-of-range or removed position.
	ErrNoSuchJob = errors.New("no job at that position")
	// ErrNoStorage is returned by History when storage is disabled.
	ErrNoStorage = errors.New("storage is disabled")
)

// AppCommand is an application command run through the configured invoker.
type AppCommand struct {
	Entry   string
	Command string
	Args    []string
}

// AddRequest describes one job to append. Exactly one of Command and App is used.
type AddRequest struct {
	Fields  crontab.Fields
	Command string
	App     *AppCommand
}

// Entry is one job of the backing file with its next activation.
type Entry struct {
	Pos  int
	Job  crontab.Job
	Next time.Time
	Err  error
}

// Add renders a job, appends it and saves the file. It does not install.
func (a *App) Add(ctx context.Context, req AddRequest) (crontab.Job, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b := crontab.NewBuilder(a.file, crontab.WithInvoker(invokerOf(a.cfg)))
	b.SetFields(req.Fields)
	if req.App != nil {
		b.SetApplicationCommand(req.App.Entry, req.App.Command, req.App.Args...)
	} else {
		b.SetCommand(req.Command)
	}
	j, ok := b.Render()
	if !ok {
		return "", ErrNoCommand
	}
	if err := crontab.Lint(j); err != nil {
		// Add is uncritical: the line is kept as given.
		a.log.Warn("job schedule does not parse", logx.String("job", j.Line()), logx.Err(err))
	}
	b.Add()
	err := a.saveLocked(ctx, "add")
	return j, err
}

// List returns the in-memory jobs with their next activation after now.
func (a *App) List(now time.Time) []Entry {
	a.mu.Lock()
	out := make([]Entry, 0, a.file.Len())
	for pos, j := range a.file.All() {
		out = append(out, Entry{Pos: pos, Job: j})
	}
	a.mu.Unlock()

	for i := range out {
		out[i].Next, out[i].Err = crontab.Next(out[i].Job, now)
	}
	return out
}

// Remove deletes the job at pos and saves the file.
func (a *App) Remove(ctx context.Context, pos int) (crontab.Job, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	j, ok := a.file.Job(pos)
	if !ok {
		return "", fmt.Errorf("%w: %d (have %d)", ErrNoSuchJob, pos, a.file.Len())
	}
	a.file.RemoveJob(pos)
	return j, a.saveLocked(ctx, "remove")
}

// Clear empties the job list and saves the file.
func (a *App) Clear(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.file.ClearJobs()
	return a.saveLocked(ctx, "clear")
}

// Save writes the in-memory job list to the backing file.
func (a *App) Save(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saveLocked(ctx, "save")
}

func (a *App) saveLocked(ctx context.Context, action string) error {
	start := time.Now()
	err := a.file.Save()
	a.audit(ctx, auditOf(action, a.file, start, err))
	return err
}

// Install hands the on-disk backing file to the crontab binary.
func (a *App) Install(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := a.installLocked(ctx)
	return err
}

func (a *App) installLocked(ctx context.Context) (storage.InstallRecord, error) {
	start := time.Now()
	content, err := a.file.Content()
	if err != nil {
		return storage.InstallRecord{}, err
	}
	err = a.file.Install(ctx)
	a.audit(ctx, auditOf("install", a.file, start, err))
	rec := storage.InstallRecord{
		Owner:  a.owner,
		Path:   a.file.Path(),
		Digest: storage.Digest(content),
		Jobs:   a.file.Len(),
		At:     time.Now(),
	}
	if err != nil {
		return rec, err
	}
	if a.store != nil {
		if perr := a.store.PutInstall(ctx, rec); perr != nil {
			a.log.Warn("install record not stored", logx.Err(perr))
		}
	}
	return rec, nil
}

// Lint checks every job of the backing file. The result maps position to error.
func (a *App) Lint() map[int]error {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := map[int]error{}
	for pos, j := range a.file.All() {
		if err := crontab.Lint(j); err != nil {
			out[pos] = err
		}
	}
	return out
}

// History returns up to limit recent audit entries, oldest first.
func (a *App) History(ctx context.Context, limit int) ([]storage.AuditEntry, error) {
	if a.store == nil {
		return nil, ErrNoStorage
	}
	return a.store.RecentAudit(ctx, limit)
}

func auditOf(action string, f *crontab.File, start time.Time, err error) storage.AuditEntry {
	e := storage.AuditEntry{
		At:     start,
		Action: action,
		Path:   f.Path(),
		Jobs:   f.Len(),
		OK:     err == nil,
		TookMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}
