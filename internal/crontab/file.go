package crontab

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	logx "crontabber/pkg/logx"
)

const (
	dirMode  os.FileMode = 0o700
	fileMode os.FileMode = 0o600

	// DefaultFilename is used when Open is given an empty file name.
	DefaultFilename = "crons"
	// Binary is the name of the system crontab tool.
	Binary = "crontab"
)

// Option configures Open.
type Option func(*File)

// WithFs replaces the filesystem (defaults to the OS filesystem).
func WithFs(fs afero.Fs) Option {
	return func(f *File) {
		if fs != nil {
			f.fs = fs
		}
	}
}

// WithRunner replaces the command runner used by Install.
func WithRunner(r Runner) Option {
	return func(f *File) {
		if r != nil {
			f.runner = r
		}
	}
}

// WithCrontabPath sets the directory holding the crontab binary.
// Empty means "resolve crontab through PATH".
func WithCrontabPath(dir string) Option {
	return func(f *File) { f.crontabPath = strings.TrimSpace(dir) }
}

// WithAtomicSave makes Save write a temporary file and rename it over the
// backing file, so a failed Save never leaves a partially written file.
func WithAtomicSave(enabled bool) Option {
	return func(f *File) { f.atomicSave = enabled }
}

// WithLogger sets the logger for file and install events.
func WithLogger(log logx.Logger) Option {
	return func(f *File) { f.log = log }
}

// File is the backing file of a job list. See the package doc for the
// lifecycle; there is no Closed state beyond releasing the handle.
type File struct {
	fs     afero.Fs
	runner Runner
	log    logx.Logger

	dir         string
	name        string
	crontabPath string
	atomicSave  bool

	handle afero.File // append mode between Saves

	// jobs is indexed by position. A removed job leaves an empty slot so the
	// other positions hold until the next Load or ClearJobs.
	jobs []Job
	live int
}

// Open prepares dir (0700) and the backing file (append-create), then loads it.
// A *DirectoryError aborts before any file operation; a *FileError means the
// file could not be opened or read.
func Open(dir, name string, opts ...Option) (*File, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultFilename
	}
	f := &File{
		fs:     afero.NewOsFs(),
		runner: ExecRunner{},
		dir:    dir,
		name:   name,
	}
	for _, o := range opts {
		if o != nil {
			o(f)
		}
	}
	if f.log.IsZero() {
		f.log = logx.Nop()
	}

	if err := f.ensureDir(); err != nil {
		return nil, err
	}

	h, err := f.openAppend()
	if err != nil {
		return nil, &FileError{Path: f.Path(), Err: err}
	}
	f.handle = h

	if err := f.Load(); err != nil {
		_ = f.closeHandle()
		return nil, err
	}
	f.log.Debug("crontab file opened", logx.String("path", f.Path()), logx.Int("jobs", f.live))
	return f, nil
}

func (f *File) ensureDir() error {
	if strings.TrimSpace(f.dir) == "" {
		return &DirectoryError{Dir: f.dir, Err: errors.New("directory is required")}
	}
	st, err := f.fs.Stat(f.dir)
	switch {
	case err == nil:
		if !st.IsDir() {
			return &DirectoryError{Dir: f.dir, Err: errors.New("not a directory")}
		}
		d, err := f.fs.Open(f.dir)
		if err != nil {
			return &DirectoryError{Dir: f.dir, Err: err}
		}
		_ = d.Close()
		return nil
	case errors.Is(err, os.ErrNotExist):
		if err := f.fs.MkdirAll(f.dir, dirMode); err != nil {
			return &DirectoryError{Dir: f.dir, Err: err}
		}
		f.log.Info("crontab directory created", logx.String("dir", f.dir))
		return nil
	default:
		return &DirectoryError{Dir: f.dir, Err: err}
	}
}

// Path returns the backing file path.
func (f *File) Path() string { return filepath.Join(f.dir, f.name) }

// Load replaces the job list with the file's non-empty lines, in order.
// A last line without a terminator gets one so it saves back as its own line.
func (f *File) Load() error {
	r, err := f.fs.Open(f.Path())
	if err != nil {
		return &FileError{Path: f.Path(), Err: err}
	}
	defer r.Close()

	jobs, err := readJobs(r)
	if err != nil {
		return &FileError{Path: f.Path(), Err: fmt.Errorf("read: %w", err)}
	}
	f.jobs = jobs
	f.live = len(jobs)
	return nil
}

func readJobs(r io.Reader) ([]Job, error) {
	br := bufio.NewReader(r)
	var jobs []Job
	for {
		line, err := br.ReadString('\n')
		if strings.TrimRight(line, "\r\n") != "" {
			if !strings.HasSuffix(line, "\n") {
				line += "\n"
			}
			jobs = append(jobs, Job(line))
		}
		if errors.Is(err, io.EOF) {
			return jobs, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// AddJob appends a rendered line at the next position. Duplicates are kept.
// A line without a terminator gets one so it saves as a line of its own.
func (f *File) AddJob(j Job) {
	if !strings.HasSuffix(string(j), "\n") {
		j += "\n"
	}
	f.jobs = append(f.jobs, j)
	f.live++
}

// RemoveJob removes the job at pos. Out-of-range and already removed
// positions are ignored. Other jobs keep their positions until the next
// Load or ClearJobs.
func (f *File) RemoveJob(pos int) {
	if pos < 0 || pos >= len(f.jobs) || f.jobs[pos] == "" {
		return
	}
	f.jobs[pos] = ""
	f.live--
}

// ClearJobs empties the job list.
func (f *File) ClearJobs() {
	f.jobs = nil
	f.live = 0
}

// Job returns the job at pos. ok is false for out-of-range or removed positions.
func (f *File) Job(pos int) (j Job, ok bool) {
	if pos < 0 || pos >= len(f.jobs) || f.jobs[pos] == "" {
		return "", false
	}
	return f.jobs[pos], true
}

// All yields every job with the position RemoveJob accepts for it.
func (f *File) All() iter.Seq2[int, Job] {
	return func(yield func(int, Job) bool) {
		for i, j := range f.jobs {
			if j == "" {
				continue
			}
			if !yield(i, j) {
				return
			}
		}
	}
}

// Jobs returns a copy of the job list, in order, without removed positions.
func (f *File) Jobs() []Job {
	out := make([]Job, 0, f.live)
	for _, j := range f.All() {
		out = append(out, j)
	}
	return out
}

// Len returns the number of jobs.
func (f *File) Len() int { return f.live }

// Save rewrites the backing file so it holds exactly the job list.
func (f *File) Save() error {
	start := time.Now()
	_ = f.closeHandle()

	var err error
	if f.atomicSave {
		err = f.saveAtomic()
	} else {
		err = f.saveTruncate()
	}
	if err != nil {
		f.log.Warn("crontab save failed", logx.String("path", f.Path()), logx.Err(err))
		// Keep a handle for later Saves even when this one failed.
		if h, oerr := f.openAppend(); oerr == nil {
			f.handle = h
		}
		return &WriteError{Path: f.Path(), Err: err}
	}

	h, err := f.openAppend()
	if err != nil {
		return &WriteError{Path: f.Path(), Err: fmt.Errorf("reopen: %w", err)}
	}
	f.handle = h
	f.log.Info("crontab saved",
		logx.String("path", f.Path()),
		logx.Int("jobs", f.live),
		logx.Bool("atomic", f.atomicSave),
		logx.Duration("took", time.Since(start)),
	)
	return nil
}

func (f *File) saveTruncate() error {
	w, err := f.fs.OpenFile(f.Path(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode)
	if err != nil {
		return err
	}
	return writeAndClose(w, f.jobs)
}

func (f *File) saveAtomic() error {
	tmp := f.Path() + ".tmp"
	w, err := f.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode)
	if err != nil {
		return err
	}
	if err := writeAndClose(w, f.jobs); err != nil {
		_ = f.fs.Remove(tmp)
		return err
	}
	if err := f.fs.Rename(tmp, f.Path()); err != nil {
		_ = f.fs.Remove(tmp)
		return err
	}
	return nil
}

// writeAndClose writes every job and always closes w.
func writeAndClose(w afero.File, jobs []Job) error {
	bw := bufio.NewWriter(w)
	var err error
	for _, j := range jobs {
		if j == "" {
			continue
		}
		if _, err = bw.WriteString(string(j)); err != nil {
			break
		}
	}
	if err == nil {
		err = bw.Flush()
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}

// Content returns the backing file's current on-disk bytes.
func (f *File) Content() ([]byte, error) {
	return afero.ReadFile(f.fs, f.Path())
}

// Command returns the crontab invocation Install runs.
func (f *File) Command() (string, []string) {
	bin := Binary
	if f.crontabPath != "" {
		bin = filepath.Join(f.crontabPath, Binary)
	}
	return bin, []string{f.Path()}
}

// Install registers the on-disk file as the user's crontab.
// It does not Save: unsaved in-memory edits are not installed.
func (f *File) Install(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	bin, args := f.Command()
	out, err := f.runner.Run(ctx, bin, args...)
	if err != nil {
		ierr := &InstallError{Command: strings.Join(append([]string{bin}, args...), " "), Output: string(out), Err: err}
		f.log.Warn("crontab install failed", logx.String("path", f.Path()), logx.Err(ierr))
		return ierr
	}
	f.log.Info("crontab installed", logx.String("path", f.Path()), logx.String("binary", bin), logx.Duration("took", time.Since(start)))
	return nil
}

// Close releases the file handle. The File stays usable: Save reopens it.
func (f *File) Close() error { return f.closeHandle() }

func (f *File) openAppend() (afero.File, error) {
	return f.fs.OpenFile(f.Path(), os.O_CREATE|os.O_APPEND|os.O_RDWR, fileMode)
}

func (f *File) closeHandle() error {
	if f.handle == nil {
		return nil
	}
	err := f.handle.Close()
	f.handle = nil
	return err
}
