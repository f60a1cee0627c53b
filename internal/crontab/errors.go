package crontab

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDirectory matches every *DirectoryError.
	ErrDirectory = errors.New("crontab directory error")
	// ErrFile matches every *FileError.
	ErrFile = errors.New("crontab file error")
	// ErrWrite matches every *WriteError.
	ErrWrite = errors.New("crontab write error")
	// ErrInstall matches every *InstallError.
	ErrInstall = errors.New("crontab install error")
)

// DirectoryError reports that the backing directory is missing and could not
// be created, or exists but is not a usable directory. It is fatal for Open.
type DirectoryError struct {
	Dir string
	Err error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("crontab directory %q: %v", e.Dir, e.Err)
}

func (e *DirectoryError) Unwrap() error        { return e.Err }
func (e *DirectoryError) Is(target error) bool { return target == ErrDirectory }

// FileError reports that the backing file could not be opened or created.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("crontab file %q: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error        { return e.Err }
func (e *FileError) Is(target error) bool { return target == ErrFile }

// WriteError reports a failed Save. The backing file may be partially written;
// retry Save or Load again before trusting its content.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("crontab save %q: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error        { return e.Err }
func (e *WriteError) Is(target error) bool { return target == ErrWrite }

// InstallError reports that the crontab binary rejected the file or could not
// be run. The backing file is left untouched.
type InstallError struct {
	Command string
	Output  string
	Err     error
}

func (e *InstallError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("crontab install (%s): %v", e.Command, e.Err)
	}
	return fmt.Sprintf("crontab install (%s): %v: %s", e.Command, e.Err, out)
}

func (e *InstallError) Unwrap() error        { return e.Err }
func (e *InstallError) Is(target error) bool { return target == ErrInstall }
