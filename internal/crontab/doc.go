// Package crontab renders cron lines and keeps a backing file in sync with the
// operating system's cron table.
//
// A Builder collects the five schedule fields and a command and hands each
// rendered line to a File. The File owns the on-disk job list:
//   - Open creates the directory (0700) and file if needed, then loads it
//   - AddJob/RemoveJob/ClearJobs edit the in-memory list
//   - Save rewrites the whole file from the list
//   - Install runs `crontab <file>`
//
// Install never saves implicitly; callers must Save first or the installed
// schedule will not reflect in-memory edits.
//
// Known limitations:
//   - Commands are written verbatim. Nothing is escaped or validated, so
//     callers must not pass untrusted input into SetCommand.
//   - There is no file locking. Two Files on the same path may interleave
//     writes and the resulting content is undefined.
//   - Builder and File are not safe for concurrent use.
package crontab
