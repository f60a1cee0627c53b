// Package storage remembers what crontabber did.
//
// It currently supports:
//   - Audit log appends (add/remove/clear/save/install/sync)
//   - Last-installed digest per backing file, so sync can skip a redundant
//     crontab invocation
//
// Drivers: "file" (JSON Lines audit + JSON snapshot) and "sqlite".
package storage
