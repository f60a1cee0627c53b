package config

import (
	"reflect"
	"sort"
	"strconv"
	"strings"

	logx "crontabber/pkg/logx"
)

// SummarizeChange returns (1) a compact list of changed sections,
// (2) structured attrs for logging, and (3) the keys of declared jobs that
// were added, removed or edited. A job's key is its name, or "#<index>"
// when unnamed.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 12)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.journal_enabled", newCfg.Logging.Journal.Enabled),
		)
	}

	if oldCfg.Crontab != newCfg.Crontab {
		changed = append(changed, "crontab")
		attrs = append(attrs,
			logx.String("crontab.dir", strings.TrimSpace(newCfg.Crontab.Dir)),
			logx.String("crontab.file", strings.TrimSpace(newCfg.Crontab.File)),
			logx.Bool("crontab.atomic_save", newCfg.Crontab.AtomicSave),
		)
	}

	if oldCfg.Invoker != newCfg.Invoker {
		changed = append(changed, "invoker")
		attrs = append(attrs,
			logx.Bool("invoker.self", newCfg.Invoker.Self),
			logx.String("invoker.interpreter", strings.TrimSpace(newCfg.Invoker.Interpreter)),
		)
	}

	// Nil means disabled.
	var oS, nS StorageConfig
	if oldCfg.Storage != nil {
		oS = *oldCfg.Storage
	}
	if newCfg.Storage != nil {
		nS = *newCfg.Storage
	}
	if strings.TrimSpace(oS.Driver) != strings.TrimSpace(nS.Driver) ||
		strings.TrimSpace(oS.Path) != strings.TrimSpace(nS.Path) ||
		strings.TrimSpace(oS.BusyTimeout) != strings.TrimSpace(nS.BusyTimeout) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(nS.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(nS.Path) != ""),
		)
	}

	jobsChanged := diffJobs(oldCfg.Jobs, newCfg.Jobs)
	if len(jobsChanged) > 0 {
		changed = append(changed, "jobs")
		attrs = append(attrs,
			logx.Int("jobs.changed_count", len(jobsChanged)),
			logx.Int("jobs.count", len(newCfg.Jobs)),
		)
	}

	sort.Strings(changed)
	return changed, attrs, jobsChanged
}

func jobKey(i int, j JobConfig) string {
	if n := strings.TrimSpace(j.Name); n != "" {
		return n
	}
	return "#" + strconv.Itoa(i)
}

func diffJobs(oldJ, newJ []JobConfig) []string {
	oldM := make(map[string]JobConfig, len(oldJ))
	for i, j := range oldJ {
		oldM[jobKey(i, j)] = j
	}
	newM := make(map[string]JobConfig, len(newJ))
	for i, j := range newJ {
		newM[jobKey(i, j)] = j
	}

	set := map[string]struct{}{}
	for k := range oldM {
		set[k] = struct{}{}
	}
	for k := range newM {
		set[k] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for k := range set {
		o, inOld := oldM[k]
		n, inNew := newM[k]
		if inOld != inNew || !reflect.DeepEqual(o, n) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
