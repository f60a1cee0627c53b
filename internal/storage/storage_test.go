package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "crontabber/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q) err = %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) = %v, want nil", driver, st)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := Open(Config{Driver: "redis", Path: "x"}, logx.Logger{}); err == nil {
		t.Fatalf("Open(redis) err = nil, want error")
	}
	if ValidDriver("redis") {
		t.Fatalf("ValidDriver(redis) = true")
	}
	if !ValidDriver("SQLite") {
		t.Fatalf("ValidDriver(SQLite) = false")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{"file", "sqlite"} {
		if _, err := Open(Config{Driver: driver}, logx.Nop()); err == nil {
			t.Fatalf("Open(%s, no path) err = nil", driver)
		}
	}
}

func TestStores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		driver string
		file   string
	}{
		{name: "file", driver: "file", file: "state.db"},
		{name: "sqlite", driver: "sqlite", file: "state.db"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "nested", tt.file)
			cfg := Config{Driver: tt.driver, Path: path, BusyTimeout: time.Second}

			st, err := Open(cfg, logx.Nop())
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			ctx := context.Background()

			for i, action := range []string{"add", "save", "install", "sync"} {
				e := AuditEntry{Action: action, Path: "/tmp/crons", Jobs: i, OK: i != 2}
				if i == 2 {
					e.Error = "exit status 1"
				}
				if err := st.AppendAudit(ctx, e); err != nil {
					t.Fatalf("AppendAudit: %v", err)
				}
			}

			got, err := st.RecentAudit(ctx, 3)
			if err != nil {
				t.Fatalf("RecentAudit: %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("len(RecentAudit) = %d, want 3", len(got))
			}
			wantActions := []string{"save", "install", "sync"}
			for i, e := range got {
				if e.Action != wantActions[i] {
					t.Fatalf("RecentAudit[%d].Action = %q, want %q", i, e.Action, wantActions[i])
				}
				if e.At.IsZero() {
					t.Fatalf("RecentAudit[%d].At is zero", i)
				}
			}
			if got[1].OK || got[1].Error != "exit status 1" {
				t.Fatalf("install entry = %+v, want failed with error", got[1])
			}

			if _, ok, err := st.GetInstall(ctx, "alice"); err != nil || ok {
				t.Fatalf("GetInstall before put = ok %v err %v, want miss", ok, err)
			}
			if err := st.PutInstall(ctx, InstallRecord{Owner: "alice", Path: "/tmp/a", Digest: "aa", Jobs: 1}); err != nil {
				t.Fatalf("PutInstall: %v", err)
			}
			if err := st.PutInstall(ctx, InstallRecord{Owner: "alice", Path: "/tmp/b", Digest: "bb", Jobs: 2}); err != nil {
				t.Fatalf("PutInstall: %v", err)
			}
			if err := st.PutInstall(ctx, InstallRecord{Owner: "bob", Path: "/tmp/a", Digest: "cc", Jobs: 3}); err != nil {
				t.Fatalf("PutInstall: %v", err)
			}
			if err := st.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			// Reopen to prove persistence.
			st, err = Open(cfg, logx.Nop())
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer st.Close()

			r, ok, err := st.GetInstall(ctx, "alice")
			if err != nil || !ok {
				t.Fatalf("GetInstall after reopen = ok %v err %v", ok, err)
			}
			if r.Owner != "alice" || r.Path != "/tmp/b" || r.Digest != "bb" || r.Jobs != 2 {
				t.Fatalf("GetInstall = %+v, want /tmp/b digest bb jobs 2", r)
			}
			if r, ok, err := st.GetInstall(ctx, "bob"); err != nil || !ok || r.Digest != "cc" {
				t.Fatalf("GetInstall(bob) = %+v ok %v err %v", r, ok, err)
			}
			all, err := st.RecentAudit(ctx, 100)
			if err != nil {
				t.Fatalf("RecentAudit after reopen: %v", err)
			}
			if len(all) != 4 {
				t.Fatalf("len(RecentAudit) after reopen = %d, want 4", len(all))
			}
		})
	}
}

func TestRecentAuditZeroLimit(t *testing.T) {
	t.Parallel()

	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "s.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	got, err := st.RecentAudit(context.Background(), 0)
	if err != nil || got != nil {
		t.Fatalf("RecentAudit(0) = %v, %v; want nil, nil", got, err)
	}
}

func TestDigest(t *testing.T) {
	t.Parallel()

	if got := Digest(nil); got != "0" {
		t.Fatalf("Digest(nil) = %q, want 0", got)
	}
	a := Digest([]byte("* * * * * true\n"))
	b := Digest([]byte("* * * * * true\n"))
	c := Digest([]byte("* * * * * false\n"))
	if a != b {
		t.Fatalf("Digest not stable: %q vs %q", a, b)
	}
	if a == c {
		t.Fatalf("Digest collision for different input: %q", a)
	}
	if len(a) != 16 {
		t.Fatalf("len(Digest) = %d, want 16", len(a))
	}
}
