package supervisor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestGoCancelOnError(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), WithCancelOnError(true))
	boom := errors.New("boom")
	s.Go("failing", func(ctx context.Context) error { return boom })
	s.Go("waiter", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := s.Wait()
	if !errors.Is(err, boom) {
		t.Fatalf("Wait = %v, want boom", err)
	}
	if !strings.HasPrefix(err.Error(), "failing:") {
		t.Fatalf("Wait = %q, want name prefix", err)
	}
	if s.Active() != 0 || s.Started() != 2 {
		t.Fatalf("Active/Started = %d/%d, want 0/2", s.Active(), s.Started())
	}
}

func TestGoRecoversPanic(t *testing.T) {
	t.Parallel()

	s := New(context.Background())
	s.Go("panicky", func(ctx context.Context) error { panic("oops") })
	err := s.Wait()
	if err == nil || !strings.Contains(err.Error(), "panic in panicky: oops") {
		t.Fatalf("Wait = %v, want panic error", err)
	}
}

func TestGoCanceledIsClean(t *testing.T) {
	t.Parallel()

	s := New(context.Background())
	s.Go("loop", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err := s.Stop(time.Second); err != nil {
		t.Fatalf("Stop = %v, want nil", err)
	}
}

func TestGoRestart(t *testing.T) {
	t.Parallel()

	var runs int32
	s := New(context.Background())
	s.GoRestart("flaky", func(ctx context.Context) error {
		n := atomic.AddInt32(&runs, 1)
		switch n {
		case 1:
			return errors.New("transient")
		case 2:
			panic("again")
		default:
			return nil
		}
	}, WithRestartBackoff(time.Millisecond, 5*time.Millisecond))

	if err := s.Wait(); err != nil {
		t.Fatalf("Wait = %v, want nil", err)
	}
	if got := atomic.LoadInt32(&runs); got != 3 {
		t.Fatalf("runs = %d, want 3", got)
	}
}

func TestGoRestartGivesUp(t *testing.T) {
	t.Parallel()

	var runs int32
	s := New(context.Background())
	s.GoRestart("broken", func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return errors.New("still broken")
	}, WithRestartBackoff(time.Millisecond, time.Millisecond), WithMaxRestarts(2))

	err := s.Wait()
	if err == nil || !strings.Contains(err.Error(), "still broken") {
		t.Fatalf("Wait = %v, want still broken", err)
	}
	if got := atomic.LoadInt32(&runs); got != 3 {
		t.Fatalf("runs = %d, want 3", got)
	}
}
