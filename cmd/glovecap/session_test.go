package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"glovecap/internal/collector"
	"glovecap/internal/episode"
)

// syncBuffer guards output written from the test and the session loop.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestSession(t *testing.T, env *cliTestEnv, class string) (*session, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	s := newSession(env.cfg, out, class)
	col, err := collector.New(context.Background(), collector.Options{
		Config:  env.cfg,
		Dialer:  streamDialer(&streamSource{}),
		OnEvent: s.onEvent,
	})
	if err != nil {
		t.Fatalf("collector.New: %v", err)
	}
	t.Cleanup(func() { _ = col.Close() })
	s.col = col
	if err := col.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return s, out
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func TestSessionRecordsTypeKeyUntilQuota(t *testing.T) {
	env := setupCLITestEnv(t)
	s, out := newTestSession(t, env, "A")
	ctx := context.Background()

	if quit, err := s.handle(ctx, "2"); quit || err != nil {
		t.Fatalf("handle(2) = %v, %v", quit, err)
	}
	waitFor(t, 5*time.Second, func() bool {
		s.pump()
		return strings.Contains(out.String(), "quota complete")
	})
	requireContains(t, out.String(), "● recording A/2")
	requireContains(t, out.String(), "✓ saved A/2: 5 samples")

	if _, err := s.handle(ctx, "2"); err != nil {
		t.Fatalf("handle(2) again: %v", err)
	}
	requireContains(t, out.String(), "quota already met")
}

func TestSessionClassNavigation(t *testing.T) {
	env := setupCLITestEnv(t)
	s, out := newTestSession(t, env, "A")
	ctx := context.Background()

	for _, cmd := range []string{"]", "c A", "[", "c Z", "r", "r", "b", "p", "bogus"} {
		if quit, err := s.handle(ctx, cmd); quit || err != nil {
			t.Fatalf("handle(%q) = %v, %v", cmd, quit, err)
		}
	}
	text := out.String()
	for _, want := range []string{"class: B (letters)", "class: A (letters)", `unknown class "Z"`, "realtime echo on", "realtime echo off", "buffer ", "B  1:0 2:0  total 0/2", `unknown command "bogus"`} {
		requireContains(t, text, want)
	}
	if s.class != "B" {
		t.Fatalf("expected [ to wrap from A to B, got %s", s.class)
	}
	if quit, _ := s.handle(ctx, "q"); !quit {
		t.Fatal("expected q to quit")
	}
}

func TestSessionPostureCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	s, out := newTestSession(t, env, "A")
	ctx := context.Background()

	waitFor(t, 5*time.Second, func() bool { _, ok := s.col.Latest(); return ok })
	if _, err := s.handle(ctx, "n"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.handle(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	requireContains(t, out.String(), "posture reference: pitch 1.0 roll 2.0")
	requireContains(t, out.String(), "posture OK")
}

func TestAutoWalksEveryTypeOfClass(t *testing.T) {
	env := setupCLITestEnv(t)
	s, out := newTestSession(t, env, "A")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.runAuto(ctx, &togglePoller{}, "A"); err != nil {
		t.Fatalf("runAuto: %v", err)
	}
	for _, typ := range []string{"1", "2"} {
		if cur, _, _ := s.col.QueryPair("A", typ); cur != 1 {
			t.Fatalf("A/%s = %d, want 1", typ, cur)
		}
	}
	if cur, _, _ := s.col.QueryPair("B", "1"); cur != 0 {
		t.Fatalf("auto restricted to A touched B: %d", cur)
	}
	requireContains(t, out.String(), "Next: A/1 (0/1)")
	requireContains(t, out.String(), "Next: A/2 (0/1)")
	requireContains(t, out.String(), "All quotas met.")
}

func TestLoopEndsWhenGloveIsLost(t *testing.T) {
	env := setupCLITestEnv(t)
	s, _ := newTestSession(t, env, "A")
	if err := s.col.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	err := s.loop(context.Background(), &togglePoller{}, nil)
	if err == nil || !strings.Contains(err.Error(), "glove disconnected") {
		t.Fatalf("loop error = %v", err)
	}
	if errors.Is(err, errQuit) {
		t.Fatal("lost glove must not look like a quit")
	}
	if st := s.col.Status(); st.Recorder.State != episode.StateIdle {
		t.Fatalf("recorder state = %s", st.Recorder.State)
	}
}
