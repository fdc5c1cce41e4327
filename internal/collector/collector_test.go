package collector_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/goleak"

	"glovecap/internal/collector"
	"glovecap/internal/config"
	"glovecap/internal/episode"
	"glovecap/internal/sample"
	"glovecap/internal/serialport"
	"glovecap/internal/testsupport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type harness struct {
	cfg    *config.Config
	src    *testsupport.LineSource
	col    *collector.Collector
	mu     sync.Mutex
	events []episode.Event
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	base := []testsupport.ConfigOption{
		testsupport.WithTaxonomy("letters", []string{"A", "B"}, "1", "2"),
		testsupport.WithSamplesPerEpisode(5),
		testsupport.WithQuota(2),
	}
	h := &harness{
		cfg: testsupport.NewConfig(t, append(base, opts...)...),
		src: testsupport.NewLineSource(),
	}
	col, err := collector.New(context.Background(), collector.Options{
		Config:    h.cfg,
		Dialer:    func(context.Context) (collector.LineSource, error) { return h.src, nil },
		SessionID: "test-session",
		OnEvent: func(ev episode.Event) {
			h.mu.Lock()
			h.events = append(h.events, ev)
			h.mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.col = col
	t.Cleanup(func() { _ = col.Close() })
	return h
}

func (h *harness) kinds() []episode.EventKind {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]episode.EventKind, 0, len(h.events))
	for _, ev := range h.events {
		out = append(out, ev.Kind)
	}
	return out
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func countFiles(t *testing.T, dir, ext string) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "episode_*"+ext))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	return len(matches)
}

func metricValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var total float64
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			}
		}
	}
	return total
}

func TestNewRefusesSecondCollectorOnSameRoot(t *testing.T) {
	h := newHarness(t)
	_, err := collector.New(context.Background(), collector.Options{
		Config: h.cfg,
		Dialer: func(context.Context) (collector.LineSource, error) { return testsupport.NewLineSource(), nil },
	})
	if !errors.Is(err, collector.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestCloseKeepsLockFileForNextCollector(t *testing.T) {
	h := newHarness(t)
	if err := h.col.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	lockPath := filepath.Join(h.cfg.Paths.DataDir, ".glovecap.lock")
	if _, err := os.Stat(lockPath); err != nil {
		t.Fatalf("lock file should survive Close: %v", err)
	}

	next, err := collector.New(context.Background(), collector.Options{
		Config: h.cfg,
		Dialer: func(context.Context) (collector.LineSource, error) { return testsupport.NewLineSource(), nil },
	})
	if err != nil {
		t.Fatalf("New after Close: %v", err)
	}
	if err := next.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestStartEpisodeRequiresConnection(t *testing.T) {
	h := newHarness(t)
	err := h.col.StartEpisode(context.Background(), "A", "1")
	if !errors.Is(err, episode.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestPipelineChainsUntilQuota(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.col.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := h.col.StartEpisode(ctx, "A", "1"); err != nil {
		t.Fatalf("StartEpisode: %v", err)
	}
	h.src.Push(testsupport.WireLines(1000, 30, 12)...)

	eventually(t, "quota for A/1", func() bool {
		current, _, _ := h.col.QueryPair("A", "1")
		return current == 2
	})
	eventually(t, "lines consumed", func() bool { return h.src.Remaining() == 0 })

	if st := h.col.Status(); st.Recorder.State != episode.StateIdle {
		t.Fatalf("expected recorder idle after quota, got %s", st.Recorder.State)
	}
	want := []episode.EventKind{episode.EventFinalized, episode.EventChained, episode.EventFinalized, episode.EventQuotaCompleted}
	got := h.kinds()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}

	dir := filepath.Join(h.cfg.Paths.DataDir, "A", "1")
	if n := countFiles(t, dir, ".csv"); n != 2 {
		t.Fatalf("expected 2 csv episodes, got %d", n)
	}
	if n := countFiles(t, dir, ".sqlite"); n != 2 {
		t.Fatalf("expected 2 container episodes, got %d", n)
	}

	if _, err := os.Stat(h.cfg.Paths.ProgressFile); err != nil {
		t.Fatalf("progress file not written: %v", err)
	}
	if snap := h.col.Progress(); snap.TotalEpisodes != 2 || snap.SessionStats.Get("A", "1") != 2 {
		t.Fatalf("unexpected snapshot totals: %+v", snap)
	}

	if got := metricValue(t, h.col.Registry(), "glovecap_recorder_episodes_finalized_total"); got != 2 {
		t.Fatalf("finalized metric = %v, want 2", got)
	}
	if got := metricValue(t, h.col.Registry(), "glovecap_queue_samples_accepted_total"); got == 0 {
		t.Fatal("expected accepted samples to be counted")
	}

	class, typ, ok := h.col.NextPending("A")
	if !ok || class != "A" || typ != "2" {
		t.Fatalf("NextPending(A) = %q %q %v", class, typ, ok)
	}
}

func TestDisconnectSavesPartialEpisode(t *testing.T) {
	h := newHarness(t, testsupport.WithSamplesPerEpisode(80))
	ctx := context.Background()
	if err := h.col.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := h.col.StartEpisode(ctx, "B", "2"); err != nil {
		t.Fatalf("StartEpisode: %v", err)
	}
	h.src.Push(testsupport.WireLines(0, 30, 10)...)
	eventually(t, "ten samples recorded", func() bool {
		return h.col.Status().Recorder.Samples == 10
	})

	if err := h.col.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if h.col.Connected() {
		t.Fatal("expected disconnected")
	}
	if !h.src.Closed() {
		t.Fatal("expected source closed")
	}
	if current, _, _ := h.col.QueryPair("B", "2"); current != 1 {
		t.Fatalf("expected partial episode counted, got %d", current)
	}
}

func TestRejectedLinesAreCounted(t *testing.T) {
	h := newHarness(t)
	h.src.Push("not,a,reading", "# comment passthrough", testsupport.WireLine(10, 1, 2, 3, [5]int{1, 2, 3, 4, 5}))
	if err := h.col.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	eventually(t, "latest reading", func() bool {
		_, ok := h.col.Latest()
		return ok
	})
	if got := h.col.Status().RejectedLines; got != 2 {
		t.Fatalf("rejected lines = %d, want 2", got)
	}
	if got := metricValue(t, h.col.Registry(), "glovecap_parser_lines_rejected_total"); got != 2 {
		t.Fatalf("rejected metric = %v, want 2", got)
	}
	r, ok := h.col.PollDisplay()
	if !ok || r.DeviceMillis != 10 {
		t.Fatalf("PollDisplay = %+v %v", r, ok)
	}
}

func TestLostSourceStopsProducer(t *testing.T) {
	h := newHarness(t)
	h.src.Lost = true
	h.src.Push(testsupport.WireLines(0, 30, 3)...)
	if err := h.col.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := h.col.Wait(ctx)
	if !errors.Is(err, serialport.ErrClosed) {
		t.Fatalf("Wait = %v, want ErrClosed", err)
	}
	if h.col.Connected() {
		t.Fatal("expected collector to report disconnected")
	}
	if st := h.col.Status(); !errors.Is(st.LastError, serialport.ErrClosed) {
		t.Fatalf("status last error = %v", st.LastError)
	}
}

func TestPostureCheck(t *testing.T) {
	h := newHarness(t)
	if _, err := h.col.CheckPosture(); !errors.Is(err, collector.ErrNoReference) {
		t.Fatalf("expected ErrNoReference, got %v", err)
	}
	if _, err := h.col.SetPostureReference(); !errors.Is(err, collector.ErrNoReading) {
		t.Fatalf("expected ErrNoReading, got %v", err)
	}

	h.src.Push(testsupport.WireLine(0, 10, 20, 0, [5]int{500, 500, 500, 500, 500}))
	if err := h.col.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	eventually(t, "first reading", func() bool { _, ok := h.col.Latest(); return ok })
	if _, err := h.col.SetPostureReference(); err != nil {
		t.Fatalf("SetPostureReference: %v", err)
	}

	h.src.Push(testsupport.WireLine(30, 12, 20, 0, [5]int{500, 500, 560, 500, 500}))
	eventually(t, "second reading", func() bool {
		r, _ := h.col.Latest()
		return r.DeviceMillis == 30
	})
	rep, err := h.col.CheckPosture()
	if err != nil {
		t.Fatalf("CheckPosture: %v", err)
	}
	if !rep.IMUOK {
		t.Fatalf("pitch delta %v should be within tolerance", rep.PitchDelta)
	}
	if rep.FlexOK || rep.FlexDelta[2] != 60 {
		t.Fatalf("expected flex3 out of tolerance, got %+v", rep)
	}
	if rep.OK() {
		t.Fatal("report should not be OK")
	}
}

func TestOrientationDeltaWrapsYaw(t *testing.T) {
	cases := []struct {
		prev, cur float64
		want      float64
	}{
		{prev: 170, cur: -170, want: 20},
		{prev: -170, cur: 170, want: -20},
		{prev: 10, cur: 30, want: 20},
	}
	for _, tc := range cases {
		got := collector.OrientationDelta(sample.Reading{Yaw: tc.prev}, sample.Reading{Yaw: tc.cur})[2]
		if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("yaw delta %v -> %v = %v, want %v", tc.prev, tc.cur, got, tc.want)
		}
	}
}

func TestResetProgressRequiresConfirmation(t *testing.T) {
	h := newHarness(t)
	testsupport.TouchEpisodes(t, h.cfg.Paths.DataDir, "A", "1", ".csv", 1)
	if _, err := h.col.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if current, _, _ := h.col.QueryPair("A", "1"); current != 1 {
		t.Fatalf("expected reconciled count 1, got %d", current)
	}
	if _, err := h.col.ResetProgress(false); err == nil {
		t.Fatal("expected reset without confirmation to fail")
	}
	res, err := h.col.ResetProgress(true)
	if err != nil {
		t.Fatalf("ResetProgress: %v", err)
	}
	if res.FilesRemoved != 1 {
		t.Fatalf("expected 1 file removed, got %d", res.FilesRemoved)
	}
	if h.col.Progress().TotalEpisodes != 0 {
		t.Fatal("expected zero episodes after reset")
	}
}
