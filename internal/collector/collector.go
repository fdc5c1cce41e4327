package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"glovecap/internal/buffer"
	"glovecap/internal/config"
	"glovecap/internal/episode"
	"glovecap/internal/logging"
	"glovecap/internal/progress"
	"glovecap/internal/sample"
	"glovecap/internal/serialport"
	"glovecap/internal/storage"
)

// JoinTimeout bounds how long Disconnect waits for the producer to exit.
const JoinTimeout = 2 * time.Second

// LockFileName is created in the data root while a collector is open.
const LockFileName = ".glovecap.lock"

// ErrLocked means another collector holds the data root.
var ErrLocked = errors.New("data root is in use by another collector")

// LineSource yields device lines. *serialport.Source satisfies it.
type LineSource interface {
	ReadLine() (string, bool, error)
	Close() error
}

// Dialer opens a LineSource.
type Dialer func(ctx context.Context) (LineSource, error)

// Options wires a Collector.
type Options struct {
	Config *config.Config
	Logger *slog.Logger
	// Dialer defaults to SerialDialer over the configured port.
	Dialer Dialer
	// Registry receives the collector metrics; a private registry is used when nil.
	Registry *prometheus.Registry
	// OnEvent observes recorder events after internal bookkeeping.
	OnEvent func(episode.Event)
	// SessionID tags episodes and logs; a random UUID is used when empty.
	SessionID string
	Now       func() time.Time
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	Connected     bool
	Port          string
	SessionID     string
	Recorder      episode.Status
	Buffer        buffer.Stats
	Level         buffer.Level
	Sleep         time.Duration
	RejectedLines uint64
	LastError     error
}

// Collector owns one collection session over one data root.
type Collector struct {
	cfg       *config.Config
	logger    *slog.Logger
	sessionID string
	now       func() time.Time
	onEvent   func(episode.Event)

	lock     *flock.Flock
	lockPath string

	store    *progress.Store
	writer   *storage.Writer
	recorder *episode.Recorder
	queue    *buffer.Queue
	rate     *buffer.RateController
	parser   *sample.Parser
	registry *prometheus.Registry
	metrics  *collectorMetrics
	dial     Dialer

	connMu    sync.Mutex
	src       LineSource
	port      string
	cancel    context.CancelFunc
	done      chan struct{}
	connected atomic.Bool
	lastErr   atomic.Pointer[error]
	rejected  atomic.Uint64

	latestMu   sync.RWMutex
	latest     sample.Reading
	hasLatest  bool
	postureRef *sample.Reading
}

// New locks the data root, opens the progress store (reconciling it against
// the episode files) and prepares an idle, disconnected collector.
func New(ctx context.Context, opts Options) (*Collector, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("collector: config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	c := &Collector{
		cfg:       cfg,
		sessionID: opts.SessionID,
		now:       opts.Now,
		onEvent:   opts.OnEvent,
		lockPath:  filepath.Join(cfg.Paths.DataDir, LockFileName),
		registry:  opts.Registry,
		dial:      opts.Dialer,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.sessionID == "" {
		c.sessionID = uuid.NewString()
	}
	c.logger = logging.NewComponentLogger(opts.Logger, "collector")
	c.lock = flock.New(c.lockPath)

	ok, err := c.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, c.lockPath)
	}

	c.store, err = progress.Open(ctx, progress.Options{
		DataRoot:     cfg.Paths.DataDir,
		ProgressFile: cfg.Paths.ProgressFile,
		Classes:      cfg.Classes(),
		Types:        cfg.TypeIDs(),
		Quota:        cfg.Collection.EpisodesPerType,
		Logger:       opts.Logger,
		Now:          c.now,
	})
	if err != nil {
		_ = c.lock.Unlock()
		return nil, fmt.Errorf("open progress: %w", err)
	}

	if c.registry == nil {
		c.registry = prometheus.NewRegistry()
	}
	c.metrics = newCollectorMetrics(c.registry)
	c.writer = storage.NewWriter(cfg.Paths.DataDir, opts.Logger)
	c.queue = buffer.NewQueueWithThresholds(cfg.Buffer.Capacity, cfg.Buffer.WarningThreshold, cfg.Buffer.CriticalThreshold)
	c.rate = &buffer.RateController{
		Target:    cfg.Pacing.TargetHz,
		Tolerance: cfg.Pacing.ToleranceHz,
		Interval:  cfg.Pacing.ControlInterval(),
		Window:    cfg.Pacing.Window,
		Increase:  cfg.Pacing.Increase,
		Decrease:  cfg.Pacing.Decrease,
		MinSleep:  cfg.Pacing.MinSleep(),
		MaxSleep:  cfg.Pacing.MaxSleep(),
	}
	c.parser = sample.NewParserWithClock(c.now)
	if c.dial == nil {
		c.dial = SerialDialer(cfg, opts.Logger, nil)
	}

	c.recorder, err = episode.NewRecorder(episode.Options{
		SamplesPerEpisode: cfg.Collection.SamplesPerEpisode,
		DeviceID:          cfg.Collection.DeviceID,
		SessionID:         c.sessionID,
		Taxonomy:          cfg,
		Progress:          c.store,
		Persister:         c.writer,
		Connected:         c.Connected,
		ClearQueue:        func() { c.queue.Drain() },
		OnEvent:           c.handleEvent,
		Logger:            opts.Logger,
		Now:               c.now,
	})
	if err != nil {
		_ = c.lock.Unlock()
		return nil, err
	}

	c.logger.Info("collector ready",
		logging.String(logging.FieldEventType, "collector_ready"),
		logging.String(logging.FieldPath, cfg.Paths.DataDir),
		logging.Int("episodes_on_disk", c.store.Snapshot().TotalEpisodes),
	)
	return c, nil
}

// SerialDialer opens the configured glove port and sends the enabled
// post-connect commands. rawEcho, when set, sees every raw line.
func SerialDialer(cfg *config.Config, logger *slog.Logger, rawEcho func(string)) Dialer {
	return func(ctx context.Context) (LineSource, error) {
		src, err := serialport.Open(ctx, serialport.Options{
			Port:              cfg.Serial.Port,
			Baud:              cfg.Serial.BaudRate,
			SettleDelay:       cfg.Serial.SettleDelay(),
			HandshakePolls:    cfg.Serial.HandshakePolls,
			HandshakeInterval: cfg.Serial.HandshakeInterval(),
			RawEcho:           rawEcho,
			Logger:            logger,
		})
		if err != nil {
			return nil, err
		}
		var cmds []string
		if cfg.Serial.AutoRecal {
			cmds = append(cmds, serialport.CommandRecal)
		}
		if cfg.Serial.AutoYawZero {
			cmds = append(cmds, serialport.CommandYawZero)
		}
		if cfg.Serial.AutoZero {
			cmds = append(cmds, serialport.CommandZero)
		}
		if err := src.Initialize(ctx, cmds); err != nil {
			_ = src.Close()
			return nil, err
		}
		return src, nil
	}
}

// SessionID identifies this collection session in logs and episode files.
func (c *Collector) SessionID() string { return c.sessionID }

// Registry exposes the metrics registry for scraping.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Config returns the configuration the collector was built with.
func (c *Collector) Config() *config.Config { return c.cfg }

// Connected reports whether the producer is running against a live source.
func (c *Collector) Connected() bool { return c.connected.Load() }

// Connect dials the device and starts the producer and diagnostics loops.
func (c *Collector) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.connected.Load() {
		return nil
	}
	if c.done != nil {
		c.stopLocked()
	}

	src, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.src = src
	c.port = ""
	if named, ok := src.(interface{ Name() string }); ok {
		c.port = named.Name()
	}
	c.parser.Reset()
	c.rate.Restart()
	c.lastErr.Store(nil)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error { return c.runProducer(groupCtx, src) })
	group.Go(func() error { return c.runDiagnostics(groupCtx) })

	done := make(chan struct{})
	go func() {
		if err := group.Wait(); err != nil {
			c.lastErr.Store(&err)
		}
		c.connected.Store(false)
		close(done)
	}()

	c.cancel = cancel
	c.done = done
	c.connected.Store(true)
	c.logger.Info("collector connected",
		logging.String(logging.FieldEventType, "collector_connected"),
		logging.String(logging.FieldPort, c.port),
	)
	return nil
}

// Disconnect finalizes any open episode, stops the producer and closes the
// source. It waits up to JoinTimeout for the producer to exit.
func (c *Collector) Disconnect(ctx context.Context) error {
	if c.recorder.Recording() {
		if _, err := c.recorder.Finalize(ctx); err != nil && !errors.Is(err, episode.ErrEmptyEpisode) && !errors.Is(err, episode.ErrNotRecording) {
			c.logger.Warn("open episode not saved on disconnect", logging.Error(err))
		}
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.stopLocked()
}

func (c *Collector) stopLocked() error {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.done != nil {
		timer := time.NewTimer(JoinTimeout)
		select {
		case <-c.done:
		case <-timer.C:
			logging.WarnWithContext(c.logger, "producer did not stop in time", "producer_join_timeout",
				logging.Duration("timeout", JoinTimeout),
				logging.String(logging.FieldErrorHint, "the serial read may be stuck; unplug the glove if it persists"),
				logging.String(logging.FieldImpact, "shutdown continues without waiting"),
			)
		}
		timer.Stop()
		c.done = nil
	}
	c.connected.Store(false)

	var err error
	if c.src != nil {
		err = c.src.Close()
		c.src = nil
		c.logger.Info("collector disconnected",
			logging.String(logging.FieldEventType, "collector_disconnected"),
			logging.String(logging.FieldPort, c.port),
		)
	}
	return err
}

// Close disconnects and releases the data-root lock. The lock file stays in
// place so every process locks the same inode.
func (c *Collector) Close() error {
	err := c.Disconnect(context.Background())
	if unlockErr := c.lock.Unlock(); unlockErr != nil {
		logging.WarnWithContext(c.logger, "failed to release data root lock", "lock_release_failed",
			logging.Error(unlockErr),
			logging.String(logging.FieldPath, c.lockPath),
			logging.String(logging.FieldErrorHint, "the lock is released when this process exits"),
		)
	}
	return err
}

// StartEpisode opens an episode for (class, episodeType).
func (c *Collector) StartEpisode(ctx context.Context, class, episodeType string) error {
	return c.recorder.Start(ctx, class, episodeType)
}

// StopEpisode finalizes the open episode.
func (c *Collector) StopEpisode(ctx context.Context) (*episode.Result, error) {
	return c.recorder.Finalize(ctx)
}

// CancelEpisode drops the open episode without saving it.
func (c *Collector) CancelEpisode() bool {
	return c.recorder.Cancel()
}

// QueryProgress summarizes one class.
func (c *Collector) QueryProgress(class string) progress.ClassProgress {
	return c.store.QueryClass(class)
}

// QueryPair returns current, target and remaining for one pair.
func (c *Collector) QueryPair(class, episodeType string) (int, int, int) {
	return c.store.Query(class, episodeType)
}

// Progress returns the full progress document.
func (c *Collector) Progress() progress.Snapshot {
	return c.store.Snapshot()
}

// Reconcile rescans the data root.
func (c *Collector) Reconcile(ctx context.Context) (bool, error) {
	return c.store.Reconcile(ctx)
}

// ResetProgress deletes every episode and zeroes progress when confirmed.
func (c *Collector) ResetProgress(confirm bool) (progress.ResetResult, error) {
	if confirm && c.recorder.Recording() {
		c.recorder.Cancel()
	}
	return c.store.Reset(confirm)
}

// NextPending returns the first (class, type) pair in taxonomy order that is
// still below quota. A non-empty class restricts the search to that class.
func (c *Collector) NextPending(class string) (string, string, bool) {
	classes := c.cfg.Classes()
	if class != "" {
		classes = []string{config.NormalizeLabel(class)}
	}
	for _, cl := range classes {
		for _, t := range c.cfg.TypeIDs() {
			if _, _, remaining := c.store.Query(cl, t); remaining > 0 {
				return cl, t, true
			}
		}
	}
	return "", "", false
}

// Latest returns the most recent parsed reading.
func (c *Collector) Latest() (sample.Reading, bool) {
	c.latestMu.RLock()
	defer c.latestMu.RUnlock()
	return c.latest, c.hasLatest
}

// PollDisplay removes the oldest reading from the display queue.
func (c *Collector) PollDisplay() (sample.Reading, bool) {
	return c.queue.Poll()
}

// BufferStats returns the display queue counters.
func (c *Collector) BufferStats() buffer.Stats {
	return c.queue.Stats()
}

// Status returns a snapshot of the whole pipeline.
func (c *Collector) Status() Status {
	st := Status{
		Connected:     c.Connected(),
		SessionID:     c.sessionID,
		Recorder:      c.recorder.Status(),
		Buffer:        c.queue.Stats(),
		Level:         c.queue.Level(),
		Sleep:         c.rate.Sleep(),
		RejectedLines: c.rejected.Load(),
	}
	c.connMu.Lock()
	st.Port = c.port
	c.connMu.Unlock()
	if errp := c.lastErr.Load(); errp != nil {
		st.LastError = *errp
	}
	return st
}

// Wait blocks until the producer exits or ctx is done.
func (c *Collector) Wait(ctx context.Context) error {
	c.connMu.Lock()
	done := c.done
	c.connMu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		if errp := c.lastErr.Load(); errp != nil {
			return *errp
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Collector) handleEvent(ev episode.Event) {
	if ev.Kind == episode.EventFinalized {
		c.metrics.episodesFinalized.WithLabelValues(ev.Type).Inc()
	}
	if c.onEvent != nil {
		c.onEvent(ev)
	}
}

func (c *Collector) setLatest(r sample.Reading) {
	c.latestMu.Lock()
	c.latest = r
	c.hasLatest = true
	c.latestMu.Unlock()
}
