package episode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"glovecap/internal/config"
	"glovecap/internal/logging"
	"glovecap/internal/sample"
	"glovecap/internal/storage"
)

// DefaultSamplesPerEpisode is the auto-chain threshold.
const DefaultSamplesPerEpisode = 80

// Taxonomy resolves class and type labels. *config.Config satisfies it.
type Taxonomy interface {
	Classes() []string
	TypeIDs() []string
	CategoryOf(class string) string
	ClassIndex(class string) int
}

// Progress is the slice of the progress store the recorder needs.
type Progress interface {
	Query(class, episodeType string) (current, target, remaining int)
	Increment(class, episodeType string) (int, error)
}

// Persister writes a finalized episode.
type Persister interface {
	Write(ctx context.Context, meta storage.Metadata, readings []sample.Reading) (map[storage.Format]string, error)
}

// Options wires a Recorder.
type Options struct {
	SamplesPerEpisode int
	DeviceID          string
	SessionID         string

	Taxonomy  Taxonomy
	Progress  Progress
	Persister Persister

	// Connected reports whether the device link is up. Nil means always.
	Connected func() bool
	// ClearQueue discards stale display samples when an episode starts.
	ClearQueue func()
	// OnEvent observes finalize, chain and quota events.
	OnEvent func(Event)

	Logger *slog.Logger
	Now    func() time.Time
}

// Recorder accumulates readings for the open episode. All methods are safe
// for concurrent use; Feed is called from the producer goroutine.
type Recorder struct {
	mu      sync.Mutex
	opts    Options
	state   State
	current *Episode
	logger  *slog.Logger
}

// NewRecorder validates opts and returns an idle recorder.
func NewRecorder(opts Options) (*Recorder, error) {
	if opts.Taxonomy == nil || opts.Progress == nil || opts.Persister == nil {
		return nil, errors.New("episode: taxonomy, progress and persister are required")
	}
	if opts.SamplesPerEpisode <= 0 {
		opts.SamplesPerEpisode = DefaultSamplesPerEpisode
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Recorder{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "recorder"),
	}, nil
}

// Start opens an episode for (class, episodeType). An episode already open is
// finalized first; the quota is checked afterwards so the finalized episode
// counts against it.
func (r *Recorder) Start(ctx context.Context, class, episodeType string) error {
	class = config.NormalizeLabel(class)
	episodeType = config.NormalizeLabel(episodeType)

	if r.opts.Connected != nil && !r.opts.Connected() {
		return ErrNotConnected
	}
	if !slices.Contains(r.opts.Taxonomy.TypeIDs(), episodeType) {
		return fmt.Errorf("%w: %q", ErrUnknownType, episodeType)
	}
	if !slices.Contains(r.opts.Taxonomy.Classes(), class) {
		return fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}

	r.mu.Lock()
	var events []Event
	if r.state == StateRecording {
		if len(r.current.Readings) > 0 {
			if res, err := r.finalizeLocked(ctx); err == nil {
				events = append(events, Event{Kind: EventFinalized, Class: res.Class, Type: res.Type, Result: res})
				if res.Count >= res.Quota {
					events = append(events, Event{Kind: EventQuotaCompleted, Class: res.Class, Type: res.Type, Result: res})
				}
			}
		} else {
			r.state = StateIdle
			r.current = nil
		}
	}
	var err error
	if current, target, _ := r.opts.Progress.Query(class, episodeType); current >= target {
		err = fmt.Errorf("%w: %s/%s has %d of %d", ErrQuotaReached, class, episodeType, current, target)
	} else {
		r.startLocked(class, episodeType)
	}
	r.mu.Unlock()

	r.dispatch(events)
	return err
}

// startLocked opens a fresh episode. Callers hold r.mu.
func (r *Recorder) startLocked(class, episodeType string) {
	if r.opts.ClearQueue != nil {
		r.opts.ClearQueue()
	}
	r.current = &Episode{
		Class:     class,
		Type:      episodeType,
		SessionID: r.opts.SessionID,
		StartedAt: r.opts.Now(),
		Readings:  make([]sample.Reading, 0, r.opts.SamplesPerEpisode),
	}
	r.state = StateRecording
	r.logger.Info("episode started",
		logging.Args(append(logging.EpisodeAttrs(class, episodeType),
			logging.String(logging.FieldEventType, "episode_started"),
			logging.Int("target_samples", r.opts.SamplesPerEpisode),
		)...)...,
	)
}

// Feed appends a reading to the open episode. Reaching the sample target
// finalizes the episode and restarts the same pair unless its quota is met.
func (r *Recorder) Feed(ctx context.Context, reading sample.Reading) {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return
	}
	r.current.Readings = append(r.current.Readings, reading)
	if len(r.current.Readings) < r.opts.SamplesPerEpisode {
		r.mu.Unlock()
		return
	}

	class, episodeType := r.current.Class, r.current.Type
	var events []Event
	res, err := r.finalizeLocked(ctx)
	if err == nil {
		events = append(events, Event{Kind: EventFinalized, Class: class, Type: episodeType, Result: res})
		if res.Count >= res.Quota {
			events = append(events, Event{Kind: EventQuotaCompleted, Class: class, Type: episodeType, Result: res})
			r.logger.Info("quota completed",
				logging.Args(append(logging.EpisodeAttrs(class, episodeType),
					logging.String(logging.FieldEventType, "quota_completed"),
					logging.Int("episodes", res.Count),
				)...)...,
			)
		} else {
			r.startLocked(class, episodeType)
			events = append(events, Event{Kind: EventChained, Class: class, Type: episodeType, Result: res})
		}
	}
	r.mu.Unlock()

	r.dispatch(events)
}

// Finalize closes the open episode, persists it and counts it.
func (r *Recorder) Finalize(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	res, err := r.finalizeLocked(ctx)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	r.dispatch([]Event{{Kind: EventFinalized, Class: res.Class, Type: res.Type, Result: res}})
	return res, nil
}

// finalizeLocked persists the open episode and returns to Idle. Callers hold r.mu.
func (r *Recorder) finalizeLocked(ctx context.Context) (*Result, error) {
	if r.state != StateRecording || r.current == nil {
		logging.WarnWithContext(r.logger, "finalize requested with no open episode", "episode_not_recording",
			logging.String(logging.FieldErrorHint, "start an episode first"),
			logging.String(logging.FieldImpact, "nothing was saved"),
		)
		return nil, ErrNotRecording
	}
	ep := r.current
	if len(ep.Readings) == 0 {
		r.state = StateIdle
		r.current = nil
		logging.WarnWithContext(r.logger, "episode discarded without samples", "episode_empty",
			append(logging.EpisodeAttrs(ep.Class, ep.Type),
				logging.String(logging.FieldErrorHint, "check that the glove is streaming"),
				logging.String(logging.FieldImpact, "nothing was saved"),
			)...,
		)
		return nil, ErrEmptyEpisode
	}

	r.state = StateFinalizing
	defer func() {
		r.state = StateIdle
		r.current = nil
	}()

	ep.Duration = r.opts.Now().Sub(ep.StartedAt)
	meta := storage.Metadata{
		Class:       ep.Class,
		EpisodeType: ep.Type,
		Category:    r.opts.Taxonomy.CategoryOf(ep.Class),
		Label:       ep.Class,
		LabelIndex:  r.opts.Taxonomy.ClassIndex(ep.Class),
		DeviceID:    r.opts.DeviceID,
		SessionID:   ep.SessionID,
		StartedAt:   ep.StartedAt,
		Duration:    ep.Duration,
	}

	if ctx == nil {
		ctx = context.Background()
	}
	paths, persistErr := r.opts.Persister.Write(context.WithoutCancel(ctx), meta, ep.Readings)
	res := &Result{
		Class:     ep.Class,
		Type:      ep.Type,
		Samples:   len(ep.Readings),
		Duration:  ep.Duration,
		AvgRateHz: storage.AverageRate(ep.Readings),
		Paths:     paths,
	}
	if len(paths) == 0 {
		logging.ErrorWithContext(r.logger, "episode not persisted in any format", "episode_persist_failed",
			append(logging.EpisodeAttrs(ep.Class, ep.Type),
				logging.Error(persistErr),
				logging.String(logging.FieldErrorHint, "check free space and permissions under the data root"),
			)...,
		)
		return nil, fmt.Errorf("persist episode: %w", persistErr)
	}

	count, err := r.opts.Progress.Increment(ep.Class, ep.Type)
	if err != nil {
		logging.WarnWithContext(r.logger, "progress not saved", "progress_save_failed",
			append(logging.EpisodeAttrs(ep.Class, ep.Type),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run glovecap reconcile once the data root is writable"),
				logging.String(logging.FieldImpact, "progress file lags the episode files"),
			)...,
		)
	}
	_, quota, _ := r.opts.Progress.Query(ep.Class, ep.Type)
	res.Count = count
	res.Quota = quota

	r.logger.Info("episode saved",
		logging.Args(append(logging.EpisodeAttrs(ep.Class, ep.Type),
			logging.String(logging.FieldEventType, "episode_finalized"),
			logging.Int("samples", res.Samples),
			logging.Duration("duration", res.Duration),
			logging.Float64("avg_hz", res.AvgRateHz),
			logging.Int("count", count),
			logging.Int("quota", quota),
			logging.Bool("partial", persistErr != nil),
		)...)...,
	)
	return res, nil
}

// Cancel drops the open episode without persisting it.
func (r *Recorder) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return false
	}
	r.state = StateIdle
	r.current = nil
	return true
}

// Status returns a snapshot for display.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Status{State: r.state, Target: r.opts.SamplesPerEpisode}
	if r.current != nil {
		st.Class = r.current.Class
		st.Type = r.current.Type
		st.Samples = len(r.current.Readings)
		st.Elapsed = r.opts.Now().Sub(r.current.StartedAt)
	}
	return st
}

// Recording reports whether an episode is open.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == StateRecording
}

func (r *Recorder) dispatch(events []Event) {
	if r.opts.OnEvent == nil {
		return
	}
	for _, ev := range events {
		r.opts.OnEvent(ev)
	}
}
