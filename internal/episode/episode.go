package episode

import (
	"errors"
	"time"

	"glovecap/internal/sample"
	"glovecap/internal/storage"
)

// State is the recorder lifecycle.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	default:
		return "idle"
	}
}

var (
	ErrNotConnected = errors.New("device not connected")
	ErrUnknownType  = errors.New("unknown episode type")
	ErrUnknownClass = errors.New("unknown class")
	ErrQuotaReached = errors.New("quota already reached")
	ErrNotRecording = errors.New("no episode is recording")
	ErrEmptyEpisode = errors.New("episode has no samples")
)

// Episode is one labelled recording.
type Episode struct {
	Class     string
	Type      string
	SessionID string
	StartedAt time.Time
	Duration  time.Duration
	Readings  []sample.Reading
}

// Result describes a finalized episode.
type Result struct {
	Class     string
	Type      string
	Samples   int
	Duration  time.Duration
	AvgRateHz float64
	Paths     map[storage.Format]string
	// Count is the progress count for the pair after this episode.
	Count int
	Quota int
}

// Status is a display snapshot.
type Status struct {
	State   State
	Class   string
	Type    string
	Samples int
	Target  int
	Elapsed time.Duration
}

// EventKind enumerates recorder notifications.
type EventKind int

const (
	EventFinalized EventKind = iota
	EventChained
	EventQuotaCompleted
)

func (k EventKind) String() string {
	switch k {
	case EventChained:
		return "chained"
	case EventQuotaCompleted:
		return "quota_completed"
	default:
		return "finalized"
	}
}

// Event is passed to the OnEvent callback after the recorder lock is released.
type Event struct {
	Kind   EventKind
	Class  string
	Type   string
	Result *Result
}
