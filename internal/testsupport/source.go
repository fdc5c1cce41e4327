package testsupport

import (
	"sync"

	"glovecap/internal/serialport"
)

// LineSource is an in-memory device. Lines queued with Push are returned in
// order; once exhausted ReadLine reports no data until Push or Close.
type LineSource struct {
	mu     sync.Mutex
	lines  []string
	closed bool
	// Lost makes ReadLine report a lost connection after the queued lines.
	Lost bool
}

// NewLineSource returns a source preloaded with lines.
func NewLineSource(lines ...string) *LineSource {
	return &LineSource{lines: append([]string(nil), lines...)}
}

// Push queues more lines.
func (s *LineSource) Push(lines ...string) {
	s.mu.Lock()
	s.lines = append(s.lines, lines...)
	s.mu.Unlock()
}

// Remaining reports how many queued lines have not been read.
func (s *LineSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// Name identifies the fake port.
func (s *LineSource) Name() string { return "/dev/ttyFAKE0" }

func (s *LineSource) ReadLine() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, serialport.ErrClosed
	}
	if len(s.lines) == 0 {
		if s.Lost {
			s.closed = true
			return "", false, serialport.ErrClosed
		}
		return "", false, nil
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, true, nil
}

func (s *LineSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Closed reports whether Close has been called or the source was lost.
func (s *LineSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
