package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"glovecap/internal/collector"
	"glovecap/internal/config"
	"glovecap/internal/episode"
	"glovecap/internal/sample"
)

// session drives one interactive collection run: it dispatches operator
// commands to the collector and renders events and readings.
type session struct {
	col    *collector.Collector
	cfg    *config.Config
	out    io.Writer
	events chan episode.Event

	class   string
	echo    bool
	prev    sample.Reading
	hasPrev bool
}

func newSession(cfg *config.Config, out io.Writer, class string) *session {
	return &session{
		cfg:    cfg,
		out:    out,
		events: make(chan episode.Event, 64),
		class:  class,
	}
}

// onEvent runs on the producer goroutine; rendering happens in pump.
func (s *session) onEvent(ev episode.Event) {
	select {
	case s.events <- ev:
	default:
	}
}

// pump renders pending events and, with echo on, drains the display queue.
// Without echo the queue is still drained so occupancy reflects a live
// consumer.
func (s *session) pump() {
drain:
	for {
		select {
		case ev := <-s.events:
			s.renderEvent(ev)
		default:
			break drain
		}
	}
	for {
		r, ok := s.col.PollDisplay()
		if !ok {
			return
		}
		if s.echo {
			s.renderReading(r)
		}
		s.prev, s.hasPrev = r, true
	}
}

func (s *session) renderEvent(ev episode.Event) {
	res := ev.Result
	switch ev.Kind {
	case episode.EventFinalized:
		if res == nil {
			return
		}
		fmt.Fprintf(s.out, "✓ saved %s/%s: %d samples, %.1f Hz, %s (%d/%d)\n",
			res.Class, res.Type, res.Samples, res.AvgRateHz, res.Duration.Round(10*time.Millisecond), res.Count, res.Quota)
	case episode.EventChained:
		fmt.Fprintf(s.out, "→ next %s/%s episode started\n", ev.Class, ev.Type)
	case episode.EventQuotaCompleted:
		fmt.Fprintf(s.out, "★ %s/%s quota complete\n", ev.Class, ev.Type)
	}
}

func (s *session) renderReading(r sample.Reading) {
	line := fmt.Sprintf("%8d  P%7.2f R%7.2f Y%7.2f  F%4d %4d %4d %4d %4d  %5.1fHz",
		r.DeviceMillis, r.Pitch, r.Roll, r.Yaw,
		r.Flex[0], r.Flex[1], r.Flex[2], r.Flex[3], r.Flex[4], r.SamplingHz)
	if s.hasPrev {
		d := collector.OrientationDelta(s.prev, r)
		line += fmt.Sprintf("  Δ %+.2f %+.2f %+.2f", d[0], d[1], d[2])
	}
	fmt.Fprintln(s.out, line)
}

// handle runs one operator command. It returns true when the session should end.
func (s *session) handle(ctx context.Context, cmd string) (bool, error) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return false, nil
	}
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)

	if slices.Contains(s.cfg.TypeIDs(), name) {
		if err := s.col.StartEpisode(ctx, s.class, name); err != nil {
			s.reportError(err)
			return false, nil
		}
		fmt.Fprintf(s.out, "● recording %s/%s (%d samples per episode)\n", s.class, name, s.cfg.Collection.SamplesPerEpisode)
		return false, nil
	}

	switch name {
	case "q", "quit":
		return true, nil
	case "s", "stop":
		if _, err := s.col.StopEpisode(ctx); err != nil {
			s.reportError(err)
		}
	case "x", "cancel":
		if s.col.CancelEpisode() {
			fmt.Fprintln(s.out, "✗ episode discarded")
		}
	case "p", "progress":
		s.printClassProgress()
	case "b", "buffer":
		s.printBuffer()
	case "r", "echo":
		s.echo = !s.echo
		fmt.Fprintf(s.out, "realtime echo %s\n", onOff(s.echo))
	case "n", "reference":
		r, err := s.col.SetPostureReference()
		if err != nil {
			s.reportError(err)
			return false, nil
		}
		fmt.Fprintf(s.out, "posture reference: pitch %.1f roll %.1f flex %v\n", r.Pitch, r.Roll, r.Flex)
	case "k", "posture":
		s.printPosture()
	case "]", "[":
		s.stepClass(name == "]")
	case "c", "class":
		if arg == "" {
			fmt.Fprintf(s.out, "current class: %s\n", s.class)
			return false, nil
		}
		s.setClass(arg)
	case "h", "?", "help":
		s.printHelp()
	case "enter":
	default:
		fmt.Fprintf(s.out, "unknown command %q (h for help)\n", cmd)
	}
	return false, nil
}

func (s *session) setClass(label string) {
	label = config.NormalizeLabel(label)
	if s.cfg.ClassIndex(label) < 0 {
		fmt.Fprintf(s.out, "unknown class %q\n", label)
		return
	}
	s.class = label
	fmt.Fprintf(s.out, "class: %s (%s)\n", label, s.cfg.CategoryOf(label))
}

func (s *session) stepClass(forward bool) {
	classes := s.cfg.Classes()
	i := s.cfg.ClassIndex(s.class)
	if forward {
		i = (i + 1) % len(classes)
	} else {
		i = (i - 1 + len(classes)) % len(classes)
	}
	s.setClass(classes[i])
}

func (s *session) printClassProgress() {
	cp := s.col.QueryProgress(s.class)
	parts := make([]string, 0, len(cp.PerType))
	for _, t := range s.cfg.TypeIDs() {
		parts = append(parts, fmt.Sprintf("%s:%d", t, cp.PerType[t]))
	}
	fmt.Fprintf(s.out, "%s  %s  total %d/%d\n", s.class, strings.Join(parts, " "), cp.Total, cp.Target)
}

func (s *session) printBuffer() {
	st := s.col.Status()
	b := st.Buffer
	fmt.Fprintf(s.out, "buffer %d/%d (%.0f%%, peak %.0f%%) %s · accepted %s dropped %s (%.2f%%) · %.1f Hz · sleep %s · rejected %s\n",
		b.Size, b.Capacity, b.Occupancy*100, b.PeakOccupancy*100, st.Level,
		humanize.Comma(int64(b.Accepted)), humanize.Comma(int64(b.Dropped)), b.LossPercent(),
		b.MeanRate, st.Sleep, humanize.Comma(int64(st.RejectedLines)))
}

func (s *session) printPosture() {
	rep, err := s.col.CheckPosture()
	if err != nil {
		s.reportError(err)
		return
	}
	verdict := "OK"
	if !rep.OK() {
		verdict = "ADJUST"
	}
	fmt.Fprintf(s.out, "posture %s: Δpitch %+.1f Δroll %+.1f (imu %s) Δflex %v (flex %s)\n",
		verdict, rep.PitchDelta, rep.RollDelta, okMark(rep.IMUOK), rep.FlexDelta, okMark(rep.FlexOK))
}

func (s *session) printHelp() {
	fmt.Fprintf(s.out, `commands:
  %s   start an episode of that type for the current class
  s   stop and save the open episode      x   discard the open episode
  [ ] previous / next class               c <label>  choose class
  p   class progress                      b   buffer statistics
  r   toggle realtime echo                n/k posture reference / check
  q   quit
`, strings.Join(s.cfg.TypeIDs(), " "))
}

func (s *session) reportError(err error) {
	switch {
	case errors.Is(err, episode.ErrQuotaReached):
		fmt.Fprintf(s.out, "quota already met: %v\n", err)
	case errors.Is(err, episode.ErrNotRecording), errors.Is(err, episode.ErrEmptyEpisode):
		fmt.Fprintln(s.out, "no episode data to save")
	default:
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func okMark(v bool) string {
	if v {
		return "ok"
	}
	return "out of range"
}
