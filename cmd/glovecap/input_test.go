package main

import (
	"strings"
	"testing"
	"time"
)

func drainPoller(t *testing.T, p commandPoller, want int) []string {
	t.Helper()
	var got []string
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < want && time.Now().Before(deadline) {
		if cmd, ok := p.TryReadCommand(); ok {
			got = append(got, cmd)
			continue
		}
		time.Sleep(time.Millisecond)
	}
	return got
}

func TestLinePollerSplitsLines(t *testing.T) {
	p := newCommandPoller(strings.NewReader("1\n\n  c ㄱ  \nq\n"))
	defer p.Close()
	if p.Keystrokes() {
		t.Fatal("non-terminal input must use the line poller")
	}
	got := drainPoller(t, p, 4)
	want := []string{"1", "enter", "c ㄱ", "q"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("commands = %q, want %q", got, want)
	}
	if _, ok := p.TryReadCommand(); ok {
		t.Fatal("expected no further commands")
	}
}

func TestKeystrokeReaderMapsControlKeys(t *testing.T) {
	cmds := make(chan string, 8)
	keystrokeReader(strings.NewReader("s\r \x03ㄱ"), cmds)
	var got []string
	for c := range cmds {
		got = append(got, c)
	}
	want := []string{"s", "enter", "enter", "q", "ㄱ"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("keys = %q, want %q", got, want)
	}
}
