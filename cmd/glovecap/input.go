package main

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// commandPoller delivers operator commands without blocking the display loop.
type commandPoller interface {
	// TryReadCommand returns the next pending command, if any.
	TryReadCommand() (string, bool)
	// Keystrokes reports whether each key press is its own command.
	Keystrokes() bool
	Close() error
}

// newCommandPoller reads single keystrokes when in is a terminal that can be
// switched to cbreak mode, and whole lines otherwise.
func newCommandPoller(in io.Reader) commandPoller {
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		if p, err := newKeystrokePoller(f); err == nil {
			return p
		}
	}
	return newLinePoller(in)
}

type chanPoller struct {
	cmds      chan string
	keys      bool
	closeOnce sync.Once
	restore   func() error
}

func (p *chanPoller) TryReadCommand() (string, bool) {
	select {
	case cmd, ok := <-p.cmds:
		return cmd, ok
	default:
		return "", false
	}
}

func (p *chanPoller) Keystrokes() bool { return p.keys }

func (p *chanPoller) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if p.restore != nil {
			err = p.restore()
		}
	})
	return err
}

// newLinePoller treats each input line as one command; a blank line is
// "enter". The reader goroutine ends at EOF; a blocked terminal read outlives
// Close.
func newLinePoller(in io.Reader) *chanPoller {
	p := &chanPoller{cmds: make(chan string, 16)}
	go func() {
		defer close(p.cmds)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				line = "enter"
			}
			p.cmds <- line
		}
	}()
	return p
}

// keystrokeReader forwards each rune from r as its own command.
func keystrokeReader(r io.Reader, cmds chan<- string) {
	defer close(cmds)
	br := bufio.NewReader(r)
	for {
		ch, _, err := br.ReadRune()
		if err != nil {
			return
		}
		switch ch {
		case '\r', '\n', ' ':
			cmds <- "enter"
		case 3, 4: // ^C, ^D
			cmds <- "q"
		default:
			cmds <- string(ch)
		}
	}
}
