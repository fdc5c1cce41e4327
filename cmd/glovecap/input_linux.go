//go:build linux

package main

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// newKeystrokePoller puts the terminal in cbreak mode: no line buffering and
// no echo, output processing untouched so log lines still end correctly.
func newKeystrokePoller(f *os.File) (*chanPoller, error) {
	fd := int(f.Fd())
	saved, err := term.GetState(fd)
	if err != nil {
		return nil, err
	}
	tio, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}
	tio.Lflag &^= unix.ICANON | unix.ECHO
	tio.Cc[unix.VMIN] = 1
	tio.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, tio); err != nil {
		return nil, err
	}

	p := &chanPoller{
		cmds:    make(chan string, 16),
		keys:    true,
		restore: func() error { return term.Restore(fd, saved) },
	}
	go keystrokeReader(f, p.cmds)
	return p, nil
}
