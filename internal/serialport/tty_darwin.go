//go:build darwin

package serialport

import "golang.org/x/sys/unix"

const (
	ioctlGetTermios = unix.TIOCGETA
	ioctlSetTermios = unix.TIOCSETA

	// x/sys/unix does not export these for darwin.
	ioctlBytesWaiting = 0x4004667f // FIONREAD
	flushReadWrite    = 0x3        // FREAD | FWRITE
)

// Darwin termios tops out at 230400 without IOSSIOSPEED.
var baudRates = map[int]uint64{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

func setSpeed(t *unix.Termios, baud int) {
	speed := baudRates[baud]
	t.Ispeed = speed
	t.Ospeed = speed
}

func (t *tty) Buffered() (int, error) {
	return unix.IoctlGetInt(t.fd, ioctlBytesWaiting)
}

func (t *tty) Flush() error {
	return unix.IoctlSetPointerInt(t.fd, unix.TIOCFLUSH, flushReadWrite)
}
