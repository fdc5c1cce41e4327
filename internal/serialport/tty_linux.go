//go:build linux

package serialport

import "golang.org/x/sys/unix"

const (
	ioctlGetTermios = unix.TCGETS
	ioctlSetTermios = unix.TCSETS
)

var baudRates = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
	460800: unix.B460800,
	921600: unix.B921600,
}

func setSpeed(t *unix.Termios, baud int) {
	speed := baudRates[baud]
	t.Cflag &^= unix.CBAUD
	t.Cflag |= speed
	t.Ispeed = speed
	t.Ospeed = speed
}

func (t *tty) Buffered() (int, error) {
	return unix.IoctlGetInt(t.fd, unix.TIOCINQ)
}

func (t *tty) Flush() error {
	return unix.IoctlSetInt(t.fd, unix.TCFLSH, unix.TCIOFLUSH)
}
