//go:build !linux && !darwin

package serialport

import (
	"errors"
	"runtime"
)

type tty struct{ Port }

func openTTY(path string, baud int) (*tty, error) {
	return nil, errors.New("serial ports are not supported on " + runtime.GOOS)
}
