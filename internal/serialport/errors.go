package serialport

import (
	"errors"
	"fmt"
)

var (
	// ErrPortNotFound means discovery found no candidate device.
	ErrPortNotFound = errors.New("no serial port found")
	// ErrHandshakeTimeout means the device never answered the header request.
	ErrHandshakeTimeout = errors.New("device did not answer header handshake")
	// ErrClosed is returned once the port is closed or has disappeared.
	ErrClosed = errors.New("serial port closed")
)

// ConnectionError wraps failures to establish the device link.
type ConnectionError struct {
	Port string
	Op   string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("serial %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("serial %s %s: %v", e.Op, e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
