// Package serialport connects to the glove over a serial tty and yields its
// ASCII lines without blocking.
//
// Open resolves the port (auto-discovering by device name when none is
// configured), configures the tty raw 8N1 at the requested baud, and performs
// the header handshake. ReadLine then returns at most one complete line per
// call, or nothing when no complete line is buffered yet.
//
// HotplugMonitor listens for kernel uevents so the CLI can notice the glove
// being plugged in or pulled out.
package serialport
