package serialport

// Port is a non-blocking byte stream with an input-queue probe. The tty
// implementation satisfies it; tests use in-memory fakes.
type Port interface {
	// Read returns whatever is available, possibly zero bytes, without blocking.
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	// Buffered reports how many input bytes are waiting.
	Buffered() (int, error)
	// Flush discards pending input and output.
	Flush() error
	Close() error
}
