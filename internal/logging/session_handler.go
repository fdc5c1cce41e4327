package logging

import "log/slog"

// FieldSessionID keys the collection session on every log line. Episode files
// carry the same value, and `glovecap logs --session` filters on it.
const FieldSessionID = "session_id"

// withSessionID binds the session id on base before any group is opened, so
// component loggers that call WithGroup still emit it as a top-level field.
func withSessionID(base slog.Handler, sessionID string) slog.Handler {
	if base == nil {
		return NoopHandler{}
	}
	return base.WithAttrs([]slog.Attr{slog.String(FieldSessionID, sessionID)})
}
