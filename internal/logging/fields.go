package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. episode_finalized).
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step to an operator reading a warning.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldClass is the class label an episode belongs to.
	FieldClass = "class"
	// FieldEpisodeType is the episode-type identifier (1-5 by default).
	FieldEpisodeType = "episode_type"
	// FieldPort is the serial device path.
	FieldPort = "port"
	// FieldPath is a filesystem path.
	FieldPath = "path"
	// FieldFormat names a persisted episode format (csv, sqlite).
	FieldFormat = "format"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)
