package logger

// Fields is a set of structured log fields.
type Fields map[string]interface{}

// Context fields, attached once and inherited by everything below.
const (
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldJobKind   = "job_kind" // html or video
	FieldComponent = "component"
	FieldModel     = "model"
)

// Per-line metric fields.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
	FieldAttempt    = "attempt" // 1-based
	FieldExitCode   = "exit_code"
	FieldTruncated  = "truncated"
)
