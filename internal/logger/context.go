package logger

import (
	"context"
	"sync/atomic"
)

type fieldsKey struct{}

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(New(Config{Environment: "local"}))
}

// Default returns the process-wide logger.
func Default() *Logger {
	return defaultLogger.Load()
}

// SetDefaultLogger replaces the process-wide logger. nil is ignored.
func SetDefaultLogger(l *Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}

// WithFields returns a context whose logger carries fields in addition to
// the ones already attached. The parent context is not modified.
func WithFields(ctx context.Context, fields Fields) context.Context {
	merged := make(Fields, len(fields)+4)
	for k, v := range fieldsOf(ctx) {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// SetJob tags the context with a job's id and kind.
func SetJob(ctx context.Context, id, kind string) context.Context {
	return WithFields(ctx, Fields{FieldJobID: id, FieldJobKind: kind})
}

// FromContext returns the default logger with the context's fields.
func FromContext(ctx context.Context) *Logger {
	fields := fieldsOf(ctx)
	if len(fields) == 0 {
		return Default()
	}
	return Default().WithFields(fields)
}

// JobID returns the job id attached to ctx, or "".
func JobID(ctx context.Context) string {
	id, _ := fieldsOf(ctx)[FieldJobID].(string)
	return id
}

func fieldsOf(ctx context.Context) Fields {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).(Fields)
	return fields
}
