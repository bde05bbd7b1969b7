// Package logger wraps logrus with context-carried fields. A request or job
// attaches its identifiers to the context once, and every line logged below
// it carries the same fields.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Logger is a logrus entry carrying structured fields.
type Logger struct {
	*logrus.Entry
}

// Config configures a Logger.
type Config struct {
	Level       string // debug, info, warn, error
	Format      string // json, text
	ServiceName string
	// Environment "local" always logs to stdout only.
	Environment string
	// Output overrides every other destination when set.
	Output io.Writer
	File   FileConfig
}

// FileConfig enables a rotated log file outside the local environment.
type FileConfig struct {
	Path       string
	Only       bool // skip stdout
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	fileMu sync.Mutex
	file   io.Closer
)

// New creates a Logger.
func New(cfg Config) *Logger {
	base := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)
	base.SetReportCaller(true)
	base.SetFormatter(newFormatter(cfg.Format))
	base.SetOutput(openOutput(cfg))

	service := cfg.ServiceName
	if service == "" {
		service = "huiyan"
	}
	return &Logger{Entry: base.WithField("service", service)}
}

// NewDefault creates a Logger from LOG_* environment variables.
func NewDefault() *Logger {
	return New(ConfigFromEnv())
}

func newFormatter(format string) logrus.Formatter {
	if strings.EqualFold(format, "text") {
		return &logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  timestampLayout,
			CallerPrettyfier: shortCaller,
		}
	}
	return &logrus.JSONFormatter{
		TimestampFormat: timestampLayout,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "message",
		},
		CallerPrettyfier: shortCaller,
	}
}

func openOutput(cfg Config) io.Writer {
	if cfg.Output != nil {
		return cfg.Output
	}

	toFile := cfg.Environment != "local" && cfg.File.Path != ""
	var writers []io.Writer
	if !toFile || !cfg.File.Only {
		writers = append(writers, os.Stdout)
	}
	if toFile {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
		fileMu.Lock()
		file = rotated
		fileMu.Unlock()
		writers = append(writers, rotated)
	}
	return io.MultiWriter(writers...)
}

var packageDir = func() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(file)
}()

// shortCaller reports "pkg.Func" and "file.go:line" for the first frame
// outside logrus and this package's wrappers. logrus hands over the wrapper
// frame, so the stack is walked again here.
func shortCaller(frame *runtime.Frame) (string, string) {
	if caller, ok := callerFrame(); ok {
		frame = &caller
	}
	fn := frame.Function
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	return fn, filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line)
}

func callerFrame() (runtime.Frame, bool) {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if !isLoggingFrame(f) {
			return f, true
		}
		if !more {
			return runtime.Frame{}, false
		}
	}
}

func isLoggingFrame(f runtime.Frame) bool {
	if strings.HasPrefix(f.Function, "github.com/sirupsen/logrus") {
		return true
	}
	return filepath.Dir(f.File) == packageDir && !strings.HasSuffix(f.File, "_test.go")
}

// Sync closes the rotated log file, if any. Call it before exit.
func Sync() error {
	fileMu.Lock()
	defer fileMu.Unlock()
	if file == nil {
		return nil
	}
	return file.Close()
}

// WithFields returns a Logger with additional fields.
func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{Entry: l.Entry.WithFields(logrus.Fields(fields))}
}

// WithField returns a Logger with one additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}
