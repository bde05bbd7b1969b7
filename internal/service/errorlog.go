package service

import (
	"sync"
	"time"
)

// DefaultErrorLogSize bounds the video error log.
const DefaultErrorLogSize = 200

// VideoErrorEntry is one failed video job, as shown to operators.
type VideoErrorEntry struct {
	Time    string `json:"time"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// ErrorLog keeps the most recent video failures, oldest first.
type ErrorLog struct {
	mu    sync.Mutex
	items []VideoErrorEntry
	max   int
	now   func() time.Time
}

// NewErrorLog creates a log holding at most max entries.
func NewErrorLog(max int) *ErrorLog {
	if max <= 0 {
		max = DefaultErrorLogSize
	}
	return &ErrorLog{max: max, now: time.Now}
}

// Record appends an entry, dropping the oldest beyond capacity.
func (l *ErrorLog) Record(message, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = append(l.items, VideoErrorEntry{
		Time:    l.now().Format("2006-01-02 15:04:05"),
		Message: message,
		Detail:  detail,
	})
	if over := len(l.items) - l.max; over > 0 {
		l.items = append(l.items[:0:0], l.items[over:]...)
	}
}

// List returns a copy of the entries.
func (l *ErrorLog) List() []VideoErrorEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]VideoErrorEntry, len(l.items))
	copy(out, l.items)
	return out
}
