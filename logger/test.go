package logger

import (
	"fmt"
	"sync"
)

type TestLogEntry struct {
	Severity string
	Message  string
}

// TestLogger records log entries for assertions in tests.
type TestLogger struct {
	mu       *sync.Mutex
	metadata map[string]interface{}
	entries  *[]TestLogEntry
}

var _ Logger = (*TestLogger)(nil)

func NewTestLogger() *TestLogger {
	return &TestLogger{mu: &sync.Mutex{}, entries: &[]TestLogEntry{}}
}

func (c *TestLogger) With(metadata map[string]interface{}) Logger {
	kv := make(map[string]interface{}, len(c.metadata)+len(metadata))
	for k, v := range c.metadata {
		kv[k] = v
	}
	for k, v := range metadata {
		kv[k] = v
	}
	return &TestLogger{mu: c.mu, metadata: kv, entries: c.entries}
}

func (c *TestLogger) WithPrefix(prefix string) Logger {
	return c
}

// Logs returns a copy of the recorded entries.
func (c *TestLogger) Logs() []TestLogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TestLogEntry, len(*c.entries))
	copy(out, *c.entries)
	return out
}

func (c *TestLogger) record(severity, msg string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.entries = append(*c.entries, TestLogEntry{
		Severity: severity,
		Message:  fmt.Sprintf(msg, args...),
	})
}

func (c *TestLogger) Trace(msg string, args ...interface{}) { c.record("TRACE", msg, args...) }
func (c *TestLogger) Debug(msg string, args ...interface{}) { c.record("DEBUG", msg, args...) }
func (c *TestLogger) Info(msg string, args ...interface{})  { c.record("INFO", msg, args...) }
func (c *TestLogger) Warn(msg string, args ...interface{})  { c.record("WARN", msg, args...) }
func (c *TestLogger) Error(msg string, args ...interface{}) { c.record("ERROR", msg, args...) }
