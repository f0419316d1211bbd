package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// JSONLogEntry defines a log entry
type JSONLogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Severity  string                 `json:"severity"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type jsonLogger struct {
	level    LogLevel
	prefix   string
	metadata map[string]interface{}
	w        io.Writer
	mu       *sync.Mutex
}

var _ Logger = (*jsonLogger)(nil)

// NewJSONLogger returns a Logger that writes one JSON object per line to
// stdout, suitable for log collectors.
func NewJSONLogger(levels ...LogLevel) Logger {
	level := GetLevelFromEnv()
	if len(levels) > 0 {
		level = levels[0]
	}
	return &jsonLogger{
		level: level,
		w:     os.Stdout,
		mu:    &sync.Mutex{},
	}
}

func (c *jsonLogger) clone() *jsonLogger {
	metadata := make(map[string]interface{}, len(c.metadata))
	for k, v := range c.metadata {
		metadata[k] = v
	}
	return &jsonLogger{
		level:    c.level,
		prefix:   c.prefix,
		metadata: metadata,
		w:        c.w,
		mu:       c.mu,
	}
}

func (c *jsonLogger) With(metadata map[string]interface{}) Logger {
	clone := c.clone()
	for k, v := range metadata {
		clone.metadata[k] = v
	}
	return clone
}

func (c *jsonLogger) WithPrefix(prefix string) Logger {
	clone := c.clone()
	if clone.prefix != "" {
		clone.prefix = clone.prefix + " " + prefix
	} else {
		clone.prefix = prefix
	}
	return clone
}

func (c *jsonLogger) log(level LogLevel, msg string, args ...interface{}) {
	if level < c.level {
		return
	}
	message := fmt.Sprintf(msg, args...)
	if c.prefix != "" {
		message = c.prefix + " " + message
	}
	entry := JSONLogEntry{
		Timestamp: time.Now(),
		Severity:  level.String(),
		Message:   message,
		Metadata:  c.metadata,
	}
	buf, err := json.Marshal(entry)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, string(buf))
}

func (c *jsonLogger) Trace(msg string, args ...interface{}) {
	c.log(LevelTrace, msg, args...)
}

func (c *jsonLogger) Debug(msg string, args ...interface{}) {
	c.log(LevelDebug, msg, args...)
}

func (c *jsonLogger) Info(msg string, args ...interface{}) {
	c.log(LevelInfo, msg, args...)
}

func (c *jsonLogger) Warn(msg string, args ...interface{}) {
	c.log(LevelWarn, msg, args...)
}

func (c *jsonLogger) Error(msg string, args ...interface{}) {
	c.log(LevelError, msg, args...)
}
