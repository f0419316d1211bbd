package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type consoleLogger struct {
	level    LogLevel
	prefix   string
	metadata map[string]interface{}
	w        io.Writer
	mu       *sync.Mutex
}

var _ Logger = (*consoleLogger)(nil)

// NewConsoleLogger returns a Logger that writes human-readable lines to
// stderr. If no level is supplied, the level comes from the environment.
func NewConsoleLogger(levels ...LogLevel) Logger {
	level := GetLevelFromEnv()
	if len(levels) > 0 {
		level = levels[0]
	}
	return &consoleLogger{
		level: level,
		w:     os.Stderr,
		mu:    &sync.Mutex{},
	}
}

func (c *consoleLogger) clone() *consoleLogger {
	metadata := make(map[string]interface{}, len(c.metadata))
	for k, v := range c.metadata {
		metadata[k] = v
	}
	return &consoleLogger{
		level:    c.level,
		prefix:   c.prefix,
		metadata: metadata,
		w:        c.w,
		mu:       c.mu,
	}
}

func (c *consoleLogger) With(metadata map[string]interface{}) Logger {
	clone := c.clone()
	for k, v := range metadata {
		clone.metadata[k] = v
	}
	return clone
}

func (c *consoleLogger) WithPrefix(prefix string) Logger {
	clone := c.clone()
	if clone.prefix != "" {
		clone.prefix = clone.prefix + " " + prefix
	} else {
		clone.prefix = prefix
	}
	return clone
}

func (c *consoleLogger) suffix() string {
	if len(c.metadata) == 0 {
		return ""
	}
	keys := make([]string, 0, len(c.metadata))
	for k := range c.metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, c.metadata[k]))
	}
	return " (" + strings.Join(parts, " ") + ")"
}

func (c *consoleLogger) log(level LogLevel, msg string, args ...interface{}) {
	if level < c.level {
		return
	}
	line := fmt.Sprintf(msg, args...)
	if c.prefix != "" {
		line = c.prefix + " " + line
	}
	ts := time.Now().Format(time.RFC3339)
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "[%s] %-5s %s%s\n", ts, level, line, c.suffix())
}

func (c *consoleLogger) Trace(msg string, args ...interface{}) {
	c.log(LevelTrace, msg, args...)
}

func (c *consoleLogger) Debug(msg string, args ...interface{}) {
	c.log(LevelDebug, msg, args...)
}

func (c *consoleLogger) Info(msg string, args ...interface{}) {
	c.log(LevelInfo, msg, args...)
}

func (c *consoleLogger) Warn(msg string, args ...interface{}) {
	c.log(LevelWarn, msg, args...)
}

func (c *consoleLogger) Error(msg string, args ...interface{}) {
	c.log(LevelError, msg, args...)
}
