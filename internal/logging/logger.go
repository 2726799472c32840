// Package logging provides a small structured JSON logger. One line per
// entry, level-filtered, with optional per-logger fields.
package logging

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// LogEntry is the wire shape of one log line.
type LogEntry struct {
	Time    string                 `json:"time"`
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	level  Level
	fields map[string]interface{}
}

func New() *Logger {
	return &Logger{
		out:   os.Stdout,
		level: LevelInfo,
	}
}

// SetOutput redirects log lines; returns the logger for chaining.
func (l *Logger) SetOutput(w io.Writer) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
	return l
}

// SetLevel drops entries below level; returns the logger for chaining.
func (l *Logger) SetLevel(level Level) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	return l
}

// WithField returns a derived logger that attaches key=value to every
// entry it writes.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	fields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value

	return &Logger{
		out:    l.out,
		level:  l.level,
		fields: fields,
	}
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	entry := LogEntry{
		Time:    time.Now().UTC().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
	}

	if len(l.fields) > 0 || len(fields) > 0 {
		merged := make(map[string]interface{}, len(l.fields))
		for k, v := range l.fields {
			merged[k] = v
		}
		for _, extra := range fields {
			for k, v := range extra {
				merged[k] = v
			}
		}
		entry.Fields = merged
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = l.out.Write(append(data, '\n'))
}

// Default is the package-level logger used by the helper functions.
var Default = New()

// SetDefaultLevel adjusts the package-level logger's threshold.
func SetDefaultLevel(level Level) {
	Default.SetLevel(level)
}

func Debug(msg string, fields ...map[string]interface{}) {
	Default.Debug(msg, fields...)
}

func Info(msg string, fields ...map[string]interface{}) {
	Default.Info(msg, fields...)
}

func Warn(msg string, fields ...map[string]interface{}) {
	Default.Warn(msg, fields...)
}

func Error(msg string, fields ...map[string]interface{}) {
	Default.Error(msg, fields...)
}
