// Package capturelog is a small structured logger for the capture pipeline
// and CLI: leveled, field-annotated, text or JSON, safe for concurrent use
// by the reader and writer workers.
package capturelog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents log severity.
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
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level, defaulting to LevelInfo for an
// unrecognized value.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Format selects the on-wire rendering of a log entry. Each Format knows
// how to render itself, so Logger.log never branches on it directly.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// ParseFormat converts a string to a Format, defaulting to FormatText.
func ParseFormat(s string) Format {
	if s == "json" {
		return FormatJSON
	}
	return FormatText
}

func (f Format) render(e entry) (string, error) {
	if f == FormatJSON {
		data, err := json.Marshal(e)
		return string(data), err
	}
	line := fmt.Sprintf("%s [%s] %s", e.Timestamp.Format(time.RFC3339), e.Level, e.Message)
	for k, v := range e.Fields {
		line += fmt.Sprintf(" %s=%v", k, v)
	}
	return line, nil
}

// Fields is a set of structured key/value annotations attached to a log
// entry. The capture pipeline and CLI key these consistently with the
// Field* constants below rather than ad hoc strings.
type Fields map[string]any

// Field keys shared across the capture pipeline and CLI, so a log
// aggregator can group lines from either without a mapping table.
const (
	FieldDevice         = "device"
	FieldAttempt        = "attempt"
	FieldError          = "error"
	FieldRecords        = "records"
	FieldTapeMarks      = "tape_marks"
	FieldBadRecords     = "bad_records"
	FieldBytesWritten   = "bytes_written"
	FieldBytesRecovered = "bytes_recovered"
)

// entry is the wire shape of one log line.
type entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Fields    Fields    `json:"fields,omitempty"`
}

// Logger is a leveled, field-annotated logger writing to a single
// io.Writer. The zero value is not usable; construct with New, Default, or
// Discard.
type Logger struct {
	mu     sync.Mutex
	level  Level
	format Format
	output io.Writer
}

// New constructs a Logger writing entries at level or above to w in the
// given format.
func New(level Level, format Format, w io.Writer) *Logger {
	return &Logger{level: level, format: format, output: w}
}

// Default returns a Logger writing text-formatted entries at LevelInfo to
// os.Stderr, the CLI's default when no flags override it.
func Default() *Logger {
	return New(LevelInfo, FormatText, os.Stderr)
}

// Discard returns a Logger that drops everything, for callers that don't
// care about diagnostics.
func Discard() *Logger {
	return New(LevelError+1, FormatText, io.Discard)
}

func (l *Logger) log(level Level, message string, fields Fields) {
	if level < l.level {
		return
	}

	e := entry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Message:   message,
		Fields:    fields,
	}

	line, err := l.format.render(e)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		fmt.Fprintf(l.output, "%s [error] failed to marshal log entry: %v\n", e.Timestamp.Format(time.RFC3339), err)
		return
	}
	fmt.Fprintln(l.output, line)
}

func (l *Logger) Debug(message string, fields Fields) { l.log(LevelDebug, message, fields) }
func (l *Logger) Info(message string, fields Fields)  { l.log(LevelInfo, message, fields) }
func (l *Logger) Warn(message string, fields Fields)  { l.log(LevelWarn, message, fields) }
func (l *Logger) Error(message string, fields Fields) { l.log(LevelError, message, fields) }

// WithFields returns a child logger that merges fields into every entry it
// logs, on top of whatever fields the call site also supplies.
func (l *Logger) WithFields(fields Fields) *FieldLogger {
	return &FieldLogger{logger: l, fields: fields}
}

// WithDevice returns a child logger annotated with the source device
// path, the one field every capture-pipeline log line carries.
func (l *Logger) WithDevice(path string) *FieldLogger {
	return l.WithFields(Fields{FieldDevice: path})
}

// FieldLogger is a Logger with a preset group of fields.
type FieldLogger struct {
	logger *Logger
	fields Fields
}

func (fl *FieldLogger) merge(additional Fields) Fields {
	merged := make(Fields, len(fl.fields)+len(additional))
	for k, v := range fl.fields {
		merged[k] = v
	}
	for k, v := range additional {
		merged[k] = v
	}
	return merged
}

func (fl *FieldLogger) Debug(message string, fields Fields) {
	fl.logger.log(LevelDebug, message, fl.merge(fields))
}
func (fl *FieldLogger) Info(message string, fields Fields) {
	fl.logger.log(LevelInfo, message, fl.merge(fields))
}
func (fl *FieldLogger) Warn(message string, fields Fields) {
	fl.logger.log(LevelWarn, message, fl.merge(fields))
}
func (fl *FieldLogger) Error(message string, fields Fields) {
	fl.logger.log(LevelError, message, fl.merge(fields))
}

// Attempt logs a retryable hard read error at warn level, under the
// attempt and error fields the pipeline uses consistently for retries.
func (fl *FieldLogger) Attempt(n int, err error) {
	fl.Warn("hard read error, retrying", Fields{FieldAttempt: n, FieldError: err.Error()})
}
