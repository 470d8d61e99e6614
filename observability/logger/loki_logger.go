// Package logger writes structured JSON log lines with a consistent field
// layout, suitable for Loki and similar aggregators.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"strings"
	"sync"
	"time"

	"ytdlpro/observability/types"
)

// LogLevel is the severity of an entry.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"debug", "info", "warn", "error"}

// ParseLevel maps LOG_LEVEL values onto a LogLevel. Anything unknown is info.
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	}
	return InfoLevel
}

func (l LogLevel) String() string {
	if l < DebugLevel || int(l) >= len(levelNames) {
		return "unknown"
	}
	return levelNames[l]
}

// contextKeys are copied from the context into every entry when present.
var contextKeys = []types.ContextKey{
	types.TraceIDKey,
	types.RequestIDKey,
	types.JobIDKey,
}

// LokiLogger implements types.Logger with one JSON object per line:
// timestamp, level, service, env, hostname and message first, then context
// ids, persistent fields and call fields. Later keys win.
type LokiLogger struct {
	mu     *sync.Mutex // shared with children; one Write per entry
	out    io.Writer
	base   types.Fields
	min    LogLevel
	fields types.Fields
}

// New creates a LokiLogger. A nil output writes to os.Stdout.
func New(serviceName, environment, logLevel string, output io.Writer, additionalFields types.Fields) *LokiLogger {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	if output == nil {
		output = os.Stdout
	}

	return &LokiLogger{
		mu:  &sync.Mutex{},
		out: output,
		base: types.Fields{
			"service":  serviceName,
			"env":      environment,
			"hostname": hostname,
		},
		min:    ParseLevel(logLevel),
		fields: maps.Clone(additionalFields),
	}
}

func (l *LokiLogger) Debug(ctx context.Context, msg string, fields types.Fields) {
	l.write(ctx, DebugLevel, msg, nil, fields)
}

func (l *LokiLogger) Info(ctx context.Context, msg string, fields types.Fields) {
	l.write(ctx, InfoLevel, msg, nil, fields)
}

func (l *LokiLogger) Warn(ctx context.Context, msg string, fields types.Fields) {
	l.write(ctx, WarnLevel, msg, nil, fields)
}

// Error also writes err as error and its concrete type as error_type.
func (l *LokiLogger) Error(ctx context.Context, msg string, err error, fields types.Fields) {
	l.write(ctx, ErrorLevel, msg, err, fields)
}

// WithFields returns a child that shares output and level with l and adds
// fields to every entry.
func (l *LokiLogger) WithFields(fields types.Fields) types.Logger {
	child := *l
	child.fields = make(types.Fields, len(l.fields)+len(fields))
	maps.Copy(child.fields, l.fields)
	maps.Copy(child.fields, fields)
	return &child
}

func (l *LokiLogger) write(ctx context.Context, level LogLevel, msg string, err error, fields types.Fields) {
	if level < l.min {
		return
	}

	entry := make(types.Fields, 10+len(l.fields)+len(fields))
	maps.Copy(entry, l.base)
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["message"] = msg

	if ctx != nil {
		for _, key := range contextKeys {
			if v, _ := ctx.Value(key).(string); v != "" {
				entry[string(key)] = v
			}
		}
	}
	if err != nil {
		entry["error"] = err.Error()
		entry["error_type"] = fmt.Sprintf("%T", err)
	}
	maps.Copy(entry, l.fields)
	maps.Copy(entry, fields)

	line, mErr := json.Marshal(entry)
	if mErr != nil {
		// a field value json cannot encode
		line, _ = json.Marshal(types.Fields{
			"timestamp": entry["timestamp"],
			"level":     entry["level"],
			"service":   l.base["service"],
			"message":   msg,
			"log_error": mErr.Error(),
		})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(append(line, '\n'))
}
