// Package logger writes one JSON object per log line, masking phone
// numbers unless redaction is turned off.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Level is the severity of an entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	}
	return "INFO"
}

// ParseLevel maps a config string to a Level. Unknown values map to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	}
	return INFO
}

type sink struct {
	mu        sync.Mutex
	out       io.Writer
	level     Level
	redactPII bool
}

// Logger carries fields added with With. Loggers derived from one
// another share output, level and redaction settings.
type Logger struct {
	sink   *sink
	fields []interface{}
}

var std = &Logger{sink: &sink{out: os.Stderr, level: INFO, redactPII: true}}

// SetLevel sets the minimum level written.
func SetLevel(l Level) {
	std.sink.mu.Lock()
	std.sink.level = l
	std.sink.mu.Unlock()
}

// SetRedactPII turns phone masking on or off.
func SetRedactPII(r bool) {
	std.sink.mu.Lock()
	std.sink.redactPII = r
	std.sink.mu.Unlock()
}

// SetOutput redirects logging. Nil restores stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	std.sink.mu.Lock()
	std.sink.out = w
	std.sink.mu.Unlock()
}

// With returns a logger that adds key/value pairs to every entry.
func With(fields ...interface{}) *Logger { return std.With(fields...) }

// With returns a child logger with extra key/value pairs.
func (l *Logger) With(fields ...interface{}) *Logger {
	merged := make([]interface{}, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{sink: l.sink, fields: merged}
}

func Debug(msg string, fields ...interface{}) { std.write(DEBUG, msg, fields) }
func Info(msg string, fields ...interface{}) { std.write(INFO, msg, fields) }
func Warn(msg string, fields ...interface{}) { std.write(WARN, msg, fields) }
func Error(msg string, fields ...interface{}) { std.write(ERROR, msg, fields) }

func (l *Logger) Debug(msg string, fields ...interface{}) { l.write(DEBUG, msg, fields) }
func (l *Logger) Info(msg string, fields ...interface{}) { l.write(INFO, msg, fields) }
func (l *Logger) Warn(msg string, fields ...interface{}) { l.write(WARN, msg, fields) }
func (l *Logger) Error(msg string, fields ...interface{}) { l.write(ERROR, msg, fields) }

func (l *Logger) write(level Level, msg string, fields []interface{}) {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()
	if level < s.level {
		return
	}

	entry := map[string]interface{}{
		"time":  time.Now().UTC().Format(time.RFC3339),
		"level": level.String(),
		"msg":   msg,
	}
	add := func(kv []interface{}) {
		for i := 0; i < len(kv); i += 2 {
			key := fmt.Sprint(kv[i])
			if i+1 == len(kv) {
				entry["!extra"] = key
				break
			}
			entry[key] = s.value(key, kv[i+1])
		}
	}
	add(l.fields)
	add(fields)

	data, err := json.Marshal(entry)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"level": "ERROR", "msg": "log entry not encodable: " + err.Error()})
	}
	s.out.Write(append(data, '\n'))
}

// value keeps numbers and booleans as JSON scalars and renders the rest
// as strings, masked when redaction is on.
func (s *sink) value(key string, v interface{}) interface{} {
	switch x := v.(type) {
	case int, int32, int64, uint, uint32, uint64, float32, float64, bool:
		if s.redactPII && isPhoneKey(key) {
			return RedactPhone(fmt.Sprint(x))
		}
		return x
	case error:
		v = x.Error()
	case time.Time:
		v = x.Format(time.RFC3339)
	case time.Duration:
		v = x.String()
	}
	str := fmt.Sprint(v)
	if !s.redactPII {
		return str
	}
	if isPhoneKey(key) {
		return RedactPhone(str)
	}
	return mobileRegex.ReplaceAllStringFunc(str, RedactPhone)
}

// Mainland mobile numbers, optionally with a +86 / 86 prefix.
var mobileRegex = regexp.MustCompile(`(?:\+?86)?1[3-9]\d{9}`)

func isPhoneKey(key string) bool {
	key = strings.ToLower(key)
	return strings.Contains(key, "phone") || strings.Contains(key, "mobile")
}
