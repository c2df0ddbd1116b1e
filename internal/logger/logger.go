// Package logger emits one JSON object per line on stdout. Stations and the
// settlement service all log through it so log shippers see a single shape.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	levelDebug = iota
	levelInfo
	levelError
)

type Logger struct {
	service string
	min     int
	out     io.Writer
}

func New(service string) *Logger {
	return &Logger{service: service, min: minLevelFromEnv(), out: os.Stdout}
}

// NewWithWriter is used by tests to capture output.
func NewWithWriter(service string, w io.Writer) *Logger {
	return &Logger{service: service, min: levelDebug, out: w}
}

func minLevelFromEnv() int {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return levelDebug
	case "ERROR":
		return levelError
	default:
		return levelInfo
	}
}

func (l *Logger) log(level int, name, action string, fields map[string]any, err error) {
	if level < l.min {
		return
	}
	entry := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"level":     name,
		"service":   l.service,
		"action":    action,
		"hostname":  hostname(),
	}
	for k, v := range fields {
		entry[k] = v
	}
	if err != nil {
		entry["error"] = map[string]any{"msg": err.Error(), "kind": fmt.Sprintf("%T", err)}
	}
	_ = json.NewEncoder(l.out).Encode(entry)
}

func (l *Logger) Debug(action string, fields map[string]any) {
	l.log(levelDebug, "DEBUG", action, fields, nil)
}

func (l *Logger) Info(action string, fields map[string]any) {
	l.log(levelInfo, "INFO", action, fields, nil)
}

func (l *Logger) Error(action string, err error, fields map[string]any) {
	l.log(levelError, "ERROR", action, fields, err)
}

func hostname() string { h, _ := os.Hostname(); return h }
