package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime/debug"
	"time"
)

// ErrorObject carries a message plus stack for error-level entries.
type ErrorObject struct {
	Msg   string `json:"msg"`
	Stack string `json:"stack"`
}

// Entry is the structured log line written to stdout.
type Entry struct {
	Timestamp string       `json:"timestamp"`
	Level     string       `json:"level"`
	Service   string       `json:"service"`
	Action    string       `json:"action"`
	Message   string       `json:"message"`
	Hostname  string       `json:"hostname"`
	Error     *ErrorObject `json:"error,omitempty"`
	Details   any          `json:"details,omitempty"`
}

// Logger emits structured JSON log lines tagged with a service name.
type Logger struct {
	service  string
	hostname string
}

// New creates a logger for the named service.
func New(service string) *Logger {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return &Logger{service: service, hostname: hostname}
}

func (l *Logger) emit(entry Entry) {
	b, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log marshal failed: %v\n", err)
		return
	}
	fmt.Println(string(b))
}

func (l *Logger) Info(action, msg string, details any) {
	l.emit(Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     "INFO",
		Service:   l.service,
		Action:    action,
		Message:   msg,
		Hostname:  l.hostname,
		Details:   details,
	})
}

func (l *Logger) Warn(action, msg string, details any) {
	l.emit(Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     "WARN",
		Service:   l.service,
		Action:    action,
		Message:   msg,
		Hostname:  l.hostname,
		Details:   details,
	})
}

func (l *Logger) Debug(action, msg string, details any) {
	l.emit(Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     "DEBUG",
		Service:   l.service,
		Action:    action,
		Message:   msg,
		Hostname:  l.hostname,
		Details:   details,
	})
}

func (l *Logger) Error(action, msg string, err error) {
	entry := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     "ERROR",
		Service:   l.service,
		Action:    action,
		Message:   msg,
		Hostname:  l.hostname,
	}
	if err != nil {
		entry.Error = &ErrorObject{Msg: err.Error(), Stack: string(debug.Stack())}
	}
	l.emit(entry)
}
