package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level is the minimum severity a message needs to be written
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var (
	mu         sync.Mutex
	level      = INFO
	out        io.Writer = os.Stdout
	errOut     io.Writer = os.Stderr
	stdLogger            = log.New(out, "", 0)
	errLogger            = log.New(errOut, "", 0)
	logFile    io.WriteCloser
	timeFormat = "2006-01-02 15:04:05.000"
)

// ParseLevel converts a level name (debug, info, warn, error) to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("unknown log level: %s", s)
}

// SetLevel sets the minimum level written
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// GetLevel returns the current minimum level
func GetLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return level
}

// SetOutput sends every level to w
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out, errOut = w, w
	stdLogger = log.New(w, "", 0)
	errLogger = log.New(w, "", 0)
}

// Silence discards all output. Used by tests.
func Silence() {
	SetOutput(io.Discard)
}

// EnableFileLogging mirrors output to <dir>/<prefix>_<timestamp>.log
func EnableFileLogging(dir, prefix string) error {
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}
	if prefix != "" {
		prefix += "_"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s%s.log", prefix, time.Now().Format("20060102_150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	stdLogger = log.New(io.MultiWriter(out, f), "", 0)
	errLogger = log.New(io.MultiWriter(errOut, f), "", 0)
	return nil
}

// Close releases the log file, if any
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
		stdLogger = log.New(out, "", 0)
		errLogger = log.New(errOut, "", 0)
	}
}

func write(l Level, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}

	var tag string
	target := stdLogger
	switch l {
	case DEBUG:
		tag = "DEBUG"
	case INFO:
		tag = "INFO "
	case WARN:
		tag = "WARN "
	case ERROR:
		tag, target = "ERROR", errLogger
	}

	source := ""
	if _, file, line, ok := runtime.Caller(2); ok {
		source = fmt.Sprintf(" [%s:%d]", filepath.Base(file), line)
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	target.Printf("[%s] %s%s: %s", time.Now().Format(timeFormat), tag, source, msg)
}

func Debugf(format string, args ...interface{}) { write(DEBUG, format, args...) }
func Infof(format string, args ...interface{})  { write(INFO, format, args...) }
func Warnf(format string, args ...interface{})  { write(WARN, format, args...) }
func Errorf(format string, args ...interface{}) { write(ERROR, format, args...) }

// Error logs msg with err appended when non-nil
func Error(msg string, err error) {
	if err != nil {
		write(ERROR, "%s: %v", msg, err)
		return
	}
	write(ERROR, "%s", msg)
}
