package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level controls which log entries a sink emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel converts a level name ("debug", "info", "warn", "error") to a
// Level. Unknown names default to LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Options configures a Sink.
type Options struct {
	// Level is the minimum level emitted. Entries below it are dropped.
	Level Level

	// FilePath, when non-empty, appends all entries to the given file in
	// addition to Writer.
	FilePath string

	// Writer is the primary output. Defaults to os.Stderr.
	Writer io.Writer
}

// Sink is the shared output for all component loggers of one process.
// It serializes writes, applies level filtering, and owns the optional
// log file. A Sink is safe for concurrent use.
type Sink struct {
	mu        sync.Mutex
	out       io.Writer
	file      *os.File
	level     Level
	sessionID string
	closeOnce sync.Once
}

// NewSink creates a sink from the given options. If opts.FilePath cannot be
// opened the sink still works, writing only to opts.Writer, and the error is
// returned so the caller can warn about it.
func NewSink(opts Options) (*Sink, error) {
	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}

	s := &Sink{
		out:       out,
		level:     opts.Level,
		sessionID: uuid.New().String(),
	}

	if opts.FilePath == "" {
		return s, nil
	}

	file, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return s, fmt.Errorf("failed to open log file: %w", err)
	}
	s.file = file
	return s, nil
}

// Logger returns a component-tagged logger backed by this sink.
func (s *Sink) Logger(component string) *Logger {
	return &Logger{component: component, sink: s}
}

// SessionID returns the identifier generated for this process run.
func (s *Sink) SessionID() string {
	return s.sessionID
}

// Close closes the log file if one is open. Safe to call multiple times.
func (s *Sink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.file != nil {
			err = s.file.Close()
		}
	})
	return err
}

func (s *Sink) write(level Level, component, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if level < s.level {
		return
	}

	timestamp := time.Now().Format("15:04:05.000")
	entry := fmt.Sprintf("[%s] [%s] [%s] %s\n", timestamp, component, level, message)
	fmt.Fprint(s.out, entry)
	if s.file != nil {
		fmt.Fprint(s.file, entry)
	}
}

// Logger provides leveled, component-tagged logging. All loggers of a process
// share one Sink so entries interleave in order.
type Logger struct {
	component string
	sink      *Sink
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.sink.write(LevelDebug, l.component, fmt.Sprintf(format, v...))
}

// Infof logs an info-level message.
func (l *Logger) Infof(format string, v ...interface{}) {
	l.sink.write(LevelInfo, l.component, fmt.Sprintf(format, v...))
}

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.sink.write(LevelWarn, l.component, fmt.Sprintf(format, v...))
}

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.sink.write(LevelError, l.component, fmt.Sprintf(format, v...))
}
