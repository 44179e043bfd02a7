// Package logx is a small leveled logger that keeps recent lines in memory
// so the viewer can show them without writing over the terminal.
package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	}
	return "INFO"
}

var (
	mu       sync.Mutex
	level    = Info
	buf      = make([]string, 0, 500)
	maxLines = 500
	// stderr is off by default so the TUI is never corrupted
	toStderr = false
	logFile  io.WriteCloser
)

// ParseLevel accepts debug, info, warn/warning and error.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug, nil
	case "info", "":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	}
	return Info, fmt.Errorf("unknown log level %q", s)
}

func SetLevel(l Level) { mu.Lock(); level = l; mu.Unlock() }

func SetStderr(on bool) { mu.Lock(); toStderr = on; mu.Unlock() }

// SetFile mirrors log lines to path (appending). An empty path stops file
// output.
func SetFile(path string) error {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	logFile = f
	return nil
}

// SetFromEnv reads LOGSCOPE_LOG_LEVEL, LOGSCOPE_LOG_STDERR and
// LOGSCOPE_LOG_FILE.
func SetFromEnv() {
	if lv, err := ParseLevel(os.Getenv("LOGSCOPE_LOG_LEVEL")); err == nil {
		SetLevel(lv)
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("LOGSCOPE_LOG_STDERR"))); v != "" {
		SetStderr(v != "0" && v != "false" && v != "no")
	}
	if p := strings.TrimSpace(os.Getenv("LOGSCOPE_LOG_FILE")); p != "" {
		if err := SetFile(p); err != nil {
			Warnf("logx: cannot open %s: %v", p, err)
		}
	}
}

func Debugf(format string, a ...any) { logf(Debug, format, a...) }
func Infof(format string, a ...any)  { logf(Info, format, a...) }
func Warnf(format string, a ...any)  { logf(Warn, format, a...) }
func Errorf(format string, a ...any) { logf(Error, format, a...) }

func logf(l Level, format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}
	ts := time.Now().Format("2006-01-02T15:04:05.000Z07:00")
	line := fmt.Sprintf("%s %-5s %s", ts, l, fmt.Sprintf(format, a...))
	if len(buf) >= maxLines {
		copy(buf[0:], buf[1:])
		buf = buf[:len(buf)-1]
	}
	buf = append(buf, line)
	if toStderr {
		fmt.Fprintln(os.Stderr, line)
	}
	if logFile != nil {
		fmt.Fprintln(logFile, line)
	}
}

func Dump() string {
	mu.Lock()
	defer mu.Unlock()
	return strings.Join(buf, "\n")
}

func Lines() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, len(buf))
	copy(out, buf)
	return out
}

// Tail returns at most n of the most recent lines.
func Tail(n int) []string {
	mu.Lock()
	defer mu.Unlock()
	if n > len(buf) {
		n = len(buf)
	}
	return append([]string(nil), buf[len(buf)-n:]...)
}

// Reset clears the in-memory buffer.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	buf = buf[:0]
}
