package lspserver

import (
	"fmt"
	"io"
	"time"
)

// Logger is a small leveled logger: plain fmt.Fprintf lines to stderr,
// no external logging library, since
// the protocol runs over stdout and stderr is free for diagnostics.
type Logger struct {
	out io.Writer
}

// NewLogger wraps out (typically os.Stderr).
func NewLogger(out io.Writer) *Logger {
	return &Logger{out: out}
}

func (l *Logger) log(level, format string, args ...interface{}) {
	fmt.Fprintf(l.out, "%s [%s] %s\n", time.Now().UTC().Format(time.RFC3339), level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.log("debug", format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log("error", format, args...) }
