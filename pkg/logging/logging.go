package logging

import (
	"fmt"
	"io"
	"os"
	"time"
)

// custom logger, installed as the output of the standard log package
type Logger struct {
	out io.Writer
	now func() time.Time
}

// Write a timestamped logging line to the underlying writer
func (l *Logger) Write(bytes []byte) (int, error) {
	if _, err := fmt.Fprint(l.out, l.now().UTC().Format(time.StampMicro), " [LOG] "); err != nil {
		return 0, err
	}
	return l.out.Write(bytes)
}

// Create a new logger writing to stdout
func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout)
}

// Create a new logger writing to out
func NewLoggerTo(out io.Writer) *Logger {
	return &Logger{out: out, now: time.Now}
}
