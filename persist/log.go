package persist

import (
	"log"
	"os"
	"time"
)

// A Logger is a standard library *log.Logger that also owns the underlying
// file handle, so that it can stamp a startup/shutdown banner around its
// lifetime and be closed cleanly.
type Logger struct {
	*log.Logger
	file *os.File
}

// NewLogger creates a Logger that appends to filename, writing a STARTUP
// banner immediately and a SHUTDOWN banner on Close.
func NewLogger(filename string) (*Logger, error) {
	f, err := os.OpenFile(filename, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0600)
	if err != nil {
		return nil, err
	}
	l := &Logger{
		Logger: log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile|log.LUTC),
		file:   f,
	}
	l.Println("STARTUP: log created at", time.Now().Format(time.RFC3339))
	return l, nil
}

// Close writes a SHUTDOWN banner and closes the underlying file.
func (l *Logger) Close() error {
	l.Println("SHUTDOWN: log closed at", time.Now().Format(time.RFC3339))
	return l.file.Close()
}

// Critical logs the message with a CRITICAL: prefix. It does not call
// build.Critical and never panics.
func (l *Logger) Critical(v ...interface{}) {
	args := append([]interface{}{"CRITICAL:"}, v...)
	l.Println(args...)
}

// Severe logs a message denoting a serious but non-programmer error, such as
// a disk failure or repeated DHT timeout.
func (l *Logger) Severe(v ...interface{}) {
	args := append([]interface{}{"SEVERE:"}, v...)
	l.Println(args...)
}
