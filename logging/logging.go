// Package logging provides a small structured logger built on RFC 5424
// framing, adapted from the ingest daemon's stderr/file logger.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
)

type Level int

const (
	OFF Level = iota
	DEBUG
	INFO
	WARN
	ERROR
	CRITICAL
	FATAL
)

const defaultDepth = 3

var (
	ErrNotOpen      = errors.New("logger is not open")
	ErrInvalidLevel = errors.New("invalid log level")
)

func (l Level) String() string {
	switch l {
	case OFF:
		return `OFF`
	case DEBUG:
		return `DEBUG`
	case INFO:
		return `INFO`
	case WARN:
		return `WARN`
	case ERROR:
		return `ERROR`
	case CRITICAL:
		return `CRITICAL`
	case FATAL:
		return `FATAL`
	}
	return `UNKNOWN`
}

func (l Level) valid() bool {
	return l >= OFF && l <= FATAL
}

func (l Level) priority() rfc5424.Priority {
	switch l {
	case DEBUG:
		return rfc5424.User | rfc5424.Debug
	case INFO:
		return rfc5424.User | rfc5424.Info
	case WARN:
		return rfc5424.User | rfc5424.Warning
	case ERROR:
		return rfc5424.User | rfc5424.Error
	case CRITICAL:
		return rfc5424.User | rfc5424.Crit
	case FATAL:
		return rfc5424.User | rfc5424.Emergency
	}
	return rfc5424.User | rfc5424.Debug
}

// LevelFromString parses a case-insensitive level name.
func LevelFromString(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case `OFF`:
		return OFF, nil
	case `DEBUG`:
		return DEBUG, nil
	case `INFO`:
		return INFO, nil
	case `WARN`, `WARNING`:
		return WARN, nil
	case `ERROR`:
		return ERROR, nil
	case `CRITICAL`:
		return CRITICAL, nil
	case `FATAL`:
		return FATAL, nil
	}
	return OFF, ErrInvalidLevel
}

// Logger is a minimal multi-writer structured logger. It is safe for
// concurrent use; the consumer's broker-loop goroutine and bulk-flush
// goroutine both log through the same instance.
type Logger struct {
	mtx      sync.Mutex
	wtrs     []io.Writer
	lvl      Level
	hot      bool
	hostname string
	appname  string
}

// New builds a logger writing to wtr at level INFO.
func New(wtr io.Writer) *Logger {
	l := &Logger{
		wtrs: []io.Writer{wtr},
		lvl:  INFO,
		hot:  true,
	}
	l.guessIdentity()
	return l
}

// NewDiscard builds a logger that drops everything; useful in tests.
func NewDiscard() *Logger {
	return New(io.Discard)
}

func (l *Logger) guessIdentity() {
	if h, err := os.Hostname(); err == nil {
		l.hostname = h
	}
	if len(os.Args) > 0 {
		exe := filepath.Base(os.Args[0])
		if ext := filepath.Ext(exe); len(ext) > 0 && len(ext) < len(exe) {
			exe = strings.TrimSuffix(exe, ext)
		}
		l.appname = exe
	}
}

// AddWriter attaches an additional writer; every subsequent line fans out to it too.
func (l *Logger) AddWriter(wtr io.Writer) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.wtrs = append(l.wtrs, wtr)
}

func (l *Logger) SetLevelString(s string) error {
	lvl, err := LevelFromString(s)
	if err != nil {
		return err
	}
	return l.SetLevel(lvl)
}

func (l *Logger) SetLevel(lvl Level) error {
	if !lvl.valid() {
		return ErrInvalidLevel
	}
	l.mtx.Lock()
	l.lvl = lvl
	l.mtx.Unlock()
	return nil
}

// Field is a single structured key/value attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

func (l *Logger) Debugf(f string, args ...interface{}) { l.outputf(DEBUG, f, args...) }
func (l *Logger) Infof(f string, args ...interface{})  { l.outputf(INFO, f, args...) }
func (l *Logger) Warnf(f string, args ...interface{})  { l.outputf(WARN, f, args...) }
func (l *Logger) Errorf(f string, args ...interface{}) { l.outputf(ERROR, f, args...) }

func (l *Logger) Debug(msg string, fields ...Field) { l.output(DEBUG, msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.output(INFO, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.output(WARN, msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.output(ERROR, msg, fields...) }

func (l *Logger) Fatal(msg string, fields ...Field) {
	l.output(FATAL, msg, fields...)
	os.Exit(-1)
}

func (l *Logger) outputf(lvl Level, f string, args ...interface{}) {
	l.output(lvl, fmt.Sprintf(f, args...))
}

func (l *Logger) output(lvl Level, msg string, fields ...Field) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if !l.hot || lvl < l.lvl {
		return
	}
	line := l.render(lvl, msg, fields)
	for _, w := range l.wtrs {
		io.WriteString(w, line)
		io.WriteString(w, "\n")
	}
}

func (l *Logger) render(lvl Level, msg string, fields []Field) string {
	loc := callLoc(defaultDepth + 1)
	var sb strings.Builder
	for _, fl := range fields {
		fmt.Fprintf(&sb, " %s=%v", fl.Key, fl.Value)
	}
	full := loc + " " + msg + sb.String()

	sdParams := make([]rfc5424.SDParam, 0, len(fields))
	for _, fl := range fields {
		sdParams = append(sdParams, rfc5424.SDParam{Name: fl.Key, Value: fmt.Sprintf("%v", fl.Value)})
	}
	m := rfc5424.Message{
		Priority:  lvl.priority(),
		Timestamp: time.Now().UTC(),
		Hostname:  l.hostname,
		AppName:   l.appname,
		MessageID: trimLength(32, filepath.Base(loc)),
		Message:   []byte(full),
	}
	if len(sdParams) > 0 {
		m.StructuredData = []rfc5424.StructuredData{{ID: "nubla@1", Parameters: sdParams}}
	}
	if b, err := m.MarshalBinary(); err == nil {
		return string(b)
	}
	return time.Now().UTC().Format(time.RFC3339) + " " + lvl.String() + " " + full
}

func trimLength(n int, s string) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func callLoc(depth int) string {
	if _, file, line, ok := runtime.Caller(depth); ok {
		dir, f := filepath.Split(file)
		return fmt.Sprintf("%s:%d", filepath.Join(filepath.Base(dir), f), line)
	}
	return ""
}
