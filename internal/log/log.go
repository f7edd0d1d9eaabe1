// Package log provides the leveled logging backend, built on go-logging.
//
// The terminal is the chat surface, so log records go to a file (or are
// discarded) rather than to stdout.
package log

import (
	"fmt"
	"io"
	goLog "log"
	"os"
	"strings"
	"sync"

	"gopkg.in/op/go-logging.v1"
)

const recordFormat = "%{time:15:04:05.000} %{level:.4s} %{module}: %{message}"

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Backend is a reopenable, leveled log backend.
type Backend struct {
	sync.RWMutex

	backend logging.LeveledBackend
	w       io.WriteCloser

	file    string
	level   string
	disable bool
}

// New initializes a backend writing to file at level. An empty file logs to
// stderr; disable discards every record.
func New(file string, level string, disable bool) (*Backend, error) {
	b := &Backend{file: file, level: level, disable: disable}
	if err := b.open(); err != nil {
		return nil, err
	}
	return b, nil
}

// Discard returns a backend that drops every record.
func Discard() *Backend {
	b, err := New("", "ERROR", true)
	if err != nil {
		panic("log: Discard(): " + err.Error())
	}
	return b
}

// Log implements logging.Backend.
func (b *Backend) Log(level logging.Level, calldepth int, record *logging.Record) error {
	b.RLock()
	defer b.RUnlock()
	return b.backend.Log(level, calldepth, record)
}

// GetLevel implements logging.Leveled.
func (b *Backend) GetLevel(module string) logging.Level {
	b.RLock()
	defer b.RUnlock()
	return b.backend.GetLevel(module)
}

// SetLevel implements logging.Leveled.
func (b *Backend) SetLevel(level logging.Level, module string) {
	b.RLock()
	defer b.RUnlock()
	b.backend.SetLevel(level, module)
}

// IsEnabledFor implements logging.Leveled.
func (b *Backend) IsEnabledFor(level logging.Level, module string) bool {
	b.RLock()
	defer b.RUnlock()
	return b.backend.IsEnabledFor(level, module)
}

// GetLogger returns a per-module logger that writes to the backend.
func (b *Backend) GetLogger(module string) *logging.Logger {
	l := logging.MustGetLogger(module)
	l.SetBackend(b)
	return l
}

// GetGoLogger returns a standard library logger for module that logs every
// line at a single level. It is meant for http.Server.ErrorLog and similar.
func (b *Backend) GetGoLogger(module string, level string) *goLog.Logger {
	lvl, err := levelFromString(level)
	if err != nil {
		panic("log: GetGoLogger(): " + err.Error())
	}
	return goLog.New(&lineWriter{m: b.GetLogger(module), lvl: lvl}, "", 0)
}

// Rotate reopens the log file, typically on SIGHUP.
func (b *Backend) Rotate() error {
	b.Lock()
	defer b.Unlock()
	if err := b.w.Close(); err != nil {
		return err
	}
	return b.open()
}

// Close releases the underlying file.
func (b *Backend) Close() error {
	b.Lock()
	defer b.Unlock()
	return b.w.Close()
}

func (b *Backend) open() error {
	lvl, err := levelFromString(b.level)
	if err != nil {
		return err
	}
	switch {
	case b.disable:
		b.w = nopCloser{io.Discard}
	case b.file == "":
		b.w = nopCloser{os.Stderr}
	default:
		f, err := os.OpenFile(b.file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("log: failed to open log file: %w", err)
		}
		b.w = f
	}
	base := logging.NewLogBackend(b.w, "", 0)
	formatted := logging.NewBackendFormatter(base, logging.MustStringFormatter(recordFormat))
	b.backend = logging.AddModuleLevel(formatted)
	b.backend.SetLevel(lvl, "")
	return nil
}

// ValidLevel reports whether level names a supported log level.
func ValidLevel(level string) bool {
	_, err := levelFromString(level)
	return err == nil
}

func levelFromString(l string) (logging.Level, error) {
	switch strings.ToUpper(l) {
	case "ERROR":
		return logging.ERROR, nil
	case "WARNING":
		return logging.WARNING, nil
	case "NOTICE":
		return logging.NOTICE, nil
	case "INFO":
		return logging.INFO, nil
	case "DEBUG":
		return logging.DEBUG, nil
	default:
		return logging.CRITICAL, fmt.Errorf("log: invalid level: '%v'", l)
	}
}

type lineWriter struct {
	m   *logging.Logger
	lvl logging.Level
}

func (w *lineWriter) Write(p []byte) (int, error) {
	s := strings.TrimSpace(string(p))
	if s == "" {
		return len(p), nil
	}
	switch w.lvl {
	case logging.ERROR:
		w.m.Error(s)
	case logging.WARNING:
		w.m.Warning(s)
	case logging.NOTICE:
		w.m.Notice(s)
	case logging.INFO:
		w.m.Info(s)
	default:
		w.m.Debug(s)
	}
	return len(p), nil
}
