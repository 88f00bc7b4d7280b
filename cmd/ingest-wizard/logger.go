// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/monadic/ingest-wizard/pkg/wizard"
)

// SessionLogger writes one command's activity to its own log file.
type SessionLogger struct {
	*log.Logger
	file      *os.File
	startTime time.Time
	command   string
	id        string
}

// NewSessionLogger creates <dir>/<command>-<timestamp>.log.
func NewSessionLogger(dir, command string) (*SessionLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02-150405")
	logPath := filepath.Join(dir, fmt.Sprintf("%s-%s.log", command, timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	l := &SessionLogger{
		file:      file,
		startTime: time.Now(),
		command:   command,
		id:        uuid.NewString(),
	}
	l.writeHeader()
	l.Logger = log.NewWithOptions(file, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           log.DebugLevel,
	}).With("session", l.id[:8])
	return l, nil
}

// discardSession is used when the log directory is not writable.
func discardSession(command string) *SessionLogger {
	return &SessionLogger{
		Logger:    log.New(io.Discard),
		startTime: time.Now(),
		command:   command,
		id:        uuid.NewString(),
	}
}

// openSession opens a session log, falling back to a discarding logger.
func openSession(dir, command string) *SessionLogger {
	l, err := NewSessionLogger(dir, command)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (continuing without a session log)\n", err)
		return discardSession(command)
	}
	return l
}

func (l *SessionLogger) writeHeader() {
	l.file.WriteString(strings.Repeat("=", 80) + "\n")
	l.file.WriteString(fmt.Sprintf("ingest-wizard: %s\n", l.command))
	l.file.WriteString(fmt.Sprintf("Session: %s\n", l.id))
	l.file.WriteString(fmt.Sprintf("Started: %s\n", l.startTime.Format(time.RFC3339)))
	l.file.WriteString(strings.Repeat("=", 80) + "\n\n")
}

// ID returns the session id.
func (l *SessionLogger) ID() string {
	return l.id
}

// Section writes a section header
func (l *SessionLogger) Section(title string) {
	if l == nil || l.file == nil {
		return
	}
	l.file.WriteString(fmt.Sprintf("\n--- %s ---\n", title))
}

// LogResult writes the final wizard state. The connection token is omitted.
func (l *SessionLogger) LogResult(s wizard.State, err error) {
	if l == nil || l.file == nil {
		return
	}
	l.Section("RESULT")
	l.Info("final state",
		"phase", s.Phase.String(),
		"source", s.Source.String(),
		"target", s.Target.String(),
		"status", s.Status,
	)
	if s.Result != nil {
		l.Info("ingestion", "records", s.Result.RecordCount, "file", s.Result.Filename, "message", s.Result.Message)
	}
	if err != nil {
		l.Error("stopped", "err", err)
	}
	l.Info("elapsed", "duration", time.Since(l.startTime).Round(time.Millisecond))
}

// Close closes the log file and returns its path.
func (l *SessionLogger) Close() string {
	if l == nil || l.file == nil {
		return ""
	}

	l.file.WriteString(fmt.Sprintf("\n\nCompleted: %s\n", time.Now().Format(time.RFC3339)))
	l.file.WriteString(fmt.Sprintf("Duration: %s\n", time.Since(l.startTime).Round(time.Millisecond)))

	path := l.file.Name()
	l.file.Close()
	return path
}
