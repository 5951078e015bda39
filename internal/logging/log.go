// Package logging provides the free-function logging surface used outside
// of request-scoped code: entity lifecycle events, scheduler warnings, and
// shutdown-path messages where threading a *slog.Logger through every call
// site would be noise. It relays onto the process-wide slog default, so the
// handler (tint) is configured once in cmd and every call here honors it.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const maxInFlightLogs = 200

var (
	relay    *channelRelay //nolint:golint,gochecknoglobals
	isInit   atomic.Bool   //nolint:golint,gochecknoglobals
	initDone atomic.Bool   //nolint:golint,gochecknoglobals
)

type logEntry struct {
	level   slog.Level
	message string
}

type channelRelay struct {
	ch chan logEntry
}

func getRelay() *channelRelay {
	lastInit := isInit.Swap(true)
	if !lastInit {
		relay = &channelRelay{ch: make(chan logEntry, maxInFlightLogs)}
		go relay.run()
		initDone.Store(true)
	}
	const loadDelay = 100 * time.Microsecond
	for !initDone.Load() {
		time.Sleep(loadDelay)
	}
	return relay
}

func (r *channelRelay) run() {
	for entry := range r.ch {
		slog.Log(context.Background(), entry.level, entry.message)
	}
}

// Error logs a fixed error-level message, prefixed with the caller's
// function name, file, and line.
func Error(message string) {
	getRelay().ch <- logEntry{level: slog.LevelError, message: fmt.Sprintf("%s: %s", getPrefix(), message)}
}

// Errorf logs a formatted error-level message.
func Errorf(format string, args ...interface{}) {
	getRelay().ch <- logEntry{level: slog.LevelError, message: fmt.Sprintf("%s: %s", getPrefix(), fmt.Sprintf(format, args...))}
}

// Log logs a fixed info-level message.
func Log(message string) {
	getRelay().ch <- logEntry{level: slog.LevelInfo, message: fmt.Sprintf("%s: %s", getPrefix(), message)}
}

// Logf logs a formatted info-level message.
func Logf(format string, args ...interface{}) {
	getRelay().ch <- logEntry{level: slog.LevelInfo, message: fmt.Sprintf("%s: %s", getPrefix(), fmt.Sprintf(format, args...))}
}

// getPrefix uses runtime reflection to tag a log line with the calling
// function, trimmed of the module path, plus its source file and line.
func getPrefix() string {
	const skip = 2 // 0 = getPrefix, 1 = Error/Errorf/Log/Logf, 2 = their caller
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	name := strings.TrimPrefix(
		runtime.FuncForPC(pc).Name(), "github.com/trunkctl/tetrabase/",
	)
	return fmt.Sprintf("[%s@%s:%s]", name, filepath.Base(file), strconv.Itoa(line))
}

// Close drains and stops the relay. Safe to call once during shutdown.
func Close() {
	if relay != nil {
		close(relay.ch)
	}
}
