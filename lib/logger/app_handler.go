package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// AppKey is the attribute that routes a record to an application's log file.
const AppKey = "app"

// AppLogHandler wraps an slog.Handler and additionally writes records that
// carry an "app" attribute to that application's log file.
//
// Implementation follows the slog handler guide for shared state across
// WithAttrs/WithGroup: https://pkg.go.dev/golang.org/x/example/slog-handler-guide
type AppLogHandler struct {
	slog.Handler
	logPathFunc func(app string) string // returns the log file for an app, "" to skip
	maxSize     int64                   // rotate once the file reaches this size, 0 = unlimited
	preAttrs    []slog.Attr             // attrs added via WithAttrs (needed to find "app")
}

// NewAppLogHandler creates a new handler that wraps the given handler and
// writes application-related records to per-application log files.
func NewAppLogHandler(wrapped slog.Handler, logPathFunc func(app string) string, maxSize int64) *AppLogHandler {
	return &AppLogHandler{
		Handler:     wrapped,
		logPathFunc: logPathFunc,
		maxSize:     maxSize,
	}
}

// Handle passes the record to the wrapped handler and, if an "app" attribute
// is present, appends it to the application's log file.
func (h *AppLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.Handler.Handle(ctx, r); err != nil {
		return err
	}

	var app string
	for _, a := range h.preAttrs {
		if a.Key == AppKey {
			app = a.Value.String()
			break
		}
	}

	// Record attrs override pre-bound ones
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == AppKey {
			app = a.Value.String()
			return false
		}
		return true
	})

	if app != "" {
		h.writeToAppLog(app, r)
	}

	return nil
}

// writeToAppLog opens and closes the file for each write; boot logs are
// low-volume and this avoids holding descriptors across remounts.
func (h *AppLogHandler) writeToAppLog(app string, r slog.Record) {
	logPath := h.logPathFunc(app)
	if logPath == "" {
		return
	}

	// Format log line: timestamp LEVEL message key=value key=value...
	line := fmt.Sprintf("%s %s %s", r.Time.Format(time.RFC3339), r.Level.String(), r.Message)
	for _, a := range h.preAttrs {
		if a.Key != AppKey {
			line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != AppKey {
			line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		}
		return true
	})
	line += "\n"

	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		// Package-level slog (not our handler) avoids recursion
		slog.Warn("failed to create app log directory", "path", dir, "error", err)
		return
	}

	h.rotateIfNeeded(logPath, int64(len(line)))

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.Warn("failed to open app log file", "path", logPath, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		slog.Warn("failed to write to app log file", "path", logPath, "error", err)
	}
}

// rotateIfNeeded moves the file to <path>.1 when the next write would exceed maxSize.
func (h *AppLogHandler) rotateIfNeeded(logPath string, incoming int64) {
	if h.maxSize <= 0 {
		return
	}
	info, err := os.Stat(logPath)
	if err != nil || info.Size()+incoming <= h.maxSize {
		return
	}
	if err := os.Rename(logPath, logPath+".1"); err != nil {
		slog.Warn("failed to rotate app log file", "path", logPath, "error", err)
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *AppLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.Handler.Enabled(ctx, level)
}

// WithAttrs returns a new handler with the given attributes.
func (h *AppLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newPreAttrs := make([]slog.Attr, len(h.preAttrs), len(h.preAttrs)+len(attrs))
	copy(newPreAttrs, h.preAttrs)
	newPreAttrs = append(newPreAttrs, attrs...)

	return &AppLogHandler{
		Handler:     h.Handler.WithAttrs(attrs),
		logPathFunc: h.logPathFunc,
		maxSize:     h.maxSize,
		preAttrs:    newPreAttrs,
	}
}

// WithGroup returns a new handler with the given group name.
// The "app" attribute is only looked up at the top level.
func (h *AppLogHandler) WithGroup(name string) slog.Handler {
	return &AppLogHandler{
		Handler:     h.Handler.WithGroup(name),
		logPathFunc: h.logPathFunc,
		maxSize:     h.maxSize,
		preAttrs:    h.preAttrs,
	}
}
