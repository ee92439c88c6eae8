// Package logger provides the ambient logging surface used across the
// storage abstraction layer, shaped after the call surface the teacher
// codebase exposes from its own internal/logger package (LogIf, Info,
// Fatal, request-scoped context) so call sites read the same way.
//
// Two sinks are active by default: a colorized single-line console sink
// (in the teacher's own style) and a structured zerolog sink suitable for
// log aggregation.
package logger

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

var (
	structured = zerolog.New(os.Stderr).With().Timestamp().Logger()

	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	infoColor = color.New(color.FgCyan)

	onceMu   sync.Mutex
	onceSeen = map[string]time.Time{}
)

type reqInfoKey struct{}

// ReqInfo carries per-request context (bucket/object/owner) attached to
// every log line emitted while servicing one S3 operation, mirroring the
// teacher's logger.ReqInfo/SetReqInfo/GetReqInfo pattern.
type ReqInfo struct {
	RequestID string
	Bucket    string
	Object    string
	Owner     string
}

// SetReqInfo attaches r to ctx for downstream logging calls.
func SetReqInfo(ctx context.Context, r *ReqInfo) context.Context {
	return context.WithValue(ctx, reqInfoKey{}, r)
}

// GetReqInfo retrieves the ReqInfo attached by SetReqInfo, or a zero value.
func GetReqInfo(ctx context.Context) *ReqInfo {
	if r, ok := ctx.Value(reqInfoKey{}).(*ReqInfo); ok && r != nil {
		return r
	}
	return &ReqInfo{}
}

func fields(ctx context.Context) map[string]interface{} {
	r := GetReqInfo(ctx)
	return map[string]interface{}{
		"request_id": r.RequestID,
		"bucket":     r.Bucket,
		"object":     r.Object,
		"owner":      r.Owner,
	}
}

// Info logs an informational message.
func Info(ctx context.Context, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	infoColor.Fprintln(os.Stderr, msg)
	ev := structured.Info()
	for k, v := range fields(ctx) {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// LogIf logs err and continues; used for tolerated failures such as
// stats-update errors and cache misses (spec.md §7 propagation policy:
// "stats-update failures are logged but do not fail the mutation").
func LogIf(ctx context.Context, err error) {
	if err == nil {
		return
	}
	warnColor.Fprintf(os.Stderr, "%v\n", err)
	ev := structured.Warn()
	for k, v := range fields(ctx) {
		ev = ev.Interface(k, v)
	}
	ev.Err(err).Msg("tolerated error")
}

// LogOnceIf is LogIf rate-limited to once per id within a minute,
// whatever the error message, for noisy background paths (e.g. a cache invalidation
// hook hammering the same key).
func LogOnceIf(ctx context.Context, err error, id string) {
	if err == nil {
		return
	}
	onceMu.Lock()
	last, seen := onceSeen[id]
	if seen && time.Since(last) < time.Minute {
		onceMu.Unlock()
		return
	}
	onceSeen[id] = time.Now()
	onceMu.Unlock()
	LogIf(ctx, err)
}

// Fatal logs err and terminates the process; reserved for bootstrap
// failures (e.g. the index/object service is unreachable at startup).
func Fatal(err error, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	errColor.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	structured.Fatal().Err(err).Msg(msg)
	os.Exit(1)
}

// AuditLog is a no-op hook the front-end may wire a real audit target
// into (spec.md §1: "logging transport" is an external collaborator).
// It must exist and be callable even when nothing is wired.
var AuditLog = func(ctx context.Context, op string, fields map[string]interface{}) {}
