// Package errs extends the standard library errors package the way
// the teacher's (cogentcore.org/core) errors and base/errors packages
// do: thin re-exports plus Log helpers that log-and-passthrough, so
// call sites can write `return errs.Log(f())` instead of a separate
// if-err-log-return block. It also implements the §7 error taxonomy:
// Fatal, Transient, and Cancelled.
package errs

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// Re-exports of the stdlib errors package, matching the teacher's
// errors/stdlib.go convention.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
	New  = errors.New
)

// Cancelled is returned by cooperative tasks when their stop token
// was requested before or during the operation. It is never logged
// at warning level (spec §7).
var Cancelled = errors.New("errs: cancelled")

// IsCancelled reports whether err is (or wraps) Cancelled.
func IsCancelled(err error) bool { return errors.Is(err, Cancelled) }

// Transient marks an error as retry-worthy: filesystem sharing
// violations, empty mailslot reads, under-sized ReadFile buffers.
// Transient errors are logged at debug level and retried with a
// bounded attempt count (spec §7).
type Transient struct {
	Err error
}

func (t *Transient) Error() string { return t.Err.Error() }
func (t *Transient) Unwrap() error { return t.Err }

// NewTransient wraps err as Transient.
func NewTransient(err error) error {
	if err == nil {
		return nil
	}
	return &Transient{Err: err}
}

// IsTransient reports whether err is a Transient.
func IsTransient(err error) bool {
	var t *Transient
	return errors.As(err, &t)
}

// Log logs err (if non-nil) at Error level with caller info, and
// returns it unchanged, matching the teacher's errors.Log.
func Log(err error) error {
	if err != nil {
		slog.Error(err.Error(), "caller", CallerInfo(2))
	}
	return err
}

// Log1 is Log for a (value, error) pair: logs err if non-nil and
// returns v unchanged either way.
func Log1[T any](v T, err error) T {
	if err != nil {
		slog.Error(err.Error(), "caller", CallerInfo(2))
	}
	return v
}

// CallerInfo returns "file:line" for the caller skip frames up.
func CallerInfo(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// Fatal captures a stack trace, logs it, and terminates the process.
// Reserved for broken invariants (corrupt SHM magic, a state machine
// observing a transition outside its allowed set) per spec §7/§9 —
// never used for recoverable or user-visible errors.
var Fatal = fatal

func fatal(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	buf := make([]byte, 1<<16)
	n := runtime.Stack(buf, false)
	slog.Error("fatal: "+msg, "stack", string(buf[:n]))
	panic(msg)
}
