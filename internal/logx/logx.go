// Package logx centralizes the module's slog configuration, matching
// the teacher's (cogentcore.org/core) base/logx convention referenced
// from base/exec: a single package-level level switch that
// cmd/kneeboard-app and cmd/kneeboard-viewer flip through SetLevel in
// response to their -v/--verbose flag.
package logx

import (
	"log/slog"
	"os"
)

// UserLevel is the minimum level printed to the console. Defaults to
// Info; it is changed through SetLevel, which cmd/kneeboard-app and
// cmd/kneeboard-viewer call from their flag parsing.
var UserLevel = slog.LevelInfo

var handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelDebug, // the handler always accepts Debug; UserLevel filters via levelVar
})

var levelVar slog.LevelVar

func init() {
	levelVar.Set(UserLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &levelVar})))
}

// SetLevel updates both UserLevel and the active handler's threshold.
func SetLevel(level slog.Level) {
	UserLevel = level
	levelVar.Set(level)
}
