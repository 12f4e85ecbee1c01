package utils

import (
	"log/slog"
	"runtime/debug"
)

// RecoverPanic logs a recovered panic with its stack. Use it directly with
// defer, e.g. defer utils.RecoverPanic("envworker").
func RecoverPanic(component string) {
	r := recover()
	if r != nil {
		slog.Error("Recovered from panic", "component", component, "panic", r, "stack", string(debug.Stack()))
	}
}
