package safe

import (
	"log/slog"
	"runtime/debug"
)

// Run executes fn and logs any panic with a stack trace instead of
// letting it take the process down. Meant for long-lived goroutines.
func Run(component string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered",
				slog.Any("recover", r),
				slog.String("component", component),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	fn()
}
