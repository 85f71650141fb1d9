// Package progress defines the progress-reporting hook used by long-running
// corpus and index operations.
package progress

import "log/slog"

// Func receives periodic progress updates: records processed so far, the
// total when known (0 otherwise), and a short message.
type Func func(processed, total int, message string)

// Default logs a progress line via slog. It is used whenever a caller does
// not supply its own callback.
func Default(processed, total int, message string) {
	slog.Info("progress", "processed", processed, "total", total, "message", message)
}

// OrDefault returns fn if non-nil, otherwise Default.
func OrDefault(fn Func) Func {
	if fn != nil {
		return fn
	}
	return Default
}
