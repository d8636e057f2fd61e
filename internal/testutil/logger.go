package testutil

import "log/slog"

// NopLogger returns a logger whose output goes nowhere, keeping test output quiet
func NopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
