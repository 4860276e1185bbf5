// Package pkg provides shared utilities for the softsdhc controller core.
//
// This package contains common functionality used across the controller
// core and its HAL implementations, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error types for controller and bus faults
//   - Component identifiers for log filtering
//
// The package is designed to have zero external dependencies, relying
// only on the Go standard library.
//
// # Logging
//
// The logging subsystem wraps [log/slog] with controller-specific context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentHost, "request completed", "opcode", 17)
//
// # Errors
//
// Common controller errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrTimeout) {
//	    // Handle a hardware timeout
//	}
package pkg
