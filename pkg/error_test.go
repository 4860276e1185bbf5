package pkg

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	sentinels := []struct {
		name string
		err  error
	}{
		{"ErrTimeout", ErrTimeout},
		{"ErrBadSequence", ErrBadSequence},
		{"ErrBusContention", ErrBusContention},
		{"ErrNoMedium", ErrNoMedium},
		{"ErrDeviceDead", ErrDeviceDead},
		{"ErrBusy", ErrBusy},
		{"ErrInvalidRequest", ErrInvalidRequest},
		{"ErrUnsupportedResponse", ErrUnsupportedResponse},
		{"ErrZeroLengthMapping", ErrZeroLengthMapping},
		{"ErrResetHung", ErrResetHung},
		{"ErrClockUnstable", ErrClockUnstable},
		{"ErrAlreadyRunning", ErrAlreadyRunning},
		{"ErrNotRunning", ErrNotRunning},
	}

	for _, tt := range sentinels {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatal("sentinel is nil")
			}
			if tt.err.Error() == "" {
				t.Error("sentinel has empty message")
			}

			// Sentinels must survive wrapping.
			wrapped := fmt.Errorf("submit: %w", tt.err)
			if !errors.Is(wrapped, tt.err) {
				t.Error("errors.Is fails on wrapped sentinel")
			}
		})
	}
}

func TestSentinelErrors_Distinct(t *testing.T) {
	if errors.Is(ErrTimeout, ErrBadSequence) {
		t.Error("ErrTimeout matches ErrBadSequence")
	}
	if errors.Is(ErrBusy, ErrNotRunning) {
		t.Error("ErrBusy matches ErrNotRunning")
	}
}
