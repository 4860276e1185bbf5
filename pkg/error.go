package pkg

import "errors"

// Controller and bus errors.
var (
	// ErrTimeout indicates the hardware never signaled an expected event
	// within its deadline.
	ErrTimeout = errors.New("hardware timeout")

	// ErrBadSequence indicates a CRC, end-bit, or command-index mismatch
	// reported by the controller.
	ErrBadSequence = errors.New("command sequence error")

	// ErrBusContention indicates the controller never released its
	// command/data inhibit bits.
	ErrBusContention = errors.New("inhibit bits never cleared")

	// ErrNoMedium indicates the device was removed mid-transaction.
	ErrNoMedium = errors.New("no medium present")

	// ErrDeviceDead indicates the controller has become unresponsive.
	ErrDeviceDead = errors.New("controller unresponsive")

	// ErrBusy indicates a request is already in flight.
	ErrBusy = errors.New("request already active")

	// ErrInvalidRequest indicates a malformed or oversized request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnsupportedResponse indicates a response type the controller
	// cannot produce (long response combined with busy signaling).
	ErrUnsupportedResponse = errors.New("unsupported response type")

	// ErrZeroLengthMapping indicates the DMA engine mapped nothing.
	ErrZeroLengthMapping = errors.New("zero-length DMA mapping")

	// ErrResetHung indicates a software reset never completed.
	ErrResetHung = errors.New("software reset never completed")

	// ErrClockUnstable indicates the internal clock never stabilised.
	ErrClockUnstable = errors.New("internal clock never stabilised")

	// ErrAlreadyRunning indicates the host is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates the host is not running.
	ErrNotRunning = errors.New("not running")
)
