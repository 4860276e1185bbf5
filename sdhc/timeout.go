package sdhc

import (
	"time"

	"github.com/ardnew/softsdhc/pkg"
)

// defaultSupervision is the deadline applied to every transaction
// whose command does not declare a longer busy wait.
const defaultSupervision = 10 * time.Second

// busyDeclareFloor is the declared busy timeout above which the
// supervision deadline is derived from the declaration instead of the
// fixed bound.
const busyDeclareFloor = 9 * time.Second

// supervision derives the deadline for a command. A long declared busy
// wait extends it; everything else gets the fixed bound.
func supervision(cmd *Command) time.Duration {
	if cmd.Data != nil || cmd.BusyTimeout <= busyDeclareFloor {
		return defaultSupervision
	}
	// Round the declared busy wait up to a whole second and add one
	// more for slack.
	d := cmd.BusyTimeout + time.Second
	if rem := cmd.BusyTimeout % time.Second; rem != 0 {
		d += time.Second - rem
	}
	return d
}

// armTimer arms the per-host deadline for a freshly issued command.
// Caller holds the lock.
func (h *Host) armTimer(cmd *Command) {
	d := supervision(cmd)

	if h.timer != nil {
		h.timer.Stop()
	}
	h.timer = time.AfterFunc(d, h.timerExpired)
}

// stopTimer disarms the deadline.
func (h *Host) stopTimer() {
	if h.timer != nil {
		h.timer.Stop()
	}
}

// timerExpired force-fails the in-flight operation when the hardware
// never delivered the expected event. Runs in the timer's context.
func (h *Host) timerExpired() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.req == nil {
		return
	}

	pkg.LogError(pkg.ComponentHost,
		"timeout waiting for hardware interrupt")
	h.dumpRegisters()

	if h.data != nil {
		h.data.Err = pkg.ErrTimeout
		h.finishData()
		return
	}

	if h.cmd != nil {
		h.cmd.Err = pkg.ErrTimeout
	} else {
		h.req.Cmd.Err = pkg.ErrTimeout
	}
	h.scheduleFinish()
}
