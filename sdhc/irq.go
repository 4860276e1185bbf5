package sdhc

import (
	"github.com/ardnew/softsdhc/pkg"
	"github.com/ardnew/softsdhc/sdhc/hal"
)

// irqLoopBudget bounds the status drain loop so an event storm cannot
// monopolize interrupt dispatch.
const irqLoopBudget = 16

// IRQ services the controller's interrupt line. The platform calls it
// whenever the line asserts. It returns false when the interrupt was
// not ours: an empty status register is spurious, an all-ones read
// means the hardware is gone.
func (h *Host) IRQ() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	intmask := h.readl(RegIntStatus)
	if intmask == 0 || intmask == 0xFFFFFFFF {
		return false
	}

	var unexpected uint32
	for loops := irqLoopBudget; intmask != 0 && loops > 0; loops-- {
		// Acknowledge the bits we service this pass.
		ack := intmask & (IntCmdMask | IntDataMask | IntBusPower)
		if ack != 0 {
			h.writel(ack, RegIntStatus)
		}

		if intmask&IntCmdMask != 0 {
			h.cmdIRQ(intmask & IntCmdMask)
		}

		if intmask&IntDataMask != 0 {
			h.dataIRQ(intmask & IntDataMask)
		}

		if intmask&IntBusPower != 0 {
			pkg.LogError(pkg.ComponentIRQ,
				"card is consuming too much power")
		}

		if intmask&IntCardInt != 0 {
			// Mask until the deferred handler has run, then let it
			// re-arm delivery.
			h.setCardInt(false)
			h.cardPending = true
			select {
			case h.cardCh <- struct{}{}:
			default:
			}
		}

		intmask &^= IntCardInsert | IntCardRemove | IntCmdMask |
			IntDataMask | IntError | IntBusPower | IntCardInt

		if intmask != 0 {
			unexpected |= intmask
			h.writel(intmask, RegIntStatus)
		}

		intmask = h.readl(RegIntStatus)
	}

	if unexpected != 0 {
		pkg.LogError(pkg.ComponentIRQ, "unexpected interrupt",
			"bits", unexpected)
		h.dumpRegisters()
	}
	return true
}

// cmdIRQ handles command-class event bits. Caller holds the lock.
func (h *Host) cmdIRQ(intmask uint32) {
	if h.cmd == nil {
		pkg.LogError(pkg.ComponentIRQ,
			"command interrupt with no command in progress",
			"bits", intmask)
		h.dumpRegisters()
		return
	}

	if intmask&IntTimeout != 0 {
		h.cmd.Err = pkg.ErrTimeout
	} else if intmask&(IntCRC|IntEndBit|IntIndex) != 0 {
		h.cmd.Err = pkg.ErrBadSequence
	}

	if h.cmd.Err != nil {
		h.scheduleFinish()
		return
	}

	if intmask&IntResponse != 0 {
		h.finishCommand()
	}
}

// dataIRQ handles data-class event bits. Caller holds the lock.
func (h *Host) dataIRQ(intmask uint32) {
	if h.data == nil {
		// With no data phase active, a data-complete event still
		// means something for a busy-signaled command: the busy
		// state just ended.
		if h.cmd != nil && h.cmd.Flags&RspBusy != 0 {
			if intmask&IntDataEnd != 0 {
				h.finishCommand()
				return
			}
		}

		pkg.LogDebug(pkg.ComponentIRQ,
			"data interrupt with no data operation in progress",
			"bits", intmask)
		h.dumpRegisters()
		return
	}

	if intmask&IntDataTimeout != 0 {
		h.data.Err = pkg.ErrTimeout
	} else if intmask&IntDataEndBit != 0 {
		h.data.Err = pkg.ErrBadSequence
	} else if intmask&IntDataCRC != 0 &&
		commandOpcode(h.readw(RegCommand)) != OpBusTestRead {
		// CRC mismatches are part of normal protocol for the bus
		// test read command.
		h.data.Err = pkg.ErrBadSequence
	}

	if h.useDMA {
		if h.data.Dir == hal.DirWrite &&
			(h.data.Err != nil || intmask&IntDataEnd != 0) {
			// Write-direction completion arrives here; the read
			// direction completes through the engine callback.
			h.dma.Unmap(h.data.Segments, hal.DirWrite)
			h.finishData()
		}
		return
	}

	if h.data.Err != nil {
		h.finishData()
		return
	}

	if intmask&(IntDataAvail|IntSpaceAvail) != 0 {
		h.transferPIO()
	}

	if intmask&IntDataEnd != 0 {
		if h.cmd != nil {
			// Data finished before the command's response. Hold the
			// phase and replay it in order at response capture.
			h.dataEarly = true
		} else {
			h.finishData()
		}
	}
}
