package sdhc

import (
	"time"

	"github.com/ardnew/softsdhc/pkg"
	"github.com/ardnew/softsdhc/sdhc/hal"
)

// inhibitPollBudget bounds the wait for the controller to release its
// inhibit bits before a command write: 1000 polls of 10µs, 10ms total.
const inhibitPollBudget = 1000

// sendCommand stages and issues one command. Caller holds the lock.
//
// Everything the transaction needs (timer, data-phase registers,
// transfer mode, argument) is programmed before the command register
// write, because that write starts the transaction from the
// controller's perspective.
func (h *Host) sendCommand(cmd *Command) {
	if cmd.Flags&Rsp136 != 0 && cmd.Flags&RspBusy != 0 {
		pkg.LogError(pkg.ComponentHost, "unsupported response type",
			"opcode", cmd.Opcode)
		cmd.Err = pkg.ErrUnsupportedResponse
		h.scheduleFinish()
		return
	}

	mask := PresentCmdInhibit
	if cmd.Data != nil || cmd.Flags&RspBusy != 0 {
		mask |= PresentDataInhibit
	}

	// Stop commands may use busy signaling, but must not wait on the
	// data inhibit: the data line is still owned by the transfer they
	// are stopping.
	if h.req.Cmd.Data != nil && cmd == h.req.Cmd.Data.Stop {
		mask &^= PresentDataInhibit
	}

	budget := inhibitPollBudget
	for h.readl(RegPresentState)&mask != 0 {
		if budget == 0 {
			pkg.LogError(pkg.ComponentHost,
				"controller never released inhibit bits",
				"opcode", cmd.Opcode)
			h.dumpRegisters()
			cmd.Err = pkg.ErrBusContention
			h.scheduleFinish()
			return
		}
		budget--
		h.delay(10 * time.Microsecond)
	}
	if stall := (inhibitPollBudget - budget) / 100; stall > 1 && stall > h.maxDelay {
		h.maxDelay = stall
		pkg.LogWarn(pkg.ComponentHost, "controller hung",
			"ms", stall)
	}

	h.armTimer(cmd)

	h.cmd = cmd
	h.prepareData(cmd)

	h.writel(cmd.Arg, RegArgument)

	h.setTransferMode(cmd)

	var flags uint16
	switch {
	case cmd.Flags&RspPresent == 0:
		flags = cmdRespNone
	case cmd.Flags&Rsp136 != 0:
		flags = cmdRespLong
	case cmd.Flags&RspBusy != 0:
		flags = cmdRespShortBusy
	default:
		flags = cmdRespShort
	}
	if cmd.Flags&RspCRC != 0 {
		flags |= cmdCRC
	}
	if cmd.Flags&RspIndex != 0 {
		flags |= cmdIndex
	}
	if cmd.Data != nil {
		flags |= cmdData
	}

	h.writew(makeCommand(cmd.Opcode, flags), RegCommand)
}

// prepareData programs the data-phase registers and selects the
// transfer strategy. Must run before the command register write.
// Caller holds the lock.
func (h *Host) prepareData(cmd *Command) {
	data := cmd.Data

	if data != nil || cmd.Flags&RspBusy != 0 {
		h.writeb(timeoutControlValue, RegTimeoutControl)
	}
	if data == nil {
		return
	}

	h.data = data
	h.dataEarly = false
	data.BytesXfered = 0

	h.useDMA = h.haveDMA && data.Blocks > h.dmaThreshold
	if !h.useDMA {
		h.iter = segIter{segs: data.Segments}
	}
	h.blocks = data.Blocks

	h.setTransferIRQs()

	h.writew(makeBlockSize(defaultBoundaryArg, data.BlockSize), RegBlockSize)
	h.writew(uint16(data.Blocks), RegBlockCount)
}

// setTransferIRQs swaps the enabled interrupt set between the
// per-word availability events and the bulk engine's completion and
// error events, according to the chosen strategy. Caller holds the
// lock.
func (h *Host) setTransferIRQs() {
	pioIRQs := IntDataAvail | IntSpaceAvail
	dmaIRQs := IntDMAEnd | IntADMAError

	if h.useDMA {
		h.ier = h.ier&^pioIRQs | dmaIRQs
	} else {
		h.ier = h.ier&^dmaIRQs | pioIRQs
	}
	h.writel(h.ier, RegIntEnable)
	h.writel(h.ier, RegSignalEnable)
}

// setTransferMode programs the transfer-mode shadow for the command.
// Caller holds the lock.
func (h *Host) setTransferMode(cmd *Command) {
	data := cmd.Data

	if data == nil {
		// Clear stale auto-command selections for command-only
		// transactions.
		mode := h.readw(RegTransferMode)
		h.writew(mode&^(TrnsAutoCMD12|TrnsAutoCMD23), RegTransferMode)
		return
	}

	mode := TrnsBlockCountEn

	if isMultiBlock(cmd.Opcode) || data.Blocks > 1 {
		mode |= TrnsMulti

		// With a set-block-count command the card stops on its own,
		// so auto CMD12 must stay off.
		if h.req.SBC == nil && h.autoCMD12 {
			mode |= TrnsAutoCMD12
		} else if h.req.SBC != nil && h.autoCMD23 {
			mode |= TrnsAutoCMD23
			h.writel(h.req.SBC.Arg, RegArgument2)
		}
	}

	if data.Dir == hal.DirRead {
		mode |= TrnsRead
	}
	// The bulk engine is external and paced by the data-request line;
	// the controller's own DMA mode bit stays clear.

	h.writew(mode, RegTransferMode)
}

// finishCommand captures the response for the active command and
// advances the transaction. Caller holds the lock.
func (h *Host) finishCommand() {
	cmd := h.cmd

	if cmd.Flags&RspPresent != 0 {
		if cmd.Flags&Rsp136 != 0 {
			// The controller strips each response word's trailing
			// CRC byte; reassemble by shifting across words.
			for i := uint32(0); i < 4; i++ {
				cmd.Resp[i] = h.readl(RegResponse+(3-i)*4) << 8
				if i != 3 {
					cmd.Resp[i] |= uint32(h.readb(RegResponse + (3-i)*4 - 1))
				}
			}
		} else {
			cmd.Resp[0] = h.readl(RegResponse)
		}
	}

	cmd.Err = nil

	if cmd == h.req.SBC {
		// Set-block-count completed; now issue the primary command.
		h.cmd = nil
		h.sendCommand(h.req.Cmd)
		if h.req.Cmd.Data != nil && h.useDMA {
			h.transferDMA()
		}
		return
	}

	h.cmd = nil

	// A data phase that signaled completion before this response is
	// replayed now, in order.
	if h.data != nil && h.dataEarly {
		h.finishData()
	}

	if cmd.Data == nil {
		h.scheduleFinish()
	}
}

// finishData finalizes the active data phase and sequences the stop
// command when one is needed. Caller holds the lock.
func (h *Host) finishData() {
	data := h.data
	h.data = nil

	if data.Err != nil {
		data.BytesXfered = 0
	} else {
		data.BytesXfered = data.BlockSize * data.Blocks
	}

	// A stop command goes out for open-ended multi-block transfers
	// (no set-block-count preceded them) and after any transfer
	// error.
	if data.Stop != nil && (data.Err != nil || h.req.SBC == nil) {
		if data.Err != nil {
			h.reset(ResetCmd)
			h.reset(ResetData)
		}
		h.sendCommand(data.Stop)
		return
	}

	h.scheduleFinish()
}

// resetPollBudget bounds the wait for a software reset to self-clear:
// 100 polls of 1ms.
const resetPollBudget = 100

// reset flushes the selected controller sub-engines and waits for the
// hardware to clear the reset bits. Caller holds the lock.
func (h *Host) reset(mask uint8) {
	h.writeb(mask, RegSoftwareReset)

	if mask&ResetAll != 0 {
		h.clock = 0
	}

	budget := resetPollBudget
	for h.readb(RegSoftwareReset)&mask != 0 {
		if budget == 0 {
			pkg.LogError(pkg.ComponentHost, "reset never completed",
				"mask", mask,
				"error", pkg.ErrResetHung)
			h.dumpRegisters()
			return
		}
		budget--
		h.delay(time.Millisecond)
	}

	if waited := resetPollBudget - budget; waited > 10 && waited > h.maxDelay {
		h.maxDelay = waited
		pkg.LogWarn(pkg.ComponentHost, "controller hung",
			"ms", waited)
	}
}
