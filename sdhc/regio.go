package sdhc

import (
	"time"

	"github.com/ardnew/softsdhc/pkg"
)

// minFreq is the floor applied to the card clock when sizing the
// post-write settle delay.
const minFreq = 400000

// Debug mask bits gating the diagnostic interconnect busy-waits. Each
// access kind can drain outstanding reads/writes before and after the
// bus transaction; two nibble fields add a programmable extra delay.
// All bits default to zero, which disables every diagnostic.
const (
	debugWritelReadsBefore  = 1 << 0
	debugWritelWritesBefore = 1 << 1
	debugWritelReadsAfter   = 1 << 2
	debugWritelWritesAfter  = 1 << 3
	debugRawReadsBefore     = 1 << 4
	debugRawWritesBefore    = 1 << 5
	debugRawReadsAfter      = 1 << 6
	debugRawWritesAfter     = 1 << 7
	debugReadlReadsBefore   = 1 << 8
	debugReadlWritesBefore  = 1 << 9
	debugReadlReadsAfter    = 1 << 10
	debugReadlWritesAfter   = 1 << 11
	DebugForcePIO           = 1 << 12
)

// drainSpinBudget bounds the diagnostic busy-waits; diagnostics must
// not hang the core on a wedged interconnect counter.
const drainSpinBudget = 1 << 20

// writeDelay returns the settle delay required after a register write.
// The interconnect cannot absorb back-to-back accesses faster than the
// card clock allows, so the delay scales inversely with it.
func writeDelay(clock int) time.Duration {
	if clock < minFreq {
		clock = minFreq
	}
	return time.Duration(2000000/clock+1) * time.Microsecond
}

// busDrain busy-waits until the interconnect transaction counters
// drain, when the corresponding debug bits are set and the bus exposes
// a monitor.
func (h *Host) busDrain(readBit, writeBit uint32) {
	if h.mon == nil {
		return
	}
	if h.debug&readBit != 0 {
		for i := 0; h.mon.OutstandingReads() > 1 && i < drainSpinBudget; i++ {
		}
	}
	if h.debug&writeBit != 0 {
		for i := 0; h.mon.OutstandingWrites() > 0 && i < drainSpinBudget; i++ {
		}
	}
}

// debugDelay decodes a mantissa/exponent nibble pair from the debug
// mask into microseconds.
func (h *Host) debugDelay(shift uint) time.Duration {
	us := (h.debug >> shift & 0xF) << (h.debug >> (shift + 4) & 0xF)
	return time.Duration(us) * time.Microsecond
}

// writel stores a register word and then settles the interconnect.
func (h *Host) writel(val uint32, reg uint32) {
	h.busDrain(debugWritelReadsBefore, debugWritelWritesBefore)

	h.bus.Write32(reg, val)
	h.delay(writeDelay(h.clock))

	if d := h.debugDelay(16); d != 0 {
		h.delay(d)
	}
	h.busDrain(debugWritelReadsAfter, debugWritelWritesAfter)
}

// rawWritel stores a register word without the settle delay. Only the
// data port is written this way: its pacing comes from the
// space-available handshake, not the interconnect.
func (h *Host) rawWritel(val uint32, reg uint32) {
	h.busDrain(debugRawReadsBefore, debugRawWritesBefore)

	h.bus.Write32(reg, val)

	if d := h.debugDelay(24); d != 0 {
		h.delay(d)
	}
	h.busDrain(debugRawReadsAfter, debugRawWritesAfter)
}

// readl loads a register word.
func (h *Host) readl(reg uint32) uint32 {
	h.busDrain(debugReadlReadsBefore, debugReadlWritesBefore)
	val := h.bus.Read32(reg)
	h.busDrain(debugReadlReadsAfter, debugReadlWritesAfter)
	return val
}

// writew stores a 16-bit register by read-modify-write of its word.
//
// The command and transfer-mode registers share one word, and that
// word cannot be read back reliably once a transaction is staged in
// it. Writes to the transfer-mode half are therefore absorbed into a
// shadow copy, and a write to the command half combines the shadow
// with the new value and commits the whole word, starting the
// transaction.
func (h *Host) writew(val uint16, reg uint32) {
	var old uint32
	if reg == RegCommand {
		old = h.shadow
	} else {
		old = h.readl(reg &^ 3)
	}
	shift := (reg & 2) * 8
	mask := uint32(0xFFFF) << shift
	nv := old&^mask | uint32(val)<<shift

	if reg == RegTransferMode {
		h.shadow = nv
	} else {
		h.writel(nv, reg&^3)
	}
}

// writeb stores an 8-bit register by read-modify-write of its word.
func (h *Host) writeb(val uint8, reg uint32) {
	old := h.readl(reg &^ 3)
	shift := (reg & 3) * 8
	mask := uint32(0xFF) << shift
	h.writel(old&^mask|uint32(val)<<shift, reg&^3)
}

// readw loads a 16-bit register from its containing word.
func (h *Host) readw(reg uint32) uint16 {
	return uint16(h.readl(reg&^3) >> ((reg & 2) * 8))
}

// readb loads an 8-bit register from its containing word.
func (h *Host) readb(reg uint32) uint8 {
	return uint8(h.readl(reg&^3) >> ((reg & 3) * 8))
}

// dumpRegisters logs the full register block for fault diagnosis.
func (h *Host) dumpRegisters() {
	pkg.LogDebug(pkg.ComponentRegs, "register dump",
		"sysAddr", h.readl(RegDMAAddress),
		"version", h.readw(RegHostVersion),
		"blkSize", h.readw(RegBlockSize),
		"blkCount", h.readw(RegBlockCount),
		"argument", h.readl(RegArgument),
		"trnMode", h.readw(RegTransferMode),
		"present", h.readl(RegPresentState),
		"hostCtl", h.readb(RegHostControl),
		"power", h.readb(RegPowerControl),
		"blkGap", h.readb(RegBlockGap),
		"wakeUp", h.readb(RegWakeUp),
		"clock", h.readw(RegClockControl),
		"timeout", h.readb(RegTimeoutControl),
		"intStat", h.readl(RegIntStatus),
		"intEnab", h.readl(RegIntEnable),
		"sigEnab", h.readl(RegSignalEnable),
		"ac12Err", h.readw(RegACmd12Err),
		"slotInt", h.readw(RegSlotIntStatus),
		"caps", h.readl(RegCapabilities),
		"caps1", h.readl(RegCapabilities1),
		"command", h.readw(RegCommand),
		"maxCurr", h.readl(RegMaxCurrent),
		"hostCtl2", h.readw(RegHostControl2),
	)
}
