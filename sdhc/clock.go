package sdhc

import (
	"time"

	"github.com/ardnew/softsdhc/pkg"
)

// BusWidth selects the card data bus width.
type BusWidth uint8

// Supported bus widths.
const (
	BusWidth1 BusWidth = iota // 1-bit data bus
	BusWidth4                 // 4-bit data bus
)

// DriverType selects the output driver strength.
type DriverType uint8

// Driver strength types, per the host controller specification.
const (
	DriverTypeB DriverType = iota // Default strength
	DriverTypeA
	DriverTypeC
	DriverTypeD
)

// Power selects the bus voltage. PowerOff removes bus power.
type Power uint8

// Bus power settings.
const (
	PowerOff Power = 0
	Power18V Power = Power(Power180)
	Power30V Power = Power(Power300)
	Power33V Power = Power(Power330)
)

// IOS is one bus configuration: clock rate, width, power, and driver
// strength. Applied atomically by Configure.
type IOS struct {
	Clock      int // Target card clock in Hz; 0 gates the clock off
	BusWidth   BusWidth
	Power      Power
	DriverType DriverType
}

// clockPollBudget bounds the wait for internal clock stability: 20
// polls of 1ms.
const clockPollBudget = 20

// setClock programs the clock divisor for the target frequency and
// brings the card clock up. Caller holds the lock.
func (h *Host) setClock(clock int) {
	h.actualClock = 0

	h.writew(0, RegClockControl)

	if clock == 0 {
		return
	}

	// Divisors above 1 must be even.
	div := 1
	if int(h.maxClk) > clock {
		for div = 2; div < maxDivSpec300; div += 2 {
			if int(h.maxClk)/div <= clock {
				break
			}
		}
	}

	h.actualClock = h.maxClk / uint32(div)

	reg := div >> 1
	clk := uint16(reg&divMask) << dividerShift
	clk |= uint16((reg&divHiMask)>>divMaskLen) << dividerHiShift
	clk |= ClockIntEn
	h.writew(clk, RegClockControl)

	budget := clockPollBudget
	for {
		clk = h.readw(RegClockControl)
		if clk&ClockIntStable != 0 {
			break
		}
		if budget == 0 {
			pkg.LogError(pkg.ComponentClock,
				"internal clock never stabilised",
				"error", pkg.ErrClockUnstable)
			h.dumpRegisters()
			return
		}
		budget--
		h.delay(time.Millisecond)
	}

	if waited := clockPollBudget - budget; waited > 10 && waited > h.maxDelay {
		h.maxDelay = waited
		pkg.LogWarn(pkg.ComponentClock, "controller hung",
			"ms", waited)
	}

	clk |= ClockCardEn
	h.writew(clk, RegClockControl)

	pkg.LogDebug(pkg.ComponentClock, "card clock set",
		"target", clock,
		"actual", h.actualClock,
		"divisor", div)
}

// Configure applies a bus configuration synchronously. The card clock
// is bounced (gated off and re-enabled) around the control register
// updates.
func (h *Host) Configure(ios IOS) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dead {
		return pkg.ErrNoMedium
	}

	if ios.Clock == 0 || ios.Clock != h.clock {
		h.setClock(ios.Clock)
		h.clock = ios.Clock
	}

	if pwr := uint8(ios.Power); pwr != h.pwr {
		h.pwr = pwr
		if pwr == 0 {
			h.writeb(0, RegPowerControl)
		} else {
			h.writeb(pwr|PowerOn, RegPowerControl)
		}
	}

	ctrl := h.readb(RegHostControl)
	ctrl &^= Ctrl8BitBus
	if ios.BusWidth == BusWidth4 {
		ctrl |= Ctrl4BitBus
	} else {
		ctrl &^= Ctrl4BitBus
	}
	// High-speed timing is not reliable on this controller family.
	ctrl &^= CtrlHighSpeed
	h.writeb(ctrl, RegHostControl)

	ctrl2 := h.readw(RegHostControl2)
	ctrl2 &^= Ctrl2DrvTypeMask
	switch ios.DriverType {
	case DriverTypeA:
		ctrl2 |= Ctrl2DrvTypeA
	case DriverTypeC:
		ctrl2 |= Ctrl2DrvTypeC
	case DriverTypeD:
		ctrl2 |= Ctrl2DrvTypeD
	}
	h.writew(ctrl2, RegHostControl2)

	// Bounce the card clock so the new control settings latch.
	clk := h.readw(RegClockControl)
	clk &^= ClockCardEn
	h.writew(clk, RegClockControl)

	h.setClock(h.clock)
	h.writeb(ctrl, RegHostControl)

	return nil
}
