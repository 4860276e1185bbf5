package sdhc

import (
	"github.com/ardnew/softsdhc/pkg"
	"github.com/ardnew/softsdhc/sdhc/hal"
)

// unsignalIRQs removes events from the signal mask without changing
// which bits latch in the status register. Caller holds the lock.
func (h *Host) unsignalIRQs(clear uint32) {
	ier := h.readl(RegSignalEnable)
	h.writel(ier&^clear, RegSignalEnable)
}

// transferDMA hands the active data phase to the bulk engine. Caller
// holds the lock.
//
// A zero-length mapping is a hard failure: nothing is submitted and
// the phase is left to the timeout supervisor.
func (h *Host) transferDMA() {
	if h.data == nil || h.blocks == 0 {
		return
	}

	length := h.dma.Map(h.data.Segments, h.data.Dir)
	if length == 0 {
		pkg.LogError(pkg.ComponentDMA, "mapping returned zero length",
			"dir", h.data.Dir,
			"error", pkg.ErrZeroLengthMapping)
		return
	}

	// The per-word availability interrupts serve only the direct
	// path; the bulk engine signals through its own completion and
	// error events.
	h.unsignalIRQs(IntDataAvail | IntSpaceAvail)

	desc := &hal.DMADescriptor{
		Segments: h.data.Segments,
		Dir:      h.data.Dir,
		Length:   length,
	}
	if err := h.dma.Submit(desc, h.dmaComplete); err != nil {
		pkg.LogError(pkg.ComponentDMA, "descriptor submission failed",
			"dir", desc.Dir,
			"error", err)
		h.dma.Unmap(h.data.Segments, h.data.Dir)
	}
}

// dmaComplete is the bulk engine's completion callback. It finalizes
// read-direction phases; write-direction completion is observed
// through the data-complete interrupt instead.
func (h *Host) dmaComplete(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.data == nil || h.data.Dir != hal.DirRead {
		return
	}

	if err != nil && h.data.Err == nil {
		h.data.Err = err
	}

	h.dma.Unmap(h.data.Segments, hal.DirRead)
	h.finishData()
}
