package sdhc

import (
	"github.com/ardnew/softsdhc/pkg"
	"github.com/ardnew/softsdhc/sdhc/hal"
)

// segIter walks an ordered buffer list across multiple availability
// events. Position survives between calls: a block may start in one
// segment and finish in another, and a transfer may be split across
// many interrupts.
type segIter struct {
	segs [][]byte
	idx  int
	off  int
}

// remaining returns the unconsumed tail of the current segment, or nil
// when the list is exhausted. Zero-length segments are skipped.
func (it *segIter) remaining() []byte {
	for it.idx < len(it.segs) {
		if it.off < len(it.segs[it.idx]) {
			return it.segs[it.idx][it.off:]
		}
		it.idx++
		it.off = 0
	}
	return nil
}

// consume advances the iterator by n bytes within the current segment.
func (it *segIter) consume(n int) {
	it.off += n
}

// readBlockPIO drains one block from the data port into the buffer
// list, unpacking each 32-bit word across segment boundaries. Caller
// holds the lock, which stands in for the interrupt-masked section the
// word reassembly requires.
func (h *Host) readBlockPIO() {
	blksize := h.data.BlockSize
	chunk := 0
	var scratch uint32

	for blksize > 0 {
		buf := h.iter.remaining()
		if buf == nil {
			pkg.LogError(pkg.ComponentTransfer,
				"buffer list exhausted mid-block")
			return
		}

		n := len(buf)
		if n > blksize {
			n = blksize
		}
		blksize -= n

		for i := 0; i < n; i++ {
			if chunk == 0 {
				scratch = h.readl(RegBuffer)
				chunk = 4
			}
			buf[i] = byte(scratch)
			scratch >>= 8
			chunk--
		}
		h.iter.consume(n)
	}
}

// writeBlockPIO fills the data port with one block from the buffer
// list, packing bytes into 32-bit words across segment boundaries. The
// final partial word of the block is flushed as-is.
func (h *Host) writeBlockPIO() {
	blksize := h.data.BlockSize
	chunk := 0
	var scratch uint32

	for blksize > 0 {
		buf := h.iter.remaining()
		if buf == nil {
			pkg.LogError(pkg.ComponentTransfer,
				"buffer list exhausted mid-block")
			return
		}

		n := len(buf)
		if n > blksize {
			n = blksize
		}
		blksize -= n

		for i := 0; i < n; i++ {
			scratch |= uint32(buf[i]) << (chunk * 8)
			chunk++
			if chunk == 4 || (i == n-1 && blksize == 0) {
				h.rawWritel(scratch, RegBuffer)
				chunk = 0
				scratch = 0
			}
		}
		h.iter.consume(n)
	}
}

// transferPIO moves blocks through the data port for as long as the
// controller reports data or space available. Iterations resume from
// the iterator's saved position; remaining blocks carry across events.
// Caller holds the lock.
func (h *Host) transferPIO() {
	if h.blocks == 0 {
		return
	}

	mask := PresentSpaceAvail
	if h.data.Dir == hal.DirRead {
		mask = PresentDataAvail
	}

	for h.readl(RegPresentState)&mask != 0 {
		if h.data.Dir == hal.DirRead {
			h.readBlockPIO()
		} else {
			h.writeBlockPIO()
		}

		h.blocks--
		if h.blocks == 0 {
			break
		}
	}
}
