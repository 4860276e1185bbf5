package hal

// Direction indicates which way a data phase moves payload.
type Direction uint8

// Transfer directions.
const (
	DirRead  Direction = iota // Card to host memory
	DirWrite                  // Host memory to card
)

// String returns a human-readable direction name.
func (d Direction) String() string {
	switch d {
	case DirRead:
		return "read"
	case DirWrite:
		return "write"
	default:
		return "unknown"
	}
}

// RegisterBus provides word-granular access to the controller register
// block. Offsets are byte offsets from the block base and are always
// word-aligned when they reach the bus.
//
// Implementations must not block: the core calls these from interrupt
// dispatch and from paths holding its internal lock.
type RegisterBus interface {
	// Read32 returns the register word at the given byte offset.
	Read32(offset uint32) uint32

	// Write32 stores a register word at the given byte offset.
	Write32(offset uint32, value uint32)
}

// BusMonitor reports outstanding interconnect transactions. It is an
// optional diagnostic facility: when the register bus also implements
// BusMonitor, the core can busy-wait for the interconnect to drain
// around individual accesses, gated by the host debug mask. Correctness
// never depends on it.
type BusMonitor interface {
	// OutstandingReads returns the number of in-flight bus reads.
	OutstandingReads() uint32

	// OutstandingWrites returns the number of in-flight bus writes.
	OutstandingWrites() uint32
}

// ClockSource reports the frequency feeding the controller. The core
// reads it once at Start and derives all divisors from that rate.
type ClockSource interface {
	// Rate returns the source clock frequency in Hz.
	Rate() uint32
}

// DMADescriptor describes one bulk transfer covering an entire data
// phase. Segments is the caller's buffer list in order; Length is the
// total mapped byte count reported by Map.
type DMADescriptor struct {
	Segments [][]byte  // Ordered memory regions
	Dir      Direction // Transfer direction
	Length   int       // Total mapped bytes
}

// DMAEngine is an independent bulk-transfer engine paced by the
// controller's data-request line.
//
// The completion callback passed to Submit must be invoked from the
// engine's own execution context, never synchronously from Submit.
type DMAEngine interface {
	// Map prepares the buffer list for engine access and returns the
	// total mapped length in bytes. A zero return is a hard failure:
	// the core will not submit a descriptor for it.
	Map(segments [][]byte, dir Direction) int

	// Submit hands a descriptor to the engine and arranges for done to
	// be called when the transfer completes or fails.
	Submit(desc *DMADescriptor, done func(error)) error

	// Unmap releases a mapping established by Map.
	Unmap(segments [][]byte, dir Direction)
}
