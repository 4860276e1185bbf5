package sim

import (
	"sync"

	"github.com/ardnew/softsdhc/pkg"
	"github.com/ardnew/softsdhc/sdhc/hal"
)

// Register word indexes within the simulated block. These mirror the
// standard host controller layout the core programs.
const (
	wordBlockSize    = 0x04 >> 2
	wordArgument     = 0x08 >> 2
	wordCommand      = 0x0C >> 2
	wordResponse     = 0x10 >> 2
	wordBuffer       = 0x20 >> 2
	wordPresentState = 0x24 >> 2
	wordClockControl = 0x2C >> 2
	wordIntStatus    = 0x30 >> 2
	wordIntEnable    = 0x34 >> 2
	wordSignalEnable = 0x38 >> 2
)

// Interrupt and status bits the simulator generates.
const (
	intResponse   = 0x00000001
	intDataEnd    = 0x00000002
	intSpaceAvail = 0x00000010
	intDataAvail  = 0x00000020

	presentSpaceAvail = 0x00000400
	presentDataAvail  = 0x00000800
	presentCard       = 0x00010000

	clockIntEn     = 0x0001
	clockIntStable = 0x0002
)

// Command register decoding.
const (
	cmdFlagData = 0x20
	trnsRead    = 0x10
)

// Config parameterizes a simulated controller.
type Config struct {
	// CardSize is the simulated card capacity in bytes; it is rounded
	// up to a whole block. Ignored when Card is set.
	CardSize int

	// Card supplies the backing storage directly. Optional.
	Card []byte

	// ClockRate is the simulated source clock in Hz. Defaults to
	// 250 MHz.
	ClockRate uint32
}

const (
	defaultCardSize  = 1 << 20
	defaultClockRate = 250000000
	blockSize        = 512
)

// Controller is a software register file behaving like an SD host
// controller with a card always present. It implements
// [hal.RegisterBus], [hal.ClockSource], and (trivially)
// [hal.BusMonitor].
type Controller struct {
	mu sync.Mutex

	regs    [64]uint32
	present uint32
	card    []byte
	rate    uint32

	// Outbound staging (card to host).
	outBuf []byte
	outPos int

	// Inbound staging (host to card).
	inPos    int
	inCount  int
	inExpect int

	handler func()
	irqCh   chan struct{}
	closed  chan struct{}
	wg      sync.WaitGroup
}

// New creates and starts a simulated controller.
func New(cfg Config) *Controller {
	card := cfg.Card
	if card == nil {
		size := cfg.CardSize
		if size <= 0 {
			size = defaultCardSize
		}
		if size%blockSize != 0 {
			size += blockSize - size%blockSize
		}
		card = make([]byte, size)
	}
	rate := cfg.ClockRate
	if rate == 0 {
		rate = defaultClockRate
	}

	c := &Controller{
		card:    card,
		rate:    rate,
		present: presentCard,
		irqCh:   make(chan struct{}, 1),
		closed:  make(chan struct{}),
	}

	c.wg.Add(1)
	go c.pump()
	return c
}

// Close stops interrupt delivery.
func (c *Controller) Close() {
	close(c.closed)
	c.wg.Wait()
}

// SetInterrupt installs the interrupt-line handler. The handler runs
// on the simulator's delivery goroutine and may call back into the
// host core.
func (c *Controller) SetInterrupt(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
}

// Card returns the backing storage.
func (c *Controller) Card() []byte {
	return c.card
}

// Rate implements hal.ClockSource.
func (c *Controller) Rate() uint32 {
	return c.rate
}

// OutstandingReads implements hal.BusMonitor. The simulated
// interconnect never has transactions in flight.
func (c *Controller) OutstandingReads() uint32 { return 0 }

// OutstandingWrites implements hal.BusMonitor.
func (c *Controller) OutstandingWrites() uint32 { return 0 }

// pump delivers interrupts outside the register-access path.
func (c *Controller) pump() {
	defer c.wg.Done()
	for {
		select {
		case <-c.closed:
			return
		case <-c.irqCh:
			c.mu.Lock()
			fn := c.handler
			c.mu.Unlock()
			if fn != nil {
				fn()
			}
		}
	}
}

// raise latches status bits and signals the interrupt line when they
// are enabled for signaling. Caller holds the lock.
func (c *Controller) raise(bits uint32) {
	c.regs[wordIntStatus] |= bits
	if c.regs[wordSignalEnable]&bits != 0 {
		select {
		case c.irqCh <- struct{}{}:
		default:
		}
	}
}

// Read32 implements hal.RegisterBus.
func (c *Controller) Read32(offset uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch offset >> 2 {
	case wordBuffer:
		return c.popWord()
	case wordPresentState:
		return c.present
	default:
		return c.regs[offset>>2]
	}
}

// Write32 implements hal.RegisterBus.
func (c *Controller) Write32(offset uint32, value uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch offset >> 2 {
	case wordCommand:
		c.regs[wordCommand] = value
		c.execute(value)
	case wordIntStatus:
		// Write-one-to-clear acknowledge.
		c.regs[wordIntStatus] &^= value
	case wordClockControl:
		// Internal clock stabilises instantly; reset bits
		// self-clear before they can be observed.
		if value&clockIntEn != 0 {
			value |= clockIntStable
		}
		value &^= 0xFF << 24
		c.regs[wordClockControl] = value
	case wordBuffer:
		c.pushWord(value)
	default:
		c.regs[offset>>2] = value
	}
}

// execute completes the command latched in the command register.
// Caller holds the lock.
func (c *Controller) execute(word uint32) {
	opcode := word >> 24 & 0x3F
	flags := word >> 16 & 0xFF
	mode := word & 0xFFFF
	arg := c.regs[wordArgument]

	// A short R1-style response: card ready, transfer state.
	c.regs[wordResponse] = 0x00000900

	events := uint32(intResponse)

	if flags&cmdFlagData != 0 {
		bs := int(c.regs[wordBlockSize] & 0xFFF)
		count := int(c.regs[wordBlockSize] >> 16 & 0xFFFF)
		total := bs * count
		start := int(arg) * bs

		if start < 0 || start+total > len(c.card) {
			pkg.LogWarn(pkg.ComponentSim, "transfer beyond card",
				"opcode", opcode,
				"start", start,
				"bytes", total)
			total = 0
		}

		if total > 0 {
			if mode&trnsRead != 0 {
				c.outBuf = c.card[start : start+total]
				c.outPos = 0
				c.present |= presentDataAvail
				events |= intDataAvail
			} else {
				c.inPos = start
				c.inExpect = total
				c.inCount = 0
				c.present |= presentSpaceAvail
				events |= intSpaceAvail
			}
		}
	}

	c.raise(events)
}

// popWord hands the host the next outbound data-port word. Caller
// holds the lock.
func (c *Controller) popWord() uint32 {
	var word uint32
	for i := 0; i < 4 && c.outPos < len(c.outBuf); i++ {
		word |= uint32(c.outBuf[c.outPos]) << (i * 8)
		c.outPos++
	}
	if c.outPos >= len(c.outBuf) && c.present&presentDataAvail != 0 {
		c.present &^= presentDataAvail
		c.raise(intDataEnd)
	}
	return word
}

// pushWord accepts one inbound data-port word from the host. Caller
// holds the lock.
func (c *Controller) pushWord(word uint32) {
	for i := 0; i < 4 && c.inCount < c.inExpect; i++ {
		c.card[c.inPos+c.inCount] = byte(word >> (i * 8))
		c.inCount++
	}
	if c.inCount >= c.inExpect && c.present&presentSpaceAvail != 0 {
		c.present &^= presentSpaceAvail
		c.raise(intDataEnd)
	}
}

// Compile-time interface checks.
var (
	_ hal.RegisterBus = (*Controller)(nil)
	_ hal.ClockSource = (*Controller)(nil)
	_ hal.BusMonitor  = (*Controller)(nil)
)
