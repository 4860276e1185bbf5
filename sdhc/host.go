package sdhc

import (
	"context"
	"sync"
	"time"

	"github.com/ardnew/softsdhc/pkg"
	"github.com/ardnew/softsdhc/sdhc/hal"
)

// Config carries the collaborators and capability flags for a Host.
type Config struct {
	// Bus is the controller register block. Required. If it also
	// implements [hal.BusMonitor], the DebugMask diagnostics become
	// available.
	Bus hal.RegisterBus

	// Clock is the controller's source clock. Required; read once at
	// Start.
	Clock hal.ClockSource

	// DMA is the optional bulk-transfer engine. Nil confines all data
	// phases to the direct (PIO) path.
	DMA hal.DMAEngine

	// DMAThreshold is the inclusive block-count limit under which the
	// direct path is used even when a DMA engine is present.
	DMAThreshold int

	// AutoCMD12 and AutoCMD23 declare the controller's native support
	// for automatically issued stop and set-block-count commands.
	AutoCMD12 bool
	AutoCMD23 bool

	// OnCardEvent is invoked from the host's deferred context when the
	// card raises an asynchronous event. Optional.
	OnCardEvent func()

	// DebugMask enables the diagnostic interconnect busy-waits and
	// extra access delays (see the debug* bit constants). Zero
	// disables all diagnostics.
	DebugMask uint32

	// Delay replaces the settle-delay sleep, for tests. Nil selects
	// time.Sleep.
	Delay func(time.Duration)
}

// Host drives one physical controller instance. All exported methods
// are safe for concurrent use; hardware events are delivered by the
// platform calling [Host.IRQ].
type Host struct {
	mu sync.Mutex

	bus      hal.RegisterBus
	mon      hal.BusMonitor
	dma      hal.DMAEngine
	clockSrc hal.ClockSource

	delay func(time.Duration)
	debug uint32

	running bool
	dead    bool

	clock       int    // current card clock, Hz
	actualClock uint32 // achieved card clock, Hz
	maxClk      uint32 // source clock, Hz
	timeoutClk  uint32 // data timeout clock, kHz
	pwr         uint8  // current power register value

	ier    uint32 // cached interrupt-enable mask
	shadow uint32 // transfer-mode/command shadow word

	sdioIRQ     bool // card interrupt delivery requested
	cardPending bool // card interrupt awaiting deferred dispatch

	autoCMD12 bool
	autoCMD23 bool
	haveDMA   bool
	useDMA    bool // bulk strategy chosen for the active data phase

	onCardEvent  func()
	dmaThreshold int

	maxDelay int // worst observed hardware stall, ms

	req       *Request
	cmd       *Command
	data      *Data
	dataEarly bool // data phase finished before its command response

	blocks int // remaining direct-path blocks
	iter   segIter

	timer *time.Timer

	finishCh chan struct{}
	cardCh   chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
}

// New creates a Host bound to the given collaborators. The controller
// is not touched until Start.
func New(cfg Config) (*Host, error) {
	if cfg.Bus == nil || cfg.Clock == nil {
		return nil, pkg.ErrInvalidRequest
	}
	h := &Host{
		bus:          cfg.Bus,
		dma:          cfg.DMA,
		clockSrc:     cfg.Clock,
		delay:        cfg.Delay,
		debug:        cfg.DebugMask,
		autoCMD12:    cfg.AutoCMD12,
		autoCMD23:    cfg.AutoCMD23,
		onCardEvent:  cfg.OnCardEvent,
		dmaThreshold: cfg.DMAThreshold,
		finishCh:     make(chan struct{}, 1),
		cardCh:       make(chan struct{}, 1),
	}
	if h.delay == nil {
		h.delay = time.Sleep
	}
	h.mon, _ = cfg.Bus.(hal.BusMonitor)
	h.haveDMA = cfg.DMA != nil && cfg.DebugMask&DebugForcePIO == 0
	if !h.haveDMA && cfg.DMA != nil {
		pkg.LogInfo(pkg.ComponentHost, "forcing direct transfer mode")
	}
	return h, nil
}

// Start resets the controller, programs the base interrupt mask, and
// begins accepting requests. The context bounds Start itself; it does
// not govern the host's lifetime.
func (h *Host) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return pkg.ErrAlreadyRunning
	}

	h.maxClk = h.clockSrc.Rate()
	if h.maxClk == 0 {
		return pkg.ErrInvalidRequest
	}
	h.timeoutClk = h.maxClk / 1000

	h.reset(ResetAll)

	h.ier = IntBusPower | IntDataEndBit | IntDataCRC | IntDataTimeout |
		IntIndex | IntEndBit | IntCRC | IntTimeout | IntDataEnd |
		IntResponse
	h.writel(h.ier, RegIntEnable)
	h.writel(h.ier, RegSignalEnable)

	h.done = make(chan struct{})
	h.wg.Add(1)
	go h.worker()

	h.running = true
	pkg.LogInfo(pkg.ComponentHost, "host started",
		"maxClock", h.maxClk,
		"dma", h.haveDMA)
	return nil
}

// Stop quiesces the controller. Any in-flight request is completed
// with a no-medium error before Stop returns.
func (h *Host) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false

	if h.req != nil && h.req.Cmd.Err == nil {
		h.req.Cmd.Err = pkg.ErrNoMedium
	}
	hadReq := h.req != nil
	h.mu.Unlock()

	if hadReq {
		h.finishRequest()
	}
	h.stopTimer()

	close(h.done)
	h.wg.Wait()

	h.mu.Lock()
	if !h.dead {
		h.reset(ResetAll)
	}
	h.mu.Unlock()

	pkg.LogInfo(pkg.ComponentHost, "host stopped")
	return nil
}

// IsRunning reports whether the host is accepting requests.
func (h *Host) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// Submit hands one request to the host. It returns an error without
// touching hardware if the request is malformed, a request is already
// active, or the host is stopped or dead; otherwise the request will
// be completed exactly once through Request.Done.
func (h *Host) Submit(req *Request) error {
	if err := req.validate(); err != nil {
		return err
	}

	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return pkg.ErrNotRunning
	}
	if h.dead {
		h.mu.Unlock()
		return pkg.ErrNoMedium
	}
	if h.req != nil {
		h.mu.Unlock()
		return pkg.ErrBusy
	}

	h.req = req

	deferred := req.SBC != nil && !h.autoCMD23
	if deferred {
		h.sendCommand(req.SBC)
	} else {
		h.sendCommand(req.Cmd)
	}
	if !deferred && h.data != nil && h.useDMA {
		// Bulk transfer starts now; the direct path starts on the
		// first availability interrupt instead.
		h.transferDMA()
	}
	h.mu.Unlock()
	return nil
}

// Remove handles device removal. It probes the controller; an all-ones
// status read marks the host dead and force-fails any active request
// with a no-medium error. It returns whether the controller was found
// dead.
func (h *Host) Remove() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.readl(RegIntStatus) != 0xFFFFFFFF {
		return false
	}

	h.dead = true
	if h.req != nil {
		pkg.LogError(pkg.ComponentHost, "controller removed during transfer")
		h.req.Cmd.Err = pkg.ErrNoMedium
		h.scheduleFinish()
	}
	return true
}

// EnableCardIRQ enables or disables delivery of card-generated
// asynchronous events.
func (h *Host) EnableCardIRQ(enable bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sdioIRQ = enable
	h.setCardInt(enable)
}

// setCardInt updates the card-interrupt bit in the enable and signal
// masks. Caller holds the lock.
func (h *Host) setCardInt(enable bool) {
	if h.dead {
		return
	}
	if enable {
		h.ier |= IntCardInt
	} else {
		h.ier &^= IntCardInt
	}
	h.writel(h.ier, RegIntEnable)
	h.writel(h.ier, RegSignalEnable)
}

// ActualClock returns the card clock achieved by the last divisor
// search, in Hz.
func (h *Host) ActualClock() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.actualClock
}

// MaxClock returns the source clock rate read at Start, in Hz.
func (h *Host) MaxClock() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxClk
}

// MaxBusyTimeout returns the longest busy wait the data timeout
// counter can supervise.
func (h *Host) MaxBusyTimeout() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timeoutClk == 0 {
		return 0
	}
	return time.Duration((1<<27)/h.timeoutClk) * time.Millisecond
}

// MaxDelay returns the worst observed hardware stall in milliseconds.
func (h *Host) MaxDelay() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxDelay
}

// worker runs the deferred execution context: request completion and
// card-event dispatch. Both are kept out of interrupt dispatch because
// they do slower work (resets, unmapping, caller callbacks).
func (h *Host) worker() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return
		case <-h.finishCh:
			h.finishRequest()
		case <-h.cardCh:
			h.cardEvent()
		}
	}
}

// scheduleFinish queues completion dispatch. Caller holds the lock.
// Duplicate scheduling is harmless: finishRequest tolerates running
// with no active request.
func (h *Host) scheduleFinish() {
	select {
	case h.finishCh <- struct{}{}:
	default:
	}
}

// finishRequest finalizes the active request and hands it back to the
// caller exactly once.
func (h *Host) finishRequest() {
	h.mu.Lock()
	if h.req == nil {
		h.mu.Unlock()
		return
	}

	h.stopTimer()
	req := h.req

	// The controller's internal state machines are not guaranteed
	// consistent after a fault; flush them before the next request.
	if !h.dead && req.failed() {
		h.reset(ResetCmd)
		h.reset(ResetData)
	}

	h.req = nil
	h.cmd = nil
	h.data = nil
	h.mu.Unlock()

	if req.Done != nil {
		req.Done(req)
	}
}

// cardEvent dispatches a deferred card interrupt to the upper layer
// and re-arms delivery if it is still wanted.
func (h *Host) cardEvent() {
	h.mu.Lock()
	pending := h.cardPending
	h.cardPending = false
	cb := h.onCardEvent
	h.mu.Unlock()

	if !pending {
		return
	}
	if cb != nil {
		cb()
	}

	h.mu.Lock()
	if h.sdioIRQ {
		h.setCardInt(true)
	}
	h.mu.Unlock()
}
