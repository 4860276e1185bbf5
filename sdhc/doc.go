// Package sdhc implements a pure-Go SD/MMC host controller
// transaction core.
//
// It is platform-agnostic and interacts with hardware via the
// interfaces defined in the github.com/ardnew/softsdhc/sdhc/hal
// package: a [hal.RegisterBus] for the controller register block, an
// optional [hal.DMAEngine] for bulk transfers, and a [hal.ClockSource]
// for divisor derivation. Platform vendors supply concrete
// implementations without changing the core.
//
// # Architecture
//
// One [Host] drives one physical controller. A [Request] is one unit
// of work: an optional set-block-count pre-command, a primary
// [Command], and, through [Data.Stop], an optional stop command. The
// core sequences the chain, moves the payload, classifies hardware
// events, supervises deadlines, and completes every accepted request
// exactly once.
//
// # Execution Contexts
//
// Four concurrent actors touch a Host:
//
//   - The submission path (the caller of Submit and Configure)
//   - Interrupt dispatch (the platform calling Host.IRQ)
//   - The timeout supervisor (a timer context)
//   - The bulk engine's completion callback (read direction only)
//
// All four serialize on one internal lock. Completion dispatch and
// card-event delivery run on a dedicated worker goroutine, never from
// interrupt dispatch: they do slower work (engine unmapping, reset
// sequencing, caller callbacks) unsuitable for the fast path. Every
// polling loop in the core carries an explicit iteration budget and
// fails closed.
//
// # Transfer Strategies
//
// A data phase moves either through the direct path, where the core
// exchanges every 32-bit word with the data port register, or through
// the bulk path, where the core hands a descriptor to the DMA engine
// and waits for its completion signal. The choice is made per phase:
// bulk whenever an engine is present and the block count exceeds the
// configured threshold.
//
// # Example
//
//	h, err := sdhc.New(sdhc.Config{Bus: bus, Clock: clk, DMA: eng})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	h.Start(ctx)
//
//	buf := make([]byte, 512)
//	done := make(chan *sdhc.Request, 1)
//	h.Submit(&sdhc.Request{
//	    Cmd: &sdhc.Command{
//	        Opcode: sdhc.OpReadSingleBlock,
//	        Arg:    lba,
//	        Flags:  sdhc.RspR1,
//	        Data: &sdhc.Data{
//	            Dir:       hal.DirRead,
//	            BlockSize: 512,
//	            Blocks:    1,
//	            Segments:  [][]byte{buf},
//	        },
//	    },
//	    Done: func(r *sdhc.Request) { done <- r },
//	})
//
// A software-simulated controller for tests and bring-up is available
// in [github.com/ardnew/softsdhc/sdhc/hal/sim].
package sdhc
