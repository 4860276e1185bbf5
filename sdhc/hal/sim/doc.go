// Package sim provides a software-simulated SD host controller for
// tests, examples, and bring-up without hardware.
//
// [Controller] implements [hal.RegisterBus] over an in-memory register
// file backed by simulated card storage, and [hal.ClockSource] with a
// fixed rate. Commands complete immediately: a command register write
// latches a response and, for data commands, stages the payload behind
// the data port with the matching availability and completion events.
//
// Interrupts are delivered asynchronously on a dedicated goroutine, so
// a handler may call back into the host core without deadlocking:
//
//	ctl := sim.New(sim.Config{CardSize: 1 << 20})
//	h, _ := sdhc.New(sdhc.Config{Bus: ctl, Clock: ctl})
//	ctl.SetInterrupt(func() { h.IRQ() })
package sim
