// Package hal defines the Hardware Abstraction Layer for the softsdhc
// controller core.
//
// The controller core never touches hardware directly. All register
// traffic goes through [RegisterBus], payload bulk transfers are handed
// to an optional [DMAEngine], and the card clock is derived from a
// [ClockSource]. Platform vendors implement these interfaces to bring
// the core up on their silicon; tests implement them in software.
//
// # Register Access
//
// The controller register block is natively addressable only in 32-bit
// words. [RegisterBus] therefore exposes word-granular access; the core
// composes 8- and 16-bit accesses from read-modify-write cycles itself.
//
// # Bulk Transfers
//
// A [DMAEngine] moves a whole data phase without per-word host
// involvement. The engine maps the caller's buffer list, accepts a
// single descriptor covering the region, and reports completion through
// a callback. Engines must deliver that callback from their own
// execution context, never synchronously from Submit: the core may hold
// its own lock across Submit.
package hal
