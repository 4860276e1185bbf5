package sdhc

import (
	"time"

	"github.com/ardnew/softsdhc/pkg"
	"github.com/ardnew/softsdhc/sdhc/hal"
)

// Command opcodes the core treats specially. The core executes any
// opcode it is handed; these are the ones that affect sequencing.
const (
	OpStopTransmission   uint8 = 12
	OpBusTestRead        uint8 = 14
	OpReadSingleBlock    uint8 = 17
	OpReadMultipleBlock  uint8 = 18
	OpSetBlockCount      uint8 = 23
	OpWriteSingleBlock   uint8 = 24
	OpWriteMultipleBlock uint8 = 25
)

// isMultiBlock reports whether an opcode is an open-ended multi-block
// transfer command.
func isMultiBlock(opcode uint8) bool {
	return opcode == OpReadMultipleBlock || opcode == OpWriteMultipleBlock
}

// CmdFlags describes the response shape and integrity checks a command
// expects.
type CmdFlags uint16

// Response shape and check flags.
const (
	RspPresent CmdFlags = 1 << iota // A response is expected
	Rsp136                          // Response is 136 bits wide
	RspCRC                          // Check the response CRC
	RspBusy                         // Card signals busy after response
	RspIndex                        // Check the response command index
)

// Composite flags for the standard response types.
const (
	RspNone CmdFlags = 0
	RspR1            = RspPresent | RspCRC | RspIndex
	RspR1b           = RspPresent | RspCRC | RspIndex | RspBusy
	RspR2            = RspPresent | Rsp136 | RspCRC
	RspR3            = RspPresent
)

// Command is one command/response exchange with the card.
//
// Resp is valid only after the command completed with a nil Err: one
// word for short responses, four words for 136-bit responses (CRC
// stripped and realigned by the core).
type Command struct {
	Opcode uint8    // Command index
	Arg    uint32   // 32-bit command argument
	Flags  CmdFlags // Response shape and checks

	// BusyTimeout is the caller-declared worst-case busy duration for
	// commands that hold the bus after their response. Zero selects
	// the default supervision bound.
	BusyTimeout time.Duration

	// Data is the optional data phase carried by this command.
	Data *Data

	Resp [4]uint32 // Response payload
	Err  error     // Completion status
}

// Data is the payload phase of a command.
//
// BytesXfered is all-or-nothing: BlockSize times Blocks on success,
// zero on any error.
type Data struct {
	Dir       hal.Direction // Transfer direction
	BlockSize int           // Bytes per block, at most MaxBlockSize
	Blocks    int           // Block count, at most MaxBlocks
	Segments  [][]byte      // Ordered buffer list covering the payload

	// Stop is the optional stop command chained after the data phase.
	// It is issued only when no set-block-count command preceded the
	// transfer, or when the transfer failed.
	Stop *Command

	BytesXfered int   // Bytes moved; 0 on error
	Err         error // Completion status
}

// Request is one unit of work submitted to the host: an optional
// set-block-count pre-command, the primary command, and (through
// Data.Stop) an optional stop command.
type Request struct {
	// SBC is the optional set-block-count pre-command. When the host
	// lacks native auto-issue support it is sent and completed before
	// the primary command.
	SBC *Command

	// Cmd is the primary command.
	Cmd *Command

	// Done is invoked exactly once when the request completes, from
	// the host's completion context, never from interrupt dispatch.
	Done func(*Request)
}

// Request geometry limits, matching the controller's addressing width.
const (
	MaxBlockSize   = 512
	MaxBlocks      = 65535
	MaxRequestSize = 524288
	MaxSegments    = 128
)

// validate checks the caller's contract before anything is written to
// hardware.
func (r *Request) validate() error {
	if r.Cmd == nil {
		return pkg.ErrInvalidRequest
	}
	cmds := []*Command{r.SBC, r.Cmd}
	if r.Cmd.Data != nil {
		cmds = append(cmds, r.Cmd.Data.Stop)
	}
	for _, cmd := range cmds {
		if cmd == nil {
			continue
		}
		if cmd.Flags&Rsp136 != 0 && cmd.Flags&RspBusy != 0 {
			return pkg.ErrUnsupportedResponse
		}
	}
	if data := r.Cmd.Data; data != nil {
		if data.BlockSize <= 0 || data.BlockSize > MaxBlockSize {
			return pkg.ErrInvalidRequest
		}
		if data.Blocks <= 0 || data.Blocks > MaxBlocks {
			return pkg.ErrInvalidRequest
		}
		if data.BlockSize*data.Blocks > MaxRequestSize {
			return pkg.ErrInvalidRequest
		}
		if len(data.Segments) > MaxSegments {
			return pkg.ErrInvalidRequest
		}
		total := 0
		for _, seg := range data.Segments {
			total += len(seg)
		}
		if total != data.BlockSize*data.Blocks {
			return pkg.ErrInvalidRequest
		}
	}
	return nil
}

// failed reports whether any command or data phase in the request
// carries an error.
func (r *Request) failed() bool {
	if r.Cmd.Err != nil {
		return true
	}
	if r.SBC != nil && r.SBC.Err != nil {
		return true
	}
	if data := r.Cmd.Data; data != nil {
		if data.Err != nil {
			return true
		}
		if data.Stop != nil && data.Stop.Err != nil {
			return true
		}
	}
	return false
}
