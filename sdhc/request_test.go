package sdhc

import (
	"errors"
	"testing"

	"github.com/ardnew/softsdhc/pkg"
	"github.com/ardnew/softsdhc/sdhc/hal"
)

func validRead() *Request {
	return &Request{
		Cmd: &Command{
			Opcode: OpReadSingleBlock,
			Flags:  RspR1,
			Data: &Data{
				Dir:       hal.DirRead,
				BlockSize: 512,
				Blocks:    1,
				Segments:  [][]byte{make([]byte, 512)},
			},
		},
	}
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"valid", func(r *Request) {}, nil},
		{"nil command", func(r *Request) { r.Cmd = nil }, pkg.ErrInvalidRequest},
		{
			"long response with busy",
			func(r *Request) { r.Cmd.Flags = RspPresent | Rsp136 | RspBusy },
			pkg.ErrUnsupportedResponse,
		},
		{
			"long busy stop command",
			func(r *Request) {
				r.Cmd.Data.Stop = &Command{Opcode: OpStopTransmission, Flags: RspPresent | Rsp136 | RspBusy}
			},
			pkg.ErrUnsupportedResponse,
		},
		{
			"long busy set-block-count",
			func(r *Request) {
				r.SBC = &Command{Opcode: OpSetBlockCount, Flags: RspPresent | Rsp136 | RspBusy}
			},
			pkg.ErrUnsupportedResponse,
		},
		{
			"zero block size",
			func(r *Request) { r.Cmd.Data.BlockSize = 0 },
			pkg.ErrInvalidRequest,
		},
		{
			"oversized block",
			func(r *Request) { r.Cmd.Data.BlockSize = MaxBlockSize + 1 },
			pkg.ErrInvalidRequest,
		},
		{
			"zero blocks",
			func(r *Request) { r.Cmd.Data.Blocks = 0 },
			pkg.ErrInvalidRequest,
		},
		{
			"oversized request",
			func(r *Request) {
				r.Cmd.Data.Blocks = MaxRequestSize/512 + 1
				r.Cmd.Data.Segments = nil
			},
			pkg.ErrInvalidRequest,
		},
		{
			"too many segments",
			func(r *Request) {
				segs := make([][]byte, MaxSegments+1)
				for i := range segs {
					segs[i] = make([]byte, 4)
				}
				r.Cmd.Data.Segments = segs
			},
			pkg.ErrInvalidRequest,
		},
		{
			"short buffer list",
			func(r *Request) { r.Cmd.Data.Segments = [][]byte{make([]byte, 511)} },
			pkg.ErrInvalidRequest,
		},
		{
			"long buffer list",
			func(r *Request) { r.Cmd.Data.Segments = [][]byte{make([]byte, 513)} },
			pkg.ErrInvalidRequest,
		},
		{
			"split buffer list",
			func(r *Request) {
				r.Cmd.Data.Segments = [][]byte{make([]byte, 200), make([]byte, 312)}
			},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRead()
			tt.mutate(req)
			if err := req.validate(); !errors.Is(err, tt.want) {
				t.Errorf("validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRequest_Failed(t *testing.T) {
	req := validRead()
	req.SBC = &Command{Opcode: OpSetBlockCount, Flags: RspR1}
	req.Cmd.Data.Stop = &Command{Opcode: OpStopTransmission, Flags: RspR1b}

	if req.failed() {
		t.Error("failed() = true with no errors")
	}

	for name, set := range map[string]*error{
		"command": &req.Cmd.Err,
		"sbc":     &req.SBC.Err,
		"data":    &req.Cmd.Data.Err,
		"stop":    &req.Cmd.Data.Stop.Err,
	} {
		*set = pkg.ErrTimeout
		if !req.failed() {
			t.Errorf("failed() = false with %s error", name)
		}
		*set = nil
	}
}

func TestIsMultiBlock(t *testing.T) {
	if !isMultiBlock(OpReadMultipleBlock) || !isMultiBlock(OpWriteMultipleBlock) {
		t.Error("multi-block opcodes not recognized")
	}
	if isMultiBlock(OpReadSingleBlock) || isMultiBlock(OpStopTransmission) {
		t.Error("single-block opcode classified as multi-block")
	}
}
