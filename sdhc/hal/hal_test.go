package hal

import (
	"testing"
)

func TestDirection_String(t *testing.T) {
	tests := []struct {
		dir      Direction
		expected string
	}{
		{DirRead, "read"},
		{DirWrite, "write"},
		{Direction(255), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.dir.String(); got != tt.expected {
				t.Errorf("Direction(%d).String() = %q, want %q", tt.dir, got, tt.expected)
			}
		})
	}
}

func TestDMADescriptor_Fields(t *testing.T) {
	segs := [][]byte{make([]byte, 512), make([]byte, 512)}
	desc := DMADescriptor{
		Segments: segs,
		Dir:      DirWrite,
		Length:   1024,
	}

	if len(desc.Segments) != 2 {
		t.Errorf("len(Segments) = %d, want 2", len(desc.Segments))
	}
	if desc.Dir != DirWrite {
		t.Errorf("Dir = %v, want write", desc.Dir)
	}
	if desc.Length != 1024 {
		t.Errorf("Length = %d, want 1024", desc.Length)
	}
}
