package cfhd

import (
	"bytes"
	"errors"
	"testing"
)

func TestBitReader_ReadBit(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected []uint32
		wantErr  bool
	}{
		{
			name:     "single byte all zeros",
			data:     []byte{0x00},
			expected: []uint32{0, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			name:     "alternating bits",
			data:     []byte{0xAA}, // 10101010
			expected: []uint32{1, 0, 1, 0, 1, 0, 1, 0},
		},
		{
			name:     "MSB first",
			data:     []byte{0x80},
			expected: []uint32{1, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			name:     "multiple bytes",
			data:     []byte{0xF0, 0x0F},
			expected: []uint32{1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1},
		},
		{
			name:    "empty data",
			data:    []byte{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newBitReader(tt.data)
			for i, want := range tt.expected {
				got, err := r.ReadBit()
				if err != nil {
					t.Fatalf("bit %d: unexpected error: %v", i, err)
				}
				if got != want {
					t.Errorf("bit %d: got %d, want %d", i, got, want)
				}
			}
			_, err := r.ReadBit()
			if tt.wantErr || len(tt.expected) > 0 {
				if !errors.Is(err, ErrBitstreamOverread) {
					t.Errorf("read past end: got %v, want ErrBitstreamOverread", err)
				}
			}
		})
	}
}

// readBits reads an n-bit MSB-first code one bit at a time, the way the
// band decoder walks its code tree.
func readBits(t *testing.T, r *bitReader, n int) uint32 {
	t.Helper()
	var v uint32
	for range n {
		bit, err := r.ReadBit()
		if err != nil {
			t.Fatalf("ReadBit: %v", err)
		}
		v = v<<1 | bit
	}
	return v
}

func TestBitReader_Align(t *testing.T) {
	data := []byte{0xFF, 1, 2, 3, 4, 5, 6, 7}
	r := newBitReader(data)
	if got := readBits(t, r, 3); got != 0b111 {
		t.Errorf("first 3 bits = %#b, want 0b111", got)
	}
	if err := r.Align(4); err != nil {
		t.Fatalf("Align: %v", err)
	}
	if r.Remaining() != 4 {
		t.Errorf("Remaining after Align(4) = %d, want 4", r.Remaining())
	}
	if err := r.Align(4); err != nil || r.Remaining() != 4 {
		t.Errorf("Align on boundary left %d bytes (err %v)", r.Remaining(), err)
	}
	v, err := r.ReadUint16()
	if err != nil || v != 0x0405 {
		t.Errorf("ReadUint16 = %#x, %v; want 0x0405", v, err)
	}

	short := newBitReader([]byte{1, 2, 3})
	if err := short.Skip(1); err != nil {
		t.Fatal(err)
	}
	if err := short.Align(4); !errors.Is(err, ErrBitstreamOverread) {
		t.Errorf("Align past end: got %v, want ErrBitstreamOverread", err)
	}
}

func TestBitReader_Skip(t *testing.T) {
	r := newBitReader([]byte{0, 1, 2, 3})
	if err := r.Skip(3); err != nil {
		t.Fatal(err)
	}
	if r.Remaining() != 1 {
		t.Errorf("Remaining = %d, want 1", r.Remaining())
	}
	if err := r.Skip(2); !errors.Is(err, ErrBitstreamOverread) {
		t.Errorf("Skip past end: got %v, want ErrBitstreamOverread", err)
	}
}

func TestBitWriterRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		codes []codeword
	}{
		{"single bit", []codeword{{1, 1}}},
		{"byte aligned", []codeword{{0xA5, 8}, {0x3C, 8}}},
		{"unaligned", []codeword{{0b101, 3}, {0x1FF, 9}, {0, 1}, {0x3114ba3, 26}}},
		{"long codes", []codeword{{0x0188A5D0, 25}, {0xFFFFFFFF, 32}, {0, 7}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newBitWriter()
			for _, c := range tt.codes {
				w.WriteBits(c.bits, int(c.size))
			}
			data := w.Flush()

			r := newBitReader(data)
			for i, c := range tt.codes {
				if got := readBits(t, r, int(c.size)); got != c.bits {
					t.Errorf("code %d: got %#x, want %#x", i, got, c.bits)
				}
			}
		})
	}
}

func TestBitWriterFlushPadsWithZeros(t *testing.T) {
	w := newBitWriter()
	w.WriteBits(0b111, 3)
	if w.Len() != 1 {
		t.Errorf("Len with partial byte = %d, want 1", w.Len())
	}
	if got := w.Flush(); !bytes.Equal(got, []byte{0xE0}) {
		t.Errorf("Flush = %x, want e0", got)
	}
	w.Reset()
	if w.Len() != 0 {
		t.Errorf("Len after Reset = %d, want 0", w.Len())
	}
}
