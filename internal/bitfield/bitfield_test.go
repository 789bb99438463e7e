package bitfield

import (
	"fmt"
	"testing"
)

// tagControlWord mirrors the compact header vmem.BoundaryTag packs for its
// debug snapshots: a kind discriminant, a bucket index and a base address,
// with narrower widths than vmem's own trace word.
type tagControlWord struct {
	Kind   uint8  `bitfield:",2"`
	Bucket uint8  `bitfield:",6"`
	Base   uint32 `bitfield:",24"`
}

func TestPack(t *testing.T) {
	tests := []struct {
		name     string
		word     tagControlWord
		expected uint64
		wantErr  bool
	}{
		{
			name:     "zero value",
			word:     tagControlWord{},
			expected: 0,
		},
		{
			name:     "kind only",
			word:     tagControlWord{Kind: 3},
			expected: 0x3,
		},
		{
			name:     "bucket shifted by kind width",
			word:     tagControlWord{Kind: 1, Bucket: 5},
			expected: 0x1 | (0x5 << 2),
		},
		{
			name:     "base shifted past kind and bucket",
			word:     tagControlWord{Kind: 2, Bucket: 9, Base: 0xABCDE},
			expected: 0x2 | (0x9 << 2) | (0xABCDE << 8),
		},
		{
			name:    "field overflows its bit width",
			word:    tagControlWord{Kind: 4},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed, err := Pack(&tt.word, &Config{NumBits: 32})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Pack() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if packed != tt.expected {
				t.Errorf("Pack() = 0x%x, want 0x%x", packed, tt.expected)
			}
		})
	}
}

func TestUnpackRoundTrip(t *testing.T) {
	cases := []tagControlWord{
		{},
		{Kind: 1},
		{Kind: 2, Bucket: 31},
		{Kind: 3, Bucket: 63, Base: 0xFFFFFF},
	}

	for i, original := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			packed, err := Pack(&original, &Config{NumBits: 32})
			if err != nil {
				t.Fatalf("Pack() error = %v", err)
			}

			var got tagControlWord
			if err := Unpack(&got, packed, &Config{NumBits: 32}); err != nil {
				t.Fatalf("Unpack() error = %v", err)
			}

			if got != original {
				t.Errorf("round trip = %+v, want %+v", got, original)
			}
		})
	}
}

func TestPackRejectsNonStruct(t *testing.T) {
	if _, err := Pack(42, nil); err == nil {
		t.Fatal("expected error packing a non-struct")
	}
}

func TestUnpackRejectsNilPointer(t *testing.T) {
	var p *tagControlWord
	if err := Unpack(p, 0, nil); err == nil {
		t.Fatal("expected error unpacking into a nil pointer")
	}
}
