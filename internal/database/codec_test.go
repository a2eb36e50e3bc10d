package database

import (
	"errors"
	"math"
	"testing"
)

func TestEncodeDescriptor_Length(t *testing.T) {
	d := make(Descriptor, 128)
	if got := len(EncodeDescriptor(d)); got != 128*8 {
		t.Errorf("expected %d bytes, got %d", 128*8, got)
	}
}

func TestDescriptorRoundTrip_BitExact(t *testing.T) {
	d := Descriptor{
		0, -0.0, 1, -1, 0.1, 1.0 / 3.0, math.Pi, -math.E,
		math.SmallestNonzeroFloat64, math.MaxFloat64, -0.08873641490936279,
	}

	got, err := DecodeDescriptor(EncodeDescriptor(d))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(d) {
		t.Fatalf("expected %d values, got %d", len(d), len(got))
	}
	for i := range d {
		if math.Float64bits(got[i]) != math.Float64bits(d[i]) {
			t.Errorf("value %d: expected bits %x, got %x", i, math.Float64bits(d[i]), math.Float64bits(got[i]))
		}
	}
}

func TestEncodeDescriptor_LittleEndian(t *testing.T) {
	// 1.0 is 0x3FF0000000000000.
	b := EncodeDescriptor(Descriptor{1.0})
	expected := []byte{0, 0, 0, 0, 0, 0, 0xF0, 0x3F}
	for i := range expected {
		if b[i] != expected[i] {
			t.Fatalf("expected %x, got %x", expected, b)
		}
	}
}

func TestDecodeDescriptor_Malformed(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"not a multiple of 8", make([]byte, 13)},
		{"json text", []byte("[0.1, 0.2, 0.3]")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeDescriptor(tc.blob)
			if !errors.Is(err, ErrMalformedDescriptor) {
				t.Errorf("expected ErrMalformedDescriptor, got %v", err)
			}
		})
	}
}

func TestStorageError(t *testing.T) {
	base := errors.New("connection refused")
	err := NewStorageError("save", base)

	if !IsStorageError(err) {
		t.Fatal("expected storage error")
	}
	if !errors.Is(err, base) {
		t.Error("expected storage error to unwrap to cause")
	}
	if err.Error() != "storage save: connection refused" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if NewStorageError("save", nil) != nil {
		t.Error("expected nil for nil cause")
	}
	if again := NewStorageError("load", err); again != err {
		t.Error("expected existing storage error to be returned unchanged")
	}
}
