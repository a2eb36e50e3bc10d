package database

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// descriptorValueSize is the width of one encoded float64 component.
const descriptorValueSize = 8

// ErrMalformedDescriptor is returned when a stored blob cannot be decoded.
var ErrMalformedDescriptor = errors.New("malformed descriptor")

// EncodeDescriptor serializes a descriptor as consecutive little-endian
// IEEE-754 float64 values. The encoding is lossless.
func EncodeDescriptor(d Descriptor) []byte {
	buf := make([]byte, len(d)*descriptorValueSize)
	for i, v := range d {
		binary.LittleEndian.PutUint64(buf[i*descriptorValueSize:], math.Float64bits(v))
	}
	return buf
}

// DecodeDescriptor is the inverse of EncodeDescriptor.
func DecodeDescriptor(b []byte) (Descriptor, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty blob", ErrMalformedDescriptor)
	}
	if len(b)%descriptorValueSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrMalformedDescriptor, len(b), descriptorValueSize)
	}

	d := make(Descriptor, len(b)/descriptorValueSize)
	for i := range d {
		d[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*descriptorValueSize:]))
	}
	return d, nil
}
