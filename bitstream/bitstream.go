// Package bitstream provides a bit-granularity cursor over an in-memory byte
// buffer, following the LSB pattern, where least-significant bits are read
// first and a field may straddle any number of byte boundaries.
package bitstream

import (
	"unsafe"
)

type Bit bool

const (
	Zero Bit = false
	One  Bit = true
)

// Unsigned is the set of result types accepted by ReadUnsigned.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint
}

// Signed is the set of result types accepted by ReadSigned and SignExtend.
type Signed interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int
}

// widthOf returns the bit width of T.
func widthOf[T Unsigned | Signed]() uint {
	var zero T
	return uint(unsafe.Sizeof(zero)) * 8
}

func checkWidth(bits, width uint) {
	if bits > width {
		panic("bitstream: field width exceeds the width of the result type")
	}
}
