package bitstream

// SignExtend reinterprets the low bits of value as a two's complement integer
// of the given width and widens it to T. Bits of value above the field are
// ignored. A zero width yields 0.
//
// Examples of 3-bit values on the left and results on the right:
//
//	0b011 -> 3
//	0b000 -> 0
//	0b111 -> -1
//	0b100 -> -4
func SignExtend[T Signed](value uint64, bits uint) T {
	checkWidth(bits, widthOf[T]())
	if bits == 0 {
		return 0
	}
	if bits < 64 {
		value &= 1<<bits - 1
	}

	signBit := uint64(1) << (bits - 1)
	if value&signBit != 0 {
		// Fill everything above the field with ones.
		value |= ^(signBit - 1)
	}

	return T(int64(value))
}
