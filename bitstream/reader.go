package bitstream

import (
	"encoding/binary"
	"math/bits"

	"go.uber.org/zap"

	"github.com/spacemeshos/bitcursor/shared"
)

// BitReader reads bits from a byte slice it does not own. The slice must
// outlive the reader and must not be modified while it is being read.
//
// Accesses past the end of the buffer never panic. The first one is recorded
// and makes the reader permanently not Good; the failing read returns zero and
// leaves the cursor where it was. Callers are expected to check Good or Err
// once after a batch of reads.
//
// A BitReader is not safe for concurrent use.
type BitReader struct {
	buf    []byte
	pos    uint64
	err    error
	logger *zap.Logger
}

// NewReader returns a new instance of BitReader positioned at bit 0.
func NewReader(buf []byte, opts ...OptionFunc) *BitReader {
	options := applyOpts(opts...)
	return &BitReader{
		buf:    buf,
		logger: options.logger,
	}
}

func (br *BitReader) SizeInBytes() int {
	return len(br.buf)
}

func (br *BitReader) SizeInBits() uint64 {
	return uint64(len(br.buf)) * 8
}

// Tell returns the absolute bit position of the cursor.
func (br *BitReader) Tell() uint64 {
	return br.pos
}

// Remaining returns the number of bits between the cursor and the end.
func (br *BitReader) Remaining() uint64 {
	return br.SizeInBits() - br.pos
}

// Good reports whether no access has gone past the end of the buffer.
func (br *BitReader) Good() bool {
	return br.err == nil
}

// Err returns the first out-of-range access as a *shared.OutOfRangeError,
// or nil if the reader is still good.
func (br *BitReader) Err() error {
	return br.err
}

func (br *BitReader) fail(op string, requested uint64) {
	if br.err != nil {
		return
	}
	br.err = &shared.OutOfRangeError{
		Op:        op,
		Position:  br.pos,
		Requested: requested,
		Size:      br.SizeInBits(),
	}
	br.logger.Debug("bit stream access out of range",
		zap.String("op", op),
		zap.Uint64("position", br.pos),
		zap.Uint64("requested", requested),
		zap.Uint64("size", br.SizeInBits()),
	)
}

// SetPosition moves the cursor to the given absolute bit. A position past the
// end marks the reader as not good and leaves the cursor at the end.
func (br *BitReader) SetPosition(bit uint64) {
	if bit > br.SizeInBits() {
		br.fail("seek", bit)
		br.pos = br.SizeInBits()
		return
	}
	br.pos = bit
}

// Skip advances the cursor by n bits, with the same range rule as SetPosition.
func (br *BitReader) Skip(n uint64) {
	if n > br.Remaining() {
		br.fail("skip", n)
		br.pos = br.SizeInBits()
		return
	}
	br.pos += n
}

// AlignToByte advances the cursor to the next byte boundary, if it is not on
// one already.
func (br *BitReader) AlignToByte() {
	// The size is a whole number of bytes, so this never passes the end.
	br.pos = (br.pos + 7) &^ 7
}

// ReadBit reads the next single bit.
func (br *BitReader) ReadBit() Bit {
	if br.pos >= br.SizeInBits() {
		br.fail("read bit", 1)
		return Zero
	}
	bit := br.buf[br.pos>>3] >> (br.pos & 7) & 1
	br.pos++
	return bit == 1
}

// Read0Bits decodes a unary coded integer: it counts the zero bits from the
// cursor up to the next one bit, and consumes the one bit as well.
//
// Examples of bits in stream order on the left and results on the right:
//
//	1    => 0
//	01   => 1
//	0001 => 3
//
// If the buffer ends before a one bit, the reader is marked as not good, the
// cursor is left unchanged and 0 is returned.
func (br *BitReader) Read0Bits() uint64 {
	var count uint64
	pos := br.pos
	size := br.SizeInBits()
	for pos < size {
		pending := br.buf[pos>>3] >> (pos & 7)
		if pending != 0 {
			zeros := uint64(bits.TrailingZeros8(pending))
			br.pos = pos + zeros + 1
			return count + zeros
		}
		rest := 8 - pos&7
		count += rest
		pos += rest
	}

	br.fail("read unary", count+1)
	return 0
}

// ReadBits reads the next n bits, 0 <= n <= 64, first bit least significant.
func (br *BitReader) ReadBits(n uint) uint64 {
	checkWidth(n, 64)
	return br.readBits(n)
}

// ReadSignedBits reads the next n bits as a two's complement integer.
func (br *BitReader) ReadSignedBits(n uint) int64 {
	return ReadSigned[int64](br, n)
}

// ReadUnsigned reads the next n bits as T. n must not exceed the width of T.
// Reading zero bits returns 0 without touching the buffer.
func ReadUnsigned[T Unsigned](br *BitReader, n uint) T {
	checkWidth(n, widthOf[T]())
	return T(br.readBits(n))
}

// ReadSigned reads the next n bits as a two's complement integer widened to
// T. Fields of width 0 and 1 always decode to 0; a 1-bit field still consumes
// its bit.
func ReadSigned[T Signed](br *BitReader, n uint) T {
	checkWidth(n, widthOf[T]())
	val := br.readBits(n)
	if n <= 1 {
		return 0
	}
	return SignExtend[T](val, n)
}

func (br *BitReader) readBits(n uint) uint64 {
	if n == 0 {
		return 0
	}
	if uint64(n) > br.Remaining() {
		br.fail("read", uint64(n))
		return 0
	}

	pos := br.pos

	// Byte-aligned reads of whole little-endian words.
	if pos&7 == 0 {
		off := pos >> 3
		switch n {
		case 8:
			br.pos += 8
			return uint64(br.buf[off])
		case 16:
			br.pos += 16
			return uint64(binary.LittleEndian.Uint16(br.buf[off:]))
		case 32:
			br.pos += 32
			return uint64(binary.LittleEndian.Uint32(br.buf[off:]))
		case 64:
			br.pos += 64
			return binary.LittleEndian.Uint64(br.buf[off:])
		}
	}

	var val uint64
	var got uint
	for got < n {
		offset := uint(pos & 7)
		take := min(8-offset, n-got)
		chunk := uint64(br.buf[pos>>3]>>offset) & (1<<take - 1)
		val |= chunk << got
		got += take
		pos += uint64(take)
	}
	br.pos = pos

	return val
}

// ReadBytes fills dst with the next len(dst) bytes, regardless of the
// alignment. If fewer bits remain, dst is zeroed and the reader is marked as
// not good.
func (br *BitReader) ReadBytes(dst []byte) {
	need := uint64(len(dst)) * 8
	if need > br.Remaining() {
		br.fail("read bytes", need)
		clear(dst)
		return
	}

	if br.pos&7 == 0 {
		off := br.pos >> 3
		copy(dst, br.buf[off:])
		br.pos += need
		return
	}

	for i := range dst {
		dst[i] = byte(br.readBits(8))
	}
}

// ReadByte implements io.ByteReader. It returns Err once the reader is not
// good.
func (br *BitReader) ReadByte() (byte, error) {
	b := byte(br.readBits(8))
	if br.err != nil {
		return 0, br.err
	}
	return b, nil
}
