package layout

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spacemeshos/bitcursor/bitstream"
	"github.com/spacemeshos/bitcursor/shared"
)

var ErrNoProgress = fmt.Errorf("%w: layout consumes no bits", shared.ErrInvalidLayout)

// Value is a decoded data field. Uint holds the raw field bits (the count for
// unary fields), Int the sign-extended value of signed fields.
type Value struct {
	Name   string `json:"name"`
	Kind   Kind   `json:"kind"`
	Offset uint64 `json:"offset"`
	Bits   uint64 `json:"bits"`
	Uint   uint64 `json:"uint"`
	Int    int64  `json:"int"`
	Bytes  []byte `json:"bytes,omitempty"`
}

func (v Value) String() string {
	switch v.Kind {
	case KindSigned:
		return strconv.FormatInt(v.Int, 10)
	case KindBit, KindUnary:
		return strconv.FormatUint(v.Uint, 10)
	case KindBytes:
		return hex.EncodeToString(v.Bytes)
	default:
		return fmt.Sprintf("%d (%#x)", v.Uint, v.Uint)
	}
}

// Record is the result of applying a layout once.
type Record struct {
	Start  uint64  `json:"start"`
	End    uint64  `json:"end"`
	Good   bool    `json:"good"`
	Values []Value `json:"values"`
}

// Get returns the value of the named field.
func (r *Record) Get(name string) (Value, bool) {
	for _, v := range r.Values {
		if v.Name == name {
			return v, true
		}
	}
	return Value{}, false
}

type Decoder struct {
	layout Layout
	strict bool
	logger *zap.Logger
}

func NewDecoder(l Layout, opts ...OptionFunc) *Decoder {
	options := applyOpts(opts...)
	return &Decoder{
		layout: l,
		strict: options.strict,
		logger: options.logger,
	}
}

// Decode applies the layout once, starting at the reader's cursor.
//
// In strict mode decoding stops at the first field that runs out of range and
// the reader's error is returned, annotated with the field. Otherwise all
// fields are applied and the record is marked as not good.
func (d *Decoder) Decode(br *bitstream.BitReader) (*Record, error) {
	rec := &Record{
		Start:  br.Tell(),
		Values: make([]Value, 0, len(d.layout)),
	}

	for _, f := range d.layout {
		offset := br.Tell()
		switch f.Kind {
		case KindAlign:
			br.AlignToByte()
		case KindSkip:
			br.Skip(f.Arg)
		case KindSeek:
			br.SetPosition(f.Arg)
		default:
			v := readValue(br, f)
			v.Offset = offset
			v.Bits = br.Tell() - offset
			rec.Values = append(rec.Values, v)
		}

		if d.strict && !br.Good() {
			rec.End = br.Tell()
			return rec, fmt.Errorf("field %q at bit %d: %w", f.String(), offset, br.Err())
		}
	}

	rec.End = br.Tell()
	rec.Good = br.Good()

	d.logger.Debug("decoded record",
		zap.Uint64("start", rec.Start),
		zap.Uint64("end", rec.End),
		zap.Int("values", len(rec.Values)),
		zap.Bool("good", rec.Good),
	)

	return rec, nil
}

func readValue(br *bitstream.BitReader, f Field) Value {
	v := Value{Name: f.Name, Kind: f.Kind}
	switch f.Kind {
	case KindUnsigned:
		v.Uint = br.ReadBits(uint(f.Arg))
	case KindSigned:
		v.Int = br.ReadSignedBits(uint(f.Arg))
		v.Uint = uint64(v.Int)
		if f.Arg < 64 {
			v.Uint &= 1<<f.Arg - 1
		}
	case KindBit:
		if br.ReadBit() {
			v.Uint = 1
		}
	case KindUnary:
		v.Uint = br.Read0Bits()
	case KindBytes:
		v.Bytes = make([]byte, f.Arg)
		br.ReadBytes(v.Bytes)
	}
	return v
}

// DecodeAll applies the layout back to back until the reader is exhausted.
// A record that fails in non-strict mode is kept and ends decoding.
func (d *Decoder) DecodeAll(br *bitstream.BitReader) ([]*Record, error) {
	var records []*Record
	for br.Remaining() > 0 {
		rec, err := d.Decode(br)
		if err != nil {
			return records, err
		}
		records = append(records, rec)

		if !rec.Good {
			break
		}
		// A seek may move the cursor backward.
		if rec.End <= rec.Start {
			return records, fmt.Errorf("record %d at bit %d: %w", len(records)-1, rec.Start, ErrNoProgress)
		}
	}

	if len(records) == 0 {
		return nil, shared.ErrEmptyInput
	}

	return records, nil
}

// IsOutOfRange reports whether err is caused by a field past the end of input.
func IsOutOfRange(err error) bool {
	return errors.Is(err, shared.ErrOutOfRange)
}
