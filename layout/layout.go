// Package layout describes bit-packed records as a list of fields and decodes
// them with a bitstream.BitReader.
//
// A layout is written as whitespace or comma separated items, each an
// optional name followed by a kind:
//
//	magic=u16 version=u4 flags=u4
//	delta=s13 more=bit run=unary
//	align skip:3 seek:64 payload=bytes:4
//
// Text after '#' up to the end of the line is ignored.
package layout

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/spacemeshos/bitcursor/shared"
)

// MaxBytesField bounds the length of a bytes:N field.
const MaxBytesField = 1 << 12

type Kind uint8

const (
	KindUnsigned Kind = iota + 1
	KindSigned
	KindBit
	KindUnary
	KindBytes
	KindAlign
	KindSkip
	KindSeek
)

var kindNames = map[Kind]string{
	KindUnsigned: "unsigned",
	KindSigned:   "signed",
	KindBit:      "bit",
	KindUnary:    "unary",
	KindBytes:    "bytes",
	KindAlign:    "align",
	KindSkip:     "skip",
	KindSeek:     "seek",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown field kind %q", text)
}

// Positional reports whether the kind only moves the cursor.
func (k Kind) Positional() bool {
	return k == KindAlign || k == KindSkip || k == KindSeek
}

// Field is a single layout item. Arg is the width in bits for unsigned and
// signed fields, the byte count for bytes, the bit count for skip and the
// absolute bit position for seek.
type Field struct {
	Name string
	Kind Kind
	Arg  uint64
}

func (f Field) String() string {
	var kindText string
	switch f.Kind {
	case KindUnsigned:
		kindText = "u" + strconv.FormatUint(f.Arg, 10)
	case KindSigned:
		kindText = "s" + strconv.FormatUint(f.Arg, 10)
	case KindBytes, KindSkip, KindSeek:
		kindText = f.Kind.String() + ":" + strconv.FormatUint(f.Arg, 10)
	default:
		kindText = f.Kind.String()
	}
	if f.Name == "" {
		return kindText
	}
	return f.Name + "=" + kindText
}

type Layout []Field

func (l Layout) String() string {
	items := make([]string, len(l))
	for i, f := range l {
		items[i] = f.String()
	}
	return strings.Join(items, " ")
}

// ParseError reports an invalid layout item.
type ParseError struct {
	Item   string
	Reason string
}

func (err *ParseError) Error() string {
	if err.Item == "" {
		return fmt.Sprintf("%v: %v", shared.ErrInvalidLayout, err.Reason)
	}
	return fmt.Sprintf("%v: item %q: %v", shared.ErrInvalidLayout, err.Item, err.Reason)
}

func (err *ParseError) Unwrap() error {
	return shared.ErrInvalidLayout
}

// Parse parses the textual form of a layout. Unnamed data fields are named
// fieldK, where K is their index among the data fields.
func Parse(text string) (Layout, error) {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		items = append(items, strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})...)
	}

	if len(items) == 0 {
		return nil, &ParseError{Reason: "no fields"}
	}

	l := make(Layout, 0, len(items))
	names := make(map[string]struct{}, len(items))
	var data int
	for _, item := range items {
		f, err := parseItem(item)
		if err != nil {
			return nil, err
		}

		if !f.Kind.Positional() {
			if f.Name == "" {
				f.Name = "field" + strconv.Itoa(data)
			}
			if _, ok := names[f.Name]; ok {
				return nil, &ParseError{Item: item, Reason: "duplicate name"}
			}
			names[f.Name] = struct{}{}
			data++
		}
		l = append(l, f)
	}

	return l, nil
}

func parseItem(item string) (Field, error) {
	var f Field
	kindText := item
	if i := strings.IndexByte(item, '='); i >= 0 {
		f.Name, kindText = item[:i], item[i+1:]
		if !validName(f.Name) {
			return f, &ParseError{Item: item, Reason: "invalid name"}
		}
	}

	switch {
	case kindText == "bit":
		f.Kind = KindBit
	case kindText == "unary":
		f.Kind = KindUnary
	case kindText == "align":
		f.Kind = KindAlign
	case strings.HasPrefix(kindText, "bytes:"):
		f.Kind = KindBytes
	case strings.HasPrefix(kindText, "skip:"):
		f.Kind = KindSkip
	case strings.HasPrefix(kindText, "seek:"):
		f.Kind = KindSeek
	case strings.HasPrefix(kindText, "u"):
		f.Kind = KindUnsigned
	case strings.HasPrefix(kindText, "s"):
		f.Kind = KindSigned
	default:
		return f, &ParseError{Item: item, Reason: "unknown kind"}
	}

	if f.Kind.Positional() && f.Name != "" {
		return f, &ParseError{Item: item, Reason: "positional items take no name"}
	}

	var err error
	switch f.Kind {
	case KindUnsigned, KindSigned:
		f.Arg, err = strconv.ParseUint(kindText[1:], 10, 8)
		if err != nil || f.Arg > 64 {
			return f, &ParseError{Item: item, Reason: "width must be between 0 and 64"}
		}
	case KindBytes, KindSkip, KindSeek:
		arg := kindText[strings.IndexByte(kindText, ':')+1:]
		f.Arg, err = strconv.ParseUint(arg, 0, 64)
		if err != nil {
			return f, &ParseError{Item: item, Reason: "invalid number"}
		}
		if f.Kind == KindBytes && f.Arg > MaxBytesField {
			return f, &ParseError{Item: item, Reason: fmt.Sprintf("at most %d bytes", MaxBytesField)}
		}
	}

	return f, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '.' || r == '-':
		case unicode.IsLetter(r):
		case unicode.IsDigit(r) && i > 0:
		default:
			return false
		}
	}
	return true
}
