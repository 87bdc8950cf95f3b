package shared

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange    = errors.New("out of range")
	ErrInvalidLayout = errors.New("invalid layout")
	ErrEmptyInput    = errors.New("empty input")
)

// OutOfRangeError describes the first access that went past the end of a
// bit stream.
type OutOfRangeError struct {
	Op        string
	Position  uint64
	Requested uint64
	Size      uint64
}

func (err *OutOfRangeError) Error() string {
	return fmt.Sprintf("%v: requested %d at bit %d, stream has %d bits: %v",
		err.Op, err.Requested, err.Position, err.Size, ErrOutOfRange)
}

func (err *OutOfRangeError) Unwrap() error {
	return ErrOutOfRange
}

type ConfigError struct {
	Param  string
	Value  string
	Reason string
}

func (err ConfigError) Error() string {
	return fmt.Sprintf("`%v` config invalid; value: %q, %v", err.Param, err.Value, err.Reason)
}
