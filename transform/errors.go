package transform

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidKey        = errors.New("invalid key: key must not be empty")
	ErrShortKey          = errors.New("key is shorter than the minimum length")
	ErrInvalidRounds     = errors.New("invalid rounds: at least one round is required")
	ErrInvalidLength     = errors.New("invalid keystream length")
	ErrRoundTripMismatch = errors.New("decrypted bytes do not match the original")
)

// MismatchError describes where a recovered buffer first differs from its reference.
type MismatchError struct {
	// Offset of the first differing byte, or -1 when only the lengths differ.
	Offset          int
	Length          int
	ReferenceLength int
}

func (e *MismatchError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("%v: length %d, reference length %d", ErrRoundTripMismatch, e.Length, e.ReferenceLength)
	}
	return fmt.Sprintf("%v: first difference at byte %d", ErrRoundTripMismatch, e.Offset)
}

func (e *MismatchError) Unwrap() error {
	return ErrRoundTripMismatch
}
