package transform

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// Direction selects the forward (encrypt) or inverse (decrypt) transform.
type Direction int

const (
	DirectionEncrypt Direction = iota
	DirectionDecrypt
)

func (d Direction) String() string {
	switch d {
	case DirectionEncrypt:
		return "encrypt"
	case DirectionDecrypt:
		return "decrypt"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

func (d Direction) valid() bool {
	return d == DirectionEncrypt || d == DirectionDecrypt
}

// minSpan is the smallest slice of a buffer handed to its own goroutine.
const minSpan = 64 << 10

// Config holds everything needed to build an Engine.
type Config struct {
	Key    []byte
	Rounds int

	// MinKeyLength defaults to MinKeyLength when zero.
	MinKeyLength int
	// Policy defaults to KeyPolicyWarn when empty.
	Policy KeyPolicy
	// Parallelism bounds the goroutines used inside one buffer. Zero means GOMAXPROCS.
	Parallelism int
}

// Engine applies the transform with a fixed key and round count. It holds no
// mutable state and can be shared by concurrent callers.
type Engine struct {
	key         []byte
	rounds      int
	parallelism int
}

// New validates cfg and returns an Engine. A zero-length key or a round count
// below one is always rejected; a short key is rejected or logged depending on
// cfg.Policy.
func New(cfg Config) (*Engine, error) {
	policy := cfg.Policy
	if policy == "" {
		policy = KeyPolicyWarn
	}
	if _, err := ParseKeyPolicy(string(policy)); err != nil {
		return nil, err
	}

	minLength := cfg.MinKeyLength
	if minLength <= 0 {
		minLength = MinKeyLength
	}

	if err := ValidateKey(cfg.Key, minLength); err != nil {
		if !errors.Is(err, ErrShortKey) || policy == KeyPolicyReject {
			return nil, err
		}
		zlog.Warn("encryption key is too short",
			zap.Int("key_length", len(cfg.Key)),
			zap.Int("min_key_length", minLength))
	}

	if cfg.Rounds < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRounds, cfg.Rounds)
	}

	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	return &Engine{
		key:         bytes.Clone(cfg.Key),
		rounds:      cfg.Rounds,
		parallelism: parallelism,
	}, nil
}

// Rounds returns the number of rounds the engine applies.
func (e *Engine) Rounds() int {
	return e.rounds
}

// Encrypt returns the forward transform of buf. buf is left untouched.
func (e *Engine) Encrypt(buf []byte) ([]byte, error) {
	return e.Transform(DirectionEncrypt, buf)
}

// Decrypt returns the inverse transform of buf. buf is left untouched.
func (e *Engine) Decrypt(buf []byte) ([]byte, error) {
	return e.Transform(DirectionDecrypt, buf)
}

// Verify compares a decrypted buffer with its original.
func (e *Engine) Verify(recovered, reference []byte) error {
	return Verify(recovered, reference)
}

// Transform applies every round in the given direction to a copy of buf.
func (e *Engine) Transform(dir Direction, buf []byte) ([]byte, error) {
	if !dir.valid() {
		return nil, fmt.Errorf("unknown transform direction %v", dir)
	}

	out := bytes.Clone(buf)
	if out == nil {
		out = []byte{}
	}
	keystream, err := ExtendKey(e.key, len(out))
	if err != nil {
		return nil, err
	}

	spans := e.parallelism
	if n := len(out) / minSpan; n < spans {
		spans = n
	}
	if spans <= 1 {
		applyRounds(out, keystream, e.rounds, dir)
		return out, nil
	}

	// Positions are independent of each other, so each goroutine owns a
	// contiguous span and runs all rounds over it in order.
	size := (len(out) + spans - 1) / spans
	var wg sync.WaitGroup
	for lo := 0; lo < len(out); lo += size {
		hi := min(lo+size, len(out))
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			applyRounds(out[lo:hi], keystream[lo:hi], e.rounds, dir)
		}(lo, hi)
	}
	wg.Wait()

	return out, nil
}

// Encrypt applies rounds forward passes of (b + key + round) mod 256 to a copy of buf.
func Encrypt(buf, key []byte, rounds int) ([]byte, error) {
	return transformOnce(DirectionEncrypt, buf, key, rounds)
}

// Decrypt undoes Encrypt when called with the same key and round count.
func Decrypt(buf, key []byte, rounds int) ([]byte, error) {
	return transformOnce(DirectionDecrypt, buf, key, rounds)
}

func transformOnce(dir Direction, buf, key []byte, rounds int) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrInvalidKey
	}
	if rounds < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRounds, rounds)
	}
	e := &Engine{key: key, rounds: rounds, parallelism: 1}
	return e.Transform(dir, buf)
}

// applyRounds transforms dst in place; keystream[i] is the key byte for dst[i].
//
// Both directions iterate rounds 0..rounds-1. Encryption adds keystream[i]+r in
// round r and decryption subtracts the same quantity in round r. Every round is
// an addition of a per-position constant modulo 256, and those commute, so the
// decrypt rounds cancel the encrypt rounds in this order as well as in reverse
// (TestDecryptRoundOrder checks both). Within one byte the rounds still run in
// sequence: round r+1 reads the output of round r.
func applyRounds(dst, keystream []byte, rounds int, dir Direction) {
	for r := 0; r < rounds; r++ {
		shift := byte(r)
		if dir == DirectionEncrypt {
			for i := range dst {
				dst[i] += keystream[i] + shift
			}
		} else {
			for i := range dst {
				dst[i] -= keystream[i] + shift
			}
		}
	}
}

// Verify compares recovered with reference byte for byte. On a difference it
// returns a *MismatchError wrapping ErrRoundTripMismatch.
func Verify(recovered, reference []byte) error {
	if len(recovered) != len(reference) {
		return &MismatchError{Offset: -1, Length: len(recovered), ReferenceLength: len(reference)}
	}
	for i := range recovered {
		if recovered[i] != reference[i] {
			return &MismatchError{Offset: i, Length: len(recovered), ReferenceLength: len(reference)}
		}
	}
	return nil
}
