package transform

import "fmt"

// ExtendKey repeats key until it covers length bytes: the result E satisfies
// E[i] == key[i % len(key)] and len(E) == length.
func ExtendKey(key []byte, length int) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrInvalidKey
	}
	if length < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}

	extended := make([]byte, length)
	// whole repetitions first, then the truncated prefix for the remainder
	for off := 0; off < length; off += len(key) {
		copy(extended[off:], key)
	}
	return extended, nil
}

