package transform

import (
	"fmt"
	"strings"
)

// MinKeyLength is the shortest key accepted without a warning.
const MinKeyLength = 10

// KeyPolicy decides what happens when a key is shorter than the minimum length.
type KeyPolicy string

const (
	// KeyPolicyWarn logs the short key and carries on.
	KeyPolicyWarn KeyPolicy = "warn"
	// KeyPolicyReject refuses to build an engine with a short key.
	KeyPolicyReject KeyPolicy = "reject"
)

// ParseKeyPolicy converts a configuration value into a KeyPolicy. An empty value means warn.
func ParseKeyPolicy(s string) (KeyPolicy, error) {
	switch KeyPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeyPolicyWarn:
		return KeyPolicyWarn, nil
	case KeyPolicyReject:
		return KeyPolicyReject, nil
	default:
		return "", fmt.Errorf("unknown key policy %q (expected %q or %q)", s, KeyPolicyWarn, KeyPolicyReject)
	}
}

// ValidateKey checks key against the minimum length. A zero-length key is always
// an error. A short key yields ErrShortKey, which the caller applies according to
// its policy.
func ValidateKey(key []byte, minLength int) error {
	if len(key) == 0 {
		return ErrInvalidKey
	}
	if len(key) < minLength {
		return fmt.Errorf("%w: got %d bytes, please make it at least %d", ErrShortKey, len(key), minLength)
	}
	return nil
}
