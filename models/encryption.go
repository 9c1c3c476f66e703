package models

// Encryptor transforms plain bytes into their encrypted form.
type Encryptor interface {
	Encrypt([]byte) ([]byte, error)
}

// Decryptor reverses an Encryptor configured with the same key material.
type Decryptor interface {
	Decrypt([]byte) ([]byte, error)
}

// Verifier checks a decrypted buffer against the original it came from.
type Verifier interface {
	Verify(recovered, reference []byte) error
}
