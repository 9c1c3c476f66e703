package pipeline

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

const (
	encryptedSuffix = "_encrypted"
	decryptedSuffix = "_decrypted"
)

// AssetName returns the file name of the last path segment of rawURL.
func AssetName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid asset url %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("invalid asset url %q: no file name", rawURL)
	}
	return name, nil
}

// EncryptedName turns x.mp4 into x_encrypted.mp4.
func EncryptedName(name string) string {
	return withStemSuffix(name, encryptedSuffix)
}

// OriginalName strips every _encrypted marker from name.
func OriginalName(name string) string {
	return strings.ReplaceAll(name, encryptedSuffix, "")
}

// DecryptedName turns x_encrypted.mp4 into x_encrypted_decrypted.mp4.
func DecryptedName(name string) string {
	return withStemSuffix(name, decryptedSuffix)
}

func withStemSuffix(name, suffix string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + suffix + ext
}
