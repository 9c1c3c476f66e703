package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetName(t *testing.T) {
	testCases := []struct {
		url      string
		expected string
	}{
		{"https://cdn.example.com/course/chapter-1/intro.mp4", "intro.mp4"},
		{"https://cdn.example.com/intro.mp4?token=abc#t=10", "intro.mp4"},
		{"http://host/archive.tar.gz", "archive.tar.gz"},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			name, err := AssetName(tc.url)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, name)
		})
	}

	for _, bad := range []string{"https://cdn.example.com/", "https://cdn.example.com", "://nope"} {
		_, err := AssetName(bad)
		assert.Error(t, err, bad)
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, "intro_encrypted.mp4", EncryptedName("intro.mp4"))
	assert.Equal(t, "archive.tar_encrypted.gz", EncryptedName("archive.tar.gz"))
	assert.Equal(t, "README_encrypted", EncryptedName("README"))

	assert.Equal(t, "intro.mp4", OriginalName("intro_encrypted.mp4"))
	assert.Equal(t, "intro.mp4", OriginalName(EncryptedName("intro.mp4")))

	assert.Equal(t, "intro_encrypted_decrypted.mp4", DecryptedName("intro_encrypted.mp4"))
}
