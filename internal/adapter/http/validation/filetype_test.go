package validation

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes() []byte {
	return []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
}

func jpegBytes() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
}

func gifBytes() []byte {
	return []byte("GIF89a" + "trailer")
}

func webpBytes() []byte {
	b := []byte("RIFF\x00\x00\x00\x00WEBPVP8 ")
	return b
}

func TestValidateMagicBytes_AllowedImageTypes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		mime string
	}{
		{"png", pngBytes(), "image/png"},
		{"jpeg", jpegBytes(), "image/jpeg"},
		{"gif", gifBytes(), "image/gif"},
		{"webp", webpBytes(), "image/webp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, allowed, err := ValidateMagicBytes(bytes.NewReader(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.mime, mime)
			assert.True(t, allowed)
		})
	}
}

func TestValidateMagicBytes_DisallowedTypes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"pdf", []byte("%PDF-1.4 something")},
		{"html", []byte("<!DOCTYPE html><html></html>")},
		{"mp4", append([]byte{0, 0, 0, 0x18}, []byte("ftypisom\x00\x00\x00\x00")...)},
		{"plain text", []byte("just some text")},
		{"zip", []byte("PK\x03\x04rest-of-archive")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, allowed, err := ValidateMagicBytes(bytes.NewReader(tt.data))
			require.NoError(t, err)
			assert.False(t, allowed)
		})
	}
}

func TestValidateMagicBytes_EmptyFile(t *testing.T) {
	mime, allowed, err := ValidateMagicBytes(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", mime)
	assert.False(t, allowed)
}

func TestValidateMagicBytes_ResetsReaderPosition(t *testing.T) {
	reader := bytes.NewReader(pngBytes())

	_, _, err := ValidateMagicBytes(reader)
	require.NoError(t, err)

	pos, err := reader.Seek(0, 1) // io.SeekCurrent
	require.NoError(t, err)
	assert.Zero(t, pos, "reader must be rewound after validation")
}

func TestExtensionForMIME(t *testing.T) {
	assert.Equal(t, ".jpg", ExtensionForMIME("image/jpeg"))
	assert.Equal(t, ".png", ExtensionForMIME("image/png"))
	assert.Equal(t, ".gif", ExtensionForMIME("image/gif"))
	assert.Equal(t, ".webp", ExtensionForMIME("image/webp"))
	assert.Equal(t, ".bin", ExtensionForMIME("application/pdf"))
}
