// Package validation provides file type validation utilities for upload security.
package validation

import (
	"errors"
	"io"
	"net/http"
)

// allowedMIMETypes defines the allowlist of image MIME types accepted for upload.
var allowedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// magicBytesBufferSize is the number of bytes to read for content type detection.
const magicBytesBufferSize = 512

// ValidateMagicBytes validates a file's content type by reading its magic bytes.
// It uses http.DetectContentType for standard detection, reads up to 512 bytes
// from the reader and resets the reader position to the beginning.
//
// Returns:
//   - mime: the detected MIME type
//   - allowed: whether the file type is in the allowlist
//   - err: any error encountered during reading or seeking
func ValidateMagicBytes(reader io.ReadSeeker) (mime string, allowed bool, err error) {
	buf := make([]byte, magicBytesBufferSize)
	n, err := reader.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, err
	}

	// Reset reader position to beginning
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return "", false, err
	}

	// Handle empty files
	if n == 0 {
		return "application/octet-stream", false, nil
	}

	buf = buf[:n]

	// WebP first: RIFF....WEBP (bytes 0-3: RIFF, bytes 8-11: WEBP)
	mime = detectWebP(buf)
	if mime == "" {
		mime = http.DetectContentType(buf)
	}

	allowed = allowedMIMETypes[mime]

	return mime, allowed, nil
}

func detectWebP(buf []byte) string {
	if len(buf) >= 12 {
		if buf[0] == 'R' && buf[1] == 'I' && buf[2] == 'F' && buf[3] == 'F' &&
			buf[8] == 'W' && buf[9] == 'E' && buf[10] == 'B' && buf[11] == 'P' {
			return "image/webp"
		}
	}
	return ""
}

// ExtensionForMIME maps an accepted MIME type to its blob key extension.
func ExtensionForMIME(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
