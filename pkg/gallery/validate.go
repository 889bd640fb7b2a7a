package gallery

import (
	"bytes"
	"encoding/base64"
	"math"
	"regexp"
	"strings"

	errs "framegen/pkg/errors"
)

// MaxPromptLength is the prompt truncation limit in characters
const MaxPromptLength = 500

var (
	// v4 UUID: version nibble 4, variant nibble 8/9/a/b
	uuidV4Pattern = regexp.MustCompile(`^(?i)[a-f0-9]{8}-[a-f0-9]{4}-4[a-f0-9]{3}-[89ab][a-f0-9]{3}-[a-f0-9]{12}$`)

	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	jpegMagic = []byte{0xFF, 0xD8}
)

// ValidUUID reports whether s is a syntactically correct v4 UUID
func ValidUUID(s string) bool {
	return uuidV4Pattern.MatchString(s)
}

// SanitizePrompt strips non-printable control characters (keeping newline
// and tab) and truncates to MaxPromptLength characters
func SanitizePrompt(prompt string) string {
	var b strings.Builder
	b.Grow(len(prompt))

	count := 0
	for _, r := range prompt {
		if r < 0x20 && r != '\n' && r != '\t' {
			continue
		}
		if r == 0x7f {
			continue
		}
		b.WriteRune(r)
		count++
		if count == MaxPromptLength {
			break
		}
	}

	return b.String()
}

// CoerceTimestamp converts a client-supplied timestamp to a non-negative
// integer, defaulting to zero for anything invalid. Values beyond the
// int64 range clamp rather than overflow.
func CoerceTimestamp(ts float64) int64 {
	if math.IsNaN(ts) || ts < 0 {
		return 0
	}
	if ts >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(ts)
}

// DecodeImagePayload decodes a base64 image payload, optionally prefixed
// with a data URL header, and verifies it carries a PNG or JPEG signature
func DecodeImagePayload(data string) ([]byte, error) {
	// Strip a "data:image/png;base64," style prefix
	if idx := strings.IndexByte(data, ','); idx >= 0 {
		data = data[idx+1:]
	}
	if data == "" {
		return nil, errs.New(errs.ErrorTypeClientInput, "empty image payload")
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeClientInput, "invalid base64 image data")
	}

	if !IsImage(decoded) {
		return nil, errs.New(errs.ErrorTypeClientInput, "payload is not a PNG or JPEG image")
	}

	return decoded, nil
}

// IsImage reports whether data starts with a PNG or JPEG magic number
func IsImage(data []byte) bool {
	if bytes.HasPrefix(data, pngMagic) {
		return true
	}
	return bytes.HasPrefix(data, jpegMagic)
}
