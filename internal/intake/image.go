package intake

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
)

var (
	// ErrNotBase64 indicates the payload could not be base64-decoded.
	ErrNotBase64 = errors.New("intake: payload is not valid base64")
	// ErrNotImage indicates decoded bytes carry no recognized image signature.
	ErrNotImage = errors.New("intake: payload is not a PNG or JPEG image")
)

var (
	pngSignature  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	jpegSignature = []byte{0xFF, 0xD8}
)

// LooksLikeImagePayload reports whether the input should be treated as an
// image upload: either it carries a data-URI image prefix or it decodes to
// bytes with a PNG/JPEG signature.
func LooksLikeImagePayload(s string) bool {
	if strings.HasPrefix(s, "data:image") {
		return true
	}
	_, err := DecodeImagePayload(s)
	return err == nil
}

// DecodeImagePayload strips an optional data-URI prefix, base64-decodes the
// remainder and verifies the image signature. Decoding failures are reported
// as ErrNotBase64, unrecognized bytes as ErrNotImage.
func DecodeImagePayload(s string) ([]byte, error) {
	if idx := strings.IndexByte(s, ','); idx >= 0 && strings.HasPrefix(s, "data:image") {
		s = s[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrNotBase64
	}
	if !bytes.HasPrefix(raw, pngSignature) && !bytes.HasPrefix(raw, jpegSignature) {
		return nil, ErrNotImage
	}
	return raw, nil
}
