package imagedata

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/vbonduro/nutrisnap/internal/llm"
)

var (
	ErrInvalidImage     = errors.New("invalid image payload")
	ErrUnsupportedImage = errors.New("unsupported image format")
)

var allowedMIME = []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp"}

var encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// Decode turns an imageBase64 payload into an llm.Image. The payload may be a
// data URL or bare base64. The declared MIME type of a data URL is ignored in
// favour of the sniffed one.
func Decode(payload string) (*llm.Image, error) {
	encoded := strings.TrimSpace(payload)
	if strings.HasPrefix(encoded, "data:") {
		header, body, ok := strings.Cut(encoded, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, ErrInvalidImage
		}
		encoded = body
	}
	encoded = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, encoded)
	if encoded == "" {
		return nil, ErrInvalidImage
	}

	data, err := decodeBase64(encoded)
	if err != nil {
		return nil, ErrInvalidImage
	}

	mimeType, ok := sniff(data)
	if !ok {
		return nil, ErrUnsupportedImage
	}

	return &llm.Image{
		MIME:    mimeType,
		Data:    data,
		DataURL: "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}

func decodeBase64(s string) ([]byte, error) {
	var firstErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(s)
		if err == nil && len(data) > 0 {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = ErrInvalidImage
	}
	return nil, firstErr
}

func sniff(data []byte) (string, bool) {
	detected := mimetype.Detect(data)
	for _, m := range allowedMIME {
		if detected.Is(m) {
			return m, true
		}
	}
	return detected.String(), false
}
