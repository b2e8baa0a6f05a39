package noteservice

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// MaxImageBytes caps the decoded size of an inserted image.
const MaxImageBytes = 5 << 20 // 5 MB

// ErrInvalidImage is returned for image references the service refuses to embed.
var ErrInvalidImage = errors.New("invalid image")

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// ImageDataURI encodes raw image bytes as a base64 data URI, detecting the
// media type from the content.
func ImageDataURI(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrInvalidImage)
	}
	if len(data) > MaxImageBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidImage, len(data), MaxImageBytes)
	}
	mime := strings.Split(http.DetectContentType(data), ";")[0]
	if !allowedImageTypes[mime] {
		return "", fmt.Errorf("%w: unsupported content type %s", ErrInvalidImage, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// ValidateImageRef checks an image reference before it is embedded. Data
// URIs must be base64 images whose content matches the declared type;
// http(s) URLs are accepted as opaque references.
func ValidateImageRef(ref string) error {
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return nil
	case strings.HasPrefix(ref, "data:"):
		_, err := decodeDataURI(ref)
		return err
	default:
		return fmt.Errorf("%w: expected a data URI or http(s) URL", ErrInvalidImage)
	}
}

// decodeDataURI parses a data:<mediatype>;base64,<data> URI.
func decodeDataURI(uri string) ([]byte, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, fmt.Errorf("%w: data URI missing comma separator", ErrInvalidImage)
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("%w: only base64 data URIs are supported", ErrInvalidImage)
	}
	declared := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	if !allowedImageTypes[declared] {
		return nil, fmt.Errorf("%w: unsupported media type %q", ErrInvalidImage, declared)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: bad base64: %v", ErrInvalidImage, err)
		}
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidImage, len(data), MaxImageBytes)
	}

	detected := strings.Split(http.DetectContentType(data), ";")[0]
	if detected != declared {
		return nil, fmt.Errorf("%w: content is %s, declared %s", ErrInvalidImage, detected, declared)
	}
	return data, nil
}
