package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// Uploaded photos are bounded to this box and re-encoded lossily before
// they are embedded in a record.
const (
	maxPhotoWidth  = 400
	maxPhotoHeight = 400
	jpegQuality    = 70
)

// FromBase64 decodes an uploaded photo payload. Both raw base64 and
// browser data URLs ("data:image/jpeg;base64,...") are accepted.
func FromBase64(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if idx := strings.Index(payload, ","); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image payload: %w", err)
	}
	return data, nil
}

// ConvertToProfileJPEG decodes an image, downscales it to fit within
// 400x400 preserving aspect ratio, and re-encodes it as a JPEG data URL
// at quality 70. Deterministic for identical input.
func ConvertToProfileJPEG(data []byte) (string, error) {
	img, err := decodeImage(data)
	if err != nil {
		return "", err
	}

	bounds := img.Bounds()
	slog.Debug("Photo decoded", "width", bounds.Dx(), "height", bounds.Dy())

	img = resizeToFit(img, maxPhotoWidth, maxPhotoHeight)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("failed to encode photo: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	slog.Debug("Photo re-encoded", "base64_length", len(encoded))
	return "data:image/jpeg;base64," + encoded, nil
}

// decodeImage attempts to decode an image from bytes, trying multiple formats
func decodeImage(data []byte) (image.Image, error) {
	// Try JPEG first (most common)
	if img, err := jpeg.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	if img, err := png.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	// Try generic image decode as fallback
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("unsupported or invalid image format")
}

// resizeToFit scales img to fit within maxW×maxH (keeping aspect ratio)
func resizeToFit(src image.Image, maxW, maxH int) image.Image {
	bw := src.Bounds().Dx()
	bh := src.Bounds().Dy()

	scale := math.Min(float64(maxW)/float64(bw), float64(maxH)/float64(bh))
	if scale >= 1.0 {
		return src // already small enough
	}
	w := int(math.Max(1, math.Round(float64(bw)*scale)))
	h := int(math.Max(1, math.Round(float64(bh)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// CatmullRom = high quality, good for photos/faces
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}
