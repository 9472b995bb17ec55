package imagepkg

import (
	"errors"
	"fmt"
	"image"

	qrcode "github.com/skip2/go-qrcode"
)

// QR size limits in pixels.
const (
	MinQRSize = 64
	MaxQRSize = 2048
)

var ErrQRSize = errors.New("qr size out of range")

func newQR(content string, size int) (*qrcode.QRCode, error) {
	if size < MinQRSize || size > MaxQRSize {
		return nil, fmt.Errorf("%w: %d not in [%d,%d]", ErrQRSize, size, MinQRSize, MaxQRSize)
	}
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return q, nil
}

// GenerateQRPNG returns PNG bytes of a size×size QR code for content.
func GenerateQRPNG(content string, size int) ([]byte, error) {
	q, err := newQR(content, size)
	if err != nil {
		return nil, err
	}
	return q.PNG(size)
}

// GenerateQRImage returns the QR code as an image for composition onto
// sheets and overviews.
func GenerateQRImage(content string, size int) (image.Image, error) {
	q, err := newQR(content, size)
	if err != nil {
		return nil, err
	}
	return q.Image(size), nil
}
