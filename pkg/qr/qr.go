package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const size = 512

// PNG encodes content as a QR code image the kiosk scanner can read.
func PNG(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr: empty content")
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("qr: encode: %w", err)
	}
	return png, nil
}
