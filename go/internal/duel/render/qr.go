package render

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// JoinQR renders link as a QR code made of block characters, two modules
// per character cell horizontally.
func JoinQR(link string) (string, error) {
	qr, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to encode qr code: %w", err)
	}

	var b strings.Builder
	for _, row := range qr.Bitmap() {
		for _, dark := range row {
			if dark {
				b.WriteString("██")
			} else {
				b.WriteString("  ")
			}
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// JoinQRPNG encodes link as a size x size PNG
func JoinQRPNG(link string, size int) ([]byte, error) {
	png, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}
