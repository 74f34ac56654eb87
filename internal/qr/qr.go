// Package qr issues table tokens and renders them as PNG data URLs.
package qr

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// Token returns a fresh opaque token bound to a table number.
func Token(tableNumber int) string {
	return fmt.Sprintf("table-%d-%s", tableNumber, uuid.NewString()[:8])
}

// Generator renders a token into an image reference.
type Generator interface {
	DataURL(token string) (string, error)
}

// PNGGenerator encodes BaseURL/scan/{token} (or the bare token when BaseURL
// is empty) as a PNG data URL.
type PNGGenerator struct {
	BaseURL string
	Size    int
}

func (g PNGGenerator) DataURL(token string) (string, error) {
	size := g.Size
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(g.Content(token), qrcode.Medium, size)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// Content is the payload encoded in the QR image.
func (g PNGGenerator) Content(token string) string {
	if g.BaseURL == "" {
		return token
	}
	return strings.TrimRight(g.BaseURL, "/") + "/scan/" + token
}
