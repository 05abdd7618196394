// Package qrcode builds the pass QR payload and renders it as a PNG data URL.
package qrcode

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image/png"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

const (
	dataURLPrefix = "data:image/png;base64,"
	defaultSize   = 300
)

// Payload is the JSON document encoded inside every pass QR code. Scanners
// must establish provenance through Token, never the plaintext fields.
type Payload struct {
	PassID   string `json:"passId"`
	UserID   string `json:"userId"`
	PassType string `json:"passType"`
	Token    string `json:"token"`
}

func (p Payload) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type Renderer struct {
	size int
}

func NewRenderer(size int) *Renderer {
	if size <= 0 {
		size = defaultSize
	}
	return &Renderer{size: size}
}

// Render encodes content as a QR code and returns a PNG data URL.
func (r *Renderer) Render(content string) (string, error) {
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return "", err
	}
	code, err = barcode.Scale(code, r.size, r.size)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURL returns the raw PNG bytes of a data URL produced by Render.
func DecodeDataURL(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, dataURLPrefix) {
		return nil, errors.New("not a png data url")
	}
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, dataURLPrefix))
}
