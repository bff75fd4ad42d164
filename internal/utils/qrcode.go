package utils

import (
    "encoding/base64"
    "fmt"

    qrcode "github.com/skip2/go-qrcode"
)

// QRCodePNG renders content as a PNG QR code of size x size pixels.
func QRCodePNG(content string, size int) ([]byte, error) {
    if size <= 0 {
        size = 256
    }
    png, err := qrcode.Encode(content, qrcode.Medium, size)
    if err != nil {
        return nil, fmt.Errorf("encode qr code: %w", err)
    }
    return png, nil
}

// QRCodeDataURL renders content as a base64 PNG data URL, ready for an
// <img> tag.
func QRCodeDataURL(content string, size int) (string, error) {
    png, err := QRCodePNG(content, size)
    if err != nil {
        return "", err
    }
    return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
