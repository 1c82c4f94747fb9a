package gemini

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// InlineImage is the {data, mimeType} shape the frontend sends for images. Data
// is base64, optionally as a data: URL.
type InlineImage struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// Decode converts the image to raw bytes. A MIME type embedded in a data URL
// wins over the declared one; image/jpeg is assumed when neither is set.
func (img InlineImage) Decode() (Media, error) {
	data, mimeType := img.Data, img.MIMEType
	if rest, ok := strings.CutPrefix(data, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return Media{}, fmt.Errorf("%w: malformed data URL", ErrInvalidImage)
		}
		if mt, _, _ := strings.Cut(header, ";"); mt != "" {
			mimeType = mt
		}
		data = payload
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return Media{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return Media{Data: raw, MIMEType: mimeType}, nil
}

// DataURL renders media as a data: URL for direct use in an <img> tag.
func (m Media) DataURL() string {
	return "data:" + m.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(m.Data)
}

// Base64 returns the standard base64 encoding of the media bytes.
func (m Media) Base64() string {
	return base64.StdEncoding.EncodeToString(m.Data)
}
