package imageprocessor

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"productmatcher/types"

	"gocv.io/x/gocv"
)

// Decoder turns raw uploads into RGB pixel grids
type Decoder struct {
	registry *ImageLoaderRegistry
}

// NewDecoder creates a decoder over the given registry, or the default one when nil
func NewDecoder(registry *ImageLoaderRegistry) *Decoder {
	if registry == nil {
		registry = NewImageLoaderRegistry()
	}
	return &Decoder{registry: registry}
}

// Decode decodes raw into a PixelGrid. The caller owns the returned Mat.
// Every failure is a DecodeError.
func (d *Decoder) Decode(raw types.RawImage) (gocv.Mat, error) {
	if len(raw.Data) == 0 {
		return gocv.NewMat(), types.DecodeError("decode", errors.New("empty image data"))
	}

	format := ParseFormat(raw.Encoding)
	if sniffed := SniffFormat(raw.Data); sniffed != FormatUnknown {
		// Trust the bytes over the declared type
		format = sniffed
	}

	img, err := d.registry.LoadImage(raw.Data, format)
	if err != nil {
		img.Close()
		return gocv.NewMat(), types.DecodeError("decode", err)
	}
	if img.Cols() == 0 || img.Rows() == 0 {
		img.Close()
		return gocv.NewMat(), types.DecodeError("decode", fmt.Errorf("image has zero dimension"))
	}
	if img.Channels() != 3 {
		img.Close()
		return gocv.NewMat(), types.DecodeError("decode", fmt.Errorf("expected 3 channels, got %d", img.Channels()))
	}

	return img, nil
}

// DecodeBase64 decodes a base64 image string, optionally prefixed with a
// data-URI header, into a RawImage.
func DecodeBase64(s string) (types.RawImage, error) {
	payload, mimeType := ParseDataURI(s)
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return types.RawImage{}, types.DecodeError("base64", errors.New("empty payload"))
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some clients drop the padding
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if rawErr != nil {
			return types.RawImage{}, types.DecodeError("base64", err)
		}
	}

	return types.RawImage{Data: data, Encoding: string(ParseFormat(mimeType))}, nil
}
