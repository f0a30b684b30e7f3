// Package media prepares image attachments for the completion endpoint.
// Oversized images are downscaled and re-encoded as JPEG before being
// inlined as base64 data URLs; anything that fails to decode is dropped.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"strings"

	"golang.org/x/image/draw"

	// Register decoders for the image formats Discord commonly serves.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// reencodeQuality is the JPEG quality used when shrinking oversized images.
const reencodeQuality = 60

// Preprocessor converts raw attachment bytes into inline data URLs.
type Preprocessor struct {
	// MaxBytes is the size above which an image is re-encoded.
	MaxBytes int

	// MaxDimension bounds the longest side when re-encoding.
	MaxDimension int

	logger *slog.Logger
}

// NewPreprocessor creates a Preprocessor with the given limits.
func NewPreprocessor(maxBytes, maxDimension int, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{
		MaxBytes:     maxBytes,
		MaxDimension: maxDimension,
		logger:       logger.With("component", "media"),
	}
}

// Prepare returns a data URL for the image, re-encoding it when it exceeds
// MaxBytes. Returns ok=false when the image cannot be processed; the error
// is logged and never propagated, so a bad image degrades to text-only.
func (p *Preprocessor) Prepare(data []byte, declaredMime string) (dataURL string, ok bool) {
	if len(data) == 0 {
		return "", false
	}

	if p.MaxBytes <= 0 || len(data) <= p.MaxBytes {
		return encodeDataURL(data, subtypeOf(declaredMime)), true
	}

	shrunk, err := p.reencode(data)
	if err != nil {
		p.logger.Warn("image re-encode failed, dropping attachment",
			"mime", declaredMime,
			"size", len(data),
			"error", err,
		)
		return "", false
	}

	p.logger.Debug("image re-encoded",
		"original_size", len(data),
		"new_size", len(shrunk),
	)
	return encodeDataURL(shrunk, "jpeg"), true
}

// reencode decodes the image, bounds its longest side to MaxDimension, and
// re-encodes it as JPEG at reduced quality.
func (p *Preprocessor) reencode(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = p.downscale(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: reencodeQuality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale shrinks img so its longest side is at most MaxDimension,
// preserving aspect ratio. Images already within bounds pass through.
func (p *Preprocessor) downscale(img image.Image) image.Image {
	if p.MaxDimension <= 0 {
		return img
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= p.MaxDimension {
		return img
	}

	scale := float64(p.MaxDimension) / float64(longest)
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// encodeDataURL builds a data:image/<subtype>;base64,<data> URL.
func encodeDataURL(data []byte, subtype string) string {
	return "data:image/" + subtype + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// subtypeOf extracts the subtype from a MIME type like "image/png".
// Unknown or non-image types default to "png", which completion endpoints
// treat leniently.
func subtypeOf(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if idx := strings.Index(mime, "/"); idx >= 0 && strings.HasPrefix(mime, "image/") {
		sub := mime[idx+1:]
		if semi := strings.Index(sub, ";"); semi >= 0 {
			sub = sub[:semi]
		}
		if sub != "" {
			return sub
		}
	}
	return "png"
}
