package media

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

// makePNG encodes a w×h gradient image as PNG.
func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// A busy pattern keeps the PNG from compressing to nearly nothing.
			img.Set(x, y, color.RGBA{R: uint8(x * 7 % 251), G: uint8(y * 13 % 241), B: uint8((x*x + y*y) % 239), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// decodeDataURL splits a data URL and decodes its base64 payload.
func decodeDataURL(t *testing.T, dataURL string) (subtype string, data []byte) {
	t.Helper()
	const prefix = "data:image/"
	if !strings.HasPrefix(dataURL, prefix) {
		t.Fatalf("not an image data URL: %.40s", dataURL)
	}
	rest := dataURL[len(prefix):]
	semi := strings.Index(rest, ";base64,")
	if semi < 0 {
		t.Fatalf("data URL missing base64 marker: %.60s", dataURL)
	}
	decoded, err := base64.StdEncoding.DecodeString(rest[semi+len(";base64,"):])
	if err != nil {
		t.Fatalf("data URL payload not valid base64: %v", err)
	}
	return rest[:semi], decoded
}

func TestPrepareSmallImagePassesThrough(t *testing.T) {
	src := makePNG(t, 16, 16)
	p := NewPreprocessor(1024*1024, 512, nil)

	dataURL, ok := p.Prepare(src, "image/png")
	if !ok {
		t.Fatal("small image was rejected")
	}

	subtype, data := decodeDataURL(t, dataURL)
	if subtype != "png" {
		t.Errorf("subtype = %q, want png", subtype)
	}
	if !bytes.Equal(data, src) {
		t.Error("small image was modified instead of passed through")
	}
}

func TestPrepareOversizedImageReencoded(t *testing.T) {
	src := makePNG(t, 640, 480)
	p := NewPreprocessor(1024, 128, nil) // force re-encode

	dataURL, ok := p.Prepare(src, "image/png")
	if !ok {
		t.Fatal("oversized image was rejected")
	}

	subtype, data := decodeDataURL(t, dataURL)
	if subtype != "jpeg" {
		t.Errorf("subtype = %q, want jpeg after re-encode", subtype)
	}
	if len(data) >= len(src) {
		t.Errorf("re-encoded size %d >= input size %d", len(data), len(src))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("re-encoded image not decodable: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("decoded format = %q, want jpeg", format)
	}

	bounds := img.Bounds()
	if bounds.Dx() > 128 || bounds.Dy() > 128 {
		t.Errorf("dimensions %dx%d exceed the 128 bound", bounds.Dx(), bounds.Dy())
	}
	// Aspect ratio is preserved: 640x480 → 128x96.
	if bounds.Dx() != 128 {
		t.Errorf("longest side = %d, want 128", bounds.Dx())
	}
}

func TestPrepareGarbageSuppressed(t *testing.T) {
	p := NewPreprocessor(4, 128, nil)

	if _, ok := p.Prepare([]byte("definitely not an image"), "image/png"); ok {
		t.Error("undecodable data was not suppressed")
	}
	if _, ok := p.Prepare(nil, "image/png"); ok {
		t.Error("empty data was not suppressed")
	}
}

func TestSubtypeOf(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"image/png", "png"},
		{"image/jpeg", "jpeg"},
		{"IMAGE/GIF", "gif"},
		{"image/webp; charset=binary", "webp"},
		{"application/pdf", "png"},
		{"", "png"},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			if got := subtypeOf(tt.mime); got != tt.want {
				t.Errorf("subtypeOf(%q) = %q, want %q", tt.mime, got, tt.want)
			}
		})
	}
}
