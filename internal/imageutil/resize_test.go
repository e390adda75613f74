package imageutil

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"
)

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestDownscaleShrinksLargeFrame(t *testing.T) {
	data := encodeTestJPEG(t, 200, 100)

	out, err := Downscale(data, 50)
	if err != nil {
		t.Fatalf("Downscale failed: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if got := img.Bounds().Dx(); got != 50 {
		t.Errorf("expected width 50, got %d", got)
	}
	if got := img.Bounds().Dy(); got != 25 {
		t.Errorf("expected height 25, got %d", got)
	}
}

func TestDownscaleKeepsSmallFrame(t *testing.T) {
	data := encodeTestJPEG(t, 40, 30)

	out, err := Downscale(data, 50)
	if err != nil {
		t.Fatalf("Downscale failed: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("small frame must be returned unchanged")
	}
}

func TestDownscaleRejectsGarbage(t *testing.T) {
	if _, err := Downscale([]byte("not a jpeg"), 50); err == nil {
		t.Error("expected error for undecodable data")
	}
}
