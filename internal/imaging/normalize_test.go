package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"testing"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestNormalize_WithinBudgetIsByteIdentical(t *testing.T) {
	original := encodePNG(t, 100, 80) // 8000 px

	result, err := Normalize(original, 10_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(result.Bytes, original) {
		t.Fatal("expected pass-through output to be byte-identical to the input")
	}
	if result.Width != 100 || result.Height != 80 {
		t.Fatalf("expected dimensions to be preserved, got %dx%d", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Fatalf("expected image/png, got %s", result.MimeType)
	}
}

func TestNormalize_ExactBudgetIsPassThrough(t *testing.T) {
	original := encodePNG(t, 100, 100)

	result, err := Normalize(original, 10_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(result.Bytes, original) {
		t.Fatal("expected an image exactly at budget to pass through unmodified")
	}
}

func TestNormalize_ScalesDownPreservingRatio(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		budget        int
	}{
		{name: "landscape", width: 400, height: 200, budget: 10_000},
		{name: "portrait", width: 120, height: 480, budget: 10_000},
		{name: "square", width: 300, height: 300, budget: 40_000},
		{name: "tiny budget", width: 64, height: 64, budget: 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := encodePNG(t, tt.width, tt.height)

			result, err := Normalize(original, tt.budget)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			scale := math.Sqrt(float64(tt.budget) / float64(tt.width*tt.height))
			wantWidth := int(math.Floor(float64(tt.width) * scale))
			wantHeight := int(math.Floor(float64(tt.height) * scale))
			if wantWidth < 1 {
				wantWidth = 1
			}
			if wantHeight < 1 {
				wantHeight = 1
			}
			if result.Width != wantWidth || result.Height != wantHeight {
				t.Fatalf("expected %dx%d, got %dx%d", wantWidth, wantHeight, result.Width, result.Height)
			}
			if result.Width*result.Height > tt.budget {
				t.Fatalf("scaled pixel count %d exceeds budget %d", result.Width*result.Height, tt.budget)
			}

			// The declared dimensions must match the encoded payload.
			decoded, _, err := image.Decode(bytes.NewReader(result.Bytes))
			if err != nil {
				t.Fatalf("failed to decode normalized output: %v", err)
			}
			if decoded.Bounds().Dx() != result.Width || decoded.Bounds().Dy() != result.Height {
				t.Fatalf("encoded dimensions %dx%d do not match reported %dx%d",
					decoded.Bounds().Dx(), decoded.Bounds().Dy(), result.Width, result.Height)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	original := encodePNG(t, 400, 300)
	budget := 50_000

	first, err := Normalize(original, budget)
	if err != nil {
		t.Fatalf("unexpected error on first pass: %v", err)
	}
	second, err := Normalize(first.Bytes, budget)
	if err != nil {
		t.Fatalf("unexpected error on second pass: %v", err)
	}
	if !bytes.Equal(second.Bytes, first.Bytes) {
		t.Fatal("expected second normalization to be a byte-identical no-op")
	}
}

func TestNormalize_PreservesJPEGEncoding(t *testing.T) {
	original := encodeJPEG(t, 400, 300)

	result, err := Normalize(original, 10_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MimeType != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %s", result.MimeType)
	}
	if _, format, err := image.Decode(bytes.NewReader(result.Bytes)); err != nil || format != "jpeg" {
		t.Fatalf("expected jpeg output, got format=%q err=%v", format, err)
	}
}

func TestNormalize_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "empty", payload: nil},
		{name: "garbage", payload: []byte("not an image at all")},
		{name: "truncated png", payload: encodePNG(t, 50, 50)[:20]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Normalize(tt.payload, 10_000); !errors.Is(err, ErrInvalidImage) {
				t.Fatalf("expected ErrInvalidImage, got %v", err)
			}
		})
	}
}

func TestNormalize_RejectsNonPositiveBudget(t *testing.T) {
	if _, err := Normalize(encodePNG(t, 10, 10), 0); err == nil {
		t.Fatal("expected error for zero budget")
	}
}
