/**
 * @description
 * This package normalizes inbound reference images before they are forwarded to
 * the inference queue. Oversized images are scaled down to a pixel budget while
 * preserving aspect ratio; images already within budget pass through untouched.
 *
 * @notes
 * - The no-op path returns the original bytes unmodified, so re-normalizing an
 *   already-normalized image is byte-identical (idempotent).
 * - Scaling uses floor(dim * sqrt(budget/pixels)) on both axes, which keeps the
 *   result at or under the budget and within one pixel of the exact ratio.
 *
 * @dependencies
 * - image, image/jpeg, image/png: Standard Go decoding/encoding.
 * - golang.org/x/image/draw: Scaling kernels absent from the standard library.
 */

package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

var (
	ErrInvalidImage = errors.New("invalid image payload")
)

// Normalized is the result of running an image through Normalize.
type Normalized struct {
	Bytes    []byte
	MimeType string
	Width    int
	Height   int
}

// Normalize decodes imageBytes and, when the pixel count exceeds pixelBudget,
// scales the image down preserving aspect ratio. The input encoding (JPEG or
// PNG) is preserved in the output.
func Normalize(imageBytes []byte, pixelBudget int) (*Normalized, error) {
	if pixelBudget <= 0 {
		return nil, fmt.Errorf("pixel budget must be positive, got %d", pixelBudget)
	}

	src, format, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	mimeType, err := mimeForFormat(format)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width*height <= pixelBudget {
		return &Normalized{
			Bytes:    imageBytes,
			MimeType: mimeType,
			Width:    width,
			Height:   height,
		}, nil
	}

	scale := math.Sqrt(float64(pixelBudget) / float64(width*height))
	newWidth := int(math.Floor(float64(width) * scale))
	newHeight := int(math.Floor(float64(height) * scale))
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode normalized image: %w", err)
	}

	return &Normalized{
		Bytes:    buf.Bytes(),
		MimeType: mimeType,
		Width:    newWidth,
		Height:   newHeight,
	}, nil
}

func mimeForFormat(format string) (string, error) {
	switch format {
	case "jpeg":
		return "image/jpeg", nil
	case "png":
		return "image/png", nil
	default:
		return "", fmt.Errorf("%w: unsupported format %q", ErrInvalidImage, format)
	}
}
