package imageload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var errEmptyImage = errors.New("empty image data")

// ErrTooManyPixels is returned when an image header declares more pixels than allowed.
var ErrTooManyPixels = errors.New("image exceeds pixel limit")

// DefaultMaxPixels bounds decoded images when no limit is configured.
const DefaultMaxPixels = 40_000_000

// ImageNet channel statistics used by the pretrained classifiers we load.
var (
	channelMean = [3]float32{0.485, 0.456, 0.406}
	channelStd  = [3]float32{0.229, 0.224, 0.225}
)

// Decode decodes JPEG, PNG, GIF, WebP, or BMP data and returns the image and its format name.
func Decode(data []byte) (image.Image, string, error) {
	return DecodeLimited(data, DefaultMaxPixels)
}

// DecodeLimited is Decode with an explicit pixel limit. The header is checked before
// any pixel data is allocated; maxPixels <= 0 uses DefaultMaxPixels.
func DecodeLimited(data []byte, maxPixels int64) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", errEmptyImage
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > maxPixels {
		return nil, "", fmt.Errorf("decode image: %s is %dx%d: %w", format, cfg.Width, cfg.Height, ErrTooManyPixels)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, "", fmt.Errorf("decode image: zero-sized %s", format)
	}
	return img, format, nil
}

// Resize scales img to a size x size RGBA image, ignoring aspect ratio.
func Resize(img image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Preprocess resizes img and returns normalized float32 data in NCHW order
// ([1, 3, size, size] flattened), the layout image classifiers expect.
func Preprocess(img image.Image, size int) []float32 {
	dst := Resize(img, size)
	plane := size * size
	out := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			off := dst.PixOffset(x, y)
			p := y*size + x
			for c := 0; c < 3; c++ {
				v := float32(dst.Pix[off+c]) / 255
				out[c*plane+p] = (v - channelMean[c]) / channelStd[c]
			}
		}
	}
	return out
}
