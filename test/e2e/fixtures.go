// Package e2e provides end-to-end tests; this file builds small image files in every
// format the intake pipeline decodes.
package e2e

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
)

// SupportedImageExtensions is the list of file extensions used in E2E file-based tests.
// The decoder also reads .gif and .webp; GIF is left out because encoding quantizes to a
// palette and shifts colors, and there is no WebP encoder in x/image.
var SupportedImageExtensions = []string{".png", ".jpg", ".jpeg", ".bmp"}

const fixtureSize = 32

// SolidImage returns a fixtureSize x fixtureSize image filled with c.
func SolidImage(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, fixtureSize, fixtureSize))
	for y := 0; y < fixtureSize; y++ {
		for x := 0; x < fixtureSize; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// EncodeImage encodes a solid image of color c in the format implied by ext.
func EncodeImage(ext string, c color.Color) ([]byte, error) {
	img := SolidImage(c)
	var buf bytes.Buffer
	var err error
	switch ext {
	case ".png":
		err = png.Encode(&buf, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95})
	case ".bmp":
		err = bmp.Encode(&buf, img)
	default:
		return nil, fmt.Errorf("no encoder for %s", ext)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
