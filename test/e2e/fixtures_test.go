package e2e

import (
	"testing"

	"github.com/hyperjump/otoshimono/internal/imageload"
)

func TestEncodeImage_AllExtensionsDecodable(t *testing.T) {
	for _, ext := range SupportedImageExtensions {
		ext := ext
		t.Run(ext, func(t *testing.T) {
			data, err := EncodeImage(ext, palette[0].c)
			if err != nil {
				t.Fatalf("EncodeImage: %v", err)
			}
			img, _, err := imageload.Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if img.Bounds().Dx() != fixtureSize {
				t.Errorf("width = %d, want %d", img.Bounds().Dx(), fixtureSize)
			}
		})
	}
}

func TestEncodeImage_unknownExtension(t *testing.T) {
	if _, err := EncodeImage(".tiff", palette[0].c); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestBuildCorpus(t *testing.T) {
	c := BuildCorpus()
	if c.TotalPairs != len(palette) {
		t.Fatalf("pairs = %d, want %d", c.TotalPairs, len(palette))
	}
	seen := make(map[string]bool)
	for i := range c.Pairs {
		name := c.FileName(i)
		if seen[name] {
			t.Errorf("duplicate file name %s", name)
		}
		seen[name] = true
	}
}
