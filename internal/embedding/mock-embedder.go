package embedding

import (
	"context"
	"image"

	"github.com/hyperjump/otoshimono/internal/imageload"
	"github.com/hyperjump/otoshimono/pkg/utils"
)

const mockGrid = 4

// MockEmbedder is a deterministic embedder for tests and model-less development.
// Features are the average colors of a 4x4 grid over the image, tiled to the requested
// dimension, so identical images match at 100 and differently colored images diverge.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic features of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 1024
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns grid-color features for img.
func (e *MockEmbedder) Embed(ctx context.Context, img image.Image) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	small := imageload.Resize(img, mockGrid)
	grid := make([]float32, 0, mockGrid*mockGrid*3)
	for y := 0; y < mockGrid; y++ {
		for x := 0; x < mockGrid; x++ {
			off := small.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				grid = append(grid, float32(small.Pix[off+c])/255)
			}
		}
	}
	emb := make([]float32, e.dimensions)
	for i := range emb {
		emb[i] = grid[i%len(grid)]
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
