// Package embedding turns decoded images into feature vectors.
package embedding

import (
	"context"
	"image"

	"github.com/hyperjump/otoshimono/internal/config"
)

// Embedder produces feature vectors for images.
type Embedder interface {
	Embed(ctx context.Context, img image.Image) ([]float32, error)
	Dimensions() int
	Close() error
}

// ONNXLoader returns a LoadFunc that opens the ONNX model described by cfg.
func ONNXLoader(cfg *config.EmbeddingConfig) LoadFunc {
	return func() (Embedder, error) {
		e, err := NewONNXEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}
