//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
	"image"

	"github.com/hyperjump/otoshimono/internal/config"
)

// ErrRuntimeUnavailable is returned when the binary was built without ONNX Runtime support.
var ErrRuntimeUnavailable = errors.New("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXEmbedder stub type when built without CGO (see onnx.go for real implementation).
type ONNXEmbedder struct{}

// NewONNXEmbedder always fails without CGO.
func NewONNXEmbedder(_ *config.EmbeddingConfig) (*ONNXEmbedder, error) {
	return nil, ErrRuntimeUnavailable
}

// Embed always fails without CGO.
func (e *ONNXEmbedder) Embed(context.Context, image.Image) ([]float32, error) {
	return nil, ErrRuntimeUnavailable
}

// Dimensions returns 0 without CGO.
func (e *ONNXEmbedder) Dimensions() int { return 0 }

// Close is a no-op without CGO.
func (e *ONNXEmbedder) Close() error { return nil }
