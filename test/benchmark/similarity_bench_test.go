package benchmark

import (
	"context"
	"image"
	"image/color"
	"math/rand"
	"strconv"
	"testing"

	"github.com/hyperjump/otoshimono/internal/embedding"
	"github.com/hyperjump/otoshimono/internal/imageload"
	"github.com/hyperjump/otoshimono/internal/vector"
)

const benchDims = 1024

func randomVectors(n int) [][]float32 {
	r := rand.New(rand.NewSource(1))
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = make([]float32, benchDims)
		for j := range vecs[i] {
			vecs[i][j] = r.Float32()
		}
	}
	return vecs
}

func testImage(size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

func BenchmarkScore(b *testing.B) {
	vecs := randomVectors(2)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = vector.Score(vecs[0], vecs[1])
	}
}

func BenchmarkMemoryIndexSearch(b *testing.B) {
	idx, _ := vector.NewMemoryIndex(benchDims)
	ctx := context.Background()
	vecs := randomVectors(1000)
	ids := make([]string, len(vecs))
	for i := range ids {
		ids[i] = "item-" + strconv.Itoa(i)
	}
	_ = idx.Add(ctx, ids, vecs)
	query := randomVectors(1)[0]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 10)
	}
}

func BenchmarkPreprocess(b *testing.B) {
	img := testImage(640)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = imageload.Preprocess(img, 224)
	}
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := embedding.NewMockEmbedder(benchDims)
	img := testImage(224)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, img)
	}
}
