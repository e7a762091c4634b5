package features

import (
	"context"
	"fmt"
	"image"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/otoshimono/internal/embedding"
	"github.com/hyperjump/otoshimono/internal/imageload"
	"github.com/hyperjump/otoshimono/internal/metrics"
	"github.com/hyperjump/otoshimono/internal/vector"
	"github.com/hyperjump/otoshimono/pkg/utils"
)

// ImageLoader resolves an image source into a decoded image.
type ImageLoader interface {
	Load(ctx context.Context, src imageload.Source) (image.Image, error)
}

// ModelProvider hands out the shared embedding model, loading it on first use.
type ModelProvider interface {
	Get(ctx context.Context) (embedding.Embedder, error)
}

// Scorer extracts feature vectors and scores them.
type Scorer struct {
	loader  ImageLoader
	models  ModelProvider
	dims    int
	cache   *embedding.FeatureCache
	group   singleflight.Group
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithLogger sets the logger used for degraded-mode warnings.
func WithLogger(l *zap.Logger) ScorerOption {
	return func(s *Scorer) { s.logger = l }
}

// WithCache caches real vectors by source key.
func WithCache(c *embedding.FeatureCache) ScorerOption {
	return func(s *Scorer) { s.cache = c }
}

// WithMetrics records extraction outcomes and scores.
func WithMetrics(m *metrics.Metrics) ScorerOption {
	return func(s *Scorer) { s.metrics = m }
}

// NewScorer creates a Scorer producing vectors of length dims.
func NewScorer(loader ImageLoader, models ModelProvider, dims int, opts ...ScorerOption) *Scorer {
	s := &Scorer{loader: loader, models: models, dims: dims, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dimensions returns the vector length every Result carries.
func (s *Scorer) Dimensions() int {
	return s.dims
}

// Extract returns the feature vector of src. It never fails: any load, model, or
// validation error yields a Placeholder of the configured dimension. Concurrent
// extractions of the same source share one model run.
func (s *Scorer) Extract(ctx context.Context, src imageload.Source) Result {
	start := time.Now()
	if src.Empty() {
		return s.placeholder(start, src, fmt.Errorf("no image source given"))
	}
	key := src.Key()
	if s.cache != nil {
		if vec, ok := s.cache.Get(key); ok {
			s.metrics.ObserveExtraction(metrics.OutcomeCached, time.Since(start))
			return Result{Kind: Real, Vector: slices.Clone(vec)}
		}
	}

	// The shared run outlives any single caller; each caller stops waiting on its own ctx.
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		return s.extract(detached, src)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return s.placeholder(start, src, ctx.Err())
	}
	if res.Err != nil {
		return s.placeholder(start, src, res.Err)
	}
	vec := res.Val.([]float32)
	if s.cache != nil {
		s.cache.Set(key, vec)
	}
	s.logger.Debug("features extracted",
		zap.Stringer("source", src),
		zap.Bool("shared", res.Shared),
		zap.Duration("elapsed", time.Since(start)))
	s.metrics.ObserveExtraction(metrics.OutcomeReal, time.Since(start))
	return Result{Kind: Real, Vector: slices.Clone(vec)}
}

func (s *Scorer) extract(ctx context.Context, src imageload.Source) (vec []float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			vec, err = nil, fmt.Errorf("panic during extraction: %v", r)
		}
	}()
	if s.loader == nil || s.models == nil {
		return nil, fmt.Errorf("scorer is not configured with a loader and a model")
	}
	img, err := s.loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	model, err := s.models.Get(ctx)
	if err != nil {
		return nil, err
	}
	vec, err = model.Embed(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if s.dims > 0 && len(vec) != s.dims {
		return nil, &vector.DimensionMismatchError{Left: len(vec), Right: s.dims}
	}
	if len(vec) == 0 || !utils.AllFinite(vec) {
		return nil, fmt.Errorf("model produced an empty or non-finite vector")
	}
	return vec, nil
}

func (s *Scorer) placeholder(start time.Time, src imageload.Source, err error) Result {
	s.logger.Warn("feature extraction degraded to placeholder",
		zap.Stringer("source", src),
		zap.Error(err))
	s.metrics.ObserveExtraction(metrics.OutcomePlaceholder, time.Since(start))
	return NewPlaceholder(s.dims, err.Error())
}

// Compare extracts both sources concurrently and scores them.
func (s *Scorer) Compare(ctx context.Context, a, b imageload.Source) Comparison {
	var c Comparison
	var g errgroup.Group
	g.Go(func() error {
		c.A = s.Extract(ctx, a)
		return nil
	})
	g.Go(func() error {
		c.B = s.Extract(ctx, b)
		return nil
	})
	_ = g.Wait()

	if c.A.IsPlaceholder() || c.B.IsPlaceholder() {
		c.Degraded = true
		return c
	}
	c.Score = s.CompareVectors(c.A.Vector, c.B.Vector)
	return c
}

// CompareVectors scores two precomputed vectors in [0, 100].
// Empty, zero, non-finite, or mismatched vectors score 0.
func (s *Scorer) CompareVectors(a, b []float32) int {
	score := vector.Score(a, b)
	s.metrics.ObserveScore(score)
	return score
}
