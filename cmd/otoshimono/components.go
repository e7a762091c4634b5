package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/hyperjump/otoshimono/internal/config"
	"github.com/hyperjump/otoshimono/internal/embedding"
	"github.com/hyperjump/otoshimono/internal/features"
	"github.com/hyperjump/otoshimono/internal/imageload"
	"github.com/hyperjump/otoshimono/internal/keyword"
	"github.com/hyperjump/otoshimono/internal/matching"
	"github.com/hyperjump/otoshimono/internal/metrics"
	"github.com/hyperjump/otoshimono/internal/storage"
)

// Components holds initialized services.
type Components struct {
	Model        *embedding.LazyModel
	Scorer       *features.Scorer
	Storage      storage.Storage
	KeywordIndex keyword.KeywordIndex
	Registry     *matching.Registry
	Metrics      *metrics.Metrics
	Prometheus   *prometheus.Registry
}

// Close releases the model, the database, and the text index.
func (c *Components) Close() {
	if c.Model != nil {
		_ = c.Model.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

// initializeScorer builds the extraction pipeline only. The ONNX model is not opened here;
// the first extraction loads it, and when it cannot be loaded extractions return
// placeholder vectors.
func initializeScorer(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promReg)

	model := embedding.NewLazyModel(
		embedding.ONNXLoader(&cfg.Embedding),
		embedding.WithLogger(logger),
		embedding.WithLoadHook(m.ObserveModelLoad),
	)
	cache, err := embedding.NewFeatureCache(cfg.Embedding.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize feature cache: %w", err)
	}

	fetchOpts := []imageload.FetcherOption{}
	if debug {
		fetchOpts = append(fetchOpts, imageload.WithLogger(logger))
	}
	scorerOpts := []features.ScorerOption{
		features.WithCache(cache),
		features.WithMetrics(m),
		features.WithLogger(logger),
	}

	loader := imageload.NewLoader(imageload.NewFetcher(&cfg.Fetch, fetchOpts...),
		imageload.WithMaxPixels(cfg.Fetch.MaxPixels))
	scorer := features.NewScorer(loader, model, cfg.Embedding.Dimensions, scorerOpts...)

	return &Components{
		Model:      model,
		Scorer:     scorer,
		Metrics:    m,
		Prometheus: promReg,
	}, nil
}

// initializeComponents builds the scorer plus storage, the text index, and the item
// registry, and loads stored items into the vector indices.
func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	c, err := initializeScorer(cfg, logger, debug)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.KeywordIndex = keywordIndex

	regOpts := []matching.RegistryOption{matching.WithMetrics(c.Metrics)}
	if debug {
		regOpts = append(regOpts, matching.WithLogger(logger))
	}
	registry, err := matching.NewRegistry(store, c.Scorer, keywordIndex, &cfg.Matching, regOpts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize registry: %w", err)
	}
	c.Registry = registry

	n, err := registry.Rebuild(context.Background())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to load stored items: %w", err)
	}
	logger.Info("vector indices loaded",
		zap.Int("items", n),
		zap.Int("dimensions", cfg.Embedding.Dimensions))

	return c, nil
}
