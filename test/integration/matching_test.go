// Package integration provides end-to-end tests over the HTTP API (requires real storage and indices).
package integration

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hyperjump/otoshimono/internal/config"
	"github.com/hyperjump/otoshimono/internal/embedding"
	"github.com/hyperjump/otoshimono/internal/features"
	"github.com/hyperjump/otoshimono/internal/imageload"
	"github.com/hyperjump/otoshimono/internal/keyword"
	"github.com/hyperjump/otoshimono/internal/matching"
	"github.com/hyperjump/otoshimono/internal/metrics"
	"github.com/hyperjump/otoshimono/internal/models"
	"github.com/hyperjump/otoshimono/internal/server"
	"github.com/hyperjump/otoshimono/internal/storage"
)

const dims = 48

// imageHost serves solid PNGs at /<name>.png for the colors it knows and 404 otherwise.
func imageHost(t *testing.T, colors map[string]color.RGBA) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".png")
		c, ok := colors[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		img := image.NewRGBA(image.Rect(0, 0, 16, 16))
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				img.Set(x, y, c)
			}
		}
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, img)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newAPI(t *testing.T, modelLoad embedding.LoadFunc) (*httptest.Server, *embedding.LazyModel) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DatabasePath:   filepath.Join(dir, "items.db"),
			BleveIndexPath: filepath.Join(dir, "bleve"),
		},
		Embedding: config.EmbeddingConfig{Dimensions: dims, CacheSize: 64},
	}
	config.ApplyDefaults(cfg)
	cfg.Fetch.MaxRetries = 0

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	kwIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kwIndex.Close() })

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	model := embedding.NewLazyModel(modelLoad, embedding.WithLoadHook(m.ObserveModelLoad))
	cache, err := embedding.NewFeatureCache(cfg.Embedding.CacheSize)
	if err != nil {
		t.Fatal(err)
	}
	fetcher := imageload.NewFetcher(&cfg.Fetch, imageload.WithRetryInterval(time.Millisecond))
	scorer := features.NewScorer(imageload.NewLoader(fetcher), model, dims,
		features.WithCache(cache), features.WithMetrics(m))
	registry, err := matching.NewRegistry(store, scorer, kwIndex, &cfg.Matching, matching.WithMetrics(m))
	if err != nil {
		t.Fatal(err)
	}
	srv := server.NewServer(scorer, registry, cfg, zap.NewNop(),
		server.WithModelStatus(model), server.WithMetrics(m, reg))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, model
}

func mockModel() (embedding.Embedder, error) {
	return embedding.NewMockEmbedder(dims), nil
}

func postJSON(t *testing.T, url string, in, out interface{}) int {
	t.Helper()
	body, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestIntegration_ReportAndMatchByURL(t *testing.T) {
	images := imageHost(t, map[string]color.RGBA{
		"red":  {R: 255, A: 255},
		"blue": {B: 255, A: 255},
	})
	api, model := newAPI(t, mockModel)

	var lost models.Item
	if code := postJSON(t, api.URL+"/api/v1/items", &models.ItemInput{
		Kind: models.KindLost, Title: "Red scarf", ImageURL: images.URL + "/red.png",
	}, &lost); code != http.StatusCreated {
		t.Fatalf("report lost: status %d", code)
	}
	if lost.Placeholder {
		t.Fatalf("lost item has placeholder features: %s", lost.PlaceholderReason)
	}

	found := map[string]string{}
	for _, name := range []string{"red", "blue"} {
		var item models.Item
		postJSON(t, api.URL+"/api/v1/items", &models.ItemInput{
			Kind: models.KindFound, Title: name + " scarf", ImageURL: images.URL + "/" + name + ".png",
		}, &item)
		found[name] = item.ID
	}

	var matches models.MatchResponse
	if code := getJSON(t, api.URL+"/api/v1/items/"+lost.ID+"/matches", &matches); code != http.StatusOK {
		t.Fatalf("matches: status %d", code)
	}
	if matches.Total != 1 || matches.Matches[0].Item.ID != found["red"] || matches.Matches[0].Score != 100 {
		t.Errorf("matches = %+v", matches)
	}

	getJSON(t, api.URL+"/api/v1/items/"+lost.ID+"/matches?min_score=0", &matches)
	if matches.Total != 2 || matches.Matches[1].Item.ID != found["blue"] || matches.Matches[1].Score != 0 {
		t.Errorf("matches with min_score=0 = %+v", matches)
	}

	if !model.Loaded() || model.Attempts() != 1 {
		t.Errorf("model loaded=%v attempts=%d, want one shared load", model.Loaded(), model.Attempts())
	}
}

func TestIntegration_UnreachableImageDegrades(t *testing.T) {
	images := imageHost(t, map[string]color.RGBA{"red": {R: 255, A: 255}})
	api, _ := newAPI(t, mockModel)

	var feat models.FeatureResponse
	if code := postJSON(t, api.URL+"/api/v1/features", map[string]string{"image_url": images.URL + "/missing.png"}, &feat); code != http.StatusOK {
		t.Fatalf("features: status %d", code)
	}
	if feat.Kind != "placeholder" || len(feat.Vector) != dims {
		t.Errorf("features = kind %s, %d values; want placeholder of %d", feat.Kind, len(feat.Vector), dims)
	}

	var sim models.SimilarityResponse
	postJSON(t, api.URL+"/api/v1/similarity", &models.SimilarityRequest{
		ImageA: images.URL + "/red.png",
		ImageB: images.URL + "/missing.png",
	}, &sim)
	if sim.Score != 0 || !sim.Degraded || len(sim.Reasons) != 1 || !strings.HasPrefix(sim.Reasons[0], "image_b: ") {
		t.Errorf("similarity = %+v", sim)
	}

	var lost models.Item
	postJSON(t, api.URL+"/api/v1/items", &models.ItemInput{
		Kind: models.KindLost, Title: "Phone", ImageURL: images.URL + "/missing.png",
	}, &lost)
	if !lost.Placeholder || lost.PlaceholderReason == "" {
		t.Fatalf("expected placeholder item, got %+v", lost)
	}
	var matches models.MatchResponse
	getJSON(t, api.URL+"/api/v1/items/"+lost.ID+"/matches", &matches)
	if !matches.Degraded || matches.Total != 0 {
		t.Errorf("matches for placeholder item = %+v", matches)
	}
}

func TestIntegration_ModelUnavailable(t *testing.T) {
	images := imageHost(t, map[string]color.RGBA{"red": {R: 255, A: 255}})
	loads := 0
	api, model := newAPI(t, func() (embedding.Embedder, error) {
		loads++
		if loads == 1 {
			return nil, errors.New("model file not found")
		}
		return embedding.NewMockEmbedder(dims), nil
	})

	var sim models.SimilarityResponse
	postJSON(t, api.URL+"/api/v1/similarity", &models.SimilarityRequest{
		ImageA: images.URL + "/red.png",
		ImageB: images.URL + "/red.png",
	}, &sim)
	if sim.Score != 0 || !sim.Degraded {
		t.Errorf("similarity without a model = %+v, want degraded 0", sim)
	}

	// The failed load is not cached; the next request loads the model.
	postJSON(t, api.URL+"/api/v1/similarity", &models.SimilarityRequest{
		ImageA: images.URL + "/red.png",
		ImageB: images.URL + "/red.png",
	}, &sim)
	if sim.Score != 100 || sim.Degraded {
		t.Errorf("similarity after model recovery = %+v, want 100", sim)
	}
	if !model.Loaded() {
		t.Error("model should be loaded after retry")
	}
}

func TestIntegration_VectorSimilarity(t *testing.T) {
	api, _ := newAPI(t, mockModel)
	tests := []struct {
		a, b []float32
		want int
	}{
		{[]float32{1, 0, 0}, []float32{1, 0, 0}, 100},
		{[]float32{1, 0}, []float32{0, 1}, 0},
		{[]float32{1, 1}, []float32{1, 1}, 100},
		{[]float32{0, 0}, []float32{1, 1}, 0},
		{[]float32{1, 0}, []float32{-1, 0}, 0},
	}
	for _, tt := range tests {
		var sim models.SimilarityResponse
		postJSON(t, api.URL+"/api/v1/similarity", &models.SimilarityRequest{VectorA: tt.a, VectorB: tt.b}, &sim)
		if sim.Score != tt.want {
			t.Errorf("similarity(%v, %v) = %d, want %d", tt.a, tt.b, sim.Score, tt.want)
		}
	}
}
