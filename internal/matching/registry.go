// Package matching keeps lost and found reports and pairs them by image similarity.
package matching

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/otoshimono/internal/config"
	"github.com/hyperjump/otoshimono/internal/features"
	"github.com/hyperjump/otoshimono/internal/fileid"
	"github.com/hyperjump/otoshimono/internal/imageload"
	"github.com/hyperjump/otoshimono/internal/keyword"
	"github.com/hyperjump/otoshimono/internal/metrics"
	"github.com/hyperjump/otoshimono/internal/models"
	"github.com/hyperjump/otoshimono/internal/storage"
	"github.com/hyperjump/otoshimono/internal/vector"
)

const rebuildPageSize = 500

// Extractor turns image sources into tagged feature vectors.
type Extractor interface {
	Extract(ctx context.Context, src imageload.Source) features.Result
	Dimensions() int
}

// Registry stores items, indexes their text and feature vectors, and finds matches.
// Lost items are matched against the found index and vice versa.
type Registry struct {
	storage      storage.Storage
	extractor    Extractor
	keywordIndex keyword.KeywordIndex
	indices      map[models.Kind]vector.VectorIndex
	config       *config.MatchingConfig
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets a logger for report, delete, and rebuild events.
func WithLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithMetrics records indexed item counts and match scores.
func WithMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates a registry with empty per-kind vector indices sized to the
// extractor's dimension. Call Rebuild to load previously stored items.
func NewRegistry(
	storage storage.Storage,
	extractor Extractor,
	keywordIndex keyword.KeywordIndex,
	cfg *config.MatchingConfig,
	opts ...RegistryOption,
) (*Registry, error) {
	r := &Registry{
		storage:      storage,
		extractor:    extractor,
		keywordIndex: keywordIndex,
		indices:      make(map[models.Kind]vector.VectorIndex, 2),
		config:       cfg,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, kind := range []models.Kind{models.KindLost, models.KindFound} {
		idx, err := vector.NewMemoryIndex(extractor.Dimensions())
		if err != nil {
			return nil, fmt.Errorf("failed to create %s index: %w", kind, err)
		}
		r.indices[kind] = idx
	}
	return r, nil
}

// Report stores a lost or found item. Feature extraction never fails the report: an item
// whose image cannot be used is stored with placeholder features and is never matched.
// Reporting an existing ID replaces that item.
func (r *Registry) Report(ctx context.Context, input *models.ItemInput) (*models.Item, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	id := input.ID
	if id == "" {
		id = uuid.New().String()
	}

	src := imageload.FromURL(input.ImageURL)
	if len(input.ImageData) > 0 {
		src = imageload.FromBytes(input.ImageData)
	}
	result := r.extractor.Extract(ctx, src)

	item := &models.Item{
		ID:                id,
		Kind:              input.Kind,
		Title:             input.Title,
		Description:       input.Description,
		Location:          input.Location,
		ImageURL:          input.ImageURL,
		Features:          result.Vector,
		Placeholder:       result.IsPlaceholder(),
		PlaceholderReason: result.Reason,
	}
	if err := r.storage.SaveItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to store item: %w", err)
	}
	if err := r.index(ctx, item, item.Matchable()); err != nil {
		return nil, err
	}
	r.updateGauges()
	r.logger.Debug("item reported",
		zap.String("id", item.ID),
		zap.String("kind", string(item.Kind)),
		zap.Bool("placeholder", item.Placeholder))
	return item, nil
}

// index puts item into the keyword index and, when withVector is set, the vector index
// of its kind. Stale entries under the same ID are removed from both kinds.
func (r *Registry) index(ctx context.Context, item *models.Item, withVector bool) error {
	if err := r.keywordIndex.Index(ctx, item); err != nil {
		return fmt.Errorf("failed to index keywords: %w", err)
	}
	for _, idx := range r.indices {
		if err := idx.Remove(ctx, []string{item.ID}); err != nil {
			return fmt.Errorf("failed to remove stale vector: %w", err)
		}
	}
	if !withVector {
		return nil
	}
	idx, ok := r.indices[item.Kind]
	if !ok {
		return fmt.Errorf("unknown item kind %q", item.Kind)
	}
	if err := idx.Add(ctx, []string{item.ID}, [][]float32{item.Features}); err != nil {
		return fmt.Errorf("failed to index vector: %w", err)
	}
	return nil
}

// ReportFile reports an intake image file as a found item. The item ID is derived from
// the absolute path so a rewritten file replaces its earlier report.
func (r *Registry) ReportFile(ctx context.Context, path string) (*models.Item, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return r.Report(ctx, &models.ItemInput{
		ID:        fileid.FileItemID(absPath),
		Kind:      models.KindFound,
		Title:     filepath.Base(absPath),
		Location:  filepath.Dir(absPath),
		ImageData: data,
	})
}

// RemoveFile deletes the item reported for an intake file. Unknown files are ignored.
func (r *Registry) RemoveFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	if err := r.Delete(ctx, fileid.FileItemID(absPath)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// Get returns a stored item.
func (r *Registry) Get(ctx context.Context, id string) (*models.Item, error) {
	return r.storage.GetItem(ctx, id)
}

// List returns stored items newest first. An empty kind lists both kinds.
func (r *Registry) List(ctx context.Context, kind models.Kind, offset, limit int) ([]*models.Item, error) {
	if limit <= 0 {
		limit = r.config.DefaultLimit
	}
	if limit > r.config.MaxLimit {
		limit = r.config.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return r.storage.ListItems(ctx, kind, offset, limit)
}

// Delete removes an item from all indices and storage.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.keywordIndex.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete from keyword index: %w", err)
	}
	for _, idx := range r.indices {
		if err := idx.Remove(ctx, []string{id}); err != nil {
			return fmt.Errorf("failed to delete from vector index: %w", err)
		}
	}
	if err := r.storage.DeleteItem(ctx, id); err != nil {
		return err
	}
	r.updateGauges()
	r.logger.Debug("item deleted", zap.String("id", id))
	return nil
}

// FindMatches returns items of the opposite kind whose similarity to the queried item is
// at least the query's minimum score, best first. An item without real features has no
// matches and the response is marked degraded.
func (r *Registry) FindMatches(ctx context.Context, query *models.MatchQuery) (*models.MatchResponse, error) {
	start := time.Now()
	if err := query.Normalize(r.config.DefaultLimit, r.config.MaxLimit, r.config.MinScore); err != nil {
		return nil, err
	}
	item, err := r.storage.GetItem(ctx, query.ItemID)
	if err != nil {
		return nil, err
	}
	resp := &models.MatchResponse{ItemID: item.ID, Matches: []*models.Match{}}
	if !item.Matchable() {
		resp.Degraded = true
		resp.QueryTime = time.Since(start).Milliseconds()
		return resp, nil
	}

	hits, err := r.indices[item.Kind.Opposite()].Search(ctx, item.Features, query.Limit)
	var dimErr *vector.DimensionMismatchError
	if errors.As(err, &dimErr) {
		// Stored under a model with a different output size; it cannot be compared.
		r.logger.Warn("item features do not match the current model",
			zap.String("id", item.ID), zap.Error(err))
		resp.Degraded = true
		resp.QueryTime = time.Since(start).Milliseconds()
		return resp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	minScore := *query.MinScore
	for _, hit := range hits {
		r.metrics.ObserveScore(hit.Score)
		if hit.Score < minScore {
			break
		}
		candidate, err := r.storage.GetItem(ctx, hit.ID)
		if err != nil {
			r.logger.Debug("skipping indexed item missing from storage", zap.String("id", hit.ID), zap.Error(err))
			continue
		}
		resp.Matches = append(resp.Matches, &models.Match{
			Item:   candidate,
			Score:  hit.Score,
			Cosine: hit.Cosine,
			Rank:   len(resp.Matches) + 1,
		})
	}
	resp.Total = len(resp.Matches)
	resp.QueryTime = time.Since(start).Milliseconds()
	return resp, nil
}

// Search runs a full-text search over item titles, descriptions, and locations.
func (r *Registry) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := query.Validate(); err != nil {
		return nil, err
	}
	hits, err := r.keywordIndex.Search(ctx, query.Query, query.Limit, &keyword.SearchOptions{
		Kind:         query.Kind,
		TitleBoost:   2.0,
		FuzzyEnabled: query.Fuzzy,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	resp := &models.SearchResponse{Query: query.Query, Results: []*models.SearchResult{}}
	for _, hit := range hits {
		item, err := r.storage.GetItem(ctx, hit.ID)
		if err != nil {
			continue
		}
		resp.Results = append(resp.Results, &models.SearchResult{
			Item:  item,
			Score: hit.Score,
			Rank:  len(resp.Results) + 1,
		})
	}
	resp.Total = len(resp.Results)
	resp.QueryTime = time.Since(start).Milliseconds()
	return resp, nil
}

// Rebuild loads every stored item into the keyword and vector indices. Items whose
// features have a different length than the current model are kept out of the vector
// index. Returns the number of items with matchable features.
func (r *Registry) Rebuild(ctx context.Context) (int, error) {
	dims := r.extractor.Dimensions()
	matchable := 0
	for offset := 0; ; offset += rebuildPageSize {
		items, err := r.storage.ListItems(ctx, "", offset, rebuildPageSize)
		if err != nil {
			return matchable, fmt.Errorf("failed to list items: %w", err)
		}
		for _, item := range items {
			withVector := item.Matchable()
			if withVector && len(item.Features) != dims {
				r.logger.Warn("skipping item with stale features",
					zap.String("id", item.ID),
					zap.Int("dimensions", len(item.Features)),
					zap.Int("want", dims))
				withVector = false
			}
			if err := r.index(ctx, item, withVector); err != nil {
				return matchable, err
			}
			if withVector {
				matchable++
			}
		}
		if len(items) < rebuildPageSize {
			break
		}
	}
	r.updateGauges()
	r.logger.Info("match index rebuilt", zap.Int("matchable", matchable))
	return matchable, nil
}

// Stats summarizes stored and indexed items.
type Stats struct {
	Lost         int64 `json:"lost"`
	Found        int64 `json:"found"`
	Placeholders int64 `json:"placeholders"`
	IndexedLost  int   `json:"indexed_lost"`
	IndexedFound int   `json:"indexed_found"`
	Dimensions   int   `json:"dimensions"`
}

// Stats returns item counts from storage and the vector indices.
func (r *Registry) Stats(ctx context.Context) (*Stats, error) {
	lost, err := r.storage.CountItems(ctx, models.KindLost)
	if err != nil {
		return nil, err
	}
	found, err := r.storage.CountItems(ctx, models.KindFound)
	if err != nil {
		return nil, err
	}
	placeholders, err := r.storage.CountPlaceholders(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Lost:         lost,
		Found:        found,
		Placeholders: placeholders,
		IndexedLost:  r.indices[models.KindLost].Size(),
		IndexedFound: r.indices[models.KindFound].Size(),
		Dimensions:   r.extractor.Dimensions(),
	}, nil
}

func (r *Registry) updateGauges() {
	for kind, idx := range r.indices {
		r.metrics.SetIndexedItems(string(kind), idx.Size())
	}
}
