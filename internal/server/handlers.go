package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/otoshimono/internal/config"
	"github.com/hyperjump/otoshimono/internal/imageload"
	"github.com/hyperjump/otoshimono/internal/models"
	"github.com/hyperjump/otoshimono/internal/storage"
	"github.com/hyperjump/otoshimono/internal/vector"
)

const defaultMaxBodyBytes = 20 << 20

type featuresRequest struct {
	ImageURL  string `json:"image_url"`
	ImageData []byte `json:"image_data"`
}

// handleExtractFeatures accepts {"image_url"} / {"image_data"} as JSON, or raw image bytes
// with any other content type. It answers 200 with a real or placeholder vector.
func (s *Server) handleExtractFeatures(w http.ResponseWriter, r *http.Request) {
	var src imageload.Source
	if isJSON(r) {
		var req featuresRequest
		if !s.decodeJSONBody(w, r, &req) {
			return
		}
		src = sourceOf(req.ImageURL, req.ImageData)
	} else {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes()))
		if err != nil {
			s.respondError(w, http.StatusRequestEntityTooLarge, "image body too large")
			return
		}
		src = imageload.FromBytes(data)
	}
	if src.Empty() {
		s.respondError(w, http.StatusBadRequest, "image_url, image_data, or a raw image body is required")
		return
	}
	result := s.scorer.Extract(r.Context(), src)
	s.respondJSON(w, http.StatusOK, &models.FeatureResponse{
		Kind:       string(result.Kind),
		Dimensions: result.Dimensions(),
		Vector:     result.Vector,
		Reason:     result.Reason,
	})
}

// handleSimilarity scores two images or two vectors. Vectors win when both are given.
func (s *Server) handleSimilarity(w http.ResponseWriter, r *http.Request) {
	var req models.SimilarityRequest
	if !s.decodeJSONBody(w, r, &req) {
		return
	}
	if req.VectorA != nil || req.VectorB != nil {
		resp := &models.SimilarityResponse{Score: s.scorer.CompareVectors(req.VectorA, req.VectorB)}
		if _, err := vector.Cosine(req.VectorA, req.VectorB); err != nil {
			resp.Degraded = true
			resp.Reasons = []string{err.Error()}
		}
		s.respondJSON(w, http.StatusOK, resp)
		return
	}
	a := sourceOf(req.ImageA, req.ImageAData)
	b := sourceOf(req.ImageB, req.ImageBData)
	if a.Empty() || b.Empty() {
		s.respondError(w, http.StatusBadRequest, "two images (image_a, image_b) or two vectors (vector_a, vector_b) are required")
		return
	}
	cmp := s.scorer.Compare(r.Context(), a, b)
	s.respondJSON(w, http.StatusOK, &models.SimilarityResponse{
		Score:    cmp.Score,
		Degraded: cmp.Degraded,
		Reasons:  cmp.Reasons(),
	})
}

func (s *Server) handleReportItem(w http.ResponseWriter, r *http.Request) {
	var input models.ItemInput
	if !s.decodeJSONBody(w, r, &input) {
		return
	}
	s.logger.Debug("report item request", zap.String("id", input.ID), zap.String("kind", string(input.Kind)), zap.String("title", input.Title))
	item, err := s.registry.Report(r.Context(), &input)
	if err != nil {
		s.respondRegistryError(w, "report failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, item)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var kind models.Kind
	if k := q.Get("kind"); k != "" {
		parsed, err := models.ParseKind(k)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		kind = parsed
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	items, err := s.registry.List(r.Context(), kind, offset, limit)
	if err != nil {
		s.respondRegistryError(w, "list failed", err)
		return
	}
	if items == nil {
		items = []*models.Item{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"items": items, "offset": offset})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondRegistryError(w, "get failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete item request", zap.String("id", id))
	if err := s.registry.Delete(r.Context(), id); err != nil {
		s.respondRegistryError(w, "deletion failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleFindMatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := &models.MatchQuery{ItemID: chi.URLParam(r, "id")}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		query.Limit = n
	}
	if v := q.Get("min_score"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "min_score must be an integer")
			return
		}
		query.MinScore = &n
	}
	resp, err := s.registry.FindMatches(r.Context(), query)
	if err != nil {
		s.respondRegistryError(w, "match failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := &models.SearchQuery{Query: q.Get("q"), Kind: models.Kind(q.Get("kind"))}
	query.Limit, _ = strconv.Atoi(q.Get("limit"))
	query.Fuzzy, _ = strconv.ParseBool(q.Get("fuzzy"))
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	resp, err := s.registry.Search(r.Context(), query)
	if err != nil {
		s.respondRegistryError(w, "search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.registry.Stats(r.Context())
	if err != nil {
		s.logger.Error("status: stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"items": stats,
	}
	if s.model != nil {
		model := map[string]interface{}{
			"loaded":   s.model.Loaded(),
			"attempts": s.model.Attempts(),
		}
		if err := s.model.LastError(); err != nil {
			model["last_error"] = err.Error()
		}
		resp["model"] = model
	}
	if s.config != nil {
		s.configMu.Lock()
		resp["config"] = map[string]interface{}{
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"image_size":           s.config.Embedding.ImageSize,
			"model_path":           s.config.Embedding.ModelPath,
			"min_score":            s.config.Matching.MinScore,
			"database_path":        s.config.Storage.DatabasePath,
			"bleve_index_path":     s.config.Storage.BleveIndexPath,
		}
		paths := append(storage.DatabaseFiles(s.config.Storage.DatabasePath), s.config.Storage.BleveIndexPath)
		s.configMu.Unlock()
		if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if !s.decodeJSONBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistWatchDirectories writes the current intake directories back to the config file.
func (s *Server) persistWatchDirectories() {
	if s.configPath == "" || s.config == nil {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) maxBodyBytes() int64 {
	if s.config != nil && s.config.Fetch.MaxBytes > 0 {
		return s.config.Fetch.MaxBytes
	}
	return defaultMaxBodyBytes
}

// maxJSONBodyBytes leaves room for two base64-encoded images of maxBodyBytes each.
func (s *Server) maxJSONBodyBytes() int64 {
	return 3 * s.maxBodyBytes()
}

// decodeJSONBody decodes a size-limited JSON body into v. On failure it has already
// answered 413 or 400 and returns false.
func (s *Server) decodeJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxJSONBodyBytes())).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	s.respondError(w, http.StatusBadRequest, "invalid request body")
	return false
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func sourceOf(url string, data []byte) imageload.Source {
	if len(data) > 0 {
		return imageload.FromBytes(data)
	}
	return imageload.FromURL(url)
}

// respondRegistryError maps registry errors to status codes: 404 for unknown items,
// 400 for invalid input, 500 otherwise.
func (s *Server) respondRegistryError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(msg, zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
