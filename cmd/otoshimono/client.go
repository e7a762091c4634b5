package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/otoshimono/internal/models"
)

// apiClient talks to a running otoshimono server. Client commands use it by default so
// they do not contend with the server for the SQLite and Bleve locks.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *apiClient) do(method, path, contentType string, body io.Reader, wantStatus int, out interface{}) error {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *apiClient) postJSON(path string, in interface{}, wantStatus int, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(http.MethodPost, path, "application/json", bytes.NewReader(body), wantStatus, out)
}

func (c *apiClient) get(path string, out interface{}) error {
	return c.do(http.MethodGet, path, "", nil, http.StatusOK, out)
}

func (c *apiClient) features(img imageArg) (*models.FeatureResponse, error) {
	var out models.FeatureResponse
	var err error
	if img.URL != "" {
		err = c.postJSON("/api/v1/features", map[string]string{"image_url": img.URL}, http.StatusOK, &out)
	} else {
		err = c.do(http.MethodPost, "/api/v1/features", "application/octet-stream", bytes.NewReader(img.Data), http.StatusOK, &out)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) similarity(a, b imageArg) (*models.SimilarityResponse, error) {
	req := &models.SimilarityRequest{
		ImageA: a.URL, ImageAData: a.Data,
		ImageB: b.URL, ImageBData: b.Data,
	}
	var out models.SimilarityResponse
	if err := c.postJSON("/api/v1/similarity", req, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) report(input *models.ItemInput) (*models.Item, error) {
	var out models.Item
	if err := c.postJSON("/api/v1/items", input, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) matches(q *models.MatchQuery) (*models.MatchResponse, error) {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.MinScore != nil {
		v.Set("min_score", strconv.Itoa(*q.MinScore))
	}
	path := "/api/v1/items/" + url.PathEscape(q.ItemID) + "/matches"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var out models.MatchResponse
	if err := c.get(path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) search(q *models.SearchQuery) (*models.SearchResponse, error) {
	v := url.Values{"q": {q.Query}}
	if q.Kind != "" {
		v.Set("kind", string(q.Kind))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Fuzzy {
		v.Set("fuzzy", "true")
	}
	var out models.SearchResponse
	if err := c.get("/api/v1/search?"+v.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) listItems(kind models.Kind, offset, limit int) ([]*models.Item, error) {
	v := url.Values{}
	if kind != "" {
		v.Set("kind", string(kind))
	}
	if offset > 0 {
		v.Set("offset", strconv.Itoa(offset))
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Items []*models.Item `json:"items"`
	}
	if err := c.get("/api/v1/items?"+v.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *apiClient) deleteItem(id string) error {
	return c.do(http.MethodDelete, "/api/v1/items/"+url.PathEscape(id), "", nil, http.StatusOK, nil)
}

func (c *apiClient) status() (*statusResponse, error) {
	var out statusResponse
	if err := c.get("/api/v1/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// imageArg is a command-line image reference: an http(s) URL or a local file read into memory.
type imageArg struct {
	URL  string
	Data []byte
}

func parseImageArg(arg string) (imageArg, error) {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return imageArg{URL: arg}, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return imageArg{}, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return imageArg{}, fmt.Errorf("read image: %s is empty", arg)
	}
	return imageArg{Data: data}, nil
}
