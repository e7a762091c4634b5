package models

// Match is a candidate item of the opposite kind with its similarity score.
type Match struct {
	Item   *Item   `json:"item"`
	Score  int     `json:"score"`
	Cosine float64 `json:"cosine"`
	Rank   int     `json:"rank"`
}

// MatchResponse is the response for a match request.
type MatchResponse struct {
	ItemID  string   `json:"item_id"`
	Matches []*Match `json:"matches"`
	Total   int      `json:"total"`
	// Degraded is set when the queried item has placeholder features and cannot be matched.
	Degraded  bool  `json:"degraded,omitempty"`
	QueryTime int64 `json:"query_time_ms"`
}

// SearchResult is a single full-text hit.
type SearchResult struct {
	Item  *Item   `json:"item"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// SearchResponse is the response for a full-text search.
type SearchResponse struct {
	Query     string          `json:"query"`
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
}

// FeatureResponse describes an extracted feature vector.
type FeatureResponse struct {
	Kind       string    `json:"kind"`
	Dimensions int       `json:"dimensions"`
	Vector     []float32 `json:"vector"`
	Reason     string    `json:"reason,omitempty"`
}

// SimilarityRequest compares two images or two precomputed vectors.
// Vectors take precedence when both vectors are present.
type SimilarityRequest struct {
	ImageA     string    `json:"image_a,omitempty"`
	ImageB     string    `json:"image_b,omitempty"`
	ImageAData []byte    `json:"image_a_data,omitempty"`
	ImageBData []byte    `json:"image_b_data,omitempty"`
	VectorA    []float32 `json:"vector_a,omitempty"`
	VectorB    []float32 `json:"vector_b,omitempty"`
}

// SimilarityResponse carries the bounded similarity percentage.
type SimilarityResponse struct {
	Score    int      `json:"score"`
	Degraded bool     `json:"degraded"`
	Reasons  []string `json:"reasons,omitempty"`
}
