package models

import "fmt"

// MatchQuery asks for candidates of the opposite kind that look like an item.
type MatchQuery struct {
	ItemID   string `json:"item_id"`
	Limit    int    `json:"limit,omitempty"`
	MinScore *int   `json:"min_score,omitempty"`
}

// Normalize fills defaults and caps the limit. minScore is the default threshold.
func (q *MatchQuery) Normalize(defaultLimit, maxLimit, minScore int) error {
	if q.ItemID == "" {
		return fmt.Errorf("%w: item id cannot be empty", ErrInvalidInput)
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.MinScore == nil {
		s := minScore
		q.MinScore = &s
	}
	if *q.MinScore < 0 || *q.MinScore > 100 {
		return fmt.Errorf("%w: min_score must be within [0, 100], got %d", ErrInvalidInput, *q.MinScore)
	}
	return nil
}

// SearchQuery is a full-text search over item reports.
type SearchQuery struct {
	Query string `json:"query"`
	Kind  Kind   `json:"kind,omitempty"`
	Limit int    `json:"limit,omitempty"`
	Fuzzy bool   `json:"fuzzy,omitempty"`
}

// Validate ensures the search query has valid fields and sets defaults.
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}
	if q.Kind != "" {
		kind, err := ParseKind(string(q.Kind))
		if err != nil {
			return err
		}
		q.Kind = kind
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}
