// Package keyword provides full-text search over item reports.
package keyword

import (
	"context"

	"github.com/hyperjump/otoshimono/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// Kind restricts hits to lost or found items. Empty searches both.
	Kind models.Kind
	// TitleBoost multiplies the score contribution from matches in the title field.
	// Values > 1 rank title matches higher (e.g. 3.0).
	TitleBoost float64
	// FuzzyEnabled tolerates typos within Fuzziness edits (1 or 2, default 2).
	FuzzyEnabled bool
	Fuzziness    int
}

// KeywordIndex defines keyword search operations.
type KeywordIndex interface {
	Index(ctx context.Context, item *models.Item) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, id string) error
	Close() error
	// DocCount returns the total number of items in the index.
	DocCount() (uint64, error)
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    string
	Score float64
}
