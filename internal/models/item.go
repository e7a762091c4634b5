// Package models defines the lost & found items, match results, and API payloads.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidInput marks errors caused by a malformed report or query.
var ErrInvalidInput = errors.New("invalid input")

// Kind says whether an item was reported lost or found.
type Kind string

const (
	KindLost  Kind = "lost"
	KindFound Kind = "found"
)

// ParseKind parses a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindLost:
		return KindLost, nil
	case KindFound:
		return KindFound, nil
	default:
		return "", fmt.Errorf("%w: item kind %q (want lost or found)", ErrInvalidInput, s)
	}
}

// Opposite returns the kind an item of kind k is matched against.
func (k Kind) Opposite() Kind {
	if k == KindLost {
		return KindFound
	}
	return KindLost
}

// Item is a lost or found report. Features is set once at report time and never mutated;
// when extraction degraded, Placeholder is true and Features is non-semantic.
type Item struct {
	ID                string    `json:"id" db:"id"`
	Kind              Kind      `json:"kind" db:"kind"`
	Title             string    `json:"title" db:"title"`
	Description       string    `json:"description,omitempty" db:"description"`
	Location          string    `json:"location,omitempty" db:"location"`
	ImageURL          string    `json:"image_url,omitempty" db:"image_url"`
	Features          []float32 `json:"-" db:"features"`
	Placeholder       bool      `json:"placeholder" db:"placeholder"`
	PlaceholderReason string    `json:"placeholder_reason,omitempty" db:"placeholder_reason"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Matchable reports whether the item carries a genuine feature vector.
func (i *Item) Matchable() bool {
	return !i.Placeholder && len(i.Features) > 0
}

// ItemInput is the input for reporting an item. ImageData is base64 in JSON.
type ItemInput struct {
	ID          string `json:"id,omitempty"`
	Kind        Kind   `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	ImageData   []byte `json:"image_data,omitempty"`
}

// Validate normalizes the input and rejects unusable reports.
func (in *ItemInput) Validate() error {
	kind, err := ParseKind(string(in.Kind))
	if err != nil {
		return err
	}
	in.Kind = kind
	in.Title = strings.TrimSpace(in.Title)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.Title == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
	}
	return nil
}
