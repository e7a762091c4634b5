package imageload

import (
	"context"
	"errors"
	"image"
)

var errNoFetcher = errors.New("remote image fetching is not configured")

// Loader resolves a Source into a decoded image.
type Loader struct {
	fetcher   *Fetcher
	maxPixels int64
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithMaxPixels rejects images whose header declares more than n pixels.
func WithMaxPixels(n int64) LoaderOption {
	return func(l *Loader) { l.maxPixels = n }
}

// NewLoader returns a Loader. fetcher may be nil, in which case URL sources fail to load.
func NewLoader(fetcher *Fetcher, opts ...LoaderOption) *Loader {
	l := &Loader{fetcher: fetcher, maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches (when needed) and decodes src. Every failure is a *LoadError.
func (l *Loader) Load(ctx context.Context, src Source) (image.Image, error) {
	data := src.Data
	if src.URL != "" {
		if l.fetcher == nil {
			return nil, &LoadError{Source: src.String(), Err: errNoFetcher}
		}
		fetched, err := l.fetcher.Fetch(ctx, src.URL)
		if err != nil {
			return nil, &LoadError{Source: src.String(), Err: err}
		}
		data = fetched
	}
	img, _, err := DecodeLimited(data, l.maxPixels)
	if err != nil {
		return nil, &LoadError{Source: src.String(), Err: err}
	}
	return img, nil
}
