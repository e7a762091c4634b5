// Package imageload turns image references (URLs or raw bytes) into decoded images
// and model-ready tensor data.
package imageload

import (
	"fmt"
	"strings"

	"github.com/hyperjump/otoshimono/internal/fileid"
)

// Source is an image reference: a remote URL or raw encoded bytes. URL wins when both are set.
type Source struct {
	URL  string
	Data []byte
}

// FromURL returns a Source for a remote image.
func FromURL(rawURL string) Source {
	return Source{URL: strings.TrimSpace(rawURL)}
}

// FromBytes returns a Source for an encoded image already in memory.
func FromBytes(data []byte) Source {
	return Source{Data: data}
}

// Empty reports whether the source references no image at all.
func (s Source) Empty() bool {
	return s.URL == "" && len(s.Data) == 0
}

// Key returns a stable cache key for the source.
func (s Source) Key() string {
	if s.URL != "" {
		return fileid.URLKey(s.URL)
	}
	return fileid.ContentKey(s.Data)
}

// String describes the source for logs without dumping image bytes.
func (s Source) String() string {
	if s.URL != "" {
		return s.URL
	}
	return fmt.Sprintf("<%d bytes>", len(s.Data))
}

// LoadError reports that an image source was unreachable or undecodable.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("image load failed for %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
