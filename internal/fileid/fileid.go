// Package fileid derives stable identifiers for intake files and raw image payloads.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const (
	filePrefix    = "file:"
	contentPrefix = "sha256:"
	urlPrefix     = "url:"
)

// FileItemID returns a stable item ID for an intake file. Same cleaned path, same ID,
// so a rewritten file replaces its earlier report and a removed file can be deleted by path.
func FileItemID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return filePrefix + hex.EncodeToString(hash[:])
}

// ContentKey returns a cache key for raw image bytes.
func ContentKey(data []byte) string {
	hash := sha256.Sum256(data)
	return contentPrefix + hex.EncodeToString(hash[:])
}

// URLKey returns a cache key for a remote image locator. Surrounding whitespace is ignored.
func URLKey(rawURL string) string {
	return urlPrefix + strings.TrimSpace(rawURL)
}

// IsFileItemID reports whether id was produced by FileItemID.
func IsFileItemID(id string) bool {
	return strings.HasPrefix(id, filePrefix) && len(id) == len(filePrefix)+sha256.Size*2
}
