// Package cli renders otoshimono results for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/otoshimono/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates the -output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteFeatures writes an extracted feature vector. Text output shows a short preview of
// the vector rather than every component.
func WriteFeatures(w io.Writer, resp *models.FeatureResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "kind:        %s\n", resp.Kind)
	fmt.Fprintf(w, "dimensions:  %d\n", resp.Dimensions)
	if resp.Reason != "" {
		fmt.Fprintf(w, "reason:      %s\n", resp.Reason)
	}
	fmt.Fprintf(w, "vector:      %s\n", VectorPreview(resp.Vector, 8))
	return nil
}

// WriteSimilarity writes a similarity score.
func WriteSimilarity(w io.Writer, resp *models.SimilarityResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "similarity: %d%%\n", resp.Score)
	if resp.Degraded {
		fmt.Fprintln(w, "degraded:   true (score is not meaningful)")
		for _, reason := range resp.Reasons {
			fmt.Fprintf(w, "  - %s\n", reason)
		}
	}
	return nil
}

// WriteItem writes a single item report.
func WriteItem(w io.Writer, item *models.Item, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, item)
	}
	writeOneItem(w, item)
	return nil
}

// WriteItems writes a list of item reports.
func WriteItems(w io.Writer, items []*models.Item, format OutputFormat) error {
	if format == OutputJSON {
		if items == nil {
			items = []*models.Item{}
		}
		return writeJSON(w, items)
	}
	fmt.Fprintf(w, "\n%d item(s)\n\n", len(items))
	for _, item := range items {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		writeOneItem(w, item)
		fmt.Fprintln(w)
	}
	return nil
}

func writeOneItem(w io.Writer, item *models.Item) {
	fmt.Fprintf(w, "ID: %s\n", item.ID)
	fmt.Fprintf(w, "Kind: %s | Title: %s\n", item.Kind, item.Title)
	if item.Location != "" {
		fmt.Fprintf(w, "Location: %s\n", item.Location)
	}
	if item.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", TruncateWords(item.Description, 30))
	}
	if item.Placeholder {
		fmt.Fprintf(w, "Image features: unavailable (%s)\n", Truncate(item.PlaceholderReason, 120))
	}
}

// WriteMatches writes candidate matches for an item.
func WriteMatches(w io.Writer, resp *models.MatchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\nFound %d match(es) for %s in %dms\n", resp.Total, resp.ItemID, resp.QueryTime)
	if resp.Degraded {
		fmt.Fprintln(w, "Item has no usable image features; nothing to compare.")
	}
	fmt.Fprintln(w)
	for _, m := range resp.Matches {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Similarity: %d%%\n", m.Rank, m.Score)
		writeOneItem(w, m.Item)
		fmt.Fprintln(w)
	}
	return nil
}

// WriteSearchResults writes keyword search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
		writeOneItem(w, result.Item)
		fmt.Fprintln(w)
	}
	return nil
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}

// VectorPreview formats the first n components of v, e.g. "[0.1200, -0.0300, ...] (1024)".
func VectorPreview(v []float32, n int) string {
	if len(v) == 0 {
		return "[] (0)"
	}
	shown := v
	if n > 0 && len(v) > n {
		shown = v[:n]
	}
	parts := make([]string, len(shown))
	for i, x := range shown {
		parts[i] = fmt.Sprintf("%.4f", x)
	}
	if len(shown) < len(v) {
		parts = append(parts, "...")
	}
	return fmt.Sprintf("[%s] (%d)", strings.Join(parts, ", "), len(v))
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
