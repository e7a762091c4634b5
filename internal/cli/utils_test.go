package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/otoshimono/internal/models"
)

func sampleItem(id string, kind models.Kind) *models.Item {
	return &models.Item{
		ID:        id,
		Kind:      kind,
		Title:     "Black umbrella",
		Location:  "Platform 3",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"json", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteFeatures(t *testing.T) {
	resp := &models.FeatureResponse{
		Kind:       "placeholder",
		Dimensions: 10,
		Vector:     make([]float32, 10),
		Reason:     "fetch failed",
	}
	var buf bytes.Buffer
	if err := WriteFeatures(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"placeholder", "dimensions:  10", "fetch failed", "...] (10)"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}

	buf.Reset()
	if err := WriteFeatures(&buf, resp, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.FeatureResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(decoded.Vector) != 10 || decoded.Kind != "placeholder" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteSimilarity(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteSimilarity(&buf, &models.SimilarityResponse{Score: 87}, OutputText)
	if !strings.Contains(buf.String(), "87%") || strings.Contains(buf.String(), "degraded") {
		t.Errorf("unexpected output: %q", buf.String())
	}

	buf.Reset()
	_ = WriteSimilarity(&buf, &models.SimilarityResponse{Degraded: true, Reasons: []string{"image_b: decode failed"}}, OutputText)
	if !strings.Contains(buf.String(), "degraded") || !strings.Contains(buf.String(), "image_b: decode failed") {
		t.Errorf("degraded output missing reasons: %q", buf.String())
	}
}

func TestWriteMatches_text(t *testing.T) {
	resp := &models.MatchResponse{
		ItemID:    "lost-1",
		Total:     1,
		QueryTime: 3,
		Matches:   []*models.Match{{Item: sampleItem("found-1", models.KindFound), Score: 91, Rank: 1}},
	}
	var buf bytes.Buffer
	if err := WriteMatches(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 1 match(es) for lost-1", "Rank: 1 | Similarity: 91%", "ID: found-1", "Platform 3"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteMatches_degraded(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteMatches(&buf, &models.MatchResponse{ItemID: "x", Degraded: true}, OutputText)
	if !strings.Contains(buf.String(), "no usable image features") {
		t.Errorf("expected degraded note, got %q", buf.String())
	}
}

func TestWriteItems(t *testing.T) {
	placeholder := sampleItem("p", models.KindLost)
	placeholder.Placeholder = true
	placeholder.PlaceholderReason = "no image provided"

	var buf bytes.Buffer
	_ = WriteItems(&buf, []*models.Item{sampleItem("a", models.KindFound), placeholder}, OutputText)
	out := buf.String()
	for _, sub := range []string{"2 item(s)", "ID: a", "Kind: lost", "unavailable (no image provided)"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}

	buf.Reset()
	_ = WriteItems(&buf, nil, OutputJSON)
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("nil items should encode as [], got %q", buf.String())
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	response := &models.SearchResponse{
		Query:     "umbrella",
		QueryTime: 42,
		Total:     1,
		Results:   []*models.SearchResult{{Rank: 1, Score: 0.9, Item: sampleItem("item-1", models.KindFound)}},
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != response.Query || decoded.QueryTime != response.QueryTime {
		t.Errorf("decoded query=%q query_time=%d", decoded.Query, decoded.QueryTime)
	}
	if len(decoded.Results) != 1 || decoded.Results[0].Item.ID != "item-1" {
		t.Errorf("decoded results: %+v", decoded.Results)
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	response := &models.SearchResponse{
		Query:     "foo",
		QueryTime: 10,
		Total:     1,
		Results:   []*models.SearchResult{{Rank: 1, Score: 0.5, Item: sampleItem("id1", models.KindLost)}},
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 1 results", "10ms", "Rank: 1", "ID: id1", "Black umbrella"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestVectorPreview(t *testing.T) {
	tests := []struct {
		name string
		v    []float32
		n    int
		want string
	}{
		{"empty", nil, 4, "[] (0)"},
		{"short", []float32{1, 0.5}, 4, "[1.0000, 0.5000] (2)"},
		{"truncated", []float32{1, 2, 3}, 2, "[1.0000, 2.0000, ...] (3)"},
		{"n zero shows all", []float32{0}, 0, "[0.0000] (1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VectorPreview(tt.v, tt.n); got != tt.want {
				t.Errorf("VectorPreview() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"empty", "", 5, ""},
		{"short", "hi", 5, "hi"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world", 5, "hello..."},
		{"maxLen zero", "ab", 0, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.s, tt.maxLen); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateWords(t *testing.T) {
	if got := TruncateWords("one two three four", 3); got != "one two three..." {
		t.Errorf("TruncateWords = %q", got)
	}
	if got := TruncateWords("one two", 3); got != "one two" {
		t.Errorf("TruncateWords = %q", got)
	}
}

func TestPrintSearchResults(t *testing.T) {
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() {
		os.Stdout = oldStdout
		_ = w.Close()
	}()
	PrintSearchResults(&models.SearchResponse{Query: "print test", QueryTime: 1})
	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	if !strings.Contains(buf.String(), "Found 0 results") {
		t.Errorf("PrintSearchResults should write to stdout; got %q", buf.String())
	}
}
