// Package features is the boundary between image sources and similarity scores.
// Nothing in this package returns an error to the request flow: load, model, and
// dimension failures become Placeholder results and zero scores.
package features

// ResultKind tags whether a vector carries meaning.
type ResultKind string

const (
	// Real vectors come from the embedding model.
	Real ResultKind = "real"
	// Placeholder vectors are non-semantic zero vectors of the configured dimension.
	// They score 0 against every vector, including other placeholders.
	Placeholder ResultKind = "placeholder"
)

// Result is the outcome of a feature extraction.
type Result struct {
	Kind   ResultKind
	Vector []float32
	// Reason explains a Placeholder result.
	Reason string
}

// IsPlaceholder reports whether the vector is non-semantic.
func (r Result) IsPlaceholder() bool {
	return r.Kind != Real
}

// Dimensions returns the vector length.
func (r Result) Dimensions() int {
	return len(r.Vector)
}

// NewPlaceholder returns a zero vector of length dims tagged with reason.
func NewPlaceholder(dims int, reason string) Result {
	if dims < 0 {
		dims = 0
	}
	return Result{Kind: Placeholder, Vector: make([]float32, dims), Reason: reason}
}

// Comparison is the outcome of comparing two image sources.
type Comparison struct {
	Score int
	// Degraded is set when either side is a placeholder; Score is then 0.
	Degraded bool
	A        Result
	B        Result
}

// Reasons lists the placeholder reasons of both sides.
func (c Comparison) Reasons() []string {
	var reasons []string
	if c.A.IsPlaceholder() {
		reasons = append(reasons, "image_a: "+c.A.Reason)
	}
	if c.B.IsPlaceholder() {
		reasons = append(reasons, "image_b: "+c.B.Reason)
	}
	return reasons
}
