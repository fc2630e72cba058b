package result

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/scbir/internal/domain"
)

// Result is a single ranked search hit.
type Result struct {
	fileID     string
	similarity float64
	distance   float64
	hasDist    bool
	rank       int
	locator    string
}

// New creates a validated search result. distance may be nil.
func New(fileID string, similarity float64, distance *float64, rank int, locator string) (Result, error) {
	if fileID == "" {
		return Result{}, fmt.Errorf("%w: empty file id", domain.ErrProtocol)
	}
	if math.IsNaN(similarity) || similarity < 0 || similarity > 1 {
		return Result{}, fmt.Errorf("%w: similarity %v out of [0,1] for %q", domain.ErrProtocol, similarity, fileID)
	}
	if rank < 1 {
		return Result{}, fmt.Errorf("%w: rank %d must be positive", domain.ErrProtocol, rank)
	}
	r := Result{fileID: fileID, similarity: similarity, rank: rank, locator: locator}
	if distance != nil {
		if math.IsNaN(*distance) || *distance < 0 {
			return Result{}, fmt.Errorf("%w: negative distance for %q", domain.ErrProtocol, fileID)
		}
		r.distance = *distance
		r.hasDist = true
	}
	return r, nil
}

// FileID returns the backend-assigned file identifier.
func (r Result) FileID() string { return r.fileID }

// Similarity returns the normalized similarity in [0,1].
func (r Result) Similarity() float64 { return r.similarity }

// Distance returns the raw distance and whether the backend supplied one.
func (r Result) Distance() (float64, bool) { return r.distance, r.hasDist }

// Rank returns the 1-based ordinal assigned by the backend.
func (r Result) Rank() int { return r.rank }

// ImageLocator returns the URI of the thumbnail.
func (r Result) ImageLocator() string { return r.locator }

// Set is an immutable ordered sequence of results.
type Set struct {
	items []Result
}

// NewSet creates a Set preserving the given order.
func NewSet(items []Result) Set {
	if len(items) == 0 {
		return Set{}
	}
	cp := make([]Result, len(items))
	copy(cp, items)
	return Set{items: cp}
}

// Len returns the number of results.
func (s Set) Len() int { return len(s.items) }

// Empty reports whether the set has no results.
func (s Set) Empty() bool { return len(s.items) == 0 }

// At returns the result at index i.
func (s Set) At(i int) (Result, bool) {
	if i < 0 || i >= len(s.items) {
		return Result{}, false
	}
	return s.items[i], true
}

// All returns a copy of the results in order.
func (s Set) All() []Result {
	out := make([]Result, len(s.items))
	copy(out, s.items)
	return out
}
