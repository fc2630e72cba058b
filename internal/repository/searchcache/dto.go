package searchcache

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/scbir/internal/domain/search/result"
)

type cachedResult struct {
	FileID     string   `json:"f"`
	Similarity float64  `json:"s"`
	Distance   *float64 `json:"d,omitempty"`
	Rank       int      `json:"r"`
	Locator    string   `json:"l,omitempty"`
}

func encodeSet(set result.Set) ([]byte, error) {
	items := make([]cachedResult, 0, set.Len())
	for _, r := range set.All() {
		cr := cachedResult{
			FileID:     r.FileID(),
			Similarity: r.Similarity(),
			Rank:       r.Rank(),
			Locator:    r.ImageLocator(),
		}
		if d, ok := r.Distance(); ok {
			cr.Distance = &d
		}
		items = append(items, cr)
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal results: %w", err)
	}
	return data, nil
}

// decodeSet rebuilds a set through result.New so cached entries pass the same validation as fresh ones.
func decodeSet(data []byte) (result.Set, error) {
	var items []cachedResult
	if err := json.Unmarshal(data, &items); err != nil {
		return result.Set{}, fmt.Errorf("unmarshal results: %w", err)
	}
	out := make([]result.Result, 0, len(items))
	for _, cr := range items {
		r, err := result.New(cr.FileID, cr.Similarity, cr.Distance, cr.Rank, cr.Locator)
		if err != nil {
			return result.Set{}, err
		}
		out = append(out, r)
	}
	return result.NewSet(out), nil
}
