// Package mock provides an offline stand-in for the search backend.
package mock

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/scbir/internal/domain"
	"github.com/kailas-cloud/scbir/internal/domain/blob"
	"github.com/kailas-cloud/scbir/internal/domain/search/result"
)

const (
	defaultDelay   = 1200 * time.Millisecond
	defaultResults = 5
	thumbSize      = 256
)

// Backend fabricates deterministic results derived from the file identity.
type Backend struct {
	delay time.Duration
	count int
}

// Option configures the mock backend.
type Option func(*Backend)

// WithDelay sets the artificial search latency. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(b *Backend) { b.delay = d }
}

// WithResults sets how many results each search returns.
func WithResults(n int) Option {
	return func(b *Backend) {
		if n > 0 {
			b.count = n
		}
	}
}

// New creates a mock backend.
func New(opts ...Option) *Backend {
	b := &Backend{delay: defaultDelay, count: defaultResults}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Seed derives the result seed from the file name, size and content type.
func Seed(b blob.Blob) string {
	raw := fmt.Sprintf("%s-%d-%s", b.Name(), b.Size(), b.ContentType())
	return strings.ReplaceAll(url.QueryEscape(raw), "+", "%20")
}

// Search waits for the configured delay and returns count fabricated results.
func (m *Backend) Search(ctx context.Context, b blob.Blob) (result.Set, error) {
	if b.IsZero() {
		return result.Set{}, fmt.Errorf("search: %w", domain.ErrInvalidImage)
	}
	if m.delay > 0 {
		t := time.NewTimer(m.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return result.Set{}, fmt.Errorf("mock search: %w", ctx.Err())
		case <-t.C:
		}
	}

	seed := Seed(b)
	items := make([]result.Result, 0, m.count)
	for i := 0; i < m.count; i++ {
		id := seed + "-" + strconv.Itoa(i)
		sim := similarityAt(i)
		// same curve the real backend uses: similarity = exp(-distance/20)
		dist := math.Round(-20*math.Log(sim)*1000) / 1000
		r, err := result.New(id, sim, &dist, i+1, m.ImageLocator(id))
		if err != nil {
			return result.Set{}, err
		}
		items = append(items, r)
	}
	return result.NewSet(items), nil
}

// similarityAt returns a strictly descending score in (0, 1).
func similarityAt(i int) float64 {
	s := 0.97 - 0.06*float64(i)
	if s < 0.05 {
		return 0.05 * math.Pow(0.8, float64(i-15))
	}
	return math.Round(s*10000) / 10000
}

// ImageLocator returns the placeholder image address for a file ID.
// Mock file IDs are already URL-escaped by Seed.
func (m *Backend) ImageLocator(fileID string) string {
	return "https://picsum.photos/seed/" + fileID + "/640/640"
}

// SystemStatus always reports an indexed system.
func (m *Backend) SystemStatus(context.Context) (domain.SystemStatus, error) {
	return domain.SystemStatus{Indexed: true, State: "mock", TotalImages: m.count, IndexType: "mock"}, nil
}

// Health always succeeds.
func (m *Backend) Health(context.Context) (string, error) {
	return "mock backend", nil
}

// Image renders a deterministic ridge pattern for the file ID.
func (m *Backend) Image(ctx context.Context, fileID string) ([]byte, string, error) {
	if fileID == "" {
		return nil, "", fmt.Errorf("image: empty file id: %w", domain.ErrImageNotFound)
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(fileID))
	sum := h.Sum64()
	cx := float64(thumbSize/4) + float64(sum%uint64(thumbSize/2))
	cy := float64(thumbSize/4) + float64((sum>>16)%uint64(thumbSize/2))
	freq := 0.25 + float64((sum>>32)%100)/400
	phase := float64((sum>>48)%628) / 100

	img := image.NewGray(image.Rect(0, 0, thumbSize, thumbSize))
	for y := 0; y < thumbSize; y++ {
		for x := 0; x < thumbSize; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy)
			v := 0.5 + 0.5*math.Sin(d*freq+phase)
			img.SetGray(x, y, color.Gray{Y: uint8(40 + v*200)})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("encode mock image: %w", err)
	}
	return buf.Bytes(), "image/png", nil
}

// Preprocess is not available offline.
func (m *Backend) Preprocess(context.Context, blob.Blob) (domain.Preprocessed, error) {
	return domain.Preprocessed{}, fmt.Errorf("preprocess on mock backend: %w", domain.ErrNotSupported)
}

// Features is not available offline.
func (m *Backend) Features(context.Context, blob.Blob) (domain.Features, error) {
	return domain.Features{}, fmt.Errorf("features on mock backend: %w", domain.ErrNotSupported)
}
