package blob

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"  // fingerprint datasets often ship BMP
	_ "golang.org/x/image/tiff" // and TIFF
	_ "golang.org/x/image/webp"

	"github.com/kailas-cloud/scbir/internal/domain"
)

// Blob is an immutable image payload selected by the user.
type Blob struct {
	name        string
	contentType string
	data        []byte
}

// Info describes the decoded image header.
type Info struct {
	Format string
	Width  int
	Height int
}

// New validates and creates a Blob.
// contentType may be empty; it is then derived from the file extension or sniffed.
func New(name string, data []byte, contentType string) (Blob, error) {
	if len(data) == 0 {
		return Blob{}, fmt.Errorf("%w: empty payload", domain.ErrInvalidImage)
	}

	ct := normalizeContentType(contentType)
	if ct == "" || ct == "application/octet-stream" {
		ct = detectContentType(name, data)
	}
	if !strings.HasPrefix(ct, "image/") {
		return Blob{}, fmt.Errorf("%w: unsupported content type %q", domain.ErrInvalidImage, ct)
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	return Blob{name: filepath.Base(name), contentType: ct, data: buf}, nil
}

// Name returns the base file name.
func (b Blob) Name() string { return b.name }

// ContentType returns the image MIME type.
func (b Blob) ContentType() string { return b.contentType }

// Size returns the payload size in bytes.
func (b Blob) Size() int { return len(b.data) }

// Data returns a copy of the payload.
func (b Blob) Data() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// IsZero reports whether b is the zero Blob.
func (b Blob) IsZero() bool { return len(b.data) == 0 }

// Base64 returns the payload as standard base64 without a data-URL prefix.
func (b Blob) Base64() string {
	return base64.StdEncoding.EncodeToString(b.data)
}

// Digest returns the hex SHA-256 of the payload.
func (b Blob) Digest() string {
	h := sha256.Sum256(b.data)
	return hex.EncodeToString(h[:])
}

// Inspect decodes the image header. Formats without a registered decoder return an error.
func (b Blob) Inspect() (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(b.data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: decode header: %w", domain.ErrInvalidImage, err)
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

func normalizeContentType(ct string) string {
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mt
}

// detectContentType prefers content sniffing and falls back to the extension
// for formats http.DetectContentType does not know (TIFF).
func detectContentType(name string, data []byte) string {
	sniffed := normalizeContentType(http.DetectContentType(data))
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	if byExt := normalizeContentType(mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))); byExt != "" {
		if strings.HasPrefix(byExt, "image/") {
			return byExt
		}
	}
	if isTIFF(data) {
		return "image/tiff"
	}
	return sniffed
}

func isTIFF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*"))
}
