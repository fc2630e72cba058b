package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scbir/internal/domain"
	"github.com/kailas-cloud/scbir/internal/domain/blob"
	"github.com/kailas-cloud/scbir/internal/domain/search/result"
	"github.com/kailas-cloud/scbir/internal/metrics"
)

// Endpoint labels used for metrics and logs.
const (
	EndpointStatus     = "status"
	EndpointHealth     = "health"
	EndpointSearch     = "search"
	EndpointImage      = "image"
	EndpointPreprocess = "preprocess"
	EndpointFeatures   = "features"
)

const (
	pathStatus     = "/api/estado-sistema"
	pathHealth     = "/api/salud"
	pathSearch     = "/api/buscar-similares"
	pathImage      = "/api/imagen/"
	pathPreprocess = "/api/preprocesar"
	pathFeatures   = "/api/extraer-caracteristicas"

	maxJSONBody  = 32 << 20
	maxImageBody = 64 << 20
)

// Client talks to the fingerprint search backend over HTTP.
type Client struct {
	http             *http.Client
	baseURL          string
	notIndexedStatus int
	apiKey           string
	logger           *zap.Logger
}

// Config holds the backend client settings.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	NotIndexedStatus int
	APIKey           string
	HTTPClient       *http.Client // optional, overrides Timeout
	Logger           *zap.Logger
}

// NewClient creates a backend client.
func NewClient(cfg *Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	status := cfg.NotIndexedStatus
	if status == 0 {
		status = http.StatusBadRequest
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http:             hc,
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		notIndexedStatus: status,
		apiKey:           cfg.APIKey,
		logger:           log,
	}
}

// BaseURL returns the resolved backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// ImageLocator returns the backend address of a stored image. Injective per file ID.
func (c *Client) ImageLocator(fileID string) string {
	return c.baseURL + pathImage + url.PathEscape(fileID)
}

// SystemStatus reports whether the backend index is built.
func (c *Client) SystemStatus(ctx context.Context) (domain.SystemStatus, error) {
	var resp statusResponse
	status, body, err := c.do(ctx, EndpointStatus, http.MethodGet, pathStatus, nil, maxJSONBody)
	if err != nil {
		return domain.SystemStatus{}, err
	}
	if status != http.StatusOK {
		return domain.SystemStatus{}, c.fail(EndpointStatus, "http_status",
			fmt.Errorf("status endpoint returned HTTP %d: %w", status, domain.ErrProtocol))
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Indexed == nil {
		return domain.SystemStatus{}, c.fail(EndpointStatus, "decode",
			fmt.Errorf("decode status response: %w", domain.ErrProtocol))
	}

	return domain.SystemStatus{
		Indexed:     *resp.Indexed,
		State:       resp.Stats.State,
		TotalImages: resp.Stats.TotalImages,
		VectorDim:   resp.Stats.VectorDim,
		IndexType:   resp.Stats.IndexType,
		Metric:      resp.Stats.Metric,
		Endpoints:   resp.Endpoints,
	}, nil
}

// Health returns the backend liveness message.
func (c *Client) Health(ctx context.Context) (string, error) {
	status, body, err := c.do(ctx, EndpointHealth, http.MethodGet, pathHealth, nil, maxJSONBody)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", c.fail(EndpointHealth, "http_status",
			fmt.Errorf("health endpoint returned HTTP %d: %w", status, domain.ErrConnectivity))
	}
	var resp healthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", c.fail(EndpointHealth, "decode", fmt.Errorf("decode health response: %w", domain.ErrProtocol))
	}
	return resp.State, nil
}

// Search submits the image and returns ranked matches in backend order.
func (c *Client) Search(ctx context.Context, b blob.Blob) (result.Set, error) {
	if b.IsZero() {
		return result.Set{}, fmt.Errorf("search: %w", domain.ErrInvalidImage)
	}

	status, body, err := c.do(ctx, EndpointSearch, http.MethodPost, pathSearch,
		imageRequest{Image: b.Base64()}, maxJSONBody)
	if err != nil {
		return result.Set{}, err
	}
	if err := c.classifyStatus(EndpointSearch, status, body); err != nil {
		return result.Set{}, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return result.Set{}, c.fail(EndpointSearch, "decode",
			fmt.Errorf("decode search response: %v: %w", err, domain.ErrProtocol))
	}
	if resp.Success == nil {
		return result.Set{}, c.fail(EndpointSearch, "decode",
			fmt.Errorf("search response without success flag: %w", domain.ErrProtocol))
	}
	if !*resp.Success {
		return result.Set{}, c.fail(EndpointSearch, "rejected", domain.NewSearchRejected(resp.Error))
	}

	items := make([]result.Result, 0, len(resp.Results))
	for i, it := range resp.Results {
		if it.Similarity == nil {
			return result.Set{}, c.fail(EndpointSearch, "decode",
				fmt.Errorf("result %d: missing similarity: %w", i, domain.ErrProtocol))
		}
		rank := i + 1
		if it.Position != nil {
			rank = *it.Position
		}
		r, err := result.New(it.File, *it.Similarity, it.Distance, rank, c.ImageLocator(it.File))
		if err != nil {
			return result.Set{}, c.fail(EndpointSearch, "decode", fmt.Errorf("result %d: %w", i, err))
		}
		items = append(items, r)
	}

	if resp.Total != nil && *resp.Total != len(items) {
		c.logger.Warn("backend result count mismatch",
			zap.Int("total_resultados", *resp.Total),
			zap.Int("received", len(items)),
		)
	}

	return result.NewSet(items), nil
}

// Image downloads a stored image by file ID.
func (c *Client) Image(ctx context.Context, fileID string) ([]byte, string, error) {
	if fileID == "" {
		return nil, "", fmt.Errorf("image: empty file id: %w", domain.ErrImageNotFound)
	}
	status, body, err := c.doRaw(ctx, EndpointImage, pathImage+url.PathEscape(fileID), maxImageBody)
	if err != nil {
		return nil, "", err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, "", c.fail(EndpointImage, "not_found", fmt.Errorf("image %q: %w", fileID, domain.ErrImageNotFound))
	case isGatewayStatus(status):
		return nil, "", c.fail(EndpointImage, "unavailable",
			fmt.Errorf("image endpoint returned HTTP %d: %w", status, domain.ErrConnectivity))
	case status != http.StatusOK:
		return nil, "", c.fail(EndpointImage, "http_status",
			fmt.Errorf("image endpoint returned HTTP %d: %w", status, domain.ErrProtocol))
	}
	return body.data, body.contentType, nil
}

// Preprocess runs the backend preprocessing pipeline on the image.
func (c *Client) Preprocess(ctx context.Context, b blob.Blob) (domain.Preprocessed, error) {
	status, body, err := c.do(ctx, EndpointPreprocess, http.MethodPost, pathPreprocess,
		imageRequest{Image: b.Base64()}, maxJSONBody)
	if err != nil {
		return domain.Preprocessed{}, err
	}
	if err := c.classifyDebugStatus(EndpointPreprocess, status, body); err != nil {
		return domain.Preprocessed{}, err
	}

	var resp preprocessResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Success == nil {
		return domain.Preprocessed{}, c.fail(EndpointPreprocess, "decode",
			fmt.Errorf("decode preprocess response: %w", domain.ErrProtocol))
	}
	if !*resp.Success {
		return domain.Preprocessed{}, c.fail(EndpointPreprocess, "rejected", domain.NewSearchRejected(resp.Error))
	}
	img, err := base64.StdEncoding.DecodeString(resp.Image)
	if err != nil {
		return domain.Preprocessed{}, c.fail(EndpointPreprocess, "decode",
			fmt.Errorf("decode processed image: %w", domain.ErrProtocol))
	}

	return domain.Preprocessed{
		Image:         img,
		OriginalSize:  resp.OriginalSize,
		ProcessedSize: resp.ProcessedSize,
	}, nil
}

// Features asks the backend for the descriptor vector of the image.
func (c *Client) Features(ctx context.Context, b blob.Blob) (domain.Features, error) {
	status, body, err := c.do(ctx, EndpointFeatures, http.MethodPost, pathFeatures,
		imageRequest{Image: b.Base64()}, maxJSONBody)
	if err != nil {
		return domain.Features{}, err
	}
	if err := c.classifyDebugStatus(EndpointFeatures, status, body); err != nil {
		return domain.Features{}, err
	}

	var resp featuresResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Success == nil {
		return domain.Features{}, c.fail(EndpointFeatures, "decode",
			fmt.Errorf("decode features response: %w", domain.ErrProtocol))
	}
	if !*resp.Success {
		return domain.Features{}, c.fail(EndpointFeatures, "rejected", domain.NewSearchRejected(resp.Error))
	}

	dim := resp.Dimension
	if dim == 0 {
		dim = len(resp.Vector)
	}
	return domain.Features{Vector: resp.Vector, Dimension: dim, Descriptors: resp.Descriptors}, nil
}

// classifyStatus maps a non-2xx search response to the error taxonomy.
func (c *Client) classifyStatus(endpoint string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	reason := errorReason(body)
	if reason == "" {
		reason = fmt.Sprintf("HTTP %d", status)
	}
	switch {
	case isGatewayStatus(status):
		return c.fail(endpoint, "unavailable",
			fmt.Errorf("backend returned HTTP %d: %w", status, domain.ErrConnectivity))
	case status == c.notIndexedStatus:
		return c.fail(endpoint, "not_indexed", fmt.Errorf("%s: %w", reason, domain.ErrSystemNotIndexed))
	default:
		return c.fail(endpoint, "rejected", domain.NewSearchRejected(reason))
	}
}

// classifyDebugStatus is classifyStatus without the not-indexed mapping:
// debug endpoints use 400 for undecodable images.
func (c *Client) classifyDebugStatus(endpoint string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	if isGatewayStatus(status) {
		return c.fail(endpoint, "unavailable",
			fmt.Errorf("backend returned HTTP %d: %w", status, domain.ErrConnectivity))
	}
	reason := errorReason(body)
	if reason == "" {
		reason = fmt.Sprintf("HTTP %d", status)
	}
	return c.fail(endpoint, "rejected", domain.NewSearchRejected(reason))
}

func isGatewayStatus(status int) bool {
	return status == http.StatusBadGateway ||
		status == http.StatusServiceUnavailable ||
		status == http.StatusGatewayTimeout
}

// do sends a JSON request and returns the status and raw body.
func (c *Client) do(
	ctx context.Context, endpoint, method, path string, payload any, limit int64,
) (int, []byte, error) {
	var reqBody io.Reader = http.NoBody
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.send(ctx, endpoint, req, limit)
	if err != nil {
		return 0, nil, err
	}
	return resp.status, resp.data, nil
}

// doRaw fetches a binary resource.
func (c *Client) doRaw(ctx context.Context, endpoint, path string, limit int64) (int, rawBody, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return 0, rawBody{}, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	resp, err := c.send(ctx, endpoint, req, limit)
	if err != nil {
		return 0, rawBody{}, err
	}
	return resp.status, resp, nil
}

type rawBody struct {
	status      int
	contentType string
	data        []byte
}

func (c *Client) send(ctx context.Context, endpoint string, req *http.Request, limit int64) (rawBody, error) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			// caller gave up; not a backend fault
			return rawBody{}, fmt.Errorf("%s request: %w", endpoint, ctxErr)
		}
		return rawBody{}, c.fail(endpoint, "transport",
			fmt.Errorf("%s request: %v: %w", endpoint, err, domain.ErrConnectivity))
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	metrics.BackendRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return rawBody{}, fmt.Errorf("%s response: %w", endpoint, err)
		}
		return rawBody{}, c.fail(endpoint, "transport",
			fmt.Errorf("read %s response: %v: %w", endpoint, err, domain.ErrConnectivity))
	}

	metrics.BackendRequestsTotal.WithLabelValues(endpoint, statusClass(resp.StatusCode)).Inc()
	return rawBody{status: resp.StatusCode, contentType: resp.Header.Get("Content-Type"), data: data}, nil
}

// fail records the error metric and logs it.
func (c *Client) fail(endpoint, kind string, err error) error {
	metrics.BackendErrorsTotal.WithLabelValues(endpoint, kind).Inc()
	c.logger.Warn("backend request failed",
		zap.String("endpoint", endpoint),
		zap.String("error_type", kind),
		zap.Error(err),
	)
	return err
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
