package chi

import (
	"net/url"

	"github.com/kailas-cloud/scbir/internal/domain"
	"github.com/kailas-cloud/scbir/internal/domain/search/result"
	"github.com/kailas-cloud/scbir/internal/domain/session"
	"github.com/kailas-cloud/scbir/internal/usecase/grid"
	"github.com/kailas-cloud/scbir/internal/usecase/readiness"
	"github.com/kailas-cloud/scbir/internal/usecase/upload"
	"github.com/kailas-cloud/scbir/internal/usecase/viewer"
	"github.com/kailas-cloud/scbir/internal/usecase/workbench"
)

// ErrorCode is a machine-readable error kind.
type ErrorCode string

// Error codes returned by the workbench API.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeInvalidImage       ErrorCode = "invalid_image"
	CodePayloadTooLarge    ErrorCode = "payload_too_large"
	CodeNoSelection        ErrorCode = "no_selection"
	CodeSlotEmpty          ErrorCode = "slot_empty"
	CodeIndexOutOfRange    ErrorCode = "index_out_of_range"
	CodeViewerClosed       ErrorCode = "viewer_closed"
	CodeNotFound           ErrorCode = "not_found"
	CodeNotReady           ErrorCode = "not_ready"
	CodeBackendUnreachable ErrorCode = "backend_unreachable"
	CodeSearchRejected     ErrorCode = "search_rejected"
	CodeProtocolError      ErrorCode = "protocol_error"
	CodeNotSupported       ErrorCode = "not_supported"
	CodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Backend string            `json:"backend,omitempty"`
	Version string            `json:"version"`
}

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	State       string   `json:"state"`
	Ready       bool     `json:"ready"`
	Message     string   `json:"message,omitempty"`
	TotalImages int      `json:"total_images"`
	VectorDim   int      `json:"vector_dimension,omitempty"`
	IndexType   string   `json:"index_type,omitempty"`
	Metric      string   `json:"metric,omitempty"`
	Endpoints   []string `json:"endpoints,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// FileInfo describes the selected query image.
type FileInfo struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	PreviewURL  string `json:"preview_url,omitempty"`
}

// ResultItem is one search hit.
type ResultItem struct {
	File       string   `json:"file"`
	Similarity float64  `json:"similarity"`
	Distance   *float64 `json:"distance,omitempty"`
	Rank       int      `json:"rank"`
	Locator    string   `json:"locator,omitempty"`
	ImageURL   string   `json:"image_url"`
}

// SlotItem is one grid cell.
type SlotItem struct {
	Index int     `json:"index"`
	State string  `json:"state"`
	File  *string `json:"file,omitempty"`
}

// SessionResponse is the body of the session endpoints.
type SessionResponse struct {
	Version          uint64       `json:"version"`
	Token            uint64       `json:"token"`
	Status           string       `json:"status"`
	File             *FileInfo    `json:"file,omitempty"`
	ResultCount      string       `json:"result_count,omitempty"`
	Results          []ResultItem `json:"results"`
	Slots            []SlotItem   `json:"slots"`
	Error            string       `json:"error,omitempty"`
	Notice           string       `json:"notice,omitempty"`
	Readiness        string       `json:"readiness"`
	ReadinessMessage string       `json:"readiness_message,omitempty"`
	CanClear         bool         `json:"can_clear"`
}

// ViewerResponse is the body of the viewer endpoints.
type ViewerResponse struct {
	viewer.State
	Match      *ResultItem `json:"match,omitempty"`
	QueryImage *FileInfo   `json:"query_image,omitempty"`
}

// OpenRequest is the body of POST /api/v1/viewer/open.
type OpenRequest struct {
	Index *int `json:"index"`
}

// CommandsRequest is the body of POST /api/v1/viewer/commands.
type CommandsRequest struct {
	Commands []workbench.Command `json:"commands"`
}

func thumbnailURL(fileID string) string {
	return "/api/v1/thumbnails/" + url.PathEscape(fileID)
}

func previewURL(id string) string {
	return "/api/v1/previews/" + url.PathEscape(id)
}

func resultToDTO(r result.Result) ResultItem {
	item := ResultItem{
		File:       r.FileID(),
		Similarity: r.Similarity(),
		Rank:       r.Rank(),
		Locator:    r.ImageLocator(),
		ImageURL:   thumbnailURL(r.FileID()),
	}
	if d, ok := r.Distance(); ok {
		item.Distance = &d
	}
	return item
}

// NewSessionResponse renders a session snapshot and its grid in the given language.
func NewSessionResponse(s upload.Snapshot, g grid.View, msgs upload.Messages) SessionResponse {
	resp := SessionResponse{
		Version:   s.Version,
		Token:     uint64(s.Token),
		Status:    string(s.Status),
		Results:   make([]ResultItem, 0, s.Results.Len()),
		Readiness: string(s.Readiness),
		CanClear:  s.CanClear(),
		Error:     msgs.ForError(s.Err),
	}
	if s.HasFile() {
		resp.File = &FileInfo{
			Name:        s.Image.Name(),
			ContentType: s.Image.ContentType(),
			Size:        s.Image.Size(),
		}
		if !s.Preview.IsZero() {
			resp.File.PreviewURL = previewURL(s.Preview.ID)
		}
	}
	for _, r := range s.Results.All() {
		resp.Results = append(resp.Results, resultToDTO(r))
	}
	if s.Status == session.Succeeded {
		if s.Results.Empty() {
			resp.Notice = msgs.Get(upload.MsgNoResults)
		} else {
			resp.ResultCount = msgs.ResultCount(s.Results.Len())
		}
	}

	resp.Slots = make([]SlotItem, 0, g.Len())
	for _, slot := range g.Slots() {
		item := SlotItem{Index: slot.Index, State: string(slot.State)}
		if slot.State == grid.Filled {
			f := slot.Result.FileID()
			item.File = &f
		}
		resp.Slots = append(resp.Slots, item)
	}

	resp.ReadinessMessage = readinessMessage(s.Readiness, msgs)
	return resp
}

func readinessMessage(state readiness.State, msgs upload.Messages) string {
	switch state {
	case readiness.Ready:
		return ""
	case readiness.Unreachable:
		return msgs.Get(upload.MsgConnection)
	default:
		return msgs.Get(upload.MsgIndexingRequired)
	}
}

// NewStatusResponse renders a readiness report.
func NewStatusResponse(r readiness.Report, msgs upload.Messages) StatusResponse {
	resp := StatusResponse{
		State:       string(r.State),
		Ready:       r.Ready(),
		Message:     readinessMessage(r.State, msgs),
		TotalImages: r.Status.TotalImages,
		VectorDim:   r.Status.VectorDim,
		IndexType:   r.Status.IndexType,
		Metric:      r.Status.Metric,
		Endpoints:   r.Status.Endpoints,
	}
	if r.Err != nil {
		resp.Error = safeDomainMessage(r.Err)
	}
	return resp
}

// NewViewerResponse renders an open comparison, or just the state when closed.
func NewViewerResponse(c workbench.Comparison) ViewerResponse {
	resp := ViewerResponse{State: c.State}
	if !c.State.Open {
		return resp
	}
	m := resultToDTO(c.Result)
	resp.Match = &m
	if !c.Query.IsZero() {
		resp.QueryImage = &FileInfo{
			Name:        c.Query.Name(),
			ContentType: c.Query.ContentType(),
			Size:        c.Query.Size(),
		}
		if !c.Preview.IsZero() {
			resp.QueryImage.PreviewURL = previewURL(c.Preview.ID)
		}
	}
	return resp
}

// sentinels lists the errors whose message is safe to show clients.
var sentinels = []error{
	domain.ErrConnectivity,
	domain.ErrSystemNotIndexed,
	domain.ErrNotReady,
	domain.ErrProtocol,
	domain.ErrInvalidImage,
	domain.ErrImageNotFound,
	domain.ErrNoSelection,
	domain.ErrSlotEmpty,
	domain.ErrIndexOutOfRange,
	domain.ErrViewerClosed,
	domain.ErrInvalidArgument,
	domain.ErrNotSupported,
}
