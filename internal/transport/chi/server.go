package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scbir/internal/domain"
	"github.com/kailas-cloud/scbir/internal/domain/blob"
	logpkg "github.com/kailas-cloud/scbir/internal/logger"
	"github.com/kailas-cloud/scbir/internal/usecase/health"
	"github.com/kailas-cloud/scbir/internal/usecase/upload"
	"github.com/kailas-cloud/scbir/internal/usecase/workbench"
	"github.com/kailas-cloud/scbir/internal/version"
)

const defaultMaxUpload = 16 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the workbench over HTTP.
type Server struct {
	bench         *workbench.Workbench
	prober        Prober
	health        HealthChecker
	previews      PreviewLookup
	images        ImageFetcher
	msgs          upload.Messages
	maxUpload     int64
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	bench *workbench.Workbench,
	prober Prober,
	healthChecker HealthChecker,
	previews PreviewLookup,
	images ImageFetcher,
	logger *zap.Logger,
) *Server {
	s := &Server{
		bench:     bench,
		prober:    prober,
		health:    healthChecker,
		previews:  previews,
		images:    images,
		msgs:      bench.Controller().Messages(),
		maxUpload: defaultMaxUpload,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidImage, http.StatusBadRequest, CodeInvalidImage),
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrIndexOutOfRange, http.StatusBadRequest, CodeIndexOutOfRange),
		sentinelHandler(domain.ErrNoSelection, http.StatusConflict, CodeNoSelection),
		sentinelHandler(domain.ErrSlotEmpty, http.StatusConflict, CodeSlotEmpty),
		sentinelHandler(domain.ErrViewerClosed, http.StatusConflict, CodeViewerClosed),
		sentinelHandler(domain.ErrImageNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrNotReady, http.StatusServiceUnavailable, CodeNotReady),
		sentinelHandler(domain.ErrSystemNotIndexed, http.StatusServiceUnavailable, CodeNotReady),
		sentinelHandler(domain.ErrConnectivity, http.StatusBadGateway, CodeBackendUnreachable),
		sentinelHandler(domain.ErrSearchRejected, http.StatusUnprocessableEntity, CodeSearchRejected),
		sentinelHandler(domain.ErrProtocol, http.StatusBadGateway, CodeProtocolError),
		sentinelHandler(domain.ErrNotSupported, http.StatusNotImplemented, CodeNotSupported),
	}
	return s
}

// WithMaxUploadBytes limits the accepted image size.
func (s *Server) WithMaxUploadBytes(n int64) *Server {
	if n > 0 {
		s.maxUpload = n
	}
	return s
}

// Routes registers all handlers on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r gochi.Router) {
		r.Get("/status", s.GetStatus)

		r.Get("/session", s.GetSession)
		r.Delete("/session", s.ClearSession)
		r.Post("/session/image", s.UploadImage)
		r.Post("/session/search", s.SearchSession)
		r.Get("/session/preview", s.GetSessionPreview)

		r.Get("/previews/{id}", s.GetPreview)
		r.Get("/thumbnails/{file}", s.GetThumbnail)

		r.Get("/viewer", s.GetViewer)
		r.Delete("/viewer", s.CloseViewer)
		r.Post("/viewer/open", s.OpenViewer)
		r.Post("/viewer/commands", s.ViewerCommands)
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != health.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Backend: report.Backend,
		Version: version.String(),
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// GetStatus handles GET /api/v1/status. It re-probes the backend and
// records the outcome on the session, so it also unblocks searches.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	report := s.prober.Probe(r.Context())
	s.bench.Controller().ApplyReadiness(report)
	writeJSON(w, http.StatusOK, NewStatusResponse(report, s.messages(r)))
}

// GetSession handles GET /api/v1/session.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	s.writeSession(w, r, http.StatusOK)
}

// ClearSession handles DELETE /api/v1/session.
func (s *Server) ClearSession(w http.ResponseWriter, r *http.Request) {
	s.bench.Clear()
	s.writeSession(w, r, http.StatusOK)
}

// UploadImage handles POST /api/v1/session/image: multipart field "image",
// or a raw body named by ?name=. With ?wait=true it answers once the search settles.
func (s *Server) UploadImage(w http.ResponseWriter, r *http.Request) {
	b, err := s.readUpload(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
				"image exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
			return
		}
		s.handleDomainError(w, err)
		return
	}

	logpkg.FromContext(r.Context()).Debug("image selected",
		zap.String("file", b.Name()),
		zap.Int("size", b.Size()),
		zap.String("content_type", b.ContentType()),
	)

	sel := s.bench.SelectFile(r.Context(), b)
	s.respondSelection(w, r, sel)
}

// SearchSession handles POST /api/v1/session/search.
func (s *Server) SearchSession(w http.ResponseWriter, r *http.Request) {
	sel, err := s.bench.Search(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.respondSelection(w, r, sel)
}

// GetSessionPreview handles GET /api/v1/session/preview.
func (s *Server) GetSessionPreview(w http.ResponseWriter, r *http.Request) {
	snap := s.bench.Snapshot()
	if !snap.HasFile() {
		s.handleDomainError(w, domain.ErrNoSelection)
		return
	}
	writeImage(w, snap.Image.Data(), snap.Image.ContentType())
}

// GetPreview handles GET /api/v1/previews/{id}. Released handles are gone.
func (s *Server) GetPreview(w http.ResponseWriter, r *http.Request) {
	b, ok := s.previews.Lookup(gochi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "preview not found")
		return
	}
	writeImage(w, b.Data(), b.ContentType())
}

// GetThumbnail handles GET /api/v1/thumbnails/{file}.
func (s *Server) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	file, err := url.PathUnescape(gochi.URLParam(r, "file"))
	if err != nil || file == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid file name")
		return
	}

	data, ct, err := s.images.Image(r.Context(), file)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeImage(w, data, ct)
}

// GetViewer handles GET /api/v1/viewer.
func (s *Server) GetViewer(w http.ResponseWriter, _ *http.Request) {
	cmp, err := s.bench.Comparison()
	if err != nil {
		writeJSON(w, http.StatusOK, ViewerResponse{State: s.bench.Viewer()})
		return
	}
	writeJSON(w, http.StatusOK, NewViewerResponse(cmp))
}

// OpenViewer handles POST /api/v1/viewer/open.
func (s *Server) OpenViewer(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "index is required")
		return
	}

	cmp, err := s.bench.Open(*req.Index)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewViewerResponse(cmp))
}

// ViewerCommands handles POST /api/v1/viewer/commands.
func (s *Server) ViewerCommands(w http.ResponseWriter, r *http.Request) {
	var req CommandsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Commands) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "commands must not be empty")
		return
	}

	cmp, err := s.bench.Apply(req.Commands...)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewViewerResponse(cmp))
}

// CloseViewer handles DELETE /api/v1/viewer.
func (s *Server) CloseViewer(w http.ResponseWriter, _ *http.Request) {
	s.bench.CloseViewer()
	writeJSON(w, http.StatusOK, ViewerResponse{State: s.bench.Viewer()})
}

func (s *Server) respondSelection(w http.ResponseWriter, r *http.Request, sel upload.Selection) {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		s.writeSession(w, r, http.StatusAccepted)
		return
	}

	select {
	case <-sel.Done:
		s.writeSession(w, r, http.StatusOK)
	case <-r.Context().Done():
		// client went away; the search keeps running for other observers
	}
}

func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, status int) {
	snap := s.bench.Snapshot()
	g := s.bench.Grid()
	writeJSON(w, status, NewSessionResponse(snap, g, s.messages(r)))
}

func (s *Server) messages(r *http.Request) upload.Messages {
	return upload.NewMessagesFromAccept(r.Header.Get("Accept-Language"), s.msgs)
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (blob.Blob, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return s.readMultipart(r)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return blob.Blob{}, err
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}
	ct := ""
	if strings.HasPrefix(mediaType, "image/") {
		ct = mediaType
	}
	return blob.New(name, data, ct)
}

func (s *Server) readMultipart(r *http.Request) (blob.Blob, error) {
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		// keeps *http.MaxBytesError reachable for the 413 path
		return blob.Blob{}, fmt.Errorf("%w: %w", domain.ErrInvalidImage, err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, hdr, err := r.FormFile("image")
	if err != nil {
		return blob.Blob{}, errors.Join(domain.ErrInvalidImage, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return blob.Blob{}, err
	}
	return blob.New(hdr.Filename, data, hdr.Header.Get("Content-Type"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeImage(w http.ResponseWriter, data []byte, contentType string) {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	var rejected *domain.SearchRejectedError
	if errors.As(err, &rejected) {
		return rejected.Error()
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
