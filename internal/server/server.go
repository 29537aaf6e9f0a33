// Package server exposes generation and audits over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/verte-zerg/paranoid/internal/audit"
	"github.com/verte-zerg/paranoid/internal/charset"
	"github.com/verte-zerg/paranoid/internal/compliance"
	"github.com/verte-zerg/paranoid/internal/entropy"
	"github.com/verte-zerg/paranoid/internal/generator"
	"github.com/verte-zerg/paranoid/internal/metrics"
	"github.com/verte-zerg/paranoid/internal/model"
	"github.com/verte-zerg/paranoid/internal/platform"
	"github.com/verte-zerg/paranoid/internal/wire"
)

const maxBodyBytes = 64 << 10

// Handler serves the HTTP API. Each request runs against its own result
// record; the handler holds no per-request state.
type Handler struct {
	auditor  *audit.Auditor
	logger   *slog.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	custom   []compliance.Framework
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics records generation counts in m and serves g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(h *Handler) {
		h.metrics = m
		h.gatherer = g
	}
}

// WithFrameworks adds custom frameworks to /v1/frameworks.
func WithFrameworks(fs []compliance.Framework) Option {
	return func(h *Handler) {
		h.custom = fs
	}
}

// New builds a Handler around a.
func New(a *audit.Auditor, opts ...Option) *Handler {
	h := &Handler{
		auditor:  a,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the router with every endpoint mounted.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/generate", h.handleGenerate)
		r.Post("/generate/constrained", h.handleGenerateConstrained)
		r.Post("/audit", h.handleAudit)
		r.Post("/charset", h.handleCharset)
		r.Get("/schema", h.handleSchema)
		r.Get("/frameworks", h.handleFrameworks)
	})
	return r
}

// NewHTTPServer builds an HTTP server with sane defaults for this project.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}

type generateRequest struct {
	Charset string `json:"charset"`
	Length  int    `json:"length"`
	Count   int    `json:"count"`
}

type generateResponse struct {
	Passwords   []string `json:"passwords"`
	CharsetSize int      `json:"charset_size"`
	EntropyBits float64  `json:"entropy_bits"`
}

type constrainedRequest struct {
	Charset      string             `json:"charset"`
	Length       int                `json:"length"`
	Requirements model.Requirements `json:"requirements"`
}

type auditRequest struct {
	Charset   string `json:"charset"`
	Length    int    `json:"length"`
	BatchSize int    `json:"batch_size"`
}

type auditResponse struct {
	Password string `json:"password"`
	*model.AuditResult
}

type charsetRequest struct {
	Charset string `json:"charset"`
}

type charsetResponse struct {
	Charset          string  `json:"charset"`
	Size             int     `json:"size"`
	MaxValid         int     `json:"max_valid"`
	RejectionRatePct float64 `json:"rejection_rate_pct"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !h.decode(w, r, &req) {
		return
	}
	cs, err := normalize(req.Charset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}
	pws, err := h.auditor.Generator().GenerateMultiple(cs, req.Length, req.Count)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer wipeAll(pws)

	resp := generateResponse{
		Passwords:   make([]string, len(pws)),
		CharsetSize: len(cs),
	}
	for i, pw := range pws {
		resp.Passwords[i] = string(pw)
	}
	resp.EntropyBits = entropyBits(len(cs), req.Length)
	h.metrics.AddGenerated("api", len(pws))
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGenerateConstrained(w http.ResponseWriter, r *http.Request) {
	var req constrainedRequest
	if !h.decode(w, r, &req) {
		return
	}
	cs, err := normalize(req.Charset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	pw, err := h.auditor.Generator().GenerateConstrained(cs, req.Length, req.Requirements)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer platform.Wipe(pw)
	h.metrics.AddGenerated("api-constrained", 1)
	writeJSON(w, http.StatusOK, generateResponse{
		Passwords:   []string{string(pw)},
		CharsetSize: len(cs),
		EntropyBits: entropyBits(len(cs), req.Length),
	})
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.auditor.Run(model.AuditRequest{
		Charset:   charset.Resolve(req.Charset),
		Length:    req.Length,
		BatchSize: req.BatchSize,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer platform.Wipe(res.Password)

	if r.URL.Query().Get("format") == "wire" {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(wire.Encode(nil, res)); err != nil {
			h.logger.Warn("failed to write response", "err", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, auditResponse{Password: string(res.Password), AuditResult: res})
}

func (h *Handler) handleCharset(w http.ResponseWriter, r *http.Request) {
	var req charsetRequest
	if !h.decode(w, r, &req) {
		return
	}
	cs, err := normalize(req.Charset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, charsetResponse{
		Charset:          cs,
		Size:             len(cs),
		MaxValid:         generator.MaxValid(len(cs)),
		RejectionRatePct: generator.RejectionRatePct(len(cs)),
	})
}

func (h *Handler) handleSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version": wire.SchemaVersion,
		"fields":  wire.Fields(),
	})
}

func (h *Handler) handleFrameworks(w http.ResponseWriter, _ *http.Request) {
	custom := h.custom
	if custom == nil {
		custom = []compliance.Framework{}
	}
	writeJSON(w, http.StatusOK, map[string][]compliance.Framework{
		"builtin": compliance.Builtins(),
		"custom":  custom,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  fmt.Sprintf("invalid request body: %v", err),
			Status: audit.StatusInvalidArgument,
		})
		return false
	}
	return true
}

// writeError translates module errors into HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := audit.Status(err)
	code := http.StatusInternalServerError
	switch status {
	case audit.StatusInvalidArgument:
		code = http.StatusBadRequest
	case audit.StatusRequirementsImpossible:
		code = http.StatusUnprocessableEntity
	case audit.StatusAttemptsExhausted:
		code = http.StatusConflict
	case audit.StatusCSPRNGFailure:
		code = http.StatusServiceUnavailable
	}
	h.logger.Warn("request failed",
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"status", status,
		"err", err,
	)
	writeJSON(w, code, errorResponse{Error: err.Error(), Status: status})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func normalize(raw string) (string, error) {
	cs, err := charset.Validate(charset.Resolve(raw), model.MaxCharsetLen)
	if err != nil {
		return "", fmt.Errorf("%w: %w", audit.ErrInvalidArgument, err)
	}
	return cs, nil
}

func entropyBits(n, length int) float64 {
	return entropy.NewProof(n, length).TotalEntropy
}

func wipeAll(pws [][]byte) {
	for _, pw := range pws {
		platform.Wipe(pw)
	}
}
