package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	e "github.com/gartstein/cvtracker/internal/cv/errors"
	"github.com/gartstein/cvtracker/internal/cv/models"
	"github.com/gartstein/cvtracker/internal/cv/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// CVController defines the business logic the HTTP handlers invoke.
type CVController interface {
	Check(ctx context.Context, req models.SubmissionRequest) (*models.Eligibility, error)
	Submit(ctx context.Context, req models.SubmissionRequest) (*models.SubmissionReceipt, error)
	CheckAndSubmit(ctx context.Context, req models.SubmissionRequest) (*models.SubmissionReceipt, error)
	ListCompanies(ctx context.Context) ([]models.CompanyStatus, error)
	CompanyHistory(ctx context.Context, id uuid.UUID) (*models.CompanyWithSubmissions, error)
	DeleteCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	Seed(ctx context.Context, entries []models.SeedEntry) ([]models.SeedResult, error)
	QueueStats() queue.Stats
	Ping(ctx context.Context) error
}

// CVHandler serves the JSON API.
type CVHandler struct {
	service   CVController
	seedCheck *payloadValidator
	logger    *zap.Logger
	startedAt time.Time
}

// NewCVHandler constructs a CVHandler over service.
func NewCVHandler(service CVController, logger *zap.Logger) (*CVHandler, error) {
	validator, err := newSeedValidator()
	if err != nil {
		return nil, err
	}
	return &CVHandler{
		service:   service,
		seedCheck: validator,
		logger:    logger.Named("http_handler"),
		startedAt: time.Now(),
	}, nil
}

// Routes returns the API wrapped in the middleware chain. Every route is
// served at the root and again under basePath when one is given.
func (h *CVHandler) Routes(basePath string, corsOrigins []string) http.Handler {
	mux := http.NewServeMux()

	prefixes := []string{""}
	if basePath = strings.TrimRight(basePath, "/"); basePath != "" {
		prefixes = append(prefixes, basePath)
	}
	for _, p := range prefixes {
		mux.HandleFunc("POST "+p+"/cv/check", h.Check)
		mux.HandleFunc("POST "+p+"/cv/submit", h.Submit)
		mux.HandleFunc("POST "+p+"/cv/check-and-submit", h.CheckAndSubmit)
		mux.HandleFunc("GET "+p+"/cv/companies", h.ListCompanies)
		mux.HandleFunc("GET "+p+"/cv/companies/{id}/submissions", h.CompanyHistory)
		mux.HandleFunc("DELETE "+p+"/cv/companies/{id}", h.DeleteCompany)
		mux.HandleFunc("DELETE "+p+"/cv/companies/{$}", h.DeleteCompany)
		mux.HandleFunc("POST "+p+"/cv/seed", h.Seed)
		mux.HandleFunc("GET "+p+"/queue/stats", h.QueueStats)
		mux.HandleFunc("GET "+p+"/health", h.Health)
	}
	mux.HandleFunc("/", h.NotFound)

	return Chain(
		RequestID,
		RequestLogger(h.logger),
		Recovery(h.logger),
		CORS(corsOrigins),
	)(mux)
}

func (h *CVHandler) writeError(w http.ResponseWriter, err error) {
	status, body := h.mapServiceError(err)
	writeJSON(w, status, body)
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", e.ErrInvalidInput, err)
	}
	return nil
}

func (h *CVHandler) submissionRequest(w http.ResponseWriter, r *http.Request) (models.SubmissionRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var body submissionRequest
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, err)
		return models.SubmissionRequest{}, false
	}
	req, err := body.toModel()
	if err != nil {
		h.writeError(w, err)
		return models.SubmissionRequest{}, false
	}
	return req, true
}

// Check handles POST /cv/check.
func (h *CVHandler) Check(w http.ResponseWriter, r *http.Request) {
	req, ok := h.submissionRequest(w, r)
	if !ok {
		return
	}
	eligibility, err := h.service.Check(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eligibilityToResponse(eligibility))
}

// Submit handles POST /cv/submit.
func (h *CVHandler) Submit(w http.ResponseWriter, r *http.Request) {
	req, ok := h.submissionRequest(w, r)
	if !ok {
		return
	}
	receipt, err := h.service.Submit(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receiptToResponse(receipt))
}

// CheckAndSubmit handles POST /cv/check-and-submit.
func (h *CVHandler) CheckAndSubmit(w http.ResponseWriter, r *http.Request) {
	req, ok := h.submissionRequest(w, r)
	if !ok {
		return
	}
	receipt, err := h.service.CheckAndSubmit(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := receiptToResponse(receipt)
	eligible := true
	resp.CanGenerateCV = &eligible
	resp.PreviousSubmission = lastSubmissionToDTO(receipt.PreviousSubmission)
	writeJSON(w, http.StatusCreated, resp)
}

// ListCompanies handles GET /cv/companies.
func (h *CVHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.service.ListCompanies(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusesToResponse(statuses))
}

// CompanyHistory handles GET /cv/companies/{id}/submissions.
func (h *CVHandler) CompanyHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid company ID"})
		return
	}
	history, err := h.service.CompanyHistory(r.Context(), id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not Found", Message: err.Error()})
			return
		}
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Success:     true,
		Company:     companyToRecord(&history.Company),
		Count:       len(history.Submissions),
		Submissions: submissionsToDTO(history.Submissions),
	})
}

// DeleteCompany handles DELETE /cv/companies/{id}. A missing company is
// reported as a server error.
func (h *CVHandler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Company ID is required"})
		return
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid company ID"})
		return
	}
	deleted, err := h.service.DeleteCompany(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{
		Success: true,
		Message: "Company and all submissions deleted",
		Company: companyToRecord(deleted),
	})
}

// Seed handles POST /cv/seed.
func (h *CVHandler) Seed(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", e.ErrInvalidInput, err))
		return
	}
	if err := h.seedCheck.Validate(body); err != nil {
		h.writeError(w, err)
		return
	}
	var req seedRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid request body: %v", e.ErrInvalidInput, err))
		return
	}
	results, err := h.service.Seed(r.Context(), req.toModel())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, seedResultsToResponse(results))
}

// QueueStats handles GET /queue/stats.
func (h *CVHandler) QueueStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.service.QueueStats())
}

// Health pings the store and reports uptime.
func (h *CVHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startedAt).Seconds(),
		Database:  "ok",
	}
	if err := h.service.Ping(ctx); err != nil {
		h.logger.Warn("Health check failed", zap.Error(err))
		resp.Status = "down"
		resp.Database = "down"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// NotFound answers every unmatched route.
func (h *CVHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{
		Error:   "Not Found",
		Message: fmt.Sprintf("Route %s %s not found", r.Method, r.URL.Path),
	})
}
