// Package httphandler is the HTTP driving adapter. It exposes the GitHub
// webhook endpoint that drives the challenge commands, the Greenhouse
// assessment partner API, and a health check.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/beat-interviewing/challenge-bot/internal/application"
	"github.com/beat-interviewing/challenge-bot/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the bot's endpoints.
type Handler struct {
	challenges    *application.ChallengeService
	greenhouse    *application.GreenhouseService
	webhookSecret []byte
	logger        *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. An empty
// webhookSecret disables webhook signature verification.
func NewHandler(
	challenges *application.ChallengeService,
	greenhouse *application.GreenhouseService,
	webhookSecret string,
	logger *slog.Logger,
) *Handler {
	var secret []byte
	if webhookSecret != "" {
		secret = []byte(webhookSecret)
	}
	return &Handler{
		challenges:    challenges,
		greenhouse:    greenhouse,
		webhookSecret: secret,
		logger:        logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware. The Greenhouse routes additionally
// require basic authentication with the given API key.
func NewServeMux(h *Handler, greenhouseAPIKey string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/github/webhooks", h.Webhook)

	greenhouse := http.NewServeMux()
	greenhouse.HandleFunc("GET /api/greenhouse/challenges", h.ListTests)
	greenhouse.HandleFunc("POST /api/greenhouse/challenges", h.SendTest)
	greenhouse.HandleFunc("GET /api/greenhouse/challenges/status", h.TestStatus)
	greenhouse.HandleFunc("PATCH /api/greenhouse/challenges/status", h.MarkCompleted)
	greenhouse.HandleFunc("POST /api/greenhouse/errors", h.IngestError)
	mux.Handle("/api/greenhouse/", basicAuthMiddleware(greenhouseAPIKey, greenhouse))

	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListTests returns the tests available to Greenhouse users.
func (h *Handler) ListTests(w http.ResponseWriter, r *http.Request) {
	tests, err := h.greenhouse.ListTests(r.Context())
	if err != nil {
		h.logger.Error("failed to list tests", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]TestResponse, 0, len(tests))
	for _, t := range tests {
		resp = append(resp, toTestResponse(t))
	}

	writeJSON(w, http.StatusOK, resp)
}

// SendTest opens a challenge thread for the candidate Greenhouse sent us.
func (h *Handler) SendTest(w http.ResponseWriter, r *http.Request) {
	var req SendTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PartnerTestID == "" {
		writeError(w, http.StatusBadRequest, "partner_test_id is required")
		return
	}

	interviewID, err := h.greenhouse.SendTest(r.Context(), application.CandidateRequest{
		TestID:     req.PartnerTestID,
		FirstName:  req.Candidate.FirstName,
		LastName:   req.Candidate.LastName,
		Email:      req.Candidate.Email,
		ProfileURL: req.Candidate.ProfileURL,
		URL:        req.URL,
	})
	if errors.Is(err, driven.ErrUserNotFound) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to send test", "test", req.PartnerTestID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, SendTestResponse{PartnerInterviewID: interviewID})
}

// TestStatus reports the current status of an interview to Greenhouse.
func (h *Handler) TestStatus(w http.ResponseWriter, r *http.Request) {
	interviewID := r.URL.Query().Get("partner_interview_id")
	if interviewID == "" {
		writeError(w, http.StatusBadRequest, "partner_interview_id is required")
		return
	}

	status, err := h.greenhouse.TestStatus(r.Context(), interviewID)
	if err != nil {
		h.logger.Error("failed to get test status", "interview", interviewID, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toTestStatusResponse(status))
}

// MarkCompleted re-notifies Greenhouse that the interview's test completed.
func (h *Handler) MarkCompleted(w http.ResponseWriter, r *http.Request) {
	interviewID := r.URL.Query().Get("partner_interview_id")
	if interviewID == "" {
		writeError(w, http.StatusBadRequest, "partner_interview_id is required")
		return
	}

	if err := h.greenhouse.Complete(r.Context(), interviewID); err != nil {
		h.logger.Error("failed to mark test completed", "interview", interviewID, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// IngestError receives Greenhouse's report of a malformed response from one
// of our endpoints. The report is logged and acknowledged.
func (h *Handler) IngestError(w http.ResponseWriter, r *http.Request) {
	var report map[string]any
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.logger.Error("greenhouse reported a response error", "report", report)
	writeJSON(w, http.StatusOK, map[string]int{"status": http.StatusOK})
}

// Health returns the service health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
