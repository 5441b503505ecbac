package enrollhandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clearsign/c2pa-provisioning-backend/api"
	"github.com/clearsign/c2pa-provisioning-backend/cryptoutils"
	"github.com/clearsign/c2pa-provisioning-backend/kms"
	"github.com/clearsign/c2pa-provisioning-backend/metrics"
)

// Handler processes certificate enrollment requests. It verifies bearer
// authentication, validates the submitted CSR, and returns the chain issued
// by the backing certificate authority.
type Handler struct {
	ca        *kms.SimpleCA
	authToken string
	log       *slog.Logger
}

// NewHandler creates an enrollment handler. authToken is the bearer token
// clients must present; empty disables authentication (tests, local dev).
func NewHandler(ca *kms.SimpleCA, authToken string, log *slog.Logger) *Handler {
	return &Handler{
		ca:        ca,
		authToken: authToken,
		log:       log,
	}
}

// RegisterRoutes configures the router with the enrollment endpoint:
//   - POST /api/v1/certificates/sign
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post(api.EnrollmentPath, h.HandleEnroll)
}

// HandleEnroll processes a CSR submission.
//
// Status codes:
//   - 200 OK: certificate issued, JSON-encoded api.EnrollmentResponse
//   - 400 Bad Request: missing or unparseable CSR
//   - 401 Unauthorized: missing or wrong bearer token
//   - 500 Internal Server Error: CA failure
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "invalid bearer token", http.StatusUnauthorized)
		return
	}

	var req api.EnrollmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("Invalid enrollment request body", "err", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.CSR) == "" {
		http.Error(w, "missing csr", http.StatusBadRequest)
		return
	}

	issued, err := h.ca.SignCSR(cryptoutils.CSRPEM(req.CSR))
	if err != nil {
		h.log.Error("Failed to sign CSR", "err", err,
			"deviceID", derefOr(req.Metadata.DeviceID, ""),
			"appVersion", derefOr(req.Metadata.AppVersion, ""))
		http.Error(w, "failed to sign certificate request", http.StatusBadRequest)
		return
	}

	metrics.EnrollmentsTotal.Inc()

	response := api.EnrollmentResponse{
		CertificateID:    uuid.NewString(),
		CertificateChain: string(issued.ChainPEM),
		ExpiresAt:        issued.NotAfter,
		SerialNumber:     issued.SerialNumber,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error("Failed to encode enrollment response", "err", err)
	}
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.authToken == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+h.authToken
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
