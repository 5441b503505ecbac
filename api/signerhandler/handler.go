package signerhandler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clearsign/c2pa-provisioning-backend/api"
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
	"github.com/clearsign/c2pa-provisioning-backend/metrics"
)

// Handler exposes a signer over HTTP as a remote signing service. The
// configuration endpoint advertises algorithm, chain and timestamp
// authority; the signing endpoint produces signatures with the backing
// signer. Private key placement is the backing signer's concern.
type Handler struct {
	signer    interfaces.Signer
	authToken string
	log       *slog.Logger
}

// NewHandler creates a remote signing service handler backed by the given
// signer. authToken is the bearer token clients must present; empty
// disables authentication.
func NewHandler(signer interfaces.Signer, authToken string, log *slog.Logger) *Handler {
	return &Handler{
		signer:    signer,
		authToken: authToken,
		log:       log,
	}
}

// RegisterRoutes configures the router with the signing service endpoints:
//   - GET  /api/v1/c2pa/configuration
//   - POST /api/v1/c2pa/sign
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get(api.SignerConfigPath, h.HandleConfiguration)
	r.Post(api.SignerSignPath, h.HandleSign)
}

// HandleConfiguration reports the service's signing configuration.
func (h *Handler) HandleConfiguration(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "invalid bearer token", http.StatusUnauthorized)
		return
	}

	response := api.SignerConfigurationResponse{
		Algorithm:             h.signer.Algorithm().String(),
		CertificateChain:      string(h.signer.CertificateChainPEM()),
		TimestampAuthorityURL: h.signer.TimestampAuthorityURL(),
		SigningURL:            api.SignerSignPath,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error("Failed to encode configuration response", "err", err)
	}
}

// HandleSign signs the posted payload.
//
// Status codes:
//   - 200 OK: JSON-encoded api.RemoteSignResponse
//   - 400 Bad Request: undecodable body or empty payload
//   - 401 Unauthorized: missing or wrong bearer token
//   - 500 Internal Server Error: signing failure
func (h *Handler) HandleSign(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "invalid bearer token", http.StatusUnauthorized)
		return
	}

	var req api.RemoteSignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Payload) == 0 {
		http.Error(w, "missing payload", http.StatusBadRequest)
		return
	}

	signature, err := h.signer.Sign(r.Context(), req.Payload)
	if err != nil {
		h.log.Error("Remote signing failed", "err", err)
		http.Error(w, "signing failed", http.StatusInternalServerError)
		return
	}

	metrics.RemoteSignaturesTotal.Inc()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(api.RemoteSignResponse{Signature: signature}); err != nil {
		h.log.Error("Failed to encode sign response", "err", err)
	}
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.authToken == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+h.authToken
}
