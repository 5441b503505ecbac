package enrollhandler

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearsign/c2pa-provisioning-backend/api"
	"github.com/clearsign/c2pa-provisioning-backend/cryptoutils"
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
	"github.com/clearsign/c2pa-provisioning-backend/kms"
)

func testCA(t *testing.T) *kms.SimpleCA {
	t.Helper()
	masterKey := make([]byte, 32)
	_, err := rand.Read(masterKey)
	require.NoError(t, err)

	ca, err := kms.NewSimpleCA(masterKey, "Test CA")
	require.NoError(t, err)
	return ca
}

func testCSR(t *testing.T) cryptoutils.CSRPEM {
	t.Helper()
	_, csr, err := cryptoutils.CreateCSRWithRandomKey(interfaces.CertificateProfile{
		CommonName:   "Device Key",
		Organization: "ClearSign",
	})
	require.NoError(t, err)
	return csr
}

func newTestRouter(t *testing.T, authToken string) http.Handler {
	t.Helper()
	handler := NewHandler(testCA(t), authToken, slog.Default())
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func postEnrollment(t *testing.T, router http.Handler, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, api.EnrollmentPath, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleEnroll(t *testing.T) {
	router := newTestRouter(t, "secret-token")

	deviceID := "device-1"
	body, err := json.Marshal(api.EnrollmentRequest{
		CSR:      string(testCSR(t)),
		Metadata: api.EnrollmentMetadata{DeviceID: &deviceID},
	})
	require.NoError(t, err)

	rec := postEnrollment(t, router, "secret-token", body)
	require.Equal(t, http.StatusOK, rec.Code, "Valid enrollment should succeed")

	var resp api.EnrollmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.CertificateID)
	assert.NotEmpty(t, resp.SerialNumber)
	assert.False(t, resp.ExpiresAt.IsZero())

	certs, err := cryptoutils.CertChainPEM(resp.CertificateChain).GetX509Certs()
	require.NoError(t, err, "Returned chain should parse")
	require.Equal(t, 2, len(certs), "Chain should hold leaf and CA certificate")
	assert.Equal(t, "Device Key", certs[0].Subject.CommonName)
}

func TestHandleEnrollUnauthorized(t *testing.T) {
	router := newTestRouter(t, "secret-token")

	body, err := json.Marshal(api.EnrollmentRequest{CSR: string(testCSR(t))})
	require.NoError(t, err)

	rec := postEnrollment(t, router, "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "Missing token should be rejected")

	rec = postEnrollment(t, router, "wrong-token", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "Wrong token should be rejected")
}

func TestHandleEnrollBadRequests(t *testing.T) {
	router := newTestRouter(t, "")

	rec := postEnrollment(t, router, "", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "Undecodable body should be a 400")

	body, err := json.Marshal(api.EnrollmentRequest{CSR: "   "})
	require.NoError(t, err)
	rec = postEnrollment(t, router, "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "Blank CSR should be a 400")

	body, err = json.Marshal(api.EnrollmentRequest{CSR: "not a csr"})
	require.NoError(t, err)
	rec = postEnrollment(t, router, "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "Unparseable CSR should be a 400")
}
