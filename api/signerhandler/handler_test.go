package signerhandler_test

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearsign/c2pa-provisioning-backend/api"
	"github.com/clearsign/c2pa-provisioning-backend/api/signerhandler"
	"github.com/clearsign/c2pa-provisioning-backend/cryptoutils"
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
	"github.com/clearsign/c2pa-provisioning-backend/signer"
)

func testSigner(t *testing.T) interfaces.Signer {
	t.Helper()
	key, err := cryptoutils.GenerateKeyOfKind(interfaces.KeyKindP256)
	require.NoError(t, err)

	chain, err := cryptoutils.SelfSignedChain(key, interfaces.CertificateProfile{
		CommonName:   "Remote Signer",
		Organization: "ClearSign",
	})
	require.NoError(t, err)

	keyPEM, err := cryptoutils.MarshalPrivateKey(key)
	require.NoError(t, err)

	s, err := signer.NewDirectKeySigner(keyPEM, chain, interfaces.AlgES256, "https://tsa.example")
	require.NoError(t, err)
	return s
}

func newTestServer(t *testing.T, authToken string) *httptest.Server {
	t.Helper()
	handler := signerhandler.NewHandler(testSigner(t), authToken, slog.Default())
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestHandleConfiguration(t *testing.T) {
	server := newTestServer(t, "secret-token")

	req, err := http.NewRequest(http.MethodGet, server.URL+api.SignerConfigPath, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret-token")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var config api.SignerConfigurationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&config))
	assert.Equal(t, "es256", config.Algorithm)
	assert.Equal(t, "https://tsa.example", config.TimestampAuthorityURL)
	assert.Equal(t, api.SignerSignPath, config.SigningURL)
	assert.NotEmpty(t, config.CertificateChain)
}

func TestHandleConfigurationUnauthorized(t *testing.T) {
	server := newTestServer(t, "secret-token")

	resp, err := http.Get(server.URL + api.SignerConfigPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleSign(t *testing.T) {
	server := newTestServer(t, "")

	payload := []byte("manifest bytes")
	body, err := json.Marshal(api.RemoteSignRequest{Payload: payload})
	require.NoError(t, err)

	resp, err := http.Post(server.URL+api.SignerSignPath, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var signResp api.RemoteSignResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&signResp))
	assert.NotEmpty(t, signResp.Signature)
}

func TestHandleSignBadRequests(t *testing.T) {
	server := newTestServer(t, "")

	resp, err := http.Post(server.URL+api.SignerSignPath, "application/json", bytes.NewReader([]byte("{bad")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "Undecodable body should be a 400")

	body, err := json.Marshal(api.RemoteSignRequest{})
	require.NoError(t, err)
	resp, err = http.Post(server.URL+api.SignerSignPath, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "Empty payload should be a 400")
}

func TestClientFetchConfiguration(t *testing.T) {
	server := newTestServer(t, "secret-token")

	client := &signerhandler.Client{ConfigurationURL: server.URL, BearerToken: "secret-token"}
	config, err := client.FetchConfiguration(context.Background())
	require.NoError(t, err, "Configuration fetch against a live handler should succeed")

	assert.Equal(t, interfaces.AlgES256, config.Algorithm)
	assert.NotEmpty(t, config.CertificateChainPEM)
	// The relative signing URL is resolved against the configuration URL.
	assert.Equal(t, server.URL+api.SignerSignPath, config.SigningURL)
}

func TestClientSignRoundTrip(t *testing.T) {
	server := newTestServer(t, "secret-token")

	client := &signerhandler.Client{ConfigurationURL: server.URL, BearerToken: "secret-token"}
	config, err := client.FetchConfiguration(context.Background())
	require.NoError(t, err)

	payload := []byte("manifest bytes")
	sig, err := client.Sign(context.Background(), config.SigningURL, payload)
	require.NoError(t, err, "Remote signing should succeed")

	// The signature verifies against the advertised chain.
	leaf, err := cryptoutils.CertChainPEM(config.CertificateChainPEM).Leaf()
	require.NoError(t, err)
	pub, ok := leaf.PublicKey.(*ecdsa.PublicKey)
	require.True(t, ok)
	digest := sha256.Sum256(payload)
	assert.True(t, ecdsa.VerifyASN1(pub, digest[:], sig), "Signature should verify against the service certificate")
}

func TestClientConfigurationMissing(t *testing.T) {
	transportCalls := 0
	client := &signerhandler.Client{
		ConfigurationURL: "",
		BearerToken:      "token",
		HTTPClient: &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			transportCalls++
			return http.DefaultTransport.RoundTrip(req)
		})},
	}

	_, err := client.FetchConfiguration(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrConfigurationMissing)
	assert.Equal(t, 0, transportCalls, "No network requests should be issued")
}

func TestClientMalformedConfiguration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"algorithm":"rot13","certificate_chain":"x"}`))
	}))
	defer server.Close()

	client := &signerhandler.Client{ConfigurationURL: server.URL, BearerToken: "token"}
	_, err := client.FetchConfiguration(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrMalformedResponse, "Unknown algorithm should be a malformed response")
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
