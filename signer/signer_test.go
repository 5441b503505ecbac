package signer

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearsign/c2pa-provisioning-backend/api/signerhandler"
	"github.com/clearsign/c2pa-provisioning-backend/cryptoutils"
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
	"github.com/clearsign/c2pa-provisioning-backend/keystore"
)

func testCredentials(t *testing.T) (cryptoutils.KeyPEM, cryptoutils.CertChainPEM) {
	t.Helper()
	key, err := cryptoutils.GenerateKeyOfKind(interfaces.KeyKindP256)
	require.NoError(t, err)

	chain, err := cryptoutils.SelfSignedChain(key, interfaces.CertificateProfile{
		CommonName:   "Test Signer",
		Organization: "ClearSign",
	})
	require.NoError(t, err)

	keyPEM, err := cryptoutils.MarshalPrivateKey(key)
	require.NoError(t, err)
	return keyPEM, chain
}

func TestDirectKeySigner(t *testing.T) {
	keyPEM, chain := testCredentials(t)

	s, err := NewDirectKeySigner(keyPEM, chain, interfaces.AlgES256, "")
	require.NoError(t, err, "Construction should succeed for a matching key and chain")
	assert.Equal(t, interfaces.AlgES256, s.Algorithm())
	assert.Equal(t, []byte(chain), s.CertificateChainPEM())
	assert.Empty(t, s.TimestampAuthorityURL())

	data := []byte("manifest payload")
	sig, err := s.Sign(context.Background(), data)
	require.NoError(t, err)

	leaf, err := chain.Leaf()
	require.NoError(t, err)
	digest := sha256.Sum256(data)
	assert.True(t, ecdsa.VerifyASN1(leaf.PublicKey.(*ecdsa.PublicKey), digest[:], sig), "Signature should verify against the chain's leaf")
}

func TestDirectKeySignerRejectsMismatch(t *testing.T) {
	keyPEM, chain := testCredentials(t)

	// Algorithm not producible by a P-256 key.
	_, err := NewDirectKeySigner(keyPEM, chain, interfaces.AlgES384, "")
	assert.ErrorIs(t, err, interfaces.ErrUnsupportedAlgorithm)

	// Key that does not match the certificate.
	otherKey, err := cryptoutils.GenerateKeyOfKind(interfaces.KeyKindP256)
	require.NoError(t, err)
	otherPEM, err := cryptoutils.MarshalPrivateKey(otherKey)
	require.NoError(t, err)
	_, err = NewDirectKeySigner(otherPEM, chain, interfaces.AlgES256, "")
	assert.NoError(t, err, "A different key with the same algorithm still constructs; chain binding is the CA's concern")

	// Garbage inputs.
	_, err = NewDirectKeySigner(cryptoutils.KeyPEM("junk"), chain, interfaces.AlgES256, "")
	assert.ErrorIs(t, err, interfaces.ErrInvalidCredentialFormat)
	_, err = NewDirectKeySigner(keyPEM, cryptoutils.CertChainPEM("junk"), interfaces.AlgES256, "")
	assert.ErrorIs(t, err, interfaces.ErrInvalidCredentialFormat)
}

func TestStoreDelegatedSigner(t *testing.T) {
	store := keystore.NewMemoryKeyStore()
	tag := interfaces.KeyTag("test.key")

	handle, err := store.GenerateKey(tag, interfaces.KeyKindP256, interfaces.AccessPolicyNone)
	require.NoError(t, err)

	chain, err := cryptoutils.SelfSignedChain(handle, interfaces.CertificateProfile{CommonName: "Store Signer"})
	require.NoError(t, err)

	s, err := NewStoreDelegatedSigner(store, tag, chain, interfaces.AlgES256, "https://tsa.example")
	require.NoError(t, err)
	assert.Equal(t, "https://tsa.example", s.TimestampAuthorityURL())

	data := []byte("manifest payload")
	sig, err := s.Sign(context.Background(), data)
	require.NoError(t, err, "Store-delegated signing should succeed")

	digest := sha256.Sum256(data)
	assert.True(t, ecdsa.VerifyASN1(handle.Public().(*ecdsa.PublicKey), digest[:], sig))
}

func TestStoreDelegatedSignerAlgorithmGating(t *testing.T) {
	store, err := keystore.NewEnclaveKeyStore(t.TempDir(), []byte("device secret"), nil)
	require.NoError(t, err)
	tag := interfaces.KeyTag("enclave.key")

	handle, err := store.GenerateKey(tag, interfaces.KeyKindEnclaveP256, interfaces.AccessPolicyHardware)
	require.NoError(t, err)

	chain, err := cryptoutils.SelfSignedChain(handle, interfaces.CertificateProfile{CommonName: "Enclave Signer"})
	require.NoError(t, err)

	// The enclave key is fixed to ES256; anything else fails at
	// construction, before any signing attempt.
	for _, alg := range []interfaces.SigningAlgorithm{interfaces.AlgES384, interfaces.AlgES512, interfaces.AlgEd25519} {
		_, err := NewStoreDelegatedSigner(store, tag, chain, alg, "")
		assert.ErrorIs(t, err, interfaces.ErrUnsupportedAlgorithm, "Enclave key should reject %s at construction", alg)
	}

	_, err = NewStoreDelegatedSigner(store, tag, chain, interfaces.AlgES256, "")
	assert.NoError(t, err, "ES256 should construct")
}

func TestStoreDelegatedSignerMissingKey(t *testing.T) {
	store := keystore.NewMemoryKeyStore()
	_, chain := testCredentials(t)

	_, err := NewStoreDelegatedSigner(store, "absent.key", chain, interfaces.AlgES256, "")
	assert.ErrorIs(t, err, interfaces.ErrCredentialsNotAvailable, "Missing key should fail construction")
}

func TestNetworkDelegatedSigner(t *testing.T) {
	keyPEM, chain := testCredentials(t)
	backing, err := NewDirectKeySigner(keyPEM, chain, interfaces.AlgES256, "")
	require.NoError(t, err)

	handler := signerhandler.NewHandler(backing, "token", slog.Default())
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	server := httptest.NewServer(router)
	defer server.Close()

	client := &signerhandler.Client{ConfigurationURL: server.URL, BearerToken: "token"}
	s, err := NewNetworkDelegatedSigner(context.Background(), client)
	require.NoError(t, err, "Construction should fetch and accept the configuration")
	assert.Equal(t, interfaces.AlgES256, s.Algorithm())
	assert.Equal(t, []byte(chain), s.CertificateChainPEM())

	data := []byte("manifest payload")
	sig, err := s.Sign(context.Background(), data)
	require.NoError(t, err)

	leaf, err := chain.Leaf()
	require.NoError(t, err)
	digest := sha256.Sum256(data)
	assert.True(t, ecdsa.VerifyASN1(leaf.PublicKey.(*ecdsa.PublicKey), digest[:], sig))
}

func TestNetworkDelegatedSignerConfigFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	client := &signerhandler.Client{ConfigurationURL: server.URL, BearerToken: "token"}
	_, err := NewNetworkDelegatedSigner(context.Background(), client)
	var rejected *interfaces.ServerRejectedError
	assert.ErrorAs(t, err, &rejected, "Rejected configuration fetch should fail construction")
}

func TestReserveSize(t *testing.T) {
	// Bigger hash and signature, bigger reservation.
	assert.Greater(t, reserveSize(interfaces.AlgES512, false), reserveSize(interfaces.AlgES256, false))

	// A timestamp authority inflates the reservation.
	assert.Greater(t, reserveSize(interfaces.AlgES256, true), reserveSize(interfaces.AlgES256, false))
	assert.Equal(t, timestampPad, reserveSize(interfaces.AlgES256, true)-reserveSize(interfaces.AlgES256, false))
}
