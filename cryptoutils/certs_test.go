package cryptoutils

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

func testProfile() interfaces.CertificateProfile {
	return interfaces.CertificateProfile{
		CommonName:         "Test Signer",
		Organization:       "ClearSign",
		OrganizationalUnit: "Engineering",
		Country:            "US",
	}
}

func TestSelfSignedChain(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err, "Failed to generate test key")

	chain, err := SelfSignedChain(key, testProfile())
	require.NoError(t, err, "SelfSignedChain should succeed")

	certs, err := chain.GetX509Certs()
	require.NoError(t, err, "Chain should parse")
	require.Equal(t, 1, len(certs), "Self-signed chain should hold a single leaf")

	leaf := certs[0]
	assert.Equal(t, "Test Signer", leaf.Subject.CommonName)
	assert.Equal(t, []string{"ClearSign"}, leaf.Subject.Organization)
	assert.Equal(t, leaf.Subject.String(), leaf.Issuer.String(), "Leaf should be self-signed")
	assert.NoError(t, leaf.CheckSignatureFrom(leaf), "Leaf should verify against itself")

	// Serial numbers must differ between runs.
	chain2, err := SelfSignedChain(key, testProfile())
	require.NoError(t, err)
	leaf2, err := chain2.Leaf()
	require.NoError(t, err)
	assert.NotEqual(t, leaf.SerialNumber, leaf2.SerialNumber, "Serial numbers should be random")
}

func TestSelfSignedChainValidity(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	profile := testProfile()
	profile.ValidityDays = 30

	chain, err := SelfSignedChain(key, profile)
	require.NoError(t, err)

	leaf, err := chain.Leaf()
	require.NoError(t, err)
	validity := leaf.NotAfter.Sub(leaf.NotBefore)
	assert.InDelta(t, 30.0, validity.Hours()/24, 1.0, "Validity should honor the profile")
}

func TestCreateCSR(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err, "Failed to generate test key")

	csrPEM, err := CreateCSR(key, testProfile())
	require.NoError(t, err, "CreateCSR should succeed")

	csr, err := csrPEM.GetX509CSR()
	require.NoError(t, err, "CSR should parse")
	assert.Equal(t, "Test Signer", csr.Subject.CommonName)
	assert.NoError(t, csr.CheckSignature(), "CSR signature should verify")
}

func TestCreateCSRWithRandomKey(t *testing.T) {
	keyPEM, csrPEM, err := CreateCSRWithRandomKey(testProfile())
	require.NoError(t, err, "CreateCSRWithRandomKey should succeed")

	key, err := keyPEM.ParsePrivateKey()
	require.NoError(t, err, "Generated key should parse")

	csr, err := csrPEM.GetX509CSR()
	require.NoError(t, err, "CSR should parse")
	assert.NoError(t, csr.CheckSignature(), "CSR signature should verify")
	assert.Equal(t, key.Public(), csr.PublicKey, "CSR should embed the generated public key")
}

func TestSignData(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	data := []byte("manifest payload")
	sig, err := SignData(ecKey, data, interfaces.AlgES256)
	require.NoError(t, err, "ES256 signing should succeed")

	digest := sha256.Sum256(data)
	assert.True(t, ecdsa.VerifyASN1(&ecKey.PublicKey, digest[:], sig), "ES256 signature should verify")

	// Algorithm must match the key's curve.
	_, err = SignData(ecKey, data, interfaces.AlgES384)
	assert.ErrorIs(t, err, interfaces.ErrUnsupportedAlgorithm, "P-256 key cannot sign ES384")
}

func TestSignDataEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	data := []byte("manifest payload")
	sig, err := SignData(priv, data, interfaces.AlgEd25519)
	require.NoError(t, err, "Ed25519 signing should succeed")
	assert.True(t, ed25519.Verify(pub, data, sig), "Ed25519 signature should verify")
}

func TestCheckKeyMatchesAlgorithm(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	assert.NoError(t, CheckKeyMatchesAlgorithm(ecKey.Public(), interfaces.AlgES384))
	assert.ErrorIs(t, CheckKeyMatchesAlgorithm(ecKey.Public(), interfaces.AlgES256), interfaces.ErrUnsupportedAlgorithm)
	assert.ErrorIs(t, CheckKeyMatchesAlgorithm(ecKey.Public(), interfaces.AlgEd25519), interfaces.ErrUnsupportedAlgorithm)
}

func TestAlgorithmForPublicKey(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	require.NoError(t, err)

	alg, err := AlgorithmForPublicKey(ecKey.Public())
	require.NoError(t, err)
	assert.Equal(t, interfaces.AlgES512, alg)

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	alg, err = AlgorithmForPublicKey(pub)
	require.NoError(t, err)
	assert.Equal(t, interfaces.AlgEd25519, alg)
}

func TestKeyPEMRoundTrip(t *testing.T) {
	key, err := GenerateKeyOfKind(interfaces.KeyKindP256)
	require.NoError(t, err)

	keyPEM, err := MarshalPrivateKey(key)
	require.NoError(t, err, "Key should marshal")

	parsed, err := keyPEM.ParsePrivateKey()
	require.NoError(t, err, "Key should parse back")
	assert.Equal(t, key.Public(), parsed.Public(), "Round-tripped key should match")
}
