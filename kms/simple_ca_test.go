package kms

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearsign/c2pa-provisioning-backend/cryptoutils"
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

func testMasterKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err, "Failed to generate test master key")
	return key
}

func TestNewSimpleCA(t *testing.T) {
	ca, err := NewSimpleCA(testMasterKey(t), "Test CA")
	require.NoError(t, err, "NewSimpleCA should succeed with a 32-byte key")
	assert.NotNil(t, ca)

	_, err = NewSimpleCA(make([]byte, 16), "Test CA")
	assert.Error(t, err, "Should fail with master key < 32 bytes")
}

func TestCACertDeterministic(t *testing.T) {
	masterKey := testMasterKey(t)

	ca1, err := NewSimpleCA(masterKey, "Test CA")
	require.NoError(t, err)
	ca2, err := NewSimpleCA(masterKey, "Test CA")
	require.NoError(t, err)

	certPEM1, err := ca1.CACert()
	require.NoError(t, err)
	certPEM2, err := ca2.CACert()
	require.NoError(t, err)

	cert1, err := certPEM1.GetX509Cert()
	require.NoError(t, err)
	cert2, err := certPEM2.GetX509Cert()
	require.NoError(t, err)

	// Same master key derives the same CA identity.
	assert.Equal(t, cert1.SerialNumber, cert2.SerialNumber, "CA serial should be derived from the master key")
	assert.Equal(t, cert1.PublicKey, cert2.PublicKey, "CA key should be derived from the master key")
	assert.Equal(t, cert1.Subject.CommonName, "Test CA")
	assert.True(t, cert1.IsCA, "CA certificate should carry the CA flag")
}

func TestCACertDiffersByName(t *testing.T) {
	masterKey := testMasterKey(t)

	ca1, err := NewSimpleCA(masterKey, "CA One")
	require.NoError(t, err)
	ca2, err := NewSimpleCA(masterKey, "CA Two")
	require.NoError(t, err)

	certPEM1, err := ca1.CACert()
	require.NoError(t, err)
	certPEM2, err := ca2.CACert()
	require.NoError(t, err)

	cert1, err := certPEM1.GetX509Cert()
	require.NoError(t, err)
	cert2, err := certPEM2.GetX509Cert()
	require.NoError(t, err)

	assert.NotEqual(t, cert1.PublicKey, cert2.PublicKey, "Differently named CAs should derive different keys")
}

func TestSignCSR(t *testing.T) {
	ca, err := NewSimpleCA(testMasterKey(t), "Test CA")
	require.NoError(t, err)

	_, csr, err := cryptoutils.CreateCSRWithRandomKey(interfaces.CertificateProfile{
		CommonName:   "Device Key",
		Organization: "ClearSign",
	})
	require.NoError(t, err)

	issued, err := ca.SignCSR(csr)
	require.NoError(t, err, "SignCSR should succeed for a valid CSR")
	assert.NotEmpty(t, issued.SerialNumber)
	assert.False(t, issued.NotAfter.IsZero())

	certs, err := issued.ChainPEM.GetX509Certs()
	require.NoError(t, err, "Issued chain should parse")
	require.Equal(t, 2, len(certs), "Chain should hold leaf and CA certificate")

	leaf, caCert := certs[0], certs[1]
	assert.Equal(t, "Device Key", leaf.Subject.CommonName)
	assert.NoError(t, leaf.CheckSignatureFrom(caCert), "Leaf should verify against the CA")
}

func TestSignCSRRejectsGarbage(t *testing.T) {
	ca, err := NewSimpleCA(testMasterKey(t), "Test CA")
	require.NoError(t, err)

	_, err = ca.SignCSR(cryptoutils.CSRPEM("not a csr"))
	assert.Error(t, err, "Should reject undecodable CSR")
}
