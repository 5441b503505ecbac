package kms

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/clearsign/c2pa-provisioning-backend/cryptoutils"
)

// LeafValidity is the validity period of certificates issued by SimpleCA.
const LeafValidity = 365 * 24 * time.Hour

// SimpleCA provides a deterministic certificate authority implementation.
// It derives its signing key from a master key, suitable for development and
// testing deployments of the enrollment service.
type SimpleCA struct {
	masterKey []byte
	name      string
}

// NewSimpleCA creates a new instance with the provided master key.
// The master key must be at least 32 bytes long.
func NewSimpleCA(masterKey []byte, name string) (*SimpleCA, error) {
	if len(masterKey) < 32 {
		return nil, errors.New("master key must be at least 32 bytes")
	}
	if name == "" {
		name = "ClearSign Development CA"
	}
	return &SimpleCA{masterKey: masterKey, name: name}, nil
}

// IssuedCertificate is the result of signing a CSR: the full chain (leaf
// first, CA certificate last) plus the fields reported to the enrollee.
type IssuedCertificate struct {
	ChainPEM     cryptoutils.CertChainPEM
	SerialNumber string
	NotAfter     time.Time
}

// CACert returns the self-signed CA certificate.
func (c *SimpleCA) CACert() (cryptoutils.CertPEM, error) {
	caKey, err := c.deriveCAKey()
	if err != nil {
		return nil, err
	}
	return c.caCertificate(caKey)
}

// SignCSR verifies the request's signature and issues a leaf certificate
// valid for one year, returning the leaf chained to the CA certificate.
func (c *SimpleCA) SignCSR(csr cryptoutils.CSRPEM) (*IssuedCertificate, error) {
	parsedCSR, err := csr.GetX509CSR()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSR: %w", err)
	}

	if err := parsedCSR.CheckSignature(); err != nil {
		return nil, fmt.Errorf("CSR signature verification failed: %w", err)
	}

	caKey, err := c.deriveCAKey()
	if err != nil {
		return nil, err
	}

	caCertPEM, err := c.caCertificate(caKey)
	if err != nil {
		return nil, err
	}
	caCert, err := caCertPEM.GetX509Cert()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CA certificate: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber:          serialNumber,
		Subject:               parsedCSR.Subject,
		NotBefore:             now,
		NotAfter:              now.Add(LeafValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageEmailProtection},
		BasicConstraintsValid: true,
		EmailAddresses:        parsedCSR.EmailAddresses,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, caCert, parsedCSR.PublicKey, caKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	leafPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	chain := append(cryptoutils.CertChainPEM{}, leafPEM...)
	chain = append(chain, caCertPEM...)

	return &IssuedCertificate{
		ChainPEM:     chain,
		SerialNumber: hex.EncodeToString(serialNumber.Bytes()),
		NotAfter:     template.NotAfter,
	}, nil
}

// deriveCAKey derives the CA key deterministically from the master key.
// Creates a P-256 key so the CA survives process restarts without state.
func (c *SimpleCA) deriveCAKey() (*ecdsa.PrivateKey, error) {
	h := sha256.New()
	h.Write(c.masterKey)
	h.Write([]byte(c.name))
	h.Write([]byte("ca"))
	seed := h.Sum(nil)

	curve := elliptic.P256()
	privateKey := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve},
		D:         new(big.Int).SetBytes(seed[:32]),
	}
	privateKey.PublicKey.X, privateKey.PublicKey.Y = curve.ScalarBaseMult(seed[:32])

	if privateKey.D.Cmp(curve.Params().N) >= 0 || privateKey.D.Sign() == 0 {
		return nil, errors.New("derived CA key out of range")
	}

	return privateKey, nil
}

// caCertificate creates the self-signed CA certificate. Deterministic key,
// serial and validity window keep the CA identity stable across restarts.
func (c *SimpleCA) caCertificate(caKey *ecdsa.PrivateKey) (cryptoutils.CertPEM, error) {
	serialSeed := sha256.Sum256(append(c.masterKey, []byte("ca-serial")...))
	serialNumber := new(big.Int).SetBytes(serialSeed[:16])

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"ClearSign"},
			CommonName:   c.name,
		},
		NotBefore:             time.Unix(0, 0),
		NotAfter:              time.Unix(0, 0).AddDate(100, 0, 0),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            1,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &caKey.PublicKey, caKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}), nil
}
