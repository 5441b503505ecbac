package cryptoutils

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// CertPEM is a single PEM-encoded X.509 certificate.
type CertPEM []byte

// CertChainPEM is a PEM-encoded certificate chain, leaf first.
type CertChainPEM []byte

// KeyPEM is a PEM-encoded private key (PKCS#8, SEC1 EC, or PKCS#1).
type KeyPEM []byte

// CSRPEM is a PEM-encoded PKCS#10 certificate signing request.
type CSRPEM []byte

// GetX509Cert parses the certificate.
func (c CertPEM) GetX509Cert() (*x509.Certificate, error) {
	block, _ := pem.Decode(c)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%w: no certificate PEM block", interfaces.ErrInvalidCredentialFormat)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidCredentialFormat, err)
	}
	return cert, nil
}

// GetX509Certs parses every certificate in the chain, leaf first.
func (c CertChainPEM) GetX509Certs() ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := []byte(c)
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidCredentialFormat, err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: no certificates in chain", interfaces.ErrInvalidCredentialFormat)
	}
	return certs, nil
}

// Leaf parses and returns the first certificate of the chain.
func (c CertChainPEM) Leaf() (*x509.Certificate, error) {
	certs, err := c.GetX509Certs()
	if err != nil {
		return nil, err
	}
	return certs[0], nil
}

// GetX509CSR parses the certificate signing request.
func (c CSRPEM) GetX509CSR() (*x509.CertificateRequest, error) {
	block, _ := pem.Decode(c)
	if block == nil || block.Type != "CERTIFICATE REQUEST" {
		return nil, fmt.Errorf("%w: no certificate request PEM block", interfaces.ErrInvalidCredentialFormat)
	}
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidCredentialFormat, err)
	}
	return csr, nil
}

// ParsePrivateKey parses a PEM private key, trying PKCS#8, SEC1 EC and
// PKCS#1 encodings in that order.
func (k KeyPEM) ParsePrivateKey() (crypto.Signer, error) {
	block, _ := pem.Decode(k)
	if block == nil {
		return nil, fmt.Errorf("%w: no private key PEM block", interfaces.ErrInvalidCredentialFormat)
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("%w: key type cannot sign", interfaces.ErrInvalidCredentialFormat)
		}
		return signer, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("%w: unrecognized private key encoding", interfaces.ErrInvalidCredentialFormat)
}

// MarshalPrivateKey encodes a private key as PKCS#8 PEM.
func MarshalPrivateKey(key crypto.Signer) (KeyPEM, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// PublicKeyPEM encodes a public key as PKIX PEM.
func PublicKeyPEM(pub crypto.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// ErrEmptyChain is returned when operating on an empty certificate chain.
var ErrEmptyChain = errors.New("empty certificate chain")
