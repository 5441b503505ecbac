package signer

import (
	"context"
	"crypto"
	"fmt"

	"github.com/clearsign/c2pa-provisioning-backend/cryptoutils"
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// DirectKeySigner signs with a private key held in process memory. It
// backs the bundled test credentials and the remote signing service.
type DirectKeySigner struct {
	key      crypto.Signer
	chainPEM cryptoutils.CertChainPEM
	alg      interfaces.SigningAlgorithm
	tsaURL   string
}

// NewDirectKeySigner parses the PEM key and chain and verifies the key
// matches both the requested algorithm and the leaf certificate.
func NewDirectKeySigner(keyPEM cryptoutils.KeyPEM, chainPEM cryptoutils.CertChainPEM, alg interfaces.SigningAlgorithm, tsaURL string) (*DirectKeySigner, error) {
	key, err := keyPEM.ParsePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: parsing signing key: %w", interfaces.ErrInvalidCredentialFormat, err)
	}

	if err := cryptoutils.CheckKeyMatchesAlgorithm(key.Public(), alg); err != nil {
		return nil, err
	}

	leaf, err := chainPEM.Leaf()
	if err != nil {
		return nil, fmt.Errorf("%w: parsing certificate chain: %w", interfaces.ErrInvalidCredentialFormat, err)
	}
	if err := cryptoutils.CheckKeyMatchesAlgorithm(leaf.PublicKey, alg); err != nil {
		return nil, fmt.Errorf("%w: certificate does not match signing key algorithm", interfaces.ErrInvalidCredentialFormat)
	}

	return &DirectKeySigner{
		key:      key,
		chainPEM: chainPEM,
		alg:      alg,
		tsaURL:   tsaURL,
	}, nil
}

func (s *DirectKeySigner) Algorithm() interfaces.SigningAlgorithm { return s.alg }

func (s *DirectKeySigner) CertificateChainPEM() []byte { return []byte(s.chainPEM) }

func (s *DirectKeySigner) TimestampAuthorityURL() string { return s.tsaURL }

func (s *DirectKeySigner) ReserveSize() int {
	return reserveSize(s.alg, s.tsaURL != "")
}

func (s *DirectKeySigner) Sign(ctx context.Context, data []byte) ([]byte, error) {
	sig, err := cryptoutils.SignData(s.key, data, s.alg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interfaces.ErrSigningBackend, err)
	}
	return sig, nil
}
