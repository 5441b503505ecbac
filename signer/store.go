package signer

import (
	"context"
	"fmt"

	"github.com/clearsign/c2pa-provisioning-backend/cryptoutils"
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// StoreDelegatedSigner delegates signing to a key store. The private
// key never enters this process beyond the store boundary, which is
// what keeps enclave-resident keys non-exportable.
type StoreDelegatedSigner struct {
	store    interfaces.KeyStore
	tag      interfaces.KeyTag
	chainPEM cryptoutils.CertChainPEM
	alg      interfaces.SigningAlgorithm
	tsaURL   string
}

// NewStoreDelegatedSigner looks up the key by tag and gates the
// algorithm against the key kind at construction time, so an
// unsupported pairing fails before any signing is attempted.
func NewStoreDelegatedSigner(store interfaces.KeyStore, tag interfaces.KeyTag, chainPEM cryptoutils.CertChainPEM, alg interfaces.SigningAlgorithm, tsaURL string) (*StoreDelegatedSigner, error) {
	handle, err := store.FindKey(tag)
	if err != nil {
		return nil, fmt.Errorf("%w: key %q: %w", interfaces.ErrCredentialsNotAvailable, tag, err)
	}
	if !handle.Kind().SupportsAlgorithm(alg) {
		return nil, fmt.Errorf("%w: key kind %q cannot produce %q signatures", interfaces.ErrUnsupportedAlgorithm, handle.Kind(), alg)
	}

	if _, err := chainPEM.Leaf(); err != nil {
		return nil, fmt.Errorf("%w: parsing certificate chain: %w", interfaces.ErrInvalidCredentialFormat, err)
	}

	return &StoreDelegatedSigner{
		store:    store,
		tag:      tag,
		chainPEM: chainPEM,
		alg:      alg,
		tsaURL:   tsaURL,
	}, nil
}

func (s *StoreDelegatedSigner) Algorithm() interfaces.SigningAlgorithm { return s.alg }

func (s *StoreDelegatedSigner) CertificateChainPEM() []byte { return []byte(s.chainPEM) }

func (s *StoreDelegatedSigner) TimestampAuthorityURL() string { return s.tsaURL }

func (s *StoreDelegatedSigner) ReserveSize() int {
	return reserveSize(s.alg, s.tsaURL != "")
}

func (s *StoreDelegatedSigner) Sign(ctx context.Context, data []byte) ([]byte, error) {
	sig, err := s.store.SignWithKey(ctx, s.tag, data, s.alg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interfaces.ErrSigningBackend, err)
	}
	return sig, nil
}
