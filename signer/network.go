package signer

import (
	"context"

	"github.com/clearsign/c2pa-provisioning-backend/api/signerhandler"
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// NetworkDelegatedSigner forwards payloads to a remote signing service.
// The service's configuration endpoint supplies the algorithm, chain
// and signing URL; signing is a single network round trip with no
// retries.
type NetworkDelegatedSigner struct {
	client *signerhandler.Client
	config *signerhandler.Configuration
}

// NewNetworkDelegatedSigner fetches the remote configuration once at
// construction. A service that cannot be described cannot sign, so
// configuration failures surface here rather than on first Sign.
func NewNetworkDelegatedSigner(ctx context.Context, client *signerhandler.Client) (*NetworkDelegatedSigner, error) {
	config, err := client.FetchConfiguration(ctx)
	if err != nil {
		return nil, err
	}

	return &NetworkDelegatedSigner{
		client: client,
		config: config,
	}, nil
}

func (s *NetworkDelegatedSigner) Algorithm() interfaces.SigningAlgorithm { return s.config.Algorithm }

func (s *NetworkDelegatedSigner) CertificateChainPEM() []byte {
	return []byte(s.config.CertificateChainPEM)
}

func (s *NetworkDelegatedSigner) TimestampAuthorityURL() string {
	return s.config.TimestampAuthorityURL
}

func (s *NetworkDelegatedSigner) ReserveSize() int {
	return reserveSize(s.config.Algorithm, s.config.TimestampAuthorityURL != "")
}

func (s *NetworkDelegatedSigner) Sign(ctx context.Context, data []byte) ([]byte, error) {
	return s.client.Sign(ctx, s.config.SigningURL, data)
}
