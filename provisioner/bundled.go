package provisioner

import (
	_ "embed"
	"fmt"

	"github.com/clearsign/c2pa-provisioning-backend/cryptoutils"
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
	"github.com/clearsign/c2pa-provisioning-backend/signer"
)

// Packaged test credentials for the bundled mode. Good for development
// and demos only; the chain is self-signed and trusted by nobody.
var (
	//go:embed creds/bundled_cert.pem
	bundledCertPEM []byte

	//go:embed creds/bundled_key.pem
	bundledKeyPEM []byte
)

func (p *Provisioner) bundledSigner() (interfaces.Signer, error) {
	if len(bundledCertPEM) == 0 || len(bundledKeyPEM) == 0 {
		return nil, fmt.Errorf("%w: packaged test credentials are missing", interfaces.ErrCredentialsNotAvailable)
	}

	s, err := signer.NewDirectKeySigner(
		cryptoutils.KeyPEM(bundledKeyPEM),
		cryptoutils.CertChainPEM(bundledCertPEM),
		interfaces.AlgES256,
		p.cfg.TimestampAuthorityURL,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: packaged test credentials are unusable: %w", interfaces.ErrCredentialsNotAvailable, err)
	}
	return s, nil
}
