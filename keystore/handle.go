package keystore

import (
	"crypto"
	"io"

	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// handle is the KeyHandle implementation shared by all stores in this
// package. It wraps the in-memory signer while the store owns persistence.
type handle struct {
	signer crypto.Signer
	tag    interfaces.KeyTag
	kind   interfaces.KeyKind
}

func (h *handle) Public() crypto.PublicKey {
	return h.signer.Public()
}

func (h *handle) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	return h.signer.Sign(rand, digest, opts)
}

func (h *handle) Tag() interfaces.KeyTag {
	return h.tag
}

func (h *handle) Kind() interfaces.KeyKind {
	return h.kind
}
