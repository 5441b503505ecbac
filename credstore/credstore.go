// Package credstore composes a key store and a blob backend into the full
// credential store capability the provisioner depends on. The two halves are
// independent services; there is no transactional guarantee across them.
package credstore

import (
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// Store implements interfaces.CredentialStore by delegating key operations
// to a KeyStore and blob operations to a BlobStore.
type Store struct {
	interfaces.KeyStore
	interfaces.BlobStore
}

// New combines a key store and a blob backend into one credential store.
func New(keys interfaces.KeyStore, blobs interfaces.BlobStore) *Store {
	return &Store{KeyStore: keys, BlobStore: blobs}
}

var _ interfaces.CredentialStore = (*Store)(nil)
