package interfaces

import (
	"context"
	"crypto"
)

// KeyHandle is a reference to a named key inside the credential store. The
// handle implements crypto.Signer so certificate building can sign CSRs and
// self-signed certificates without the private key bytes leaving the store.
type KeyHandle interface {
	crypto.Signer

	// Tag returns the stable identifier the key is stored under.
	Tag() KeyTag

	// Kind returns the kind of the underlying key.
	Kind() KeyKind
}

// KeyStore is the asymmetric-key half of the credential store capability.
//
// Implementations must treat DeleteKey as idempotent: deleting an absent tag
// is success, not an error. There is no transactional guarantee between key
// operations and blob operations; callers handle partial completion.
type KeyStore interface {
	// GenerateKey creates a new key under the tag, replacing any existing
	// key with the same tag. Fails with ErrKeyGenerationFailed if the store
	// cannot produce the requested kind under the requested policy.
	GenerateKey(tag KeyTag, kind KeyKind, policy AccessPolicy) (KeyHandle, error)

	// ImportKey stores externally supplied PEM private key material under
	// the tag. Fails with ErrInvalidCredentialFormat if the material does
	// not parse.
	ImportKey(tag KeyTag, keyPEM []byte, policy AccessPolicy) (KeyHandle, error)

	// FindKey returns the handle for the tag, or ErrKeyNotFound.
	FindKey(tag KeyTag) (KeyHandle, error)

	// DeleteKey removes the key under the tag. Absent tags are success.
	DeleteKey(tag KeyTag) error

	// SignWithKey signs data with the key under the tag using the given
	// algorithm. The data is hashed as the algorithm requires; private key
	// bytes never leave the store. Fails with ErrUnsupportedAlgorithm when
	// the key kind cannot produce the algorithm.
	SignWithKey(ctx context.Context, tag KeyTag, data []byte, alg SigningAlgorithm) ([]byte, error)
}

// BlobStore is the named-opaque-blob half of the credential store
// capability, used for the certificate chain cache and imported user
// material. Store overwrites; Load returns ErrBlobNotFound for absent names.
type BlobStore interface {
	StoreBlob(ctx context.Context, name string, data []byte) error
	LoadBlob(ctx context.Context, name string) ([]byte, error)

	// DeleteBlob removes the blob. Absent names are success.
	DeleteBlob(ctx context.Context, name string) error
}

// CredentialStore is the full capability the provisioner depends on:
// generate/retrieve/delete named keys plus store/retrieve named blobs.
type CredentialStore interface {
	KeyStore
	BlobStore
}
