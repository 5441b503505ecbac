package interfaces

import (
	"context"
	"io"
)

// Signer is the uniform contract every credential backend exposes to the
// manifest embedding engine: the signature algorithm, the certificate chain
// to embed, an optional timestamp authority, and the signing operation
// itself. Where the private key lives is a backend concern.
type Signer interface {
	// Algorithm returns the signature algorithm produced by Sign.
	Algorithm() SigningAlgorithm

	// CertificateChainPEM returns the PEM certificate chain, leaf first.
	CertificateChainPEM() []byte

	// TimestampAuthorityURL returns the RFC 3161 timestamp authority to
	// countersign with, or empty when none is configured.
	TimestampAuthorityURL() string

	// ReserveSize returns an upper bound on the signature container size so
	// the embedding engine can pre-allocate output space. It must never
	// perform a signing operation.
	ReserveSize() int

	// Sign produces a signature over data.
	Sign(ctx context.Context, data []byte) ([]byte, error)
}

// ManifestEmbedder is the external embedding engine contract the signing
// orchestrator consumes. The engine serializes the manifest, computes
// content hashes, invokes the signer, and writes the signed asset to dest.
// It is not implemented by this repository beyond a minimal sidecar
// stand-in.
type ManifestEmbedder interface {
	Sign(ctx context.Context, format string, manifestJSON []byte, source io.Reader, dest io.Writer, signer Signer) error
}
