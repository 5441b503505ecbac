package signing

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// SidecarEmbedder is a minimal stand-in for the manifest embedding
// engine. Instead of rewriting the asset it emits a detached sidecar
// document: the manifest, a hash binding it to the content, and the
// signature over both. The real engine embeds the manifest store into
// the asset itself and is externally supplied.
type SidecarEmbedder struct{}

// Sidecar is the detached signature document written to dest.
type Sidecar struct {
	Format           string          `json:"format"`
	Manifest         json.RawMessage `json:"manifest"`
	ContentHash      []byte          `json:"content_hash"`
	HashAlgorithm    string          `json:"hash_algorithm"`
	Algorithm        string          `json:"algorithm"`
	CertificateChain string          `json:"certificate_chain"`
	TimestampURL     string          `json:"timestamp_url,omitempty"`
	Signature        []byte          `json:"signature"`
}

// Sign hashes the source content, signs the manifest together with the
// hash, and writes the sidecar document to dest.
func (e *SidecarEmbedder) Sign(ctx context.Context, format string, manifestJSON []byte, source io.Reader, dest io.Writer, signer interfaces.Signer) error {
	h := sha256.New()
	if _, err := io.Copy(h, source); err != nil {
		return fmt.Errorf("hashing source content: %w", err)
	}
	contentHash := h.Sum(nil)

	payload := make([]byte, 0, len(manifestJSON)+len(contentHash))
	payload = append(payload, manifestJSON...)
	payload = append(payload, contentHash...)

	sig, err := signer.Sign(ctx, payload)
	if err != nil {
		return err
	}
	if len(sig) > signer.ReserveSize() {
		return fmt.Errorf("signature of %d bytes exceeds reservation of %d", len(sig), signer.ReserveSize())
	}

	sidecar := Sidecar{
		Format:           format,
		Manifest:         json.RawMessage(manifestJSON),
		ContentHash:      contentHash,
		HashAlgorithm:    "sha256",
		Algorithm:        signer.Algorithm().String(),
		CertificateChain: string(signer.CertificateChainPEM()),
		TimestampURL:     signer.TimestampAuthorityURL(),
		Signature:        sig,
	}

	enc := json.NewEncoder(dest)
	if err := enc.Encode(sidecar); err != nil {
		return fmt.Errorf("writing sidecar document: %w", err)
	}
	return nil
}
