package signing

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearsign/c2pa-provisioning-backend/cryptoutils"
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
	"github.com/clearsign/c2pa-provisioning-backend/keystore"
	"github.com/clearsign/c2pa-provisioning-backend/manifest"
	"github.com/clearsign/c2pa-provisioning-backend/provisioner"
	"github.com/clearsign/c2pa-provisioning-backend/storage"
)

func newTestOrchestrator(t *testing.T, embedder interfaces.ManifestEmbedder, scratchDir string) *Orchestrator {
	t.Helper()
	keys, err := keystore.NewSoftKeyStore(t.TempDir(), []byte("passphrase"), nil)
	require.NoError(t, err)

	p, err := provisioner.New(provisioner.Config{
		Keys:  keys,
		Blobs: storage.NewMemoryBackend(),
		Profile: interfaces.CertificateProfile{
			CommonName:   "Test Device",
			Organization: "ClearSign",
		},
	})
	require.NoError(t, err)

	orch, err := NewOrchestrator(p, embedder, scratchDir, "1.2.3", nil)
	require.NoError(t, err)
	return orch
}

func TestSignAndSaveSidecar(t *testing.T) {
	scratch := t.TempDir()
	orch := newTestOrchestrator(t, &SidecarEmbedder{}, scratch)

	image := []byte("fake jpeg bytes")
	out, err := orch.SignAndSave(context.Background(), image, "image/jpeg", interfaces.ModeStoreBacked, nil)
	require.NoError(t, err, "Signing with the sidecar embedder should succeed")

	var sidecar Sidecar
	require.NoError(t, json.Unmarshal(out, &sidecar))
	assert.Equal(t, "image/jpeg", sidecar.Format)
	assert.Equal(t, "es256", sidecar.Algorithm)

	// The content hash binds the sidecar to the image.
	imageHash := sha256.Sum256(image)
	assert.Equal(t, imageHash[:], sidecar.ContentHash)

	// The signature verifies against the embedded chain.
	leaf, err := cryptoutils.CertChainPEM(sidecar.CertificateChain).Leaf()
	require.NoError(t, err)
	payload := append(append([]byte{}, sidecar.Manifest...), sidecar.ContentHash...)
	digest := sha256.Sum256(payload)
	assert.True(t, ecdsa.VerifyASN1(leaf.PublicKey.(*ecdsa.PublicKey), digest[:], sidecar.Signature), "Sidecar signature should verify")

	// The manifest records the mode.
	var m manifest.Manifest
	require.NoError(t, json.Unmarshal(sidecar.Manifest, &m))
	found := false
	for _, a := range m.Assertions {
		if a.Label == manifest.SigningMethodLabel {
			found = true
			data, err := json.Marshal(a.Data)
			require.NoError(t, err)
			assert.Contains(t, string(data), `"method":"software"`)
		}
	}
	assert.True(t, found, "Manifest should carry the signing-method assertion")

	// Scratch files are gone after a successful run.
	assertDirEmpty(t, scratch)
}

func TestSignAndSaveBundled(t *testing.T) {
	scratch := t.TempDir()
	orch := newTestOrchestrator(t, &SidecarEmbedder{}, scratch)

	geo := &manifest.GeoLocation{Latitude: 51.4778, Longitude: -0.0015}
	out, err := orch.SignAndSave(context.Background(), []byte("image"), "image/jpeg", interfaces.ModeBundled, geo)
	require.NoError(t, err, "Bundled mode should sign out of the box")

	var sidecar Sidecar
	require.NoError(t, json.Unmarshal(out, &sidecar))
	assert.Contains(t, string(sidecar.Manifest), manifest.ExifLabel, "Location should appear in the manifest")
	assertDirEmpty(t, scratch)
}

// failingEmbedder fails after consuming the source, exercising cleanup
// on the failure path.
type failingEmbedder struct{}

func (e *failingEmbedder) Sign(ctx context.Context, format string, manifestJSON []byte, source io.Reader, dest io.Writer, signer interfaces.Signer) error {
	io.Copy(io.Discard, source)
	return errors.New("engine exploded")
}

func TestSignAndSaveCleanupOnFailure(t *testing.T) {
	scratch := t.TempDir()
	orch := newTestOrchestrator(t, &failingEmbedder{}, scratch)

	_, err := orch.SignAndSave(context.Background(), []byte("image"), "image/jpeg", interfaces.ModeStoreBacked, nil)
	require.Error(t, err, "Embedder failure should propagate")
	assert.ErrorIs(t, err, interfaces.ErrSigningBackend, "Engine failures are tagged as signing backend errors")

	// Scratch files are cleaned up on failure too.
	assertDirEmpty(t, scratch)
}

func TestSignAndSaveProvisioningFailure(t *testing.T) {
	scratch := t.TempDir()
	orch := newTestOrchestrator(t, &SidecarEmbedder{}, scratch)

	// User-provided mode with nothing imported cannot provision.
	_, err := orch.SignAndSave(context.Background(), []byte("image"), "image/jpeg", interfaces.ModeUserProvided, nil)
	assert.ErrorIs(t, err, interfaces.ErrCredentialsNotAvailable)
	assertDirEmpty(t, scratch)
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "Scratch directory should be empty")
}
