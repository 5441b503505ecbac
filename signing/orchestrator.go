// Package signing is the top-level entry point for producing signed
// media: it selects credentials for a mode, assembles the manifest, and
// drives the embedding engine.
package signing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
	"github.com/clearsign/c2pa-provisioning-backend/manifest"
	"github.com/clearsign/c2pa-provisioning-backend/provisioner"
)

// Orchestrator wires the provisioner and embedding engine together for
// single signing operations.
type Orchestrator struct {
	provisioner *provisioner.Provisioner
	embedder    interfaces.ManifestEmbedder
	scratchDir  string
	version     string
	log         *slog.Logger
}

// NewOrchestrator creates an orchestrator. scratchDir holds per-call
// temporary files and defaults to os.TempDir. version feeds the manifest
// claim generator string.
func NewOrchestrator(p *provisioner.Provisioner, embedder interfaces.ManifestEmbedder, scratchDir, version string, log *slog.Logger) (*Orchestrator, error) {
	if p == nil || embedder == nil {
		return nil, fmt.Errorf("orchestrator requires a provisioner and an embedder")
	}
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		provisioner: p,
		embedder:    embedder,
		scratchDir:  scratchDir,
		version:     version,
		log:         log,
	}, nil
}

// SignAndSave signs imageBytes under the given mode and returns the
// embedding engine's output. Scratch files are removed on every exit
// path, success or failure.
func (o *Orchestrator) SignAndSave(ctx context.Context, imageBytes []byte, format string, mode interfaces.SigningMode, geo *manifest.GeoLocation) ([]byte, error) {
	manifestJSON, err := manifest.Build(mode, "", format, geo, o.version).JSON()
	if err != nil {
		return nil, err
	}

	s, err := o.provisioner.SignerFor(ctx, mode)
	if err != nil {
		return nil, fmt.Errorf("provisioning %q credentials: %w", mode, err)
	}

	opID := uuid.NewString()
	srcPath := filepath.Join(o.scratchDir, opID+".src")
	dstPath := filepath.Join(o.scratchDir, opID+".signed")
	defer os.Remove(srcPath)
	defer os.Remove(dstPath)

	if err := os.WriteFile(srcPath, imageBytes, 0o600); err != nil {
		return nil, fmt.Errorf("writing scratch source: %w", err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("opening scratch source: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating scratch output: %w", err)
	}

	embedErr := o.embedder.Sign(ctx, format, manifestJSON, src, dst, s)
	if closeErr := dst.Close(); embedErr == nil {
		embedErr = closeErr
	}
	if embedErr != nil {
		return nil, fmt.Errorf("%w: %w", interfaces.ErrSigningBackend, embedErr)
	}

	signed, err := os.ReadFile(dstPath)
	if err != nil {
		return nil, fmt.Errorf("reading signed output: %w", err)
	}

	o.log.Info("Signed media asset",
		"mode", mode.String(),
		"format", format,
		"input_bytes", len(imageBytes),
		"output_bytes", len(signed))
	return signed, nil
}
