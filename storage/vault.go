package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// VaultBackend stores blobs in HashiCorp Vault using the KV v2 API. Each
// blob is a secret holding its content base64-encoded under a "data" field.
type VaultBackend struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultBackend creates a Vault blob backend.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: path within the mount (e.g. "clearsign/credentials")
//   - token: Vault token used for authentication
func NewVaultBackend(address, mountPath, dataPath, token string, log *slog.Logger) (*VaultBackend, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.Trim(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultBackend{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", address, mountPath, dataPath),
	}, nil
}

// StoreBlob writes the blob, overwriting any previous version.
func (b *VaultBackend) StoreBlob(ctx context.Context, name string, data []byte) error {
	_, err := b.client.Logical().WriteWithContext(ctx, b.secretPath(name), map[string]interface{}{
		"data": map[string]interface{}{
			"data": base64.StdEncoding.EncodeToString(data),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write secret %s: %w", name, err)
	}

	b.log.Debug("Stored blob in Vault", slog.String("name", name), slog.Int("size", len(data)))
	return nil
}

// LoadBlob reads the blob. Returns ErrBlobNotFound if no secret exists.
func (b *VaultBackend) LoadBlob(ctx context.Context, name string) ([]byte, error) {
	secret, err := b.client.Logical().ReadWithContext(ctx, b.secretPath(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %s: %w", name, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrBlobNotFound, name)
	}

	inner, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrBlobNotFound, name)
	}
	encoded, ok := inner["data"].(string)
	if !ok {
		return nil, fmt.Errorf("unexpected secret layout for %s", name)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode secret %s: %w", name, err)
	}
	return data, nil
}

// DeleteBlob removes the blob. Vault deletes of absent paths are success.
func (b *VaultBackend) DeleteBlob(ctx context.Context, name string) error {
	_, err := b.client.Logical().DeleteWithContext(ctx, b.metadataPath(name))
	if err != nil {
		return fmt.Errorf("failed to delete secret %s: %w", name, err)
	}
	return nil
}

// LocationURI returns the URI identifying this backend.
func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}

// secretPath builds the KV v2 data path for a blob name.
func (b *VaultBackend) secretPath(name string) string {
	return fmt.Sprintf("%s/data/%s/%s", b.mountPath, b.dataPath, name)
}

// metadataPath builds the KV v2 metadata path, used for full deletion.
func (b *VaultBackend) metadataPath(name string) string {
	return fmt.Sprintf("%s/metadata/%s/%s", b.mountPath, b.dataPath, name)
}
