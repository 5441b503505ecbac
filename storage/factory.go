package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// Factory creates blob backends from location URI strings.
type Factory struct {
	log *slog.Logger
}

// NewFactory creates a backend factory.
func NewFactory(log *slog.Logger) *Factory {
	if log == nil {
		log = slog.Default()
	}
	return &Factory{log: log}
}

// BackendFor creates a blob backend from a location URI.
//
// Supported schemes:
//   - file:// local file system
//   - s3://   Amazon S3 or compatible object storage
//   - vault:// HashiCorp Vault KV v2
//   - ipfs:// IPFS node (MFS API)
//   - mem://  process memory (tests, throwaway runs)
func (f *Factory) BackendFor(locationURI string) (interfaces.BlobStore, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("invalid storage location URI: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return NewFileBackend(u.Host+u.Path, f.log)
	case "s3":
		return f.createS3Backend(u)
	case "vault":
		return f.createVaultBackend(u)
	case "ipfs":
		return f.createIPFSBackend(u)
	case "mem":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported storage scheme: %s", u.Scheme)
	}
}

func (f *Factory) createS3Backend(u *url.URL) (interfaces.BlobStore, error) {
	bucket := u.Host
	if bucket == "" {
		return nil, fmt.Errorf("s3 URI missing bucket name")
	}

	prefix := strings.TrimPrefix(u.Path, "/")
	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
	}

	return NewS3Backend(bucket, prefix, region, query.Get("endpoint"), accessKey, secretKey, f.log)
}

func (f *Factory) createVaultBackend(u *url.URL) (interfaces.BlobStore, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("vault URI missing server address")
	}

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("vault URI path must be /<mount>/<data-path>")
	}

	scheme := "https"
	if u.Query().Get("insecure") == "true" {
		scheme = "http"
	}

	return NewVaultBackend(fmt.Sprintf("%s://%s", scheme, u.Host), parts[0], parts[1], u.Query().Get("token"), f.log)
}

func (f *Factory) createIPFSBackend(u *url.URL) (interfaces.BlobStore, error) {
	host := u.Hostname()
	if host == "" {
		host = "127.0.0.1"
	}
	port := u.Port()
	if port == "" {
		port = "5001"
	}
	root := strings.Trim(u.Path, "/")
	if root == "" {
		root = "clearsign"
	}

	return NewIPFSBackend(host, port, root, f.log)
}
