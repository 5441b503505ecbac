// Package storage implements the named-blob half of the credential store
// capability: certificate chain caches and imported user material persist as
// opaque blobs addressed by name. Backends exist for the local file system,
// Amazon S3, HashiCorp Vault KV v2, IPFS MFS, and process memory, selected
// through a URI-driven factory.
//
// Supported location URI schemes:
//
//	file:///var/lib/clearsign/blobs
//	s3://bucket/prefix?region=us-east-1
//	vault://vault.example.com:8200/secret/clearsign?token=...
//	ipfs://127.0.0.1:5001/clearsign
//	mem://
package storage
