// Package cryptoutils implements the certificate builder and shared
// cryptographic helpers: PEM value types for keys, certificates and CSRs,
// self-signed certificate chain construction, PKCS#10 CSR construction, and
// passphrase-based sealing for key material at rest.
package cryptoutils
