// Package signer provides the three signing strategies used for C2PA
// manifest signatures.
//
// DirectKey holds its private key in process memory and is used for
// bundled test credentials and remote signing services hosting their
// own key. StoreDelegated never touches key material: it forwards
// digests to a KeyStore which signs with a key addressed by tag.
// NetworkDelegated forwards the payload to a remote signing service
// discovered through its configuration endpoint.
//
// All three satisfy interfaces.Signer and are interchangeable to the
// manifest embedding engine.
package signer
