// Package signerhandler implements the remote signing service protocol: an
// HTTP handler serving the signer configuration and payload-signing
// endpoints backed by a local signer, and the typed client used to build
// network-delegated signers against such a service.
package signerhandler
