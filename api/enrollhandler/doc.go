// Package enrollhandler implements both sides of the certificate enrollment
// protocol: an HTTP handler that fronts a certificate authority signing
// incoming CSRs, and the typed client the hardware-enclave provisioning path
// uses to submit a CSR and receive its signed chain.
package enrollhandler
