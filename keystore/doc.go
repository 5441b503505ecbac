// Package keystore implements the asymmetric-key half of the credential
// store capability. Three stores are provided: SoftKeyStore persists keys on
// disk sealed under a passphrase, EnclaveKeyStore simulates a hardware key
// enclave whose keys are fixed to a single curve and never exportable, and
// MemoryKeyStore backs tests.
//
// All stores share the capability contract: generated and imported keys are
// addressed by stable tags, deletion of an absent tag is success, and
// signing happens inside the store so private key bytes never cross the
// interface.
package keystore
