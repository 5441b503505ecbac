// Package interfaces defines the core types and capability contracts for the
// signing-credential provisioning system. It provides the contract between
// components without implementation details: signing modes and key tags, the
// credential store capability (named keys plus named blobs), the signer
// abstraction consumed by the manifest embedding engine, and the shared error
// taxonomy.
package interfaces
