// Package provisioner is the per-mode credential state machine. For each
// signing mode it produces a ready-to-use signer, creating keys and
// certificate chains on first use and serving them from cache afterwards.
//
// Certificate chains persist in a blob store under the key tag plus a
// ".certchain" suffix. Keys and chains are not written transactionally:
// provisioning serializes get-or-create per tag and reconciles an orphaned
// key (present in the store with no cached chain) by rebuilding or
// re-enrolling a chain for the existing key instead of regenerating it.
package provisioner
