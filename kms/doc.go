// Package kms implements SimpleCA, a deterministic development certificate
// authority. It derives its CA key from a master key, verifies incoming
// certificate signing requests, and issues leaf certificates chained to its
// self-signed CA certificate. SimpleCA backs the enrollment endpoint served
// by caserver and substitutes for a production CA in tests.
package kms
