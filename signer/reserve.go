package signer

import "github.com/clearsign/c2pa-provisioning-backend/interfaces"

// timestampPad is added to the reservation when a timestamp authority
// is configured. RFC 3161 tokens carry the TSA certificate chain, so
// the bound is generous.
const timestampPad = 4096

// envelopeBase covers COSE_Sign1 framing, protected headers and the
// embedded certificate chain.
const envelopeBase = 8192

// reserveSize returns an upper bound on the signature container size
// for the given algorithm. It performs no signing.
func reserveSize(alg interfaces.SigningAlgorithm, hasTimestampAuthority bool) int {
	var sigBound int
	switch alg {
	case interfaces.AlgES256:
		sigBound = 72
	case interfaces.AlgES384:
		sigBound = 104
	case interfaces.AlgES512:
		sigBound = 139
	case interfaces.AlgEd25519:
		sigBound = 64
	default:
		sigBound = 139
	}

	size := envelopeBase + sigBound
	if hasTimestampAuthority {
		size += timestampPad
	}
	return size
}
