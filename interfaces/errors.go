package interfaces

import (
	"errors"
	"fmt"
)

var (
	// ErrCredentialsNotAvailable is returned when a mode's credential
	// material cannot be located at all, for example missing packaged test
	// credentials or a user mode with nothing imported.
	ErrCredentialsNotAvailable = errors.New("signing credentials not available")

	// ErrKeyGenerationFailed is returned when the credential store cannot
	// create or import a key.
	ErrKeyGenerationFailed = errors.New("key generation failed")

	// ErrUnsupportedAlgorithm is returned when a signer is constructed with
	// an algorithm the backing key cannot produce. Diagnosed at
	// construction time, before any signing attempt.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

	// ErrInvalidCredentialFormat is returned when stored or supplied
	// credential material fails to parse.
	ErrInvalidCredentialFormat = errors.New("invalid credential format")

	// ErrConfigurationMissing is returned when a network-backed operation is
	// attempted without a base URL or bearer token. Checked before any
	// network call is issued.
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrNetwork wraps transport-level failures talking to the enrollment
	// or remote signing endpoints.
	ErrNetwork = errors.New("network error")

	// ErrMalformedResponse is returned when a remote endpoint answers 200
	// with a body that fails to decode.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrRemoteService wraps failures of the remote signing service beyond
	// plain transport errors.
	ErrRemoteService = errors.New("remote signing service error")

	// ErrSigningBackend wraps failures reported by the manifest embedding
	// engine.
	ErrSigningBackend = errors.New("signing backend error")

	// ErrKeyNotFound is returned by FindKey when no key exists under a tag.
	// A store-lookup miss is a normal branch during get-or-create, not a
	// provisioning failure.
	ErrKeyNotFound = errors.New("key not found")

	// ErrBlobNotFound is returned by LoadBlob when no blob exists under a
	// name.
	ErrBlobNotFound = errors.New("blob not found")
)

// ServerRejectedError is returned when the enrollment or signing endpoint
// answers with a non-200 status. The body is carried verbatim as plain-text
// error detail.
type ServerRejectedError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *ServerRejectedError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server rejected request with status %d", e.StatusCode)
	}
	return fmt.Sprintf("server rejected request with status %d: %s", e.StatusCode, e.Body)
}
