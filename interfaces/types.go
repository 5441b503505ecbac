package interfaces

import (
	"errors"
	"fmt"
	"time"
)

// SigningMode selects which trust backend holds the signing credential.
// The selection is externally configured and immutable for the duration of a
// signing operation.
type SigningMode string

const (
	// ModeBundled uses the packaged test certificate. Never trustworthy
	// beyond development and demos.
	ModeBundled SigningMode = "bundled"

	// ModeStoreBacked uses a software key held in the credential store with
	// a locally built self-signed chain.
	ModeStoreBacked SigningMode = "software"

	// ModeHardwareEnclave uses a hardware-backed key enrolled with a remote
	// certificate authority.
	ModeHardwareEnclave SigningMode = "hardware"

	// ModeUserProvided uses a certificate/key pair imported by the user.
	ModeUserProvided SigningMode = "user"

	// ModeRemoteService delegates all signing to a remote signing service.
	// No local key material exists in this mode.
	ModeRemoteService SigningMode = "remote"
)

// ParseSigningMode converts a configuration string into a SigningMode.
func ParseSigningMode(s string) (SigningMode, error) {
	switch SigningMode(s) {
	case ModeBundled, ModeStoreBacked, ModeHardwareEnclave, ModeUserProvided, ModeRemoteService:
		return SigningMode(s), nil
	default:
		return "", fmt.Errorf("unknown signing mode %q", s)
	}
}

// String returns the configuration name of the mode.
func (m SigningMode) String() string {
	return string(m)
}

// AssuranceLevel returns the assurance tag recorded in the signing-method
// manifest assertion for this mode.
func (m SigningMode) AssuranceLevel() string {
	switch m {
	case ModeBundled:
		return "TEST_ONLY"
	case ModeStoreBacked:
		return "SOFTWARE"
	case ModeHardwareEnclave:
		return "HARDWARE"
	case ModeUserProvided:
		return "USER_PROVIDED"
	case ModeRemoteService:
		return "REMOTE_SERVICE"
	default:
		return "UNKNOWN"
	}
}

// KeyTag is an opaque stable identifier for a key inside the credential
// store. Each local-key mode owns exactly one fixed tag.
type KeyTag string

const (
	// SoftwareKeyTag identifies the store-backed software signing key.
	SoftwareKeyTag KeyTag = "media.signing.software"

	// EnclaveKeyTag identifies the hardware-enclave signing key.
	EnclaveKeyTag KeyTag = "media.signing.enclave"

	// UserKeyTag identifies the user-imported signing key.
	UserKeyTag KeyTag = "media.signing.user"
)

// KeyTagForMode returns the fixed key tag for a mode. Bundled and
// RemoteService hold no local key and return the empty tag.
func KeyTagForMode(mode SigningMode) KeyTag {
	switch mode {
	case ModeStoreBacked:
		return SoftwareKeyTag
	case ModeHardwareEnclave:
		return EnclaveKeyTag
	case ModeUserProvided:
		return UserKeyTag
	default:
		return ""
	}
}

// ChainCacheSuffix is appended to a key tag to derive the blob name under
// which the certificate chain for that key is cached.
const ChainCacheSuffix = ".certchain"

// ChainCacheName derives the blob name for a tag's cached certificate chain.
func (t KeyTag) ChainCacheName() string {
	return string(t) + ChainCacheSuffix
}

// String returns the raw tag.
func (t KeyTag) String() string {
	return string(t)
}

// SigningAlgorithm identifies the signature algorithm a signer produces.
// Values follow the COSE/JOSE naming used by C2PA manifests.
type SigningAlgorithm string

const (
	AlgES256   SigningAlgorithm = "es256"
	AlgES384   SigningAlgorithm = "es384"
	AlgES512   SigningAlgorithm = "es512"
	AlgEd25519 SigningAlgorithm = "ed25519"
)

// ParseSigningAlgorithm converts a wire or configuration string into a
// SigningAlgorithm.
func ParseSigningAlgorithm(s string) (SigningAlgorithm, error) {
	switch SigningAlgorithm(s) {
	case AlgES256, AlgES384, AlgES512, AlgEd25519:
		return SigningAlgorithm(s), nil
	default:
		return "", fmt.Errorf("%w: unknown algorithm %q", ErrUnsupportedAlgorithm, s)
	}
}

// String returns the COSE-style algorithm name.
func (a SigningAlgorithm) String() string {
	return string(a)
}

// KeyKind describes the kind of asymmetric key the credential store holds.
type KeyKind string

const (
	KeyKindP256    KeyKind = "p256"
	KeyKindP384    KeyKind = "p384"
	KeyKindP521    KeyKind = "p521"
	KeyKindEd25519 KeyKind = "ed25519"

	// KeyKindEnclaveP256 is a hardware-enclave resident P-256 key. Enclave
	// keys are fixed to a single curve and can only produce ES256.
	KeyKindEnclaveP256 KeyKind = "enclave-p256"
)

// SupportsAlgorithm reports whether a key of this kind can produce the given
// signature algorithm. Enclave keys are fixed to ES256.
func (k KeyKind) SupportsAlgorithm(alg SigningAlgorithm) bool {
	switch k {
	case KeyKindP256, KeyKindEnclaveP256:
		return alg == AlgES256
	case KeyKindP384:
		return alg == AlgES384
	case KeyKindP521:
		return alg == AlgES512
	case KeyKindEd25519:
		return alg == AlgEd25519
	default:
		return false
	}
}

// AccessPolicy restricts how a stored key may be used.
type AccessPolicy string

const (
	// AccessPolicyNone places no usage restriction on the key.
	AccessPolicyNone AccessPolicy = "none"

	// AccessPolicyHardware requires the key to reside in the hardware
	// enclave and never be exportable.
	AccessPolicyHardware AccessPolicy = "hardware"

	// AccessPolicyUserPresence requires user presence for each signing
	// operation.
	AccessPolicyUserPresence AccessPolicy = "user-presence"
)

// CertificateProfile carries the identity fields encoded into self-signed
// certificates and certificate signing requests. Pure value type.
type CertificateProfile struct {
	CommonName         string
	Organization       string
	OrganizationalUnit string
	Country            string
	Province           string
	Locality           string
	Email              string

	// ValidityDays bounds self-signed certificates built from this profile.
	// Zero means the 365-day default.
	ValidityDays int
}

// DefaultValidityDays is used when a profile does not set ValidityDays.
const DefaultValidityDays = 365

// Validity returns the effective validity period.
func (p CertificateProfile) Validity() time.Duration {
	days := p.ValidityDays
	if days <= 0 {
		days = DefaultValidityDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// CredentialRecord is the cached pairing of a key tag with its issued or
// self-built certificate chain. A cached record implies the corresponding
// key exists in the store; the two are not transactionally linked, so
// provisioning must reconcile an orphaned key on the next attempt.
type CredentialRecord struct {
	KeyTag              KeyTag    `json:"key_tag"`
	CertificateChainPEM string    `json:"certificate_chain_pem"`
	CachedAt            time.Time `json:"cached_at"`
}

// Validate checks the record is usable.
func (r CredentialRecord) Validate() error {
	if r.KeyTag == "" {
		return errors.New("credential record missing key tag")
	}
	if r.CertificateChainPEM == "" {
		return fmt.Errorf("%w: credential record has empty chain", ErrInvalidCredentialFormat)
	}
	return nil
}
