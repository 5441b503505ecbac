package api

import "time"

const (
	// EnrollmentPath is the CA endpoint that signs certificate requests.
	EnrollmentPath = "/api/v1/certificates/sign"

	// SignerConfigPath is the remote signing service configuration endpoint.
	SignerConfigPath = "/api/v1/c2pa/configuration"

	// SignerSignPath is the remote signing service payload-signing endpoint.
	SignerSignPath = "/api/v1/c2pa/sign"
)

// EnrollmentMetadata carries optional device information alongside a CSR.
type EnrollmentMetadata struct {
	DeviceID   *string `json:"device_id"`
	AppVersion *string `json:"app_version"`
}

// EnrollmentRequest is the JSON body posted to the enrollment endpoint.
type EnrollmentRequest struct {
	CSR      string             `json:"csr"`
	Metadata EnrollmentMetadata `json:"metadata"`
}

// EnrollmentResponse is the CA's answer to a successful enrollment.
// ExpiresAt is ISO-8601 on the wire.
type EnrollmentResponse struct {
	CertificateID    string    `json:"certificate_id"`
	CertificateChain string    `json:"certificate_chain"`
	ExpiresAt        time.Time `json:"expires_at"`
	SerialNumber     string    `json:"serial_number"`
}

// SignerConfigurationResponse describes the remote signing service: which
// algorithm it produces, the certificate chain it signs under, an optional
// timestamp authority, and the endpoint signing requests go to. A relative
// SigningURL is resolved against the configuration URL by the client.
type SignerConfigurationResponse struct {
	Algorithm             string `json:"algorithm"`
	CertificateChain      string `json:"certificate_chain"`
	TimestampAuthorityURL string `json:"timestamp_authority_url,omitempty"`
	SigningURL            string `json:"signing_url,omitempty"`
}

// RemoteSignRequest is the JSON body posted to the signing endpoint.
// Payload is base64 on the wire.
type RemoteSignRequest struct {
	Payload []byte `json:"payload"`
}

// RemoteSignResponse carries the produced signature, base64 on the wire.
type RemoteSignResponse struct {
	Signature []byte `json:"signature"`
}
