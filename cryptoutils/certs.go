package cryptoutils

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// SelfSignedChain builds a single self-signed leaf certificate (no
// intermediate or root) for the signer's public key and the given identity
// profile. The certificate is valid from now for the profile's validity
// period and carries digital-signature key usage with the email-protection
// EKU expected of manifest signing certificates.
//
// Output differs run to run in serial number and validity window; tests must
// normalize those fields before comparing chains.
func SelfSignedChain(signer crypto.Signer, profile interfaces.CertificateProfile) (CertChainPEM, error) {
	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber:          serialNumber,
		Subject:               subjectFromProfile(profile),
		NotBefore:             now,
		NotAfter:              now.Add(profile.Validity()),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageEmailProtection},
		BasicConstraintsValid: true,
	}
	if profile.Email != "" {
		template.EmailAddresses = []string{profile.Email}
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, signer.Public(), signer)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}), nil
}

// CreateCSR constructs a PKCS#10 certificate signing request embedding the
// profile's identity fields, signed by the given key handle. The private key
// never leaves the signer; hardware-resident keys work through their
// crypto.Signer handle.
func CreateCSR(signer crypto.Signer, profile interfaces.CertificateProfile) (CSRPEM, error) {
	sigAlg, err := csrSignatureAlgorithm(signer.Public())
	if err != nil {
		return nil, err
	}

	template := x509.CertificateRequest{
		Subject:            subjectFromProfile(profile),
		SignatureAlgorithm: sigAlg,
	}
	if profile.Email != "" {
		template.EmailAddresses = []string{profile.Email}
	}

	csrDER, err := x509.CreateCertificateRequest(rand.Reader, &template, signer)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate request: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: csrDER}), nil
}

// CreateCSRWithRandomKey generates a fresh P-256 key pair and a CSR for it.
// Useful for tests and enrollment dry runs.
func CreateCSRWithRandomKey(profile interfaces.CertificateProfile) (KeyPEM, CSRPEM, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	csrPEM, err := CreateCSR(privateKey, profile)
	if err != nil {
		return nil, nil, err
	}

	keyPEM, err := MarshalPrivateKey(privateKey)
	if err != nil {
		return nil, nil, err
	}
	return keyPEM, csrPEM, nil
}

// SignData signs data with the key using the given algorithm, hashing as the
// algorithm requires. ECDSA signatures are ASN.1 encoded; Ed25519 signs the
// message directly.
func SignData(signer crypto.Signer, data []byte, alg interfaces.SigningAlgorithm) ([]byte, error) {
	if err := CheckKeyMatchesAlgorithm(signer.Public(), alg); err != nil {
		return nil, err
	}

	switch alg {
	case interfaces.AlgES256:
		digest := sha256.Sum256(data)
		return signer.Sign(rand.Reader, digest[:], crypto.SHA256)
	case interfaces.AlgES384:
		digest := sha512.Sum384(data)
		return signer.Sign(rand.Reader, digest[:], crypto.SHA384)
	case interfaces.AlgES512:
		digest := sha512.Sum512(data)
		return signer.Sign(rand.Reader, digest[:], crypto.SHA512)
	case interfaces.AlgEd25519:
		return signer.Sign(rand.Reader, data, crypto.Hash(0))
	default:
		return nil, fmt.Errorf("%w: %s", interfaces.ErrUnsupportedAlgorithm, alg)
	}
}

// CheckKeyMatchesAlgorithm verifies the public key can produce signatures of
// the given algorithm.
func CheckKeyMatchesAlgorithm(pub crypto.PublicKey, alg interfaces.SigningAlgorithm) error {
	switch key := pub.(type) {
	case *ecdsa.PublicKey:
		var want interfaces.SigningAlgorithm
		switch key.Curve {
		case elliptic.P256():
			want = interfaces.AlgES256
		case elliptic.P384():
			want = interfaces.AlgES384
		case elliptic.P521():
			want = interfaces.AlgES512
		default:
			return fmt.Errorf("%w: unsupported curve", interfaces.ErrUnsupportedAlgorithm)
		}
		if alg != want {
			return fmt.Errorf("%w: key produces %s, requested %s", interfaces.ErrUnsupportedAlgorithm, want, alg)
		}
	case ed25519.PublicKey:
		if alg != interfaces.AlgEd25519 {
			return fmt.Errorf("%w: key produces ed25519, requested %s", interfaces.ErrUnsupportedAlgorithm, alg)
		}
	default:
		return fmt.Errorf("%w: unsupported key type %T", interfaces.ErrUnsupportedAlgorithm, pub)
	}
	return nil
}

// AlgorithmForPublicKey returns the signature algorithm a public key
// naturally produces.
func AlgorithmForPublicKey(pub crypto.PublicKey) (interfaces.SigningAlgorithm, error) {
	switch key := pub.(type) {
	case *ecdsa.PublicKey:
		switch key.Curve {
		case elliptic.P256():
			return interfaces.AlgES256, nil
		case elliptic.P384():
			return interfaces.AlgES384, nil
		case elliptic.P521():
			return interfaces.AlgES512, nil
		}
		return "", fmt.Errorf("%w: unsupported curve", interfaces.ErrUnsupportedAlgorithm)
	case ed25519.PublicKey:
		return interfaces.AlgEd25519, nil
	default:
		return "", fmt.Errorf("%w: unsupported key type %T", interfaces.ErrUnsupportedAlgorithm, pub)
	}
}

// GenerateKeyOfKind creates a fresh private key of the requested kind.
// Enclave kinds map to the same curve as their software counterpart; the
// enclave residency property is the store's concern, not the key math.
func GenerateKeyOfKind(kind interfaces.KeyKind) (crypto.Signer, error) {
	switch kind {
	case interfaces.KeyKindP256, interfaces.KeyKindEnclaveP256:
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case interfaces.KeyKindP384:
		return ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	case interfaces.KeyKindP521:
		return ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	case interfaces.KeyKindEd25519:
		_, key, err := ed25519.GenerateKey(rand.Reader)
		return key, err
	default:
		return nil, fmt.Errorf("%w: unknown key kind %q", interfaces.ErrKeyGenerationFailed, kind)
	}
}

// VerifyCertificateKeyPair validates that a certificate's public key matches
// the given private key and that the certificate's common name equals the
// expected value. Used when resolving user-provided credentials.
func VerifyCertificateKeyPair(keyPEM KeyPEM, certPEM CertPEM, expectedCN string) error {
	privateKey, err := keyPEM.ParsePrivateKey()
	if err != nil {
		return err
	}

	cert, err := certPEM.GetX509Cert()
	if err != nil {
		return err
	}

	if expectedCN != "" && cert.Subject.CommonName != expectedCN {
		return fmt.Errorf("CommonName is %s, expected %s", cert.Subject.CommonName, expectedCN)
	}

	switch certKey := cert.PublicKey.(type) {
	case *ecdsa.PublicKey:
		privPub, ok := privateKey.Public().(*ecdsa.PublicKey)
		if !ok {
			return errors.New("private key type doesn't match certificate")
		}
		if !certKey.Equal(privPub) {
			return errors.New("private key doesn't match certificate")
		}
	case ed25519.PublicKey:
		privPub, ok := privateKey.Public().(ed25519.PublicKey)
		if !ok {
			return errors.New("private key type doesn't match certificate")
		}
		if !certKey.Equal(privPub) {
			return errors.New("private key doesn't match certificate")
		}
	default:
		return errors.New("unsupported key type")
	}
	return nil
}

func subjectFromProfile(profile interfaces.CertificateProfile) pkix.Name {
	name := pkix.Name{CommonName: profile.CommonName}
	if profile.Organization != "" {
		name.Organization = []string{profile.Organization}
	}
	if profile.OrganizationalUnit != "" {
		name.OrganizationalUnit = []string{profile.OrganizationalUnit}
	}
	if profile.Country != "" {
		name.Country = []string{profile.Country}
	}
	if profile.Province != "" {
		name.Province = []string{profile.Province}
	}
	if profile.Locality != "" {
		name.Locality = []string{profile.Locality}
	}
	return name
}

func csrSignatureAlgorithm(pub crypto.PublicKey) (x509.SignatureAlgorithm, error) {
	switch key := pub.(type) {
	case *ecdsa.PublicKey:
		switch key.Curve {
		case elliptic.P256():
			return x509.ECDSAWithSHA256, nil
		case elliptic.P384():
			return x509.ECDSAWithSHA384, nil
		case elliptic.P521():
			return x509.ECDSAWithSHA512, nil
		}
		return 0, fmt.Errorf("%w: unsupported curve for CSR", interfaces.ErrInvalidCredentialFormat)
	case ed25519.PublicKey:
		return x509.PureEd25519, nil
	default:
		return 0, fmt.Errorf("%w: public key representation cannot be parsed", interfaces.ErrInvalidCredentialFormat)
	}
}
