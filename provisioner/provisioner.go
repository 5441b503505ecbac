package provisioner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	cache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/clearsign/c2pa-provisioning-backend/api"
	"github.com/clearsign/c2pa-provisioning-backend/api/enrollhandler"
	"github.com/clearsign/c2pa-provisioning-backend/api/signerhandler"
	"github.com/clearsign/c2pa-provisioning-backend/cryptoutils"
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
	"github.com/clearsign/c2pa-provisioning-backend/metrics"
	"github.com/clearsign/c2pa-provisioning-backend/signer"
)

// Blob names for user-supplied credentials imported before the chain
// cache existed. Resolved and migrated on first use.
const (
	LegacyUserCertBlob = "media.signing.user.cert"
	LegacyUserKeyBlob  = "media.signing.user.key"
)

// Config carries the collaborators and settings for a Provisioner. Keys
// backs the store-backed and user-provided modes, EnclaveKeys the
// hardware mode.
type Config struct {
	Keys        interfaces.KeyStore
	EnclaveKeys interfaces.KeyStore
	Blobs       interfaces.BlobStore

	// Profile is the identity encoded into self-built certificates and
	// enrollment CSRs.
	Profile interfaces.CertificateProfile

	// SoftwareAlgorithm selects the key and signature algorithm for the
	// store-backed mode. Defaults to ES256.
	SoftwareAlgorithm interfaces.SigningAlgorithm

	// EnrollmentURL and EnrollmentToken configure the remote CA used by
	// the hardware enclave mode.
	EnrollmentURL   string
	EnrollmentToken string

	// RemoteSignerURL and RemoteSignerToken configure the remote signing
	// service mode.
	RemoteSignerURL   string
	RemoteSignerToken string

	TimestampAuthorityURL string

	// DeviceID and AppVersion are sent as enrollment metadata when set.
	DeviceID   string
	AppVersion string

	// HTTPClient overrides http.DefaultClient for enrollment and remote
	// signer traffic.
	HTTPClient *http.Client

	Log *slog.Logger
}

// Provisioner produces ready-to-use signers per mode, creating and
// caching credentials as needed. Safe for concurrent use.
type Provisioner struct {
	cfg     Config
	records *cache.Cache
	flight  singleflight.Group
	log     *slog.Logger
}

// New validates the configuration and creates a Provisioner.
func New(cfg Config) (*Provisioner, error) {
	if cfg.Keys == nil || cfg.Blobs == nil {
		return nil, errors.New("provisioner requires a key store and a blob store")
	}
	if cfg.EnclaveKeys == nil {
		cfg.EnclaveKeys = cfg.Keys
	}
	if cfg.SoftwareAlgorithm == "" {
		cfg.SoftwareAlgorithm = interfaces.AlgES256
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	return &Provisioner{
		cfg:     cfg,
		records: cache.New(cache.NoExpiration, 0),
		log:     cfg.Log,
	}, nil
}

// SignerFor returns a signer for the mode, provisioning credentials on
// first use. Concurrent calls for the same mode share one provisioning
// attempt.
func (p *Provisioner) SignerFor(ctx context.Context, mode interfaces.SigningMode) (interfaces.Signer, error) {
	switch mode {
	case interfaces.ModeBundled:
		return p.bundledSigner()
	case interfaces.ModeStoreBacked:
		return p.storeBackedSigner(ctx)
	case interfaces.ModeHardwareEnclave:
		return p.enclaveSigner(ctx)
	case interfaces.ModeUserProvided:
		return p.userProvidedSigner(ctx)
	case interfaces.ModeRemoteService:
		return p.remoteServiceSigner(ctx)
	default:
		return nil, fmt.Errorf("unknown signing mode %q", mode)
	}
}

// Reset removes the mode's key and cached chain. Absent credentials are
// not an error. Bundled and remote modes hold no local state.
func (p *Provisioner) Reset(ctx context.Context, mode interfaces.SigningMode) error {
	tag := interfaces.KeyTagForMode(mode)
	if tag == "" {
		return nil
	}

	keys := p.cfg.Keys
	if mode == interfaces.ModeHardwareEnclave {
		keys = p.cfg.EnclaveKeys
	}

	if err := keys.DeleteKey(tag); err != nil {
		return fmt.Errorf("deleting key %q: %w", tag, err)
	}
	if err := p.cfg.Blobs.DeleteBlob(ctx, tag.ChainCacheName()); err != nil {
		return fmt.Errorf("deleting cached chain for %q: %w", tag, err)
	}
	if mode == interfaces.ModeUserProvided {
		if err := p.cfg.Blobs.DeleteBlob(ctx, LegacyUserCertBlob); err != nil {
			return fmt.Errorf("deleting user certificate blob: %w", err)
		}
		if err := p.cfg.Blobs.DeleteBlob(ctx, LegacyUserKeyBlob); err != nil {
			return fmt.Errorf("deleting user key blob: %w", err)
		}
	}

	p.records.Delete(string(tag))
	p.log.Info("Reset signing credentials", "mode", mode.String(), "tag", tag.String())
	return nil
}

// ImportUserCredentials validates and installs a user-supplied
// certificate and key pair for the user-provided mode. The key lands in
// the key store, the chain in the cache blob, and the raw pair is kept
// as blobs so a reinstalled store can re-import.
func (p *Provisioner) ImportUserCredentials(ctx context.Context, certChainPEM cryptoutils.CertChainPEM, keyPEM cryptoutils.KeyPEM) error {
	key, err := keyPEM.ParsePrivateKey()
	if err != nil {
		return fmt.Errorf("%w: parsing user key: %w", interfaces.ErrInvalidCredentialFormat, err)
	}
	leaf, err := certChainPEM.Leaf()
	if err != nil {
		return fmt.Errorf("%w: parsing user certificate chain: %w", interfaces.ErrInvalidCredentialFormat, err)
	}
	leafAlg, err := cryptoutils.AlgorithmForPublicKey(leaf.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: %w", interfaces.ErrInvalidCredentialFormat, err)
	}
	if err := cryptoutils.CheckKeyMatchesAlgorithm(key.Public(), leafAlg); err != nil {
		return fmt.Errorf("%w: user key does not match the certificate", interfaces.ErrInvalidCredentialFormat)
	}

	tag := interfaces.UserKeyTag
	if err := p.cfg.Keys.DeleteKey(tag); err != nil {
		return fmt.Errorf("replacing user key: %w", err)
	}
	if _, err := p.cfg.Keys.ImportKey(tag, []byte(keyPEM), interfaces.AccessPolicyNone); err != nil {
		return fmt.Errorf("importing user key: %w", err)
	}

	if err := p.cfg.Blobs.StoreBlob(ctx, LegacyUserKeyBlob, []byte(keyPEM)); err != nil {
		return fmt.Errorf("storing user key blob: %w", err)
	}
	if err := p.cfg.Blobs.StoreBlob(ctx, LegacyUserCertBlob, []byte(certChainPEM)); err != nil {
		return fmt.Errorf("storing user certificate blob: %w", err)
	}
	if err := p.cfg.Blobs.StoreBlob(ctx, tag.ChainCacheName(), []byte(certChainPEM)); err != nil {
		return fmt.Errorf("caching user certificate chain: %w", err)
	}

	p.records.Delete(string(tag))
	p.log.Info("Imported user signing credentials", "subject", leaf.Subject.CommonName)
	return nil
}

func (p *Provisioner) storeBackedSigner(ctx context.Context) (interfaces.Signer, error) {
	alg := p.cfg.SoftwareAlgorithm
	rec, err := p.ensureCredential(ctx, interfaces.ModeStoreBacked, p.cfg.Keys, interfaces.SoftwareKeyTag,
		keyKindForAlgorithm(alg), interfaces.AccessPolicyNone,
		func(ctx context.Context, handle interfaces.KeyHandle) (cryptoutils.CertChainPEM, error) {
			return cryptoutils.SelfSignedChain(handle, p.cfg.Profile)
		})
	if err != nil {
		return nil, err
	}

	return signer.NewStoreDelegatedSigner(p.cfg.Keys, rec.KeyTag,
		cryptoutils.CertChainPEM(rec.CertificateChainPEM), alg, p.cfg.TimestampAuthorityURL)
}

func (p *Provisioner) enclaveSigner(ctx context.Context) (interfaces.Signer, error) {
	if p.cfg.EnrollmentURL == "" || p.cfg.EnrollmentToken == "" {
		return nil, fmt.Errorf("%w: enrollment base URL and bearer token are required for enclave provisioning", interfaces.ErrConfigurationMissing)
	}

	rec, err := p.ensureCredential(ctx, interfaces.ModeHardwareEnclave, p.cfg.EnclaveKeys, interfaces.EnclaveKeyTag,
		interfaces.KeyKindEnclaveP256, interfaces.AccessPolicyHardware, p.enrollChain)
	if err != nil {
		return nil, err
	}

	return signer.NewStoreDelegatedSigner(p.cfg.EnclaveKeys, rec.KeyTag,
		cryptoutils.CertChainPEM(rec.CertificateChainPEM), interfaces.AlgES256, p.cfg.TimestampAuthorityURL)
}

// enrollChain builds a CSR over the enclave key and submits it to the
// remote CA.
func (p *Provisioner) enrollChain(ctx context.Context, handle interfaces.KeyHandle) (cryptoutils.CertChainPEM, error) {
	csr, err := cryptoutils.CreateCSR(handle, p.cfg.Profile)
	if err != nil {
		return nil, err
	}

	client := &enrollhandler.Client{
		BaseURL:     p.cfg.EnrollmentURL,
		BearerToken: p.cfg.EnrollmentToken,
		HTTPClient:  p.cfg.HTTPClient,
	}
	resp, err := client.Enroll(ctx, csr, api.EnrollmentMetadata{
		DeviceID:   optional(p.cfg.DeviceID),
		AppVersion: optional(p.cfg.AppVersion),
	})
	if err != nil {
		return nil, err
	}

	p.log.Info("Enrolled enclave key with remote CA",
		"certificate_id", resp.CertificateID,
		"serial_number", resp.SerialNumber,
		"expires_at", resp.ExpiresAt)
	return cryptoutils.CertChainPEM(resp.CertificateChain), nil
}

func (p *Provisioner) userProvidedSigner(ctx context.Context) (interfaces.Signer, error) {
	tag := interfaces.UserKeyTag

	v, err, _ := p.flight.Do(string(tag), func() (interface{}, error) {
		handle, err := p.cfg.Keys.FindKey(tag)
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			handle, err = p.importUserKeyFromBlob(ctx)
		}
		if err != nil {
			return nil, err
		}

		rec, err := p.resolveUserChain(ctx)
		if err != nil {
			return nil, err
		}
		return userCredential{handle: handle, record: rec}, nil
	})
	if err != nil {
		return nil, err
	}
	cred := v.(userCredential)

	alg, err := cryptoutils.AlgorithmForPublicKey(cred.handle.Public())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interfaces.ErrInvalidCredentialFormat, err)
	}

	return signer.NewStoreDelegatedSigner(p.cfg.Keys, tag,
		cryptoutils.CertChainPEM(cred.record.CertificateChainPEM), alg, p.cfg.TimestampAuthorityURL)
}

type userCredential struct {
	handle interfaces.KeyHandle
	record *interfaces.CredentialRecord
}

// importUserKeyFromBlob installs the user key blob into the key store on
// first use after an import that predates the store entry.
func (p *Provisioner) importUserKeyFromBlob(ctx context.Context) (interfaces.KeyHandle, error) {
	keyPEM, err := p.cfg.Blobs.LoadBlob(ctx, LegacyUserKeyBlob)
	if errors.Is(err, interfaces.ErrBlobNotFound) {
		return nil, fmt.Errorf("%w: no user-provided key has been imported", interfaces.ErrCredentialsNotAvailable)
	}
	if err != nil {
		return nil, fmt.Errorf("loading user key blob: %w", err)
	}

	handle, err := p.cfg.Keys.ImportKey(interfaces.UserKeyTag, keyPEM, interfaces.AccessPolicyNone)
	if err != nil {
		return nil, fmt.Errorf("%w: importing user key: %w", interfaces.ErrInvalidCredentialFormat, err)
	}
	p.log.Info("Imported user key blob into key store", "tag", interfaces.UserKeyTag.String())
	return handle, nil
}

// resolveUserChain reads the cached chain, falling back to the flat
// certificate blob and migrating it into the chain cache.
func (p *Provisioner) resolveUserChain(ctx context.Context) (*interfaces.CredentialRecord, error) {
	tag := interfaces.UserKeyTag
	if rec, ok := p.cachedRecord(tag); ok {
		return rec, nil
	}

	chain, err := p.cfg.Blobs.LoadBlob(ctx, tag.ChainCacheName())
	if errors.Is(err, interfaces.ErrBlobNotFound) {
		chain, err = p.cfg.Blobs.LoadBlob(ctx, LegacyUserCertBlob)
		if errors.Is(err, interfaces.ErrBlobNotFound) {
			return nil, fmt.Errorf("%w: no user-provided certificate has been imported", interfaces.ErrCredentialsNotAvailable)
		}
		if err != nil {
			return nil, fmt.Errorf("loading user certificate blob: %w", err)
		}
		if err := p.cfg.Blobs.StoreBlob(ctx, tag.ChainCacheName(), chain); err != nil {
			return nil, fmt.Errorf("migrating user certificate into chain cache: %w", err)
		}
		p.log.Info("Migrated user certificate blob into chain cache", "tag", tag.String())
	} else if err != nil {
		return nil, fmt.Errorf("loading cached chain for %q: %w", tag, err)
	}

	rec := &interfaces.CredentialRecord{
		KeyTag:              tag,
		CertificateChainPEM: string(chain),
		CachedAt:            time.Now().UTC(),
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	p.records.Set(string(tag), rec, cache.NoExpiration)
	return rec, nil
}

func (p *Provisioner) remoteServiceSigner(ctx context.Context) (interfaces.Signer, error) {
	if p.cfg.RemoteSignerURL == "" || p.cfg.RemoteSignerToken == "" {
		return nil, fmt.Errorf("%w: remote signer base URL and bearer token are required", interfaces.ErrConfigurationMissing)
	}

	client := &signerhandler.Client{
		ConfigurationURL: p.cfg.RemoteSignerURL,
		BearerToken:      p.cfg.RemoteSignerToken,
		HTTPClient:       p.cfg.HTTPClient,
	}
	s, err := signer.NewNetworkDelegatedSigner(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interfaces.ErrRemoteService, err)
	}
	return s, nil
}

// chainBuilder produces a certificate chain for an existing key handle.
type chainBuilder func(ctx context.Context, handle interfaces.KeyHandle) (cryptoutils.CertChainPEM, error)

// ensureCredential is the get-or-create path shared by the store-backed
// and enclave modes. Calls for the same tag are serialized through a
// single-flight group so concurrent cache misses provision once.
func (p *Provisioner) ensureCredential(ctx context.Context, mode interfaces.SigningMode, keys interfaces.KeyStore, tag interfaces.KeyTag, kind interfaces.KeyKind, policy interfaces.AccessPolicy, build chainBuilder) (*interfaces.CredentialRecord, error) {
	v, err, _ := p.flight.Do(string(tag), func() (interface{}, error) {
		if rec, ok := p.cachedRecord(tag); ok {
			metrics.ProvisioningsTotal.WithLabelValues(mode.String(), "hit").Inc()
			return rec, nil
		}

		handle, err := keys.FindKey(tag)
		keyExists := err == nil
		if err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
			return nil, fmt.Errorf("looking up key %q: %w", tag, err)
		}

		if keyExists {
			chain, err := p.cfg.Blobs.LoadBlob(ctx, tag.ChainCacheName())
			if err == nil {
				metrics.ProvisioningsTotal.WithLabelValues(mode.String(), "hit").Inc()
				return p.commitRecord(tag, cryptoutils.CertChainPEM(chain))
			}
			if !errors.Is(err, interfaces.ErrBlobNotFound) {
				return nil, fmt.Errorf("loading cached chain for %q: %w", tag, err)
			}
			// Orphaned key: a previous attempt created the key but never
			// cached a chain. Reuse the key rather than regenerating.
			p.log.Warn("Found key without cached chain, rebuilding chain", "tag", tag.String())
		} else {
			handle, err = keys.GenerateKey(tag, kind, policy)
			if err != nil {
				return nil, fmt.Errorf("%w: generating %q: %w", interfaces.ErrKeyGenerationFailed, tag, err)
			}
		}

		chain, err := build(ctx, handle)
		if err != nil {
			return nil, err
		}
		if err := p.cfg.Blobs.StoreBlob(ctx, tag.ChainCacheName(), []byte(chain)); err != nil {
			return nil, fmt.Errorf("caching chain for %q: %w", tag, err)
		}

		metrics.ProvisioningsTotal.WithLabelValues(mode.String(), "miss").Inc()
		p.log.Info("Provisioned signing credentials", "mode", mode.String(), "tag", tag.String())
		return p.commitRecord(tag, chain)
	})
	if err != nil {
		return nil, err
	}
	return v.(*interfaces.CredentialRecord), nil
}

func (p *Provisioner) cachedRecord(tag interfaces.KeyTag) (*interfaces.CredentialRecord, bool) {
	v, ok := p.records.Get(string(tag))
	if !ok {
		return nil, false
	}
	return v.(*interfaces.CredentialRecord), true
}

func (p *Provisioner) commitRecord(tag interfaces.KeyTag, chain cryptoutils.CertChainPEM) (*interfaces.CredentialRecord, error) {
	rec := &interfaces.CredentialRecord{
		KeyTag:              tag,
		CertificateChainPEM: string(chain),
		CachedAt:            time.Now().UTC(),
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	p.records.Set(string(tag), rec, cache.NoExpiration)
	return rec, nil
}

func keyKindForAlgorithm(alg interfaces.SigningAlgorithm) interfaces.KeyKind {
	switch alg {
	case interfaces.AlgES384:
		return interfaces.KeyKindP384
	case interfaces.AlgES512:
		return interfaces.KeyKindP521
	case interfaces.AlgEd25519:
		return interfaces.KeyKindEd25519
	default:
		return interfaces.KeyKindP256
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
