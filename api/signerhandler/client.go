package signerhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/clearsign/c2pa-provisioning-backend/api"
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// Configuration is the parsed result of the configuration endpoint: what a
// network-delegated signer needs to present itself to the embedding engine.
type Configuration struct {
	Algorithm             interfaces.SigningAlgorithm
	CertificateChainPEM   []byte
	TimestampAuthorityURL string

	// SigningURL is absolute, resolved against the configuration URL when
	// the service advertised a relative path.
	SigningURL string
}

// Client talks to a remote signing service. A single attempt is made per
// call; no retry is performed.
type Client struct {
	// ConfigurationURL is the service base or full configuration URL. The
	// configuration path segment is appended unless already present.
	ConfigurationURL string

	// BearerToken authenticates all requests.
	BearerToken string

	// HTTPClient overrides http.DefaultClient when set.
	HTTPClient *http.Client
}

// FetchConfiguration retrieves and validates the service configuration.
//
// Failure modes: interfaces.ErrConfigurationMissing before any network call
// when the URL or token is empty, interfaces.ErrNetwork for transport
// failures, *interfaces.ServerRejectedError for non-200 statuses, and
// interfaces.ErrMalformedResponse for undecodable or incomplete bodies.
func (c *Client) FetchConfiguration(ctx context.Context) (*Configuration, error) {
	if strings.TrimSpace(c.ConfigurationURL) == "" || strings.TrimSpace(c.BearerToken) == "" {
		return nil, fmt.Errorf("%w: remote signer URL and bearer token are required", interfaces.ErrConfigurationMissing)
	}

	configURL := c.configEndpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, configURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not initialize configuration request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.BearerToken)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: could not request signer configuration: %v", interfaces.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &interfaces.ServerRejectedError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(bodyBytes)),
		}
	}

	var parsed api.SignerConfigurationResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: could not parse signer configuration: %v", interfaces.ErrMalformedResponse, err)
	}

	alg, err := interfaces.ParseSigningAlgorithm(parsed.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: configuration reports unusable algorithm %q", interfaces.ErrMalformedResponse, parsed.Algorithm)
	}
	if parsed.CertificateChain == "" {
		return nil, fmt.Errorf("%w: configuration missing certificate chain", interfaces.ErrMalformedResponse)
	}

	signingURL, err := c.resolveSigningURL(configURL, parsed.SigningURL)
	if err != nil {
		return nil, err
	}

	return &Configuration{
		Algorithm:             alg,
		CertificateChainPEM:   []byte(parsed.CertificateChain),
		TimestampAuthorityURL: parsed.TimestampAuthorityURL,
		SigningURL:            signingURL,
	}, nil
}

// Sign delegates a signing operation to the service.
func (c *Client) Sign(ctx context.Context, signingURL string, payload []byte) ([]byte, error) {
	body, err := json.Marshal(api.RemoteSignRequest{Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("could not encode sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signingURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not initialize sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.BearerToken)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: could not request signing endpoint: %v", interfaces.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &interfaces.ServerRejectedError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(bodyBytes)),
		}
	}

	var parsed api.RemoteSignResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: could not parse sign response: %v", interfaces.ErrMalformedResponse, err)
	}
	if len(parsed.Signature) == 0 {
		return nil, fmt.Errorf("%w: sign response missing signature", interfaces.ErrMalformedResponse)
	}

	return parsed.Signature, nil
}

func (c *Client) configEndpoint() string {
	base := strings.TrimSuffix(strings.TrimSpace(c.ConfigurationURL), "/")
	if strings.HasSuffix(base, api.SignerConfigPath) {
		return base
	}
	return base + api.SignerConfigPath
}

func (c *Client) resolveSigningURL(configURL, signingURL string) (string, error) {
	if signingURL == "" {
		signingURL = api.SignerSignPath
	}

	ref, err := url.Parse(signingURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid signing URL: %v", interfaces.ErrMalformedResponse, err)
	}
	if ref.IsAbs() {
		return signingURL, nil
	}

	base, err := url.Parse(configURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid configuration URL: %v", interfaces.ErrConfigurationMissing, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
