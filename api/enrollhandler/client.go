package enrollhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/clearsign/c2pa-provisioning-backend/api"
	"github.com/clearsign/c2pa-provisioning-backend/cryptoutils"
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// Client submits certificate signing requests to a remote enrollment
// endpoint. A single attempt is made per call; retry policy, if any, is the
// caller's responsibility.
type Client struct {
	// BaseURL is the CA service base URL. The enrollment path segment is
	// appended unless already present.
	BaseURL string

	// BearerToken authenticates the request.
	BearerToken string

	// HTTPClient overrides http.DefaultClient when set.
	HTTPClient *http.Client
}

// Enroll submits the CSR plus device metadata and parses the signed chain
// response.
//
// Failure modes: interfaces.ErrConfigurationMissing before any network call
// when BaseURL or BearerToken is empty, interfaces.ErrNetwork for transport
// failures, *interfaces.ServerRejectedError for non-200 statuses, and
// interfaces.ErrMalformedResponse when a 200 body fails to decode.
func (c *Client) Enroll(ctx context.Context, csr cryptoutils.CSRPEM, metadata api.EnrollmentMetadata) (*api.EnrollmentResponse, error) {
	if strings.TrimSpace(c.BaseURL) == "" || strings.TrimSpace(c.BearerToken) == "" {
		return nil, fmt.Errorf("%w: enrollment base URL and bearer token are required", interfaces.ErrConfigurationMissing)
	}

	body, err := json.Marshal(api.EnrollmentRequest{
		CSR:      string(csr),
		Metadata: metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("could not encode enrollment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not initialize enrollment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.BearerToken)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: could not request enrollment endpoint: %v", interfaces.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &interfaces.ServerRejectedError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(bodyBytes)),
		}
	}

	var parsed api.EnrollmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: could not parse enrollment response: %v", interfaces.ErrMalformedResponse, err)
	}
	if parsed.CertificateChain == "" {
		return nil, fmt.Errorf("%w: enrollment response missing certificate chain", interfaces.ErrMalformedResponse)
	}

	return &parsed, nil
}

func (c *Client) endpoint() string {
	base := strings.TrimSuffix(strings.TrimSpace(c.BaseURL), "/")
	if strings.HasSuffix(base, api.EnrollmentPath) {
		return base
	}
	return base + api.EnrollmentPath
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
